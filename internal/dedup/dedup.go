// internal/dedup/dedup.go

// Package dedup gates submission of extracted records. A record is worth
// submitting only if the same page has not already produced the same content
// within the TTL window. The gate is a bounded map owned by the caller,
// optionally backed by a state file so suppression survives across process
// runs; the extraction engine itself never consults it.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pricescout/pricescout/internal/extract"
)

const (
	// DefaultTTL is how long a submitted record suppresses resubmission of
	// identical content for the same page.
	DefaultTTL = time.Hour
	// DefaultCapacity bounds the tracked page count; the entry with the
	// oldest submission time is evicted first.
	DefaultCapacity = 100
)

type entry struct {
	fingerprint string
	submittedAt time.Time
}

// storedEntry is the on-disk form of an entry.
type storedEntry struct {
	Fingerprint string    `json:"fingerprint"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Cache is a TTL+capacity bounded submission gate, safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	ttl      time.Duration
	capacity int
	path     string
	now      func() time.Time
}

// New builds a cache with the given TTL and capacity; zero values fall back
// to the defaults.
func New(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		entries:  make(map[string]entry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Open builds a cache backed by the state file at path, loading any
// unexpired entries it holds. A missing file starts empty; a corrupt one is
// discarded, costing at worst one duplicate submission.
func Open(path string, ttl time.Duration, capacity int) (*Cache, error) {
	c := New(ttl, capacity)
	c.path = path

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dedup state: %w", err)
	}
	var stored map[string]storedEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return c, nil
	}
	cutoff := c.now()
	for k, e := range stored {
		if cutoff.Sub(e.SubmittedAt) >= c.ttl {
			continue
		}
		c.entries[k] = entry{fingerprint: e.Fingerprint, submittedAt: e.SubmittedAt}
	}
	return c, nil
}

// Save writes the unexpired entries back to the state file. Caches built
// with New have no state file and save nothing.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	now := c.now()
	stored := make(map[string]storedEntry, len(c.entries))
	for k, e := range c.entries {
		if now.Sub(e.submittedAt) >= c.ttl {
			continue
		}
		stored[k] = storedEntry{Fingerprint: e.fingerprint, SubmittedAt: e.submittedAt}
	}
	c.mu.Unlock()

	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating dedup state dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("writing dedup state: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// ShouldSubmit reports whether rec carries content not yet submitted for its
// page within the TTL window. Changed content on a known page passes.
func (c *Cache) ShouldSubmit(rec *extract.Record) bool {
	key := normalizeURL(rec.URL)
	fp := fingerprint(rec)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return true
	}
	if c.now().Sub(e.submittedAt) >= c.ttl {
		delete(c.entries, key)
		return true
	}
	return e.fingerprint != fp
}

// MarkSubmitted records that rec's content was submitted for its page,
// evicting the oldest entry when the cache is full.
func (c *Cache) MarkSubmitted(rec *extract.Record) {
	key := normalizeURL(rec.URL)
	fp := fingerprint(rec)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{fingerprint: fp, submittedAt: c.now()}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.submittedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.submittedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// normalizeURL reduces a page URL to scheme+host+path so query and fragment
// churn does not defeat deduplication.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Scheme + "://" + u.Host + u.Path
}

// fingerprint hashes the fields whose change justifies a resubmission.
func fingerprint(rec *extract.Record) string {
	var price, salePrice, sku, product, inStock string
	if rec.Price != nil {
		price = fmt.Sprintf("%.2f", *rec.Price)
	}
	if rec.SalePrice != nil {
		salePrice = fmt.Sprintf("%.2f", *rec.SalePrice)
	}
	if rec.SKU != nil {
		sku = *rec.SKU
	}
	if rec.ProductName != nil {
		product = *rec.ProductName
	}
	if rec.InStock != nil {
		inStock = fmt.Sprintf("%t", *rec.InStock)
	}
	sum := sha256.Sum256([]byte(price + "|" + salePrice + "|" + sku + "|" + product + "|" + inStock))
	return hex.EncodeToString(sum[:])
}
