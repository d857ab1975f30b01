// internal/dedup/dedup_test.go

package dedup

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pricescout/pricescout/internal/extract"
)

func record(url string, price float64) *extract.Record {
	rec := extract.NewRecord(url, "m-1", "Shop Test", nil)
	rec.Price = &price
	return rec
}

func TestShouldSubmitFreshPage(t *testing.T) {
	c := New(time.Hour, 10)
	if !c.ShouldSubmit(record("https://shop.test/product/a", 19.99)) {
		t.Error("unseen page must pass the gate")
	}
}

func TestDuplicateContentSuppressed(t *testing.T) {
	c := New(time.Hour, 10)
	rec := record("https://shop.test/product/a", 19.99)
	c.MarkSubmitted(rec)

	if c.ShouldSubmit(record("https://shop.test/product/a", 19.99)) {
		t.Error("identical content within TTL must be suppressed")
	}
	// Query strings and fragments do not defeat deduplication.
	if c.ShouldSubmit(record("https://shop.test/product/a?utm_source=x#reviews", 19.99)) {
		t.Error("query/fragment variants must hit the same entry")
	}
}

func TestChangedContentPasses(t *testing.T) {
	c := New(time.Hour, 10)
	c.MarkSubmitted(record("https://shop.test/product/a", 19.99))

	if !c.ShouldSubmit(record("https://shop.test/product/a", 14.99)) {
		t.Error("changed price must pass the gate")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New(time.Hour, 10)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.MarkSubmitted(record("https://shop.test/product/a", 19.99))

	now = now.Add(59 * time.Minute)
	if c.ShouldSubmit(record("https://shop.test/product/a", 19.99)) {
		t.Error("entry must still suppress inside the TTL")
	}

	now = now.Add(2 * time.Minute)
	if !c.ShouldSubmit(record("https://shop.test/product/a", 19.99)) {
		t.Error("expired entry must pass the gate")
	}
}

func TestSuppressionSurvivesReopen(t *testing.T) {
	// Each CLI invocation builds its own gate, so suppression has to come
	// from the state file, not process memory.
	path := filepath.Join(t.TempDir(), "dedup.json")

	first, err := Open(path, time.Hour, 10)
	if err != nil {
		t.Fatal(err)
	}
	rec := record("https://shop.test/product/a", 19.99)
	if !first.ShouldSubmit(rec) {
		t.Fatal("empty state file must pass the gate")
	}
	first.MarkSubmitted(rec)
	if err := first.Save(); err != nil {
		t.Fatal(err)
	}

	second, err := Open(path, time.Hour, 10)
	if err != nil {
		t.Fatal(err)
	}
	if second.ShouldSubmit(record("https://shop.test/product/a", 19.99)) {
		t.Error("identical content within TTL must be suppressed across reopen")
	}
	if !second.ShouldSubmit(record("https://shop.test/product/a", 14.99)) {
		t.Error("changed price must pass the gate after reopen")
	}
}

func TestReopenDropsExpiredEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dedup.json")

	first, err := Open(path, time.Hour, 10)
	if err != nil {
		t.Fatal(err)
	}
	// Stamp the entry two hours in the past so the reopening gate sees it
	// as expired.
	past := time.Now().Add(-2 * time.Hour)
	first.now = func() time.Time { return past }
	first.MarkSubmitted(record("https://shop.test/product/a", 19.99))
	if err := first.Save(); err != nil {
		t.Fatal(err)
	}

	second, err := Open(path, time.Hour, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.entries) != 0 {
		t.Errorf("expired entries loaded = %d, want 0", len(second.entries))
	}
	if !second.ShouldSubmit(record("https://shop.test/product/a", 19.99)) {
		t.Error("expired entry must pass the gate after reopen")
	}
}

func TestOpenToleratesCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dedup.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Open(path, time.Hour, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !c.ShouldSubmit(record("https://shop.test/product/a", 19.99)) {
		t.Error("corrupt state must start the gate empty")
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	c := New(time.Hour, 3)
	now := time.Now()
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		c.MarkSubmitted(record(fmt.Sprintf("https://shop.test/product/%d", i), 19.99))
		now = now.Add(time.Minute)
	}

	// A fourth page evicts the oldest entry (product/0).
	c.MarkSubmitted(record("https://shop.test/product/3", 19.99))

	if !c.ShouldSubmit(record("https://shop.test/product/0", 19.99)) {
		t.Error("oldest entry must have been evicted")
	}
	if c.ShouldSubmit(record("https://shop.test/product/2", 19.99)) {
		t.Error("newer entries must survive eviction")
	}
}
