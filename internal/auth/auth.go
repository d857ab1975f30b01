// internal/auth/auth.go

// Package auth persists the API bearer token. The extraction engine never
// sees tokens; the CLI and API client gate submission on one being present.
package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// ErrNoToken is returned when no token has been saved.
var ErrNoToken = errors.New("not logged in")

// TokenStore saves and retrieves the API bearer token.
type TokenStore interface {
	Save(token string) error
	Token() (string, error)
	Clear() error
}

const (
	keyringService = "pricescout"
	keyringUser    = "api-token"
)

// KeyringStore keeps the token in the OS keyring.
type KeyringStore struct {
	service string
}

// NewKeyringStore returns a TokenStore backed by the OS keyring.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService}
}

func (s *KeyringStore) Save(token string) error {
	if err := keyring.Set(s.service, keyringUser, token); err != nil {
		return fmt.Errorf("saving token to keyring: %w", err)
	}
	return nil
}

func (s *KeyringStore) Token() (string, error) {
	token, err := keyring.Get(s.service, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("reading token from keyring: %w", err)
	}
	return token, nil
}

func (s *KeyringStore) Clear() error {
	err := keyring.Delete(s.service, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("clearing token from keyring: %w", err)
	}
	return nil
}

// MemoryStore is an in-process TokenStore for tests and ephemeral runs.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = token, true
	return nil
}

func (s *MemoryStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return "", ErrNoToken
	}
	return s.token, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = "", false
	return nil
}
