// Package tokenstore provides TokenRepo implementations backed by
// configuration rather than a database.
package tokenstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/payqr/payqr"
)

// MapStore holds tokens in memory, indexed by secret. Reads take a shared
// lock so unbounded concurrent lookups never block each other; the rare
// administrative writes take the exclusive lock.
type MapStore struct {
	mu       sync.RWMutex
	bySecret map[string]payqr.Token
	byID     map[string]payqr.Token
}

// NewMapStore creates a map-based token store seeded with the given tokens.
func NewMapStore(tokens []payqr.Token) (*MapStore, error) {
	s := &MapStore{
		bySecret: make(map[string]payqr.Token, len(tokens)),
		byID:     make(map[string]payqr.Token, len(tokens)),
	}
	for _, t := range tokens {
		if _, err := s.Create(context.Background(), t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// GetBySecret resolves a secret by exact match.
func (s *MapStore) GetBySecret(_ context.Context, secret string) (payqr.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.bySecret[secret]
	if !ok {
		return payqr.Token{}, fmt.Errorf("token lookup: %w", payqr.ErrNotFound)
	}
	return t, nil
}

// Create adds a token. The id and secret must be unique.
func (s *MapStore) Create(_ context.Context, t payqr.Token) (payqr.Token, error) {
	if err := payqr.ValidateToken(t); err != nil {
		return payqr.Token{}, fmt.Errorf("create token: %w: %w", payqr.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[t.ID]; exists {
		return payqr.Token{}, fmt.Errorf("create token: duplicate id %s: %w", t.ID, payqr.ErrInvalidInput)
	}
	if _, exists := s.bySecret[t.Secret]; exists {
		return payqr.Token{}, fmt.Errorf("create token: duplicate secret: %w", payqr.ErrInvalidInput)
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.byID[t.ID] = t
	s.bySecret[t.Secret] = t
	return t, nil
}

// Revoke removes the token with the given id.
func (s *MapStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("revoke token %s: %w", id, payqr.ErrNotFound)
	}
	delete(s.byID, id)
	delete(s.bySecret, t.Secret)
	return nil
}

// List returns all active tokens.
func (s *MapStore) List(_ context.Context) ([]payqr.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]payqr.Token, 0, len(s.byID))
	for _, t := range s.byID {
		tokens = append(tokens, t)
	}
	return tokens, nil
}
