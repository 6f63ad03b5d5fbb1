package payqr

import (
	"context"
	"errors"
	"fmt"
)

// AccessManager resolves presented secrets against the token store and
// checks route permission requirements. It holds no state of its own and
// is safe for concurrent use.
type AccessManager struct {
	tokens TokenRepo
}

// NewAccessManager creates an AccessManager backed by the given token repo.
func NewAccessManager(tokens TokenRepo) *AccessManager {
	return &AccessManager{tokens: tokens}
}

// Authorize resolves secret and checks that the matched token's permission
// set is a superset of required. Authorization is all-or-nothing: partial
// overlap fails the same way as zero overlap.
//
// An empty required set always authorizes, but a presented secret is still
// looked up so both anonymous and token-bearing calls attribute correctly
// in the access log. An empty secret is valid input meaning "no token
// presented".
//
// On permission failure the matched token is still returned alongside
// ErrUnauthorized so the caller can attribute the denied request.
func (m *AccessManager) Authorize(ctx context.Context, secret string, required Permissions) (Token, error) {
	if secret == "" {
		if len(required) == 0 {
			return Token{}, nil
		}
		return Token{}, fmt.Errorf("authorize: no token presented: %w", ErrUnauthorized)
	}

	tok, err := m.tokens.GetBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if len(required) == 0 {
				return Token{}, nil
			}
			return Token{}, fmt.Errorf("authorize: unknown token: %w", ErrUnauthorized)
		}
		return Token{}, fmt.Errorf("authorize: %w", err)
	}

	if !tok.Permissions.HasAll(required) {
		return tok, fmt.Errorf("authorize: missing permissions: %w", ErrUnauthorized)
	}

	return tok, nil
}
