package tokenstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payqr/payqr"
	"github.com/payqr/payqr/tokenstore"
)

func TestMapStore_CreateAndLookup(t *testing.T) {
	s, err := tokenstore.NewMapStore([]payqr.Token{
		{ID: "t1", Secret: "s1", Permissions: payqr.Permissions{payqr.PermGenerate}},
	})
	require.NoError(t, err)

	ctx := context.Background()

	tok, err := s.GetBySecret(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "t1", tok.ID)
	assert.False(t, tok.CreatedAt.IsZero())

	_, err = s.GetBySecret(ctx, "unknown")
	assert.ErrorIs(t, err, payqr.ErrNotFound)
}

func TestMapStore_DuplicateRejected(t *testing.T) {
	s, err := tokenstore.NewMapStore([]payqr.Token{
		{ID: "t1", Secret: "s1"},
	})
	require.NoError(t, err)

	ctx := context.Background()

	_, err = s.Create(ctx, payqr.Token{ID: "t1", Secret: "other"})
	assert.ErrorIs(t, err, payqr.ErrInvalidInput)

	_, err = s.Create(ctx, payqr.Token{ID: "other", Secret: "s1"})
	assert.ErrorIs(t, err, payqr.ErrInvalidInput)

	_, err = s.Create(ctx, payqr.Token{ID: "", Secret: "x"})
	assert.ErrorIs(t, err, payqr.ErrInvalidInput)
}

func TestMapStore_Revoke(t *testing.T) {
	s, err := tokenstore.NewMapStore([]payqr.Token{
		{ID: "t1", Secret: "s1"},
	})
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "t1"))

	_, err = s.GetBySecret(ctx, "s1")
	assert.ErrorIs(t, err, payqr.ErrNotFound)

	assert.ErrorIs(t, s.Revoke(ctx, "t1"), payqr.ErrNotFound)

	// The freed id and secret can be reused
	_, err = s.Create(ctx, payqr.Token{ID: "t1", Secret: "s1"})
	assert.NoError(t, err)
}

func TestMapStore_List(t *testing.T) {
	s, err := tokenstore.NewMapStore([]payqr.Token{
		{ID: "t1", Secret: "s1"},
		{ID: "t2", Secret: "s2"},
	})
	require.NoError(t, err)

	tokens, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

func TestLoadTokensFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.yaml")

	content := `
tokens:
  - id: t1
    secret: s1
    permissions: ["qr:generate"]
  - id: t2
    secret: s2
    permissions: ["qr:scan", "audit:read"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	defs, err := tokenstore.LoadTokensFromFile(path)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "t1", defs[0].ID)
	assert.Equal(t, []string{"qr:scan", "audit:read"}, defs[1].Permissions)
}

func TestLoadTokensFromFile_Missing(t *testing.T) {
	_, err := tokenstore.LoadTokensFromFile("/nonexistent/tokens.yaml")
	assert.Error(t, err)
}

func TestNewTokenRepo_FileOverridesInline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.yaml")

	content := `
tokens:
  - id: t1
    secret: file-secret
    permissions: ["qr:scan"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	repo, err := tokenstore.NewTokenRepo(tokenstore.TokensConfig{
		Inline: []tokenstore.TokenDef{
			{ID: "t1", Secret: "inline-secret", Permissions: []string{"qr:generate"}},
			{ID: "t2", Secret: "s2", Permissions: []string{"qr:generate"}},
		},
		File: path,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// File definition replaced the inline one for t1
	tok, err := repo.GetBySecret(ctx, "file-secret")
	require.NoError(t, err)
	assert.Equal(t, "t1", tok.ID)
	assert.Equal(t, payqr.Permissions{payqr.PermScan}, tok.Permissions)

	_, err = repo.GetBySecret(ctx, "inline-secret")
	assert.ErrorIs(t, err, payqr.ErrNotFound)

	// Unrelated inline tokens survive
	_, err = repo.GetBySecret(ctx, "s2")
	assert.NoError(t, err)
}

func TestNewTokenRepo_InvalidDefinition(t *testing.T) {
	_, err := tokenstore.NewTokenRepo(tokenstore.TokensConfig{
		Inline: []tokenstore.TokenDef{{ID: "t1"}},
	})
	assert.Error(t, err)
}
