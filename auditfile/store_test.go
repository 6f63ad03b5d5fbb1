package auditfile_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payqr/payqr"
	"github.com/payqr/payqr/auditfile"
)

func newStore(t *testing.T) (*auditfile.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "access.jsonl")
	s, err := auditfile.NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func record(tokenID, path string, status int) payqr.AccessRecord {
	return payqr.AccessRecord{
		TokenID:    tokenID,
		RemoteAddr: "127.0.0.1:9999",
		Path:       path,
		Method:     "GET",
		StatusCode: status,
		Timestamp:  1700000000000,
	}
}

func TestStore_AppendAssignsIDs(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	first, err := s.Append(ctx, record("t1", "/a", 200))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	second, err := s.Append(ctx, record("t1", "/b", 404))
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
}

func TestStore_ListInAppendOrder(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, record("t1", fmt.Sprintf("/p%d", i), 200))
		require.NoError(t, err)
	}

	page, err := s.List(ctx, payqr.AccessQuery{})
	require.NoError(t, err)
	require.Len(t, page.Records, 5)
	for i, r := range page.Records {
		assert.Equal(t, int64(i+1), r.ID)
		assert.Equal(t, fmt.Sprintf("/p%d", i), r.Path)
	}
	assert.Empty(t, page.NextCursor)
}

func TestStore_ListTokenFilter(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, record("t1", "/a", 200))
	require.NoError(t, err)
	_, err = s.Append(ctx, record("t2", "/b", 200))
	require.NoError(t, err)
	_, err = s.Append(ctx, record("t1", "/c", 200))
	require.NoError(t, err)

	page, err := s.List(ctx, payqr.AccessQuery{TokenID: "t1"})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "/a", page.Records[0].Path)
	assert.Equal(t, "/c", page.Records[1].Path)
}

func TestStore_ListPagination(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := s.Append(ctx, record("t1", fmt.Sprintf("/p%d", i), 200))
		require.NoError(t, err)
	}

	page, err := s.List(ctx, payqr.AccessQuery{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Records, 3)
	require.NotEmpty(t, page.NextCursor)

	page2, err := s.List(ctx, payqr.AccessQuery{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Records, 3)
	assert.Equal(t, int64(4), page2.Records[0].ID)

	page3, err := s.List(ctx, payqr.AccessQuery{Limit: 3, Cursor: page2.NextCursor})
	require.NoError(t, err)
	require.Len(t, page3.Records, 1)
	assert.Empty(t, page3.NextCursor)
}

func TestStore_ListBadCursor(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.List(context.Background(), payqr.AccessQuery{Cursor: "###"})
	assert.ErrorIs(t, err, payqr.ErrInvalidInput)
}

func TestStore_ReopenResumesIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.jsonl")
	ctx := context.Background()

	s, err := auditfile.NewStore(path)
	require.NoError(t, err)
	_, err = s.Append(ctx, record("t1", "/a", 200))
	require.NoError(t, err)
	_, err = s.Append(ctx, record("t1", "/b", 200))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := auditfile.NewStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	third, err := reopened.Append(ctx, record("t1", "/c", 200))
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.ID)

	page, err := reopened.List(ctx, payqr.AccessQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Records, 3)
}

func TestStore_ToleratesTornFinalLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.jsonl")
	ctx := context.Background()

	s, err := auditfile.NewStore(path)
	require.NoError(t, err)
	_, err = s.Append(ctx, record("t1", "/a", 200))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Simulate a crash mid-write
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":2,"token_`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := auditfile.NewStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	next, err := reopened.Append(ctx, record("t1", "/b", 200))
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Append(ctx, record("t1", fmt.Sprintf("/p%d", i), 200))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	page, err := s.List(ctx, payqr.AccessQuery{Limit: n})
	require.NoError(t, err)
	require.Len(t, page.Records, n)

	seen := map[int64]bool{}
	for _, r := range page.Records {
		assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
		seen[r.ID] = true
	}
}
