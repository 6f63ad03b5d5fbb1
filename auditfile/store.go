// Package auditfile provides a file-backed access log. Records are
// appended as one JSON object per line, which keeps the log greppable
// and survives process restarts without a database.
package auditfile

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/payqr/payqr"
)

// Store is an append-only JSON Lines access log. It is safe for
// concurrent use; a single mutex serializes appends so lines never
// interleave.
type Store struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	nextID int64
}

// NewStore opens (or creates) the log file at path and scans it once to
// recover the next record id.
func NewStore(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	s := &Store{path: path, f: f, nextID: 1}

	last, err := s.lastID()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	s.nextID = last + 1

	return s, nil
}

// Close closes the underlying log file. Appends after Close fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Append assigns the next id and writes the record as a single line.
func (s *Store) Append(ctx context.Context, rec payqr.AccessRecord) (payqr.AccessRecord, error) {
	if err := ctx.Err(); err != nil {
		return payqr.AccessRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID

	line, err := json.Marshal(rec)
	if err != nil {
		return payqr.AccessRecord{}, fmt.Errorf("append access record: %w", err)
	}
	line = append(line, '\n')

	if _, err := s.f.Write(line); err != nil {
		return payqr.AccessRecord{}, fmt.Errorf("append access record: %w", err)
	}

	s.nextID++
	return rec, nil
}

// List reads the log from the start and returns records after the cursor,
// optionally filtered by token id. The file is the source of truth, so a
// reader sees everything flushed before it opened the file.
func (s *Store) List(ctx context.Context, q payqr.AccessQuery) (payqr.AccessPage, error) {
	if err := ctx.Err(); err != nil {
		return payqr.AccessPage{}, err
	}

	afterID, err := payqr.DecodeIDCursor(q.Cursor)
	if err != nil {
		return payqr.AccessPage{}, fmt.Errorf("list access records: %w: %w", payqr.ErrInvalidInput, err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	f, err := os.Open(s.path)
	if err != nil {
		return payqr.AccessPage{}, fmt.Errorf("list access records: %w", err)
	}
	defer func() { _ = f.Close() }()

	records := make([]payqr.AccessRecord, 0, limit)
	more := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec payqr.AccessRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return payqr.AccessPage{}, fmt.Errorf("list access records: corrupt line: %w", err)
		}

		if rec.ID <= afterID {
			continue
		}
		if q.TokenID != "" && rec.TokenID != q.TokenID {
			continue
		}

		if len(records) == limit {
			more = true
			break
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return payqr.AccessPage{}, fmt.Errorf("list access records: %w", err)
	}

	var nextCursor string
	if more {
		nextCursor = payqr.EncodeIDCursor(records[len(records)-1].ID)
	}

	return payqr.AccessPage{Records: records, NextCursor: nextCursor}, nil
}

// lastID scans the file for the highest record id seen so far.
func (s *Store) lastID() (int64, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	var last int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec payqr.AccessRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			// A torn final line from a crash is tolerated; ids resume
			// after the last complete record.
			continue
		}
		if rec.ID > last {
			last = rec.ID
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	return last, nil
}
