package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. Contents are lost when the
// process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Store saves a copy of record, replacing any record with the same id.
func (s *MemoryStore) Store(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" {
		return NewStorageError("memory", "store", errors.New("record id is required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewStorageError("memory", "store", ErrClosed)
	}
	s.records[record.ID] = copyRecord(record)
	return nil
}

// Query returns copies of the matching records, newest first.
func (s *MemoryStore) Query(ctx context.Context, q *Query) ([]*Record, error) {
	if q == nil {
		q = &Query{}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, NewStorageError("memory", "query", ErrClosed)
	}

	results := make([]*Record, 0)
	for _, r := range s.records {
		if q.matches(r) {
			results = append(results, copyRecord(r))
		}
	}
	sortNewestFirst(results)

	if q.Offset >= len(results) {
		return []*Record{}, nil
	}
	results = results[q.Offset:]
	if q.Limit > 0 && q.Limit < len(results) {
		results = results[:q.Limit]
	}
	return results, nil
}

// Count returns the number of matching records.
func (s *MemoryStore) Count(ctx context.Context, q *Query) (int64, error) {
	if q == nil {
		q = &Query{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, NewStorageError("memory", "count", ErrClosed)
	}
	var n int64
	for _, r := range s.records {
		if q.matches(r) {
			n++
		}
	}
	return n, nil
}

// DeleteBefore removes records evaluated before cutoff.
func (s *MemoryStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, NewStorageError("memory", "delete", ErrClosed)
	}
	var n int64
	for id, r := range s.records {
		if r.EvaluatedAt.Before(cutoff) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Ping reports whether the store is still open.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return NewStorageError("memory", "ping", ErrClosed)
	}
	return nil
}

// Close drops all records.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

func copyRecord(r *Record) *Record {
	c := *r
	c.ActivatedDomains = append([]string{}, r.ActivatedDomains...)
	c.DerivedControls = append([]string{}, r.DerivedControls...)
	c.MissingAnswers = append([]string{}, r.MissingAnswers...)
	if r.Result != nil {
		c.Result = append([]byte(nil), r.Result...)
	}
	return &c
}

func sortNewestFirst(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].EvaluatedAt.Equal(records[j].EvaluatedAt) {
			return records[i].EvaluatedAt.After(records[j].EvaluatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
