// Package history owns the per-subject emotion record accumulation. The
// analytics core never sees this store; it only ever receives the
// bounded snapshot slices the store hands out.
package history

import (
	"sort"
	"sync"
	"time"

	"github.com/affectlab/affectd/internal/emotion"
)

// Store keeps an append-only ordered record sequence per subject,
// bounded by a retention window. Appends for one subject must be
// serialized by the caller's request path; reads always get an
// independent snapshot copy.
type Store struct {
	mu        sync.RWMutex
	retention time.Duration
	records   map[string][]emotion.Record
}

// NewStore creates a store that retains records for the given duration.
// A non-positive retention keeps records indefinitely.
func NewStore(retention time.Duration) *Store {
	return &Store{
		retention: retention,
		records:   make(map[string][]emotion.Record),
	}
}

// Append adds a record to its subject's history and evicts records that
// fell out of the retention window. Insertion order is preserved;
// duplicate timestamps are permitted.
func (s *Store) Append(rec emotion.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := append(s.records[rec.SubjectID], rec)
	if s.retention > 0 {
		cutoff := time.Now().UTC().Add(-s.retention)
		seq = evictBefore(seq, cutoff)
	}
	s.records[rec.SubjectID] = seq
}

// Snapshot returns a copy of the subject's records newer than the given
// window, in insertion order. A non-positive window returns the whole
// retained history.
func (s *Store) Snapshot(subjectID string, window time.Duration) []emotion.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq := s.records[subjectID]
	if window > 0 {
		cutoff := time.Now().UTC().Add(-window)
		seq = seq[firstAtOrAfter(seq, cutoff):]
	}

	out := make([]emotion.Record, len(seq))
	copy(out, seq)
	return out
}

// Count returns the number of retained records for a subject.
func (s *Store) Count(subjectID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[subjectID])
}

// Subjects returns the ids of all subjects with retained records,
// sorted for deterministic iteration.
func (s *Store) Subjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// evictBefore drops the leading records older than cutoff. Records
// arrive in timestamp order, so a prefix cut suffices.
func evictBefore(seq []emotion.Record, cutoff time.Time) []emotion.Record {
	idx := firstAtOrAfter(seq, cutoff)
	if idx == 0 {
		return seq
	}
	kept := make([]emotion.Record, len(seq)-idx)
	copy(kept, seq[idx:])
	return kept
}

func firstAtOrAfter(seq []emotion.Record, cutoff time.Time) int {
	return sort.Search(len(seq), func(i int) bool {
		return !seq[i].Timestamp.Before(cutoff)
	})
}
