package testutil

import (
	"context"
	"sync"

	"github.com/HerbHall/firestore-import/internal/importer"
)

// Compile-time interface check.
var _ importer.Sink = (*MemorySink)(nil)

// MemorySink is a thread-safe importer.Sink that records every committed
// batch for later inspection.
type MemorySink struct {
	mu      sync.Mutex
	batches [][]importer.Write
	closed  bool

	// FailPath makes Commit fail for any batch containing this document path.
	FailPath string
	// Err is returned when FailPath matches.
	Err error
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Commit records the batch.
func (s *MemorySink) Commit(_ context.Context, writes []importer.Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range writes {
		if s.FailPath != "" && w.Path == s.FailPath {
			return s.Err
		}
	}
	batch := make([]importer.Write, len(writes))
	copy(batch, writes)
	s.batches = append(s.batches, batch)
	return nil
}

// Close marks the sink closed.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *MemorySink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Batches returns a copy of all committed batches in commit order.
func (s *MemorySink) Batches() [][]importer.Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]importer.Write, len(s.batches))
	copy(out, s.batches)
	return out
}

// Documents returns every written document keyed by path.
func (s *MemorySink) Documents() map[string]importer.Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]importer.Write)
	for _, b := range s.batches {
		for _, w := range b {
			out[w.Path] = w
		}
	}
	return out
}

// Reset clears all recorded batches.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = nil
}
