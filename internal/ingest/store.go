package ingest

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ppiankov/clusterpulse/internal/models"
)

// Store owns the record set of a session. Imports are atomic: a batch that
// fails to decode or validate leaves the store untouched.
type Store struct {
	mu      sync.RWMutex
	records []models.ClusterRecord
	batches int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{records: make([]models.ClusterRecord, 0)}
}

// Import decodes, validates and appends one upload document
func (s *Store) Import(data []byte, opts Options) (Result, error) {
	raws, err := Decode(data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to decode upload: %w", err)
	}
	return s.ImportRaw(raws, opts)
}

// ImportRaw validates and appends already-decoded entries. A batch left
// with no records is not counted.
func (s *Store) ImportRaw(raws []RawRecord, opts Options) (Result, error) {
	result, err := Normalize(raws, opts)
	if err != nil {
		return Result{}, fmt.Errorf("failed to validate upload: %w", err)
	}

	if len(result.Records) > 0 {
		s.Append(result.Records)
	}

	slog.Debug("imported batch",
		slog.String("batch_id", result.BatchID),
		slog.Int("records", len(result.Records)),
		slog.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// Append adds records as one batch
func (s *Store) Append(records []models.ClusterRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	s.batches++
}

// Clear drops every record
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make([]models.ClusterRecord, 0)
	s.batches = 0
}

// Records returns a copy of the current record set
func (s *Store) Records() []models.ClusterRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ClusterRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of stored records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// BatchCount returns the number of batches appended since the last Clear
func (s *Store) BatchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batches
}
