package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"caseassist/internal/domain"
)

// Store holds the knowledge base: historical case records keyed by id,
// with stable insertion order for deterministic index rebuilds. All
// embeddings share the dimension fixed at construction; the dimension
// comes from the embedder that produced the records, and mixing
// embedders within one store is disallowed.
type Store struct {
	mu        sync.RWMutex
	dimension int
	records   []domain.CaseRecord
	byID      map[string]int
}

// New creates an empty store for embeddings of the given dimension.
func New(dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidArgument, dimension)
	}
	return &Store{dimension: dimension, byID: make(map[string]int)}, nil
}

// Dimension returns the embedding dimension this store was created with.
func (s *Store) Dimension() int { return s.dimension }

// Len returns the number of records currently in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Upsert inserts the record, or replaces the existing record with the
// same id keeping its original insertion position.
func (s *Store) Upsert(rec domain.CaseRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: record id is empty", domain.ErrInvalidArgument)
	}
	if len(rec.Embedding) != s.dimension {
		return fmt.Errorf("%w: record %s has dimension %d, store expects %d",
			domain.ErrDimensionMismatch, rec.ID, len(rec.Embedding), s.dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.byID[rec.ID]; ok {
		s.records[i] = rec
		return nil
	}
	s.byID[rec.ID] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (domain.CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return domain.CaseRecord{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return s.records[i], nil
}

// All returns a copy of every record in stable insertion order,
// used to rebuild the similarity index after a bulk load.
func (s *Store) All() []domain.CaseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CaseRecord, len(s.records))
	copy(out, s.records)
	return out
}

// snapshot is the on-disk knowledge-base format.
type snapshot struct {
	Dimension int                 `json:"dimension"`
	Records   []domain.CaseRecord `json:"records"`
}

// Save serializes the full store to a single blob at path.
// The write goes through a temp file and rename so a crash never
// leaves a half-written knowledge base behind.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	snap := snapshot{Dimension: s.dimension, Records: s.records}
	data, err := json.Marshal(snap)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".kb-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load deserializes a store previously written by Save. A blob whose
// declared dimension is invalid or disagrees with any contained record
// is rejected with ErrCorruptStore; such a store must be rebuilt from
// source data.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptStore, err)
	}
	if snap.Dimension <= 0 {
		return nil, fmt.Errorf("%w: declared dimension %d", domain.ErrCorruptStore, snap.Dimension)
	}
	st := &Store{dimension: snap.Dimension, byID: make(map[string]int, len(snap.Records))}
	for _, rec := range snap.Records {
		if len(rec.Embedding) != snap.Dimension {
			return nil, fmt.Errorf("%w: record %s has dimension %d, blob declares %d",
				domain.ErrCorruptStore, rec.ID, len(rec.Embedding), snap.Dimension)
		}
		if _, ok := st.byID[rec.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate record id %s", domain.ErrCorruptStore, rec.ID)
		}
		st.byID[rec.ID] = len(st.records)
		st.records = append(st.records, rec)
	}
	return st, nil
}
