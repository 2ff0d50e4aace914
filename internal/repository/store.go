package repository

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound is returned when no repository has the requested id
	ErrNotFound = errors.New("repository not found")

	// ErrDuplicate is returned when two records share an id
	ErrDuplicate = errors.New("duplicate repository id")
)

// Store is an in-memory, read-mostly repository catalogue. Records keep the
// order they were added in.
type Store struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]int
}

// NewStore validates records and returns a store holding them
func NewStore(records ...Record) (*Store, error) {
	s := &Store{index: make(map[string]int, len(records))}
	for _, rec := range records {
		if err := s.Add(rec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add validates and appends a record
func (s *Store) Add(rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[rec.RepositoryID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, rec.RepositoryID)
	}
	s.index[rec.RepositoryID] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

// Get returns the record with the given id
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.records[i], nil
}

// List returns a copy of all records, local repositories first, each group
// in insertion order.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if !rec.IsRemote() {
			out = append(out, rec)
		}
	}
	for _, rec := range s.records {
		if rec.IsRemote() {
			out = append(out, rec)
		}
	}
	return out
}
