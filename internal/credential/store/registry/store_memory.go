// Package registry holds the storage backends for university key records,
// laid out as university -> year -> record.
package registry

import (
	"context"
	"sort"
	"sync"

	"gradverify/internal/credential/models"
	"gradverify/internal/sentinel"
)

// InMemoryStore keeps university key records in process memory.
// It is safe for concurrent access but does not persist across restarts.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]models.UniversityKeyRecord
}

// NewInMemoryStore constructs an empty in-memory registry store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]map[string]models.UniversityKeyRecord)}
}

// Get returns a copy of the record for (university, year) or
// sentinel.ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, university, year string) (models.UniversityKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[university][year]
	if !ok {
		return models.UniversityKeyRecord{}, sentinel.ErrNotFound
	}
	return cloneRecord(record), nil
}

// CompareAndSwap replaces the whole record in one step, so readers see either
// the old or the new (reference, key) pair and never a mix. A nil expected
// requires that no record exists yet; otherwise the stored record must still
// carry expected's version.
//
// Errors: sentinel.ErrConflict when the stored record does not match.
func (s *InMemoryStore) CompareAndSwap(_ context.Context, expected *models.UniversityKeyRecord, next models.UniversityKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	years, ok := s.records[next.University]
	if !ok {
		years = make(map[string]models.UniversityKeyRecord)
		s.records[next.University] = years
	}
	current, exists := years[next.Year]
	switch {
	case expected == nil && exists:
		return sentinel.ErrConflict
	case expected != nil && (!exists || !current.SameVersion(*expected)):
		return sentinel.ErrConflict
	}
	years[next.Year] = cloneRecord(next)
	return nil
}

// ListByUniversity returns the university's records ordered by year.
func (s *InMemoryStore) ListByUniversity(_ context.Context, university string) ([]models.UniversityKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	years := s.records[university]
	out := make([]models.UniversityKeyRecord, 0, len(years))
	for _, record := range years {
		out = append(out, cloneRecord(record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

func cloneRecord(r models.UniversityKeyRecord) models.UniversityKeyRecord {
	r.AuthorityReference = r.AuthorityReference.Clone()
	if r.PublicKeyPEM != nil {
		r.PublicKeyPEM = append([]byte(nil), r.PublicKeyPEM...)
	}
	return r
}
