// Package records holds the append-only storage backends for signed graduate
// records, laid out as university -> ordered list of records.
package records

import (
	"context"
	"iter"
	"sync"
	"time"

	"gradverify/internal/credential/models"
	"gradverify/internal/sentinel"
)

// InMemoryStore keeps graduate records in per-university append-only slices.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]models.GraduateRecord
	ids     map[models.RecordID]struct{}
}

// NewInMemoryStore constructs an empty in-memory record store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string][]models.GraduateRecord),
		ids:     make(map[models.RecordID]struct{}),
	}
}

// Append stores a copy of record at the end of its university's list. It
// assigns ID and CreatedAt when unset and never overwrites an existing ID.
func (s *InMemoryStore) Append(_ context.Context, record models.GraduateRecord) (models.RecordID, error) {
	record = prepareForAppend(record)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ids[record.ID]; exists {
		return "", sentinel.ErrAlreadyExists
	}
	s.ids[record.ID] = struct{}{}
	s.records[record.University] = append(s.records[record.University], cloneRecord(record))
	return record.ID, nil
}

// FindByNameAndYear returns the earliest record of university whose
// normalized name and year match.
func (s *InMemoryStore) FindByNameAndYear(_ context.Context, university, name, year string) (models.GraduateRecord, error) {
	key := models.NormalizeName(name)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records[university] {
		if record.Year == year && record.NameKey() == key {
			return cloneRecord(record), nil
		}
	}
	return models.GraduateRecord{}, sentinel.ErrNotFound
}

// ListByUniversity yields the university's records in insertion order. Each
// range over the sequence takes a fresh snapshot, so records appended while
// iterating are not observed by that pass.
func (s *InMemoryStore) ListByUniversity(_ context.Context, university string) iter.Seq2[models.GraduateRecord, error] {
	return func(yield func(models.GraduateRecord, error) bool) {
		s.mu.RLock()
		snapshot := s.records[university][:len(s.records[university]):len(s.records[university])]
		s.mu.RUnlock()

		for _, record := range snapshot {
			if !yield(cloneRecord(record), nil) {
				return
			}
		}
	}
}

func prepareForAppend(record models.GraduateRecord) models.GraduateRecord {
	if record.ID == "" {
		record.ID = models.NewRecordID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return record
}

func cloneRecord(r models.GraduateRecord) models.GraduateRecord {
	r.Data = r.Data.Clone()
	r.AuthorityReference = r.AuthorityReference.Clone()
	if r.Signature != nil {
		r.Signature = append([]byte(nil), r.Signature...)
	}
	return r
}
