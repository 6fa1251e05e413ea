package store

import (
	"context"
	"sync"

	"gradverify/internal/certificate/models"
	"gradverify/internal/sentinel"
)

// InMemoryStore keeps certificates in upload order per university.
type InMemoryStore struct {
	mu    sync.RWMutex
	certs map[string][]models.Certificate
	ids   map[models.CertificateID]struct{}
}

// NewInMemoryStore creates an empty certificate store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		certs: make(map[string][]models.Certificate),
		ids:   make(map[models.CertificateID]struct{}),
	}
}

func (s *InMemoryStore) Save(_ context.Context, cert models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ids[cert.ID]; exists {
		return sentinel.ErrAlreadyExists
	}
	s.ids[cert.ID] = struct{}{}
	s.certs[cert.University] = append(s.certs[cert.University], clone(cert))
	return nil
}

func (s *InMemoryStore) FindFirst(_ context.Context, q models.Query) (models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cert := range s.certs[q.University] {
		if q.Matches(cert) {
			return clone(cert), nil
		}
	}
	return models.Certificate{}, sentinel.ErrNotFound
}

func clone(c models.Certificate) models.Certificate {
	c.Content = append([]byte(nil), c.Content...)
	return c
}
