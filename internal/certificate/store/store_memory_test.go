package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gradverify/internal/certificate/models"
	"gradverify/internal/sentinel"
	"gradverify/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
}

func (s *InMemoryStoreSuite) save(name, nationalID string) models.Certificate {
	cert := models.Certificate{
		ID:         models.NewCertificateID(),
		University: "MIT",
		Name:       name,
		NationalID: nationalID,
		Filename:   "c.pdf",
		MimeType:   "application/pdf",
		Content:    []byte("%PDF"),
		UploadedAt: time.Now(),
	}
	s.Require().NoError(s.store.Save(s.ctx, cert))
	return cert
}

func (s *InMemoryStoreSuite) TestFindFirst() {
	first := s.save("Alice Smith", "")
	second := s.save("Alice Smith", "42")

	got, err := s.store.FindFirst(s.ctx, models.Query{University: "MIT", Name: "alice smith"})
	s.Require().NoError(err)
	s.Equal(first.ID, got.ID)

	got, err = s.store.FindFirst(s.ctx, models.Query{University: "MIT", Name: "Alice Smith", NationalID: "42"})
	s.Require().NoError(err)
	s.Equal(second.ID, got.ID)

	_, err = s.store.FindFirst(s.ctx, models.Query{University: "Yale", Name: "Alice Smith"})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestSaveRejectsDuplicateID() {
	cert := s.save("Alice", "")
	s.ErrorIs(s.store.Save(s.ctx, cert), sentinel.ErrAlreadyExists)
}

func (s *InMemoryStoreSuite) TestConcurrentDuplicateSaves() {
	cert := models.Certificate{
		ID:         models.NewCertificateID(),
		University: "MIT",
		Name:       "Alice",
		Content:    []byte("%PDF"),
	}
	result := testutil.RunConcurrent(20, func(int) error {
		return s.store.Save(s.ctx, cert)
	})
	s.Equal(int32(1), result.Successes)
	s.Equal(int32(19), result.Conflicts)
}

func (s *InMemoryStoreSuite) TestContentIsIsolated() {
	s.save("Alice", "")
	got, err := s.store.FindFirst(s.ctx, models.Query{University: "MIT", Name: "Alice"})
	s.Require().NoError(err)
	got.Content[0] = 'X'

	again, err := s.store.FindFirst(s.ctx, models.Query{University: "MIT", Name: "Alice"})
	s.Require().NoError(err)
	s.Equal([]byte("%PDF"), again.Content)
}
