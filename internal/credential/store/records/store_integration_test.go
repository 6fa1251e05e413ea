//go:build integration

package records_test

import (
	"context"
	"encoding/json"
	"iter"
	"testing"

	"github.com/stretchr/testify/suite"

	"gradverify/internal/credential/models"
	"gradverify/internal/credential/payload"
	"gradverify/internal/credential/store/records"
	"gradverify/internal/sentinel"
	"gradverify/pkg/testutil/containers"
)

type recordStore interface {
	Append(ctx context.Context, record models.GraduateRecord) (models.RecordID, error)
	FindByNameAndYear(ctx context.Context, university, name, year string) (models.GraduateRecord, error)
	ListByUniversity(ctx context.Context, university string) iter.Seq2[models.GraduateRecord, error]
}

type StoreIntegrationSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redis    *containers.RedisContainer
	stores   map[string]recordStore
}

func TestStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StoreIntegrationSuite))
}

func (s *StoreIntegrationSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redis = mgr.GetRedis(s.T())
	s.stores = map[string]recordStore{
		"postgres": records.NewPostgres(s.postgres.DB),
		"redis":    records.NewRedis(s.redis.Client),
	}
}

func (s *StoreIntegrationSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "graduate_records"))
	s.Require().NoError(s.redis.FlushAll(ctx))
}

func (s *StoreIntegrationSuite) TestAppendFindList() {
	ctx := context.Background()
	for name, store := range s.stores {
		s.Run(name, func() {
			first, err := store.Append(ctx, models.GraduateRecord{
				University:         "MIT",
				Year:               "2020",
				Data:               models.GraduateData{"name": "Alice Smith", "gpa": 3.9},
				AuthorityReference: models.AuthorityReference("ref"),
				Signature:          []byte{0x01, 0x02},
			})
			s.Require().NoError(err)
			_, err = store.Append(ctx, models.GraduateRecord{
				University: "MIT",
				Year:       "2020",
				Data:       models.GraduateData{"name": "alice smith"},
			})
			s.Require().NoError(err)

			got, err := store.FindByNameAndYear(ctx, "MIT", "ALICE SMITH", "2020")
			s.Require().NoError(err)
			s.Equal(first, got.ID)
			s.Equal([]byte{0x01, 0x02}, got.Signature)
			s.Equal("ref", got.AuthorityReference.String())

			_, err = store.FindByNameAndYear(ctx, "MIT", "Alice Smith", "2019")
			s.ErrorIs(err, sentinel.ErrNotFound)

			count := 0
			for record, err := range store.ListByUniversity(ctx, "MIT") {
				s.Require().NoError(err)
				if count == 0 {
					s.Equal(first, record.ID)
				}
				count++
			}
			s.Equal(2, count)
		})
	}
}

// The canonical payload rebuilt from stored data must equal the one built
// before storage, otherwise signatures would not survive a round trip.
func (s *StoreIntegrationSuite) TestPayloadSurvivesRoundTrip() {
	ctx := context.Background()
	data := models.GraduateData{
		"name":    "Bob Jones",
		"gpa":     3.75,
		"credits": 120,
		"honors":  []any{"cum laude", map[string]any{"year": 2020.0}},
		"big":     json.Number("12345678901234567"),
	}
	ref := models.AuthorityReference("ref")
	want, err := payload.Build(data, ref)
	s.Require().NoError(err)

	for name, store := range s.stores {
		s.Run(name, func() {
			_, err := store.Append(ctx, models.GraduateRecord{University: "Stanford", Year: "2021", Data: data, AuthorityReference: ref})
			s.Require().NoError(err)
			got, err := store.FindByNameAndYear(ctx, "Stanford", "Bob Jones", "2021")
			s.Require().NoError(err)
			rebuilt, err := payload.Build(got.Data, got.AuthorityReference)
			s.Require().NoError(err)
			s.Equal(string(want), string(rebuilt))
		})
	}
}
