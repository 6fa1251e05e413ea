package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"gradverify/internal/credential/authority"
	"gradverify/internal/credential/metrics"
	"gradverify/internal/credential/models"
	registryStore "gradverify/internal/credential/store/registry"
	"gradverify/internal/sentinel"
	dErrors "gradverify/pkg/domain-errors"
	"gradverify/pkg/testutil"
)

type RegistrySuite struct {
	suite.Suite
	ctx     context.Context
	store   *registryStore.InMemoryStore
	issuer  *authority.Issuer
	service *Service
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = registryStore.NewInMemoryStore()
	issuer, err := authority.NewIssuer("registry-test-secret")
	s.Require().NoError(err)
	s.issuer = issuer
	svc, err := New(s.store, issuer, WithMetrics(metrics.NewWithRegisterer(prometheus.NewRegistry())))
	s.Require().NoError(err)
	s.service = svc
}

func (s *RegistrySuite) TestNewRequiresDependencies() {
	_, err := New(nil, s.issuer)
	s.Error(err)
	_, err = New(s.store, nil)
	s.Error(err)
}

func (s *RegistrySuite) TestIssueIfAbsent() {
	first, created, err := s.service.IssueIfAbsent(s.ctx, "MIT", "2020")
	s.Require().NoError(err)
	s.True(created)
	s.False(first.IsZero())

	again, created, err := s.service.IssueIfAbsent(s.ctx, " MIT ", "2020")
	s.Require().NoError(err)
	s.False(created)
	s.True(first.Equal(again))
}

func (s *RegistrySuite) TestIssueIfAbsentConcurrent() {
	const callers = 16
	refs := make([]models.AuthorityReference, callers)
	var createdCount atomic.Int32
	result := testutil.RunConcurrentCtx(s.ctx, callers, func(ctx context.Context, idx int) error {
		ref, created, err := s.service.IssueIfAbsent(ctx, "MIT", "2020")
		refs[idx] = ref
		if created {
			createdCount.Add(1)
		}
		return err
	})

	s.Equal(int32(callers), result.Successes)
	s.Equal(int32(1), createdCount.Load())
	for _, ref := range refs[1:] {
		s.True(refs[0].Equal(ref))
	}
}

func (s *RegistrySuite) TestRotate() {
	first, err := s.service.Rotate(s.ctx, "MIT", "2020")
	s.Require().NoError(err)
	_, err = s.service.RegisterPublicKey(s.ctx, "MIT", "2020", first, []byte("pem"))
	s.Require().NoError(err)

	second, err := s.service.Rotate(s.ctx, "MIT", "2020")
	s.Require().NoError(err)
	s.False(first.Equal(second))

	record, err := s.service.Lookup(s.ctx, "MIT", "2020")
	s.Require().NoError(err)
	s.True(second.Equal(record.AuthorityReference))
	s.Equal([]byte("pem"), record.PublicKeyPEM, "rotation keeps the registered key")

	_, err = s.service.RegisterPublicKey(s.ctx, "MIT", "2020", first, []byte("pem-2"))
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownAuthorityReference), "stale reference rejected")
}

func (s *RegistrySuite) TestRegisterPublicKey() {
	ref, err := s.service.Rotate(s.ctx, "MIT", "2020")
	s.Require().NoError(err)

	s.Run("no authority on file", func() {
		_, err := s.service.RegisterPublicKey(s.ctx, "Stanford", "2020", ref, []byte("pem"))
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorityNotRegistered))
	})

	s.Run("wrong reference", func() {
		_, err := s.service.RegisterPublicKey(s.ctx, "MIT", "2020", models.AuthorityReference("forged"), []byte("pem"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownAuthorityReference))
	})

	s.Run("empty key", func() {
		_, err := s.service.RegisterPublicKey(s.ctx, "MIT", "2020", ref, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("reference planted by a foreign issuer", func() {
		other, err := authority.NewIssuer("some-other-secret-value")
		s.Require().NoError(err)
		foreign, err := other.Issue("Harvard", "2020")
		s.Require().NoError(err)
		s.Require().NoError(s.store.CompareAndSwap(s.ctx, nil, models.UniversityKeyRecord{University: "Harvard", Year: "2020", AuthorityReference: foreign}))

		_, err = s.service.RegisterPublicKey(s.ctx, "Harvard", "2020", foreign, []byte("pem"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownAuthorityReference))
	})

	s.Run("success stores reference and key together", func() {
		record, err := s.service.RegisterPublicKey(s.ctx, "MIT", "2020", ref, []byte("pem"))
		s.Require().NoError(err)
		s.Equal(models.StateKeyRegistered, record.State())

		stored, err := s.service.Lookup(s.ctx, "MIT", "2020")
		s.Require().NoError(err)
		s.True(ref.Equal(stored.AuthorityReference))
		s.Equal([]byte("pem"), stored.PublicKeyPEM)
	})
}

// The interleaving tests run a second Service over the same backing store to
// stand in for another replica: its shard locks are not shared, so only the
// store's compare-and-swap keeps the writers apart.

func (s *RegistrySuite) TestRotateBetweenReadAndWriteOfRegistration() {
	ref, err := s.service.Rotate(s.ctx, "MIT", "2020")
	s.Require().NoError(err)

	store := &interleavingStore{InMemoryStore: s.store}
	svc, err := New(store, s.issuer)
	s.Require().NoError(err)
	replica, err := New(s.store, s.issuer)
	s.Require().NoError(err)

	var rotated models.AuthorityReference
	store.beforeSwap = func() {
		rotated, err = replica.Rotate(s.ctx, "MIT", "2020")
		s.Require().NoError(err)
	}

	_, err = svc.RegisterPublicKey(s.ctx, "MIT", "2020", ref, []byte("pem"))
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownAuthorityReference), "registration under the superseded reference is refused")

	stored, err := s.service.Lookup(s.ctx, "MIT", "2020")
	s.Require().NoError(err)
	s.True(rotated.Equal(stored.AuthorityReference), "the rotation survives")
	s.False(stored.HasPublicKey(), "no key is paired with the rotated reference")
}

func (s *RegistrySuite) TestRegistrationBetweenReadAndWriteOfRotation() {
	ref, err := s.service.Rotate(s.ctx, "MIT", "2020")
	s.Require().NoError(err)

	store := &interleavingStore{InMemoryStore: s.store}
	svc, err := New(store, s.issuer)
	s.Require().NoError(err)
	replica, err := New(s.store, s.issuer)
	s.Require().NoError(err)

	store.beforeSwap = func() {
		_, err := replica.RegisterPublicKey(s.ctx, "MIT", "2020", ref, []byte("pem"))
		s.Require().NoError(err)
	}

	rotated, err := svc.Rotate(s.ctx, "MIT", "2020")
	s.Require().NoError(err)
	s.Equal(2, store.swaps, "rotation retried from a fresh read")

	stored, err := s.service.Lookup(s.ctx, "MIT", "2020")
	s.Require().NoError(err)
	s.True(rotated.Equal(stored.AuthorityReference))
	s.Equal([]byte("pem"), stored.PublicKeyPEM, "rotation keeps the key registered meanwhile")
}

func (s *RegistrySuite) TestIssueIfAbsentLosesInsertRace() {
	store := &interleavingStore{InMemoryStore: s.store}
	svc, err := New(store, s.issuer)
	s.Require().NoError(err)
	replica, err := New(s.store, s.issuer)
	s.Require().NoError(err)

	var winner models.AuthorityReference
	store.beforeSwap = func() {
		var created bool
		winner, created, err = replica.IssueIfAbsent(s.ctx, "MIT", "2020")
		s.Require().NoError(err)
		s.Require().True(created)
	}

	ref, created, err := svc.IssueIfAbsent(s.ctx, "MIT", "2020")
	s.Require().NoError(err)
	s.False(created)
	s.True(winner.Equal(ref))
}

func (s *RegistrySuite) TestPersistentConflictGivesUp() {
	store := &conflictingStore{InMemoryStore: s.store}
	svc, err := New(store, s.issuer)
	s.Require().NoError(err)

	_, err = svc.Rotate(s.ctx, "MIT", "2020")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal(maxWriteAttempts, store.swaps)

	_, err = s.service.Lookup(s.ctx, "MIT", "2020")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RegistrySuite) TestLookupAndList() {
	_, err := s.service.Lookup(s.ctx, "MIT", "2020")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Lookup(s.ctx, "MIT", "20")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	for _, year := range []string{"2021", "2020"} {
		_, err := s.service.Rotate(s.ctx, "MIT", year)
		s.Require().NoError(err)
	}
	list, err := s.service.List(s.ctx, "MIT")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("2020", list[0].Year)

	_, err = s.service.List(s.ctx, "  ")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *RegistrySuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.service.Rotate(ctx, "MIT", "2020")
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *RegistrySuite) TestStorageFaultsSurface() {
	svc, err := New(failingStore{}, s.issuer)
	s.Require().NoError(err)

	_, _, err = svc.IssueIfAbsent(s.ctx, "MIT", "2020")
	s.True(dErrors.HasCode(err, dErrors.CodeStorageUnavailable))

	_, err = svc.Lookup(s.ctx, "MIT", "2020")
	s.True(dErrors.HasCode(err, dErrors.CodeStorageUnavailable))

	_, err = svc.List(s.ctx, "MIT")
	s.True(dErrors.HasCode(err, dErrors.CodeStorageUnavailable))
}

type failingStore struct{}

var errBackend = errors.New("connection refused")

func (failingStore) Get(context.Context, string, string) (models.UniversityKeyRecord, error) {
	return models.UniversityKeyRecord{}, errBackend
}

func (failingStore) CompareAndSwap(context.Context, *models.UniversityKeyRecord, models.UniversityKeyRecord) error {
	return errBackend
}

func (failingStore) ListByUniversity(context.Context, string) ([]models.UniversityKeyRecord, error) {
	return nil, errBackend
}

// interleavingStore runs beforeSwap once, just ahead of the first
// compare-and-swap, to let another writer land in between.
type interleavingStore struct {
	*registryStore.InMemoryStore
	beforeSwap func()
	swaps      int
}

func (s *interleavingStore) CompareAndSwap(ctx context.Context, expected *models.UniversityKeyRecord, next models.UniversityKeyRecord) error {
	s.swaps++
	if hook := s.beforeSwap; hook != nil {
		s.beforeSwap = nil
		hook()
	}
	return s.InMemoryStore.CompareAndSwap(ctx, expected, next)
}

type conflictingStore struct {
	*registryStore.InMemoryStore
	swaps int
}

func (s *conflictingStore) CompareAndSwap(context.Context, *models.UniversityKeyRecord, models.UniversityKeyRecord) error {
	s.swaps++
	return sentinel.ErrConflict
}
