// Package registry is the authoritative map from (university, year) to the
// MoE authority reference and the university's registered public key.
//
// Writers for the same (university, year) are serialized in-process through a
// sharded mutex. Every write replaces the whole record with a compare-and-swap
// against the version that was read, so readers never observe a reference
// from one registration paired with the key of another, and a writer in
// another process sharing the store is never silently overwritten.
package registry

import (
	"context"
	"errors"
	"time"

	"gradverify/internal/credential/metrics"
	"gradverify/internal/credential/models"
	"gradverify/internal/sentinel"
	dErrors "gradverify/pkg/domain-errors"
	platformsync "gradverify/pkg/platform/sync"
)

// maxWriteAttempts bounds how often a write is re-read and retried after
// losing a compare-and-swap to another writer.
const maxWriteAttempts = 5

var errWriteConflict = errors.New("registry record changed during write")

// Store persists university key records.
type Store interface {
	Get(ctx context.Context, university, year string) (models.UniversityKeyRecord, error)
	// CompareAndSwap stores next only if the current record still matches
	// expected (nil: no record yet). It returns sentinel.ErrConflict otherwise.
	CompareAndSwap(ctx context.Context, expected *models.UniversityKeyRecord, next models.UniversityKeyRecord) error
	ListByUniversity(ctx context.Context, university string) ([]models.UniversityKeyRecord, error)
}

// ReferenceIssuer mints and checks MoE authority references.
type ReferenceIssuer interface {
	Issue(university, year string) (models.AuthorityReference, error)
	Validate(ref models.AuthorityReference, university, year string) error
}

// Service implements the credential registry.
type Service struct {
	store   Store
	issuer  ReferenceIssuer
	locks   *platformsync.ShardedMutex
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures the registry Service.
type Option func(*Service)

// WithMetrics records lock contention and store faults.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the UpdatedAt time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a registry over store, minting references with issuer.
func New(store Store, issuer ReferenceIssuer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("registry store is required")
	}
	if issuer == nil {
		return nil, errors.New("reference issuer is required")
	}
	s := &Service{
		store:  store,
		issuer: issuer,
		locks:  platformsync.NewShardedMutex(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueIfAbsent returns the reference already on file for (university, year),
// or mints and stores a new one. created reports which happened. When another
// writer inserts first, its reference is returned with created false.
func (s *Service) IssueIfAbsent(ctx context.Context, university, year string) (ref models.AuthorityReference, created bool, err error) {
	key, err := models.ParseUniversityYear(university, year)
	if err != nil {
		return nil, false, err
	}
	err = s.withKeyLock(ctx, key, func() error {
		return s.retryOnConflict(func() error {
			existing, found, err := s.load(ctx, key)
			if err != nil {
				return err
			}
			if found && !existing.AuthorityReference.IsZero() {
				ref, created = existing.AuthorityReference, false
				return nil
			}
			ref, err = s.mintAndSwap(ctx, key, existing, found)
			created = err == nil
			return err
		})
	})
	if err != nil {
		return nil, false, err
	}
	return ref, created, nil
}

// Rotate always mints a fresh reference and overwrites the stored one. A
// previously registered public key is kept, so already signed records stay
// verifiable while outstanding unregistered references stop working.
func (s *Service) Rotate(ctx context.Context, university, year string) (models.AuthorityReference, error) {
	key, err := models.ParseUniversityYear(university, year)
	if err != nil {
		return nil, err
	}
	var ref models.AuthorityReference
	err = s.withKeyLock(ctx, key, func() error {
		return s.retryOnConflict(func() error {
			existing, found, err := s.load(ctx, key)
			if err != nil {
				return err
			}
			ref, err = s.mintAndSwap(ctx, key, existing, found)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// RegisterPublicKey stores publicKeyPEM for (university, year) after checking
// that ref is the reference on file and a genuine MoE token for that slot.
// The key is written only while ref is still on file; a rotation that lands
// first makes ref stale.
//
// Errors: AuthorityNotRegistered when no reference was issued,
// UnknownAuthorityReference on any mismatch, Conflict when the record keeps
// changing underneath, StorageUnavailable on store faults.
func (s *Service) RegisterPublicKey(ctx context.Context, university, year string, ref models.AuthorityReference, publicKeyPEM []byte) (models.UniversityKeyRecord, error) {
	key, err := models.ParseUniversityYear(university, year)
	if err != nil {
		return models.UniversityKeyRecord{}, err
	}
	if len(publicKeyPEM) == 0 {
		return models.UniversityKeyRecord{}, dErrors.New(dErrors.CodeInvalidInput, "public key is required")
	}

	var record models.UniversityKeyRecord
	err = s.withKeyLock(ctx, key, func() error {
		return s.retryOnConflict(func() error {
			existing, found, err := s.load(ctx, key)
			if err != nil {
				return err
			}
			if !found || existing.AuthorityReference.IsZero() {
				return dErrors.New(dErrors.CodeAuthorityNotRegistered, "no authority issued for this university and year")
			}
			if !existing.AuthorityReference.Equal(ref) {
				return dErrors.New(dErrors.CodeUnknownAuthorityReference, "authority reference does not match")
			}
			if err := s.issuer.Validate(ref, key.University, key.Year); err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnknownAuthorityReference, "authority reference rejected")
			}

			record = models.UniversityKeyRecord{
				University:         key.University,
				Year:               key.Year,
				AuthorityReference: existing.AuthorityReference.Clone(),
				PublicKeyPEM:       append([]byte(nil), publicKeyPEM...),
				UpdatedAt:          s.now(),
			}
			return s.swap(ctx, &existing, record, "failed to store public key")
		})
	})
	if err != nil {
		return models.UniversityKeyRecord{}, err
	}
	return record, nil
}

// Lookup returns the record for (university, year). Reads take no shard lock.
//
// Errors: NotFound when no record exists, StorageUnavailable on store faults.
func (s *Service) Lookup(ctx context.Context, university, year string) (models.UniversityKeyRecord, error) {
	key, err := models.ParseUniversityYear(university, year)
	if err != nil {
		return models.UniversityKeyRecord{}, err
	}
	record, err := s.store.Get(ctx, key.University, key.Year)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.UniversityKeyRecord{}, dErrors.New(dErrors.CodeNotFound, "university is not registered for this year")
		}
		return models.UniversityKeyRecord{}, s.storageError(err, "get", "failed to read registry")
	}
	return record, nil
}

// List returns every registered year for university, ordered by year.
func (s *Service) List(ctx context.Context, university string) ([]models.UniversityKeyRecord, error) {
	u, err := models.ParseUniversity(university)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListByUniversity(ctx, u)
	if err != nil {
		return nil, s.storageError(err, "list", "failed to list registry")
	}
	return records, nil
}

// load reads the current record. found is false when none exists yet.
func (s *Service) load(ctx context.Context, key models.UniversityYear) (models.UniversityKeyRecord, bool, error) {
	existing, err := s.store.Get(ctx, key.University, key.Year)
	switch {
	case err == nil:
		return existing, true, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return models.UniversityKeyRecord{}, false, nil
	default:
		return models.UniversityKeyRecord{}, false, s.storageError(err, "get", "failed to read registry")
	}
}

func (s *Service) mintAndSwap(ctx context.Context, key models.UniversityYear, existing models.UniversityKeyRecord, found bool) (models.AuthorityReference, error) {
	ref, err := s.issuer.Issue(key.University, key.Year)
	if err != nil {
		return nil, err
	}
	record := models.UniversityKeyRecord{
		University:         key.University,
		Year:               key.Year,
		AuthorityReference: ref,
		PublicKeyPEM:       existing.PublicKeyPEM,
		UpdatedAt:          s.now(),
	}
	var expected *models.UniversityKeyRecord
	if found {
		expected = &existing
	}
	if err := s.swap(ctx, expected, record, "failed to store authority reference"); err != nil {
		return nil, err
	}
	return ref, nil
}

// swap writes next over expected. A lost race comes back as errWriteConflict
// so retryOnConflict starts over from a fresh read.
func (s *Service) swap(ctx context.Context, expected *models.UniversityKeyRecord, next models.UniversityKeyRecord, msg string) error {
	err := s.store.CompareAndSwap(ctx, expected, next)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrConflict):
		s.metrics.IncStoreError("registry_conflict")
		return errWriteConflict
	default:
		return s.storageError(err, "put", msg)
	}
}

func (s *Service) retryOnConflict(fn func() error) error {
	for range maxWriteAttempts {
		if err := fn(); !errors.Is(err, errWriteConflict) {
			return err
		}
	}
	return dErrors.Wrap(errWriteConflict, dErrors.CodeConflict, "registry record changed concurrently, retry later")
}

func (s *Service) withKeyLock(ctx context.Context, key models.UniversityYear, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "registry write aborted: context cancelled")
	}
	lockKey := platformsync.Key(key.University, key.Year)

	lockStart := time.Now()
	s.locks.Lock(lockKey)
	s.metrics.ObserveLockWait(time.Since(lockStart).Seconds())
	defer s.locks.Unlock(lockKey)

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "registry write aborted: context cancelled")
	}
	return fn()
}

func (s *Service) storageError(err error, operation, msg string) error {
	s.metrics.IncStoreError("registry_" + operation)
	return dErrors.Storage(err, msg)
}
