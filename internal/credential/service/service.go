// Package service implements the credential issuance and verification
// workflows on top of the registry, the graduate record store and the
// signature codec.
package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"iter"
	"log/slog"
	"runtime"
	"time"

	"gradverify/internal/audit"
	"gradverify/internal/credential/metrics"
	"gradverify/internal/credential/models"
	"gradverify/internal/credential/tracer"
	"gradverify/internal/platform/middleware"
)

// Registry is the credential registry dependency.
type Registry interface {
	IssueIfAbsent(ctx context.Context, university, year string) (models.AuthorityReference, bool, error)
	Rotate(ctx context.Context, university, year string) (models.AuthorityReference, error)
	RegisterPublicKey(ctx context.Context, university, year string, ref models.AuthorityReference, publicKeyPEM []byte) (models.UniversityKeyRecord, error)
	Lookup(ctx context.Context, university, year string) (models.UniversityKeyRecord, error)
	List(ctx context.Context, university string) ([]models.UniversityKeyRecord, error)
}

// RecordStore persists signed graduate records.
type RecordStore interface {
	Append(ctx context.Context, record models.GraduateRecord) (models.RecordID, error)
	FindByNameAndYear(ctx context.Context, university, name, year string) (models.GraduateRecord, error)
	ListByUniversity(ctx context.Context, university string) iter.Seq2[models.GraduateRecord, error]
}

// KeyCodec generates, encodes and uses university keys.
type KeyCodec interface {
	GenerateKeyPair() (*rsa.PrivateKey, *rsa.PublicKey, error)
	ExportPrivate(key *rsa.PrivateKey) ([]byte, error)
	ExportPublic(key *rsa.PublicKey) ([]byte, error)
	ImportPrivate(data []byte) (*rsa.PrivateKey, error)
	ImportPublic(data []byte) (*rsa.PublicKey, error)
	Sign(key *rsa.PrivateKey, message []byte) ([]byte, error)
	Verify(key *rsa.PublicKey, message, signature []byte) (bool, error)
}

// AuditPublisher emits audit events for credential lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs MoE issuance, university registration, graduate signing and
// verification.
type Service struct {
	registry Registry
	records  RecordStore
	codec    KeyCodec
	auditor  AuditPublisher
	logger   *slog.Logger
	tracer   tracer.Tracer
	metrics  *metrics.Metrics
	workers  int
	now      func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditor configures an audit publisher for the service.
func WithAuditor(auditor AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithTracer configures span emission.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics records issuance and verification metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithWorkers bounds the number of graduates signed concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithClock overrides the CreatedAt time source for signed records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates the credential service.
func New(registry Registry, records RecordStore, codec KeyCodec, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if codec == nil {
		return nil, errors.New("key codec is required")
	}
	s := &Service{
		registry: registry,
		records:  records,
		codec:    codec,
		logger:   slog.New(slog.DiscardHandler),
		tracer:   tracer.NewNoop(),
		workers:  runtime.NumCPU(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = middleware.GetRequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"action", event.Action,
			"university", event.University,
			"year", event.Year,
		)
	}
}
