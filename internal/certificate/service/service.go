// Package service stores and retrieves uploaded certificate documents.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"gradverify/internal/audit"
	"gradverify/internal/certificate/models"
	"gradverify/internal/certificate/store"
	credentialmodels "gradverify/internal/credential/models"
	"gradverify/internal/platform/middleware"
	"gradverify/internal/sentinel"
	dErrors "gradverify/pkg/domain-errors"
	platformstrings "gradverify/pkg/platform/strings"
)

const (
	// DefaultMaxBytes caps uploads when no limit is configured.
	DefaultMaxBytes = 10 << 20

	maxNameLength       = 512
	maxNationalIDLength = 64
	genericMimeType     = "application/octet-stream"
)

// AuditPublisher emits audit events for certificate uploads.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service validates uploads and looks certificates up by graduate.
type Service struct {
	store    store.Store
	auditor  AuditPublisher
	logger   *slog.Logger
	maxBytes int64
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

// WithMaxBytes sets the largest accepted certificate.
func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithClock overrides the UploadedAt time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates the certificate service.
func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("certificate store is required")
	}
	s := &Service{
		store:    st,
		logger:   slog.New(slog.DiscardHandler),
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MaxBytes returns the configured upload limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// UploadRequest carries one certificate upload.
type UploadRequest struct {
	University string
	Name       string
	NationalID string
	Filename   string
	MimeType   string
	Content    []byte
}

// Upload stores a certificate. The filename is sanitized and the MIME type is
// sniffed from the content when the client sent none or a generic one.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (models.Certificate, error) {
	university, err := credentialmodels.ParseUniversity(req.University)
	if err != nil {
		return models.Certificate{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Certificate{}, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if len(name) > maxNameLength {
		return models.Certificate{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	nationalID := strings.TrimSpace(req.NationalID)
	if len(nationalID) > maxNationalIDLength {
		return models.Certificate{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("national_id must be at most %d characters", maxNationalIDLength))
	}
	if len(req.Content) == 0 {
		return models.Certificate{}, dErrors.New(dErrors.CodeInvalidInput, "file is empty")
	}
	if int64(len(req.Content)) > s.maxBytes {
		return models.Certificate{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}
	filename := platformstrings.SanitizeFilename(req.Filename)
	if filename == "" {
		return models.Certificate{}, dErrors.New(dErrors.CodeInvalidInput, "filename is invalid")
	}

	cert := models.Certificate{
		ID:         models.NewCertificateID(),
		University: university,
		Name:       name,
		NationalID: nationalID,
		Filename:   filename,
		MimeType:   resolveMimeType(req.MimeType, req.Content),
		Content:    append([]byte(nil), req.Content...),
		UploadedAt: s.now().UTC(),
	}
	if err := s.store.Save(ctx, cert); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return models.Certificate{}, dErrors.New(dErrors.CodeConflict, "certificate already exists")
		}
		return models.Certificate{}, dErrors.Storage(err, "failed to store certificate")
	}

	s.logger.InfoContext(ctx, "certificate uploaded",
		"certificate_id", cert.ID,
		"university", cert.University,
		"mime_type", cert.MimeType,
		"size", len(cert.Content),
	)
	s.emitUploaded(ctx, cert)
	return cert, nil
}

// Download returns the earliest uploaded certificate matching q.
func (s *Service) Download(ctx context.Context, q models.Query) (models.Certificate, error) {
	q = q.Normalize()
	university, err := credentialmodels.ParseUniversity(q.University)
	if err != nil {
		return models.Certificate{}, err
	}
	q.University = university
	if q.Name == "" {
		return models.Certificate{}, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}

	cert, err := s.store.FindFirst(ctx, q)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Certificate{}, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return models.Certificate{}, dErrors.Storage(err, "failed to read certificates")
	}
	return cert, nil
}

func (s *Service) emitUploaded(ctx context.Context, cert models.Certificate) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Action:     audit.ActionCertificateUploaded,
		University: cert.University,
		Subject:    cert.ID.String(),
		RequestID:  middleware.GetRequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit certificate_uploaded audit event",
			"error", err,
			"certificate_id", cert.ID,
		)
	}
}

// resolveMimeType keeps a well-formed declared type and otherwise sniffs the
// content.
func resolveMimeType(declared string, content []byte) string {
	if declared != "" {
		if mediaType, params, err := mime.ParseMediaType(declared); err == nil && mediaType != genericMimeType {
			return mime.FormatMediaType(mediaType, params)
		}
	}
	return http.DetectContentType(content)
}
