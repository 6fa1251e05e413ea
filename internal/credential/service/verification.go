package service

import (
	"context"
	"errors"
	"time"

	"gradverify/internal/audit"
	"gradverify/internal/credential/models"
	"gradverify/internal/credential/payload"
	"gradverify/internal/credential/tracer"
	"gradverify/internal/sentinel"
	dErrors "gradverify/pkg/domain-errors"
)

// Verify checks the stored record for name against the public key currently
// registered for (university, year).
//
// Missing registrations or graduates yield a not_found result and a signature
// that does not check out yields invalid. Only input validation and storage
// faults are returned as errors.
func (s *Service) Verify(ctx context.Context, university, year, name string) (result models.VerificationResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrUniversity, university),
		tracer.String(tracer.AttrYear, year),
	)
	start := time.Now()
	defer func() {
		if err == nil {
			span.SetAttributes(
				tracer.String(tracer.AttrStatus, string(result.Status)),
				tracer.String(tracer.AttrReason, result.Reason),
			)
			s.metrics.ObserveVerification(string(result.Status), time.Since(start).Seconds())
		}
		span.End(err)
	}()

	key, err := models.ParseUniversityYear(university, year)
	if err != nil {
		return models.VerificationResult{}, err
	}
	nameKey := models.NormalizeName(name)
	if nameKey == "" {
		return models.VerificationResult{}, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}

	result = models.VerificationResult{University: key.University, Year: key.Year}

	registered, err := s.registry.Lookup(ctx, key.University, key.Year)
	switch {
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		return s.notFound(ctx, result, models.ReasonUniversityNotFound), nil
	case err != nil:
		return models.VerificationResult{}, err
	case !registered.HasPublicKey():
		return s.notFound(ctx, result, models.ReasonKeyNotRegistered), nil
	}

	record, err := s.records.FindByNameAndYear(ctx, key.University, name, key.Year)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.notFound(ctx, result, models.ReasonGraduateNotFound), nil
		}
		s.metrics.IncStoreError("records_find")
		return models.VerificationResult{}, dErrors.Storage(err, "failed to read graduate records")
	}
	result.RecordID = record.ID

	pub, err := s.codec.ImportPublic(registered.PublicKeyPEM)
	if err != nil {
		return s.invalid(ctx, result, models.ReasonRegisteredKeyMalformed), nil
	}
	message, err := payload.Build(record.Data, record.AuthorityReference)
	if err != nil {
		return s.invalid(ctx, result, models.ReasonPayloadUnserializable), nil
	}
	ok, err := s.codec.Verify(pub, message, record.Signature)
	if err != nil {
		return s.invalid(ctx, result, models.ReasonSignatureMalformed), nil
	}
	if !ok {
		return s.invalid(ctx, result, models.ReasonSignatureMismatch), nil
	}

	result.Status = models.StatusValid
	result.Data = record.Data
	s.emitVerified(ctx, result)
	return result, nil
}

// ListGraduates returns every signed record of university in insertion order.
func (s *Service) ListGraduates(ctx context.Context, university string) (records []models.GraduateRecord, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanListGraduates, tracer.String(tracer.AttrUniversity, university))
	defer func() { span.End(err) }()

	u, err := models.ParseUniversity(university)
	if err != nil {
		return nil, err
	}
	records = []models.GraduateRecord{}
	for record, err := range s.records.ListByUniversity(ctx, u) {
		if err != nil {
			s.metrics.IncStoreError("records_list")
			return nil, dErrors.Storage(err, "failed to list graduate records")
		}
		records = append(records, record)
	}
	span.SetAttributes(tracer.Int(tracer.AttrCount, len(records)))
	return records, nil
}

// ListRegistrations returns the registry entries of university ordered by year.
func (s *Service) ListRegistrations(ctx context.Context, university string) ([]models.UniversityKeyRecord, error) {
	return s.registry.List(ctx, university)
}

// Registration returns the registry entry for (university, year).
func (s *Service) Registration(ctx context.Context, university, year string) (models.UniversityKeyRecord, error) {
	return s.registry.Lookup(ctx, university, year)
}

func (s *Service) notFound(ctx context.Context, result models.VerificationResult, reason string) models.VerificationResult {
	result.Status = models.StatusNotFound
	result.Reason = reason
	s.emitVerified(ctx, result)
	return result
}

func (s *Service) invalid(ctx context.Context, result models.VerificationResult, reason string) models.VerificationResult {
	result.Status = models.StatusInvalid
	result.Reason = reason
	s.logger.WarnContext(ctx, "graduate verification failed",
		"university", result.University,
		"year", result.Year,
		"record_id", result.RecordID,
		"reason", reason,
	)
	s.emitVerified(ctx, result)
	return result
}

func (s *Service) emitVerified(ctx context.Context, result models.VerificationResult) {
	reason := string(result.Status)
	if result.Reason != "" {
		reason += ":" + result.Reason
	}
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionGraduateVerified,
		University: result.University,
		Year:       result.Year,
		Subject:    result.RecordID.String(),
		Reason:     reason,
	})
}
