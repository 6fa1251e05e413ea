package service

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"gradverify/internal/audit"
	"gradverify/internal/credential/models"
	"gradverify/internal/credential/payload"
	"gradverify/internal/credential/signature"
	"gradverify/internal/credential/tracer"
	dErrors "gradverify/pkg/domain-errors"
)

// Authority issuance modes recorded on the issued counter.
const (
	issueModeRotate   = "rotate"
	issueModeCreated  = "created"
	issueModeExisting = "existing"
)

// MoEIssue mints a fresh authority reference for (university, year),
// replacing any reference on file. Outstanding references that were never
// used to register a key stop working; records signed earlier keep their
// snapshot and stay verifiable.
func (s *Service) MoEIssue(ctx context.Context, university, year string) (ref models.AuthorityReference, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanMoEIssue,
		tracer.String(tracer.AttrUniversity, university),
		tracer.String(tracer.AttrYear, year),
	)
	defer func() { span.End(err) }()

	ref, err = s.registry.Rotate(ctx, university, year)
	if err != nil {
		return nil, err
	}
	s.metrics.IncAuthorityIssued(issueModeRotate)
	s.logger.InfoContext(ctx, "authority issued",
		"university", university,
		"year", year,
		"mode", issueModeRotate,
	)
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionAuthorityIssued,
		University: university,
		Year:       year,
		Reason:     issueModeRotate,
	})
	return ref, nil
}

// MoEIssueIfAbsent returns the reference already on file or mints one.
// created reports whether a new reference was stored.
func (s *Service) MoEIssueIfAbsent(ctx context.Context, university, year string) (ref models.AuthorityReference, created bool, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanMoEIssue,
		tracer.String(tracer.AttrUniversity, university),
		tracer.String(tracer.AttrYear, year),
	)
	defer func() { span.End(err) }()

	ref, created, err = s.registry.IssueIfAbsent(ctx, university, year)
	if err != nil {
		return nil, false, err
	}
	mode := issueModeExisting
	if created {
		mode = issueModeCreated
		s.emitAudit(ctx, audit.Event{
			Action:     audit.ActionAuthorityIssued,
			University: university,
			Year:       year,
			Reason:     mode,
		})
	}
	s.metrics.IncAuthorityIssued(mode)
	span.SetAttributes(tracer.Bool("credential.created", created))
	return ref, created, nil
}

// MoEIssueBatch issues references for every item independently. A failing
// item is reported in its result and never aborts the rest.
func (s *Service) MoEIssueBatch(ctx context.Context, items []models.UniversityYear) []models.BatchIssueResult {
	ctx, span := s.tracer.Start(ctx, tracer.SpanMoEIssueBatch, tracer.Int(tracer.AttrCount, len(items)))
	defer span.End(nil)

	results := make([]models.BatchIssueResult, 0, len(items))
	failed := 0
	for _, item := range items {
		result := models.BatchIssueResult{
			University: strings.TrimSpace(item.University),
			Year:       strings.TrimSpace(item.Year),
		}
		ref, err := s.MoEIssue(ctx, item.University, item.Year)
		if err != nil {
			failed++
			result.Status = models.BatchFailed
			result.Error = err.Error()
		} else {
			result.Status = models.BatchIssued
			result.AuthorityReference = ref
		}
		results = append(results, result)
	}
	span.SetAttributes(tracer.Int("credential.failed", failed))
	return results
}

// UniversityRegister generates a key pair for (university, year) after
// checking ref against the reference on file, stores the public half and
// returns both halves. The private key is not kept anywhere.
//
// Registering again replaces the public key; records signed under the old
// key then verify as invalid.
func (s *Service) UniversityRegister(ctx context.Context, university, year string, ref models.AuthorityReference) (pair models.KeyPair, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanUniversityRegister,
		tracer.String(tracer.AttrUniversity, university),
		tracer.String(tracer.AttrYear, year),
	)
	defer func() { span.End(err) }()

	key, err := models.ParseUniversityYear(university, year)
	if err != nil {
		return models.KeyPair{}, err
	}
	if ref.IsZero() {
		return models.KeyPair{}, dErrors.New(dErrors.CodeInvalidInput, "authority reference is required")
	}
	current, err := s.lookupAuthority(ctx, key)
	if err != nil {
		return models.KeyPair{}, err
	}
	if !current.AuthorityReference.Equal(ref) {
		return models.KeyPair{}, dErrors.New(dErrors.CodeUnknownAuthorityReference, "authority reference does not match")
	}

	priv, pub, err := s.codec.GenerateKeyPair()
	if err != nil {
		return models.KeyPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate key pair")
	}
	privPEM, err := s.codec.ExportPrivate(priv)
	if err != nil {
		return models.KeyPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to export private key")
	}
	pubPEM, err := s.codec.ExportPublic(pub)
	if err != nil {
		return models.KeyPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to export public key")
	}

	if _, err := s.registry.RegisterPublicKey(ctx, key.University, key.Year, ref, pubPEM); err != nil {
		return models.KeyPair{}, err
	}

	s.metrics.IncKeyRegistered()
	s.logger.InfoContext(ctx, "university key registered",
		"university", key.University,
		"year", key.Year,
	)
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionUniversityKeyRegistered,
		University: key.University,
		Year:       key.Year,
	})
	return models.KeyPair{PrivateKeyPEM: privPEM, PublicKeyPEM: pubPEM}, nil
}

// SignGraduates signs each graduate under the current authority reference
// for (university, year) and appends the records in input order.
//
// Signing runs on a bounded worker pool. Appending stops at the first item
// that fails; the records stored before it are returned together with the
// error, and nothing is stored for the failing item or those after it.
func (s *Service) SignGraduates(ctx context.Context, university, year string, privateKeyPEM []byte, graduates []models.GraduateData) (signed []models.GraduateRecord, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSignGraduates,
		tracer.String(tracer.AttrUniversity, university),
		tracer.String(tracer.AttrYear, year),
		tracer.Int(tracer.AttrCount, len(graduates)),
	)
	defer func() { span.End(err) }()

	key, err := models.ParseUniversityYear(university, year)
	if err != nil {
		return nil, err
	}
	if len(graduates) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one graduate is required")
	}

	record, err := s.lookupAuthority(ctx, key)
	if err != nil {
		return nil, err
	}
	if !record.HasPublicKey() {
		return nil, dErrors.New(dErrors.CodeAuthorityNotRegistered, "university key is not registered for this year")
	}

	priv, err := s.codec.ImportPrivate(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	pub, err := s.codec.ImportPublic(record.PublicKeyPEM)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedKey, "registered public key is malformed")
	}
	if !signature.SameKey(priv, pub) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "private key does not match registered public key")
	}

	start := time.Now()
	results := s.signAll(ctx, key, record.AuthorityReference, priv, graduates)

	signed = make([]models.GraduateRecord, 0, len(graduates))
	for i, res := range results {
		if res.err != nil {
			err = res.err
			break
		}
		id, appendErr := s.records.Append(ctx, res.record)
		if appendErr != nil {
			s.metrics.IncStoreError("records_append")
			err = dErrors.Storage(appendErr, fmt.Sprintf("failed to store graduate at index %d", i))
			break
		}
		res.record.ID = id
		signed = append(signed, res.record)
	}

	s.metrics.ObserveSigning(time.Since(start).Seconds())
	s.metrics.AddGraduatesSigned(len(signed))
	if len(signed) > 0 {
		s.emitAudit(ctx, audit.Event{
			Action:     audit.ActionGraduatesSigned,
			University: key.University,
			Year:       key.Year,
			Subject:    signed[0].ID.String(),
			Reason:     fmt.Sprintf("count=%d", len(signed)),
		})
	}
	s.logger.InfoContext(ctx, "graduates signed",
		"university", key.University,
		"year", key.Year,
		"requested", len(graduates),
		"signed", len(signed),
	)
	return signed, err
}

type signResult struct {
	record models.GraduateRecord
	err    error
}

// signAll produces one result per graduate. Workers never return errors to
// the group, so a failure at index i cannot cancel work for earlier indexes.
func (s *Service) signAll(ctx context.Context, key models.UniversityYear, ref models.AuthorityReference, priv *rsa.PrivateKey, graduates []models.GraduateData) []signResult {
	results := make([]signResult, len(graduates))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, data := range graduates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = dErrors.Wrap(err, dErrors.CodeTimeout, "signing aborted: context cancelled")
				return nil
			}
			results[i] = s.signOne(i, key, ref, priv, data)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) signOne(index int, key models.UniversityYear, ref models.AuthorityReference, priv *rsa.PrivateKey, data models.GraduateData) signResult {
	if strings.TrimSpace(data.Name()) == "" {
		return signResult{err: dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("graduate at index %d: name is required", index))}
	}
	snapshot := ref.Clone()
	owned := data.Clone()
	message, err := payload.Build(owned, snapshot)
	if err != nil {
		return signResult{err: dErrors.Wrap(err, dErrors.CodeUnserializableInput, fmt.Sprintf("graduate at index %d: data cannot be serialized", index))}
	}
	sig, err := s.codec.Sign(priv, message)
	if err != nil {
		return signResult{err: dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("graduate at index %d: signing failed", index))}
	}
	return signResult{record: models.GraduateRecord{
		University:         key.University,
		Year:               key.Year,
		Data:               owned,
		AuthorityReference: snapshot,
		Signature:          sig,
		CreatedAt:          s.now().UTC(),
	}}
}

// lookupAuthority returns the registry record, translating a miss into
// AuthorityNotRegistered.
func (s *Service) lookupAuthority(ctx context.Context, key models.UniversityYear) (models.UniversityKeyRecord, error) {
	record, err := s.registry.Lookup(ctx, key.University, key.Year)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return models.UniversityKeyRecord{}, dErrors.New(dErrors.CodeAuthorityNotRegistered, "no authority issued for this university and year")
		}
		return models.UniversityKeyRecord{}, err
	}
	if record.AuthorityReference.IsZero() {
		return models.UniversityKeyRecord{}, dErrors.New(dErrors.CodeAuthorityNotRegistered, "no authority issued for this university and year")
	}
	return record, nil
}
