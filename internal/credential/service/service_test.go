package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"gradverify/internal/audit"
	"gradverify/internal/credential/authority"
	"gradverify/internal/credential/metrics"
	"gradverify/internal/credential/models"
	"gradverify/internal/credential/payload"
	"gradverify/internal/credential/registry"
	"gradverify/internal/credential/signature"
	"gradverify/internal/credential/store/records"
	registryStore "gradverify/internal/credential/store/registry"
	dErrors "gradverify/pkg/domain-errors"
)

// ServiceSuite drives the full issue -> register -> sign -> verify flow over
// the in-memory stores and the real RSA codec.
type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	codec      *signature.Codec
	registry   *registry.Service
	records    *records.InMemoryStore
	auditStore *audit.InMemoryStore
	metrics    *metrics.Metrics
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.codec = signature.New()

	issuer, err := authority.NewIssuer("service-test-moe-secret")
	s.Require().NoError(err)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.registry, err = registry.New(registryStore.NewInMemoryStore(), issuer, registry.WithMetrics(s.metrics))
	s.Require().NoError(err)

	s.records = records.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	s.service, err = New(s.registry, s.records, s.codec,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditor(audit.NewPublisher(s.auditStore)),
		WithMetrics(s.metrics),
		WithWorkers(4),
	)
	s.Require().NoError(err)
}

// enroll issues an authority and registers a key for (university, year).
func (s *ServiceSuite) enroll(university, year string) (models.AuthorityReference, models.KeyPair) {
	ref, err := s.service.MoEIssue(s.ctx, university, year)
	s.Require().NoError(err)
	pair, err := s.service.UniversityRegister(s.ctx, university, year, ref)
	s.Require().NoError(err)
	return ref, pair
}

func (s *ServiceSuite) TestNewRequiresDependencies() {
	_, err := New(nil, s.records, s.codec)
	s.Error(err)
	_, err = New(s.registry, nil, s.codec)
	s.Error(err)
	_, err = New(s.registry, s.records, nil)
	s.Error(err)
}

func (s *ServiceSuite) TestGraduateScenario() {
	_, pair := s.enroll("MIT", "2024")

	signed, err := s.service.SignGraduates(s.ctx, "MIT", "2024", pair.PrivateKeyPEM, []models.GraduateData{
		{"name": "Alice Smith", "degree": "BSc"},
	})
	s.Require().NoError(err)
	s.Require().Len(signed, 1)
	s.NotEmpty(signed[0].ID)
	s.NotEmpty(signed[0].Signature)

	result, err := s.service.Verify(s.ctx, "MIT", "2024", "alice smith")
	s.Require().NoError(err)
	s.Equal(models.StatusValid, result.Status)
	s.True(result.Valid())
	s.Equal("BSc", result.Data["degree"])
	s.Equal(signed[0].ID, result.RecordID)

	result, err = s.service.Verify(s.ctx, "MIT", "2024", "Bob Jones")
	s.Require().NoError(err)
	s.Equal(models.StatusNotFound, result.Status)
	s.Equal(models.ReasonGraduateNotFound, result.Reason)
}

func (s *ServiceSuite) TestVerifyNameNormalization() {
	_, pair := s.enroll("MIT", "2024")
	_, err := s.service.SignGraduates(s.ctx, "MIT", "2024", pair.PrivateKeyPEM, []models.GraduateData{{"name": "Alice Smith"}})
	s.Require().NoError(err)

	for _, name := range []string{"Alice Smith", "alice   smith", "ALICESMITH", " alice\tsmith "} {
		result, err := s.service.Verify(s.ctx, "MIT", "2024", name)
		s.Require().NoError(err)
		s.Equal(models.StatusValid, result.Status, name)
	}
}

func (s *ServiceSuite) TestVerifyOutcomes() {
	s.Run("unknown university", func() {
		result, err := s.service.Verify(s.ctx, "Nowhere", "2024", "Alice")
		s.Require().NoError(err)
		s.Equal(models.StatusNotFound, result.Status)
		s.Equal(models.ReasonUniversityNotFound, result.Reason)
	})

	s.Run("authority issued without key", func() {
		_, err := s.service.MoEIssue(s.ctx, "Stanford", "2024")
		s.Require().NoError(err)
		result, err := s.service.Verify(s.ctx, "Stanford", "2024", "Alice")
		s.Require().NoError(err)
		s.Equal(models.StatusNotFound, result.Status)
		s.Equal(models.ReasonKeyNotRegistered, result.Reason)
	})

	s.Run("invalid input", func() {
		_, err := s.service.Verify(s.ctx, "MIT", "24", "Alice")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		_, err = s.service.Verify(s.ctx, "MIT", "2024", "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("registered key replaced with garbage", func() {
		ref, pair := s.enroll("Yale", "2024")
		_, err := s.service.SignGraduates(s.ctx, "Yale", "2024", pair.PrivateKeyPEM, []models.GraduateData{{"name": "Alice"}})
		s.Require().NoError(err)
		_, err = s.registry.RegisterPublicKey(s.ctx, "Yale", "2024", ref, []byte("not a pem"))
		s.Require().NoError(err)

		result, err := s.service.Verify(s.ctx, "Yale", "2024", "Alice")
		s.Require().NoError(err)
		s.Equal(models.StatusInvalid, result.Status)
		s.Equal(models.ReasonRegisteredKeyMalformed, result.Reason)
	})
}

func (s *ServiceSuite) TestAuthorityRotationKeepsSignedRecordsValid() {
	first, pair := s.enroll("MIT", "2024")
	_, err := s.service.SignGraduates(s.ctx, "MIT", "2024", pair.PrivateKeyPEM, []models.GraduateData{{"name": "Alice Smith"}})
	s.Require().NoError(err)

	second, err := s.service.MoEIssue(s.ctx, "MIT", "2024")
	s.Require().NoError(err)
	s.False(first.Equal(second))

	result, err := s.service.Verify(s.ctx, "MIT", "2024", "Alice Smith")
	s.Require().NoError(err)
	s.Equal(models.StatusValid, result.Status, "records keep the reference they were signed under")

	_, err = s.service.UniversityRegister(s.ctx, "MIT", "2024", first)
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownAuthorityReference), "stale reference cannot register")

	signed, err := s.service.SignGraduates(s.ctx, "MIT", "2024", pair.PrivateKeyPEM, []models.GraduateData{{"name": "Bob Jones"}})
	s.Require().NoError(err)
	s.True(second.Equal(signed[0].AuthorityReference), "new records snapshot the current reference")

	result, err = s.service.Verify(s.ctx, "MIT", "2024", "Bob Jones")
	s.Require().NoError(err)
	s.Equal(models.StatusValid, result.Status)
}

func (s *ServiceSuite) TestReRegistrationInvalidatesOldSignatures() {
	ref, oldPair := s.enroll("MIT", "2024")
	signed, err := s.service.SignGraduates(s.ctx, "MIT", "2024", oldPair.PrivateKeyPEM, []models.GraduateData{{"name": "Alice Smith"}})
	s.Require().NoError(err)

	newPair, err := s.service.UniversityRegister(s.ctx, "MIT", "2024", ref)
	s.Require().NoError(err)
	s.NotEqual(oldPair.PublicKeyPEM, newPair.PublicKeyPEM)

	result, err := s.service.Verify(s.ctx, "MIT", "2024", "Alice Smith")
	s.Require().NoError(err)
	s.Equal(models.StatusInvalid, result.Status)
	s.Equal(models.ReasonSignatureMismatch, result.Reason)

	oldPub, err := s.codec.ImportPublic(oldPair.PublicKeyPEM)
	s.Require().NoError(err)
	message, err := payload.Build(signed[0].Data, signed[0].AuthorityReference)
	s.Require().NoError(err)
	ok, err := s.codec.Verify(oldPub, message, signed[0].Signature)
	s.Require().NoError(err)
	s.True(ok, "the record still verifies under the key it was signed with")

	_, err = s.service.SignGraduates(s.ctx, "MIT", "2024", oldPair.PrivateKeyPEM, []models.GraduateData{{"name": "Carol"}})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "retired private key no longer signs")
}

func (s *ServiceSuite) TestUniversityRegisterErrors() {
	s.Run("no authority", func() {
		_, err := s.service.UniversityRegister(s.ctx, "Harvard", "2024", models.AuthorityReference("anything"))
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorityNotRegistered))
	})

	s.Run("missing reference", func() {
		_, err := s.service.UniversityRegister(s.ctx, "Harvard", "2024", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("forged reference", func() {
		_, err := s.service.MoEIssue(s.ctx, "Harvard", "2024")
		s.Require().NoError(err)
		_, err = s.service.UniversityRegister(s.ctx, "Harvard", "2024", models.AuthorityReference("forged"))
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownAuthorityReference))
	})

	s.Run("returned key pair round trips", func() {
		ref, err := s.service.MoEIssue(s.ctx, "Cornell", "2024")
		s.Require().NoError(err)
		pair, err := s.service.UniversityRegister(s.ctx, "Cornell", "2024", ref)
		s.Require().NoError(err)
		priv, err := s.codec.ImportPrivate(pair.PrivateKeyPEM)
		s.Require().NoError(err)
		pub, err := s.codec.ImportPublic(pair.PublicKeyPEM)
		s.Require().NoError(err)
		s.True(signature.SameKey(priv, pub))

		record, err := s.service.Registration(s.ctx, "Cornell", "2024")
		s.Require().NoError(err)
		s.Equal(pair.PublicKeyPEM, record.PublicKeyPEM)
		s.Equal(models.StateKeyRegistered, record.State())
	})
}

func (s *ServiceSuite) TestSignGraduatesErrors() {
	_, pair := s.enroll("MIT", "2024")

	s.Run("authority missing", func() {
		_, err := s.service.SignGraduates(s.ctx, "Nowhere", "2024", pair.PrivateKeyPEM, []models.GraduateData{{"name": "A"}})
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorityNotRegistered))
	})

	s.Run("key not registered", func() {
		_, err := s.service.MoEIssue(s.ctx, "Stanford", "2024")
		s.Require().NoError(err)
		_, err = s.service.SignGraduates(s.ctx, "Stanford", "2024", pair.PrivateKeyPEM, []models.GraduateData{{"name": "A"}})
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorityNotRegistered))
	})

	s.Run("malformed private key", func() {
		_, err := s.service.SignGraduates(s.ctx, "MIT", "2024", []byte("garbage"), []models.GraduateData{{"name": "A"}})
		s.True(dErrors.HasCode(err, dErrors.CodeMalformedKey))
	})

	s.Run("foreign private key", func() {
		priv, _, err := s.codec.GenerateKeyPair()
		s.Require().NoError(err)
		foreign, err := s.codec.ExportPrivate(priv)
		s.Require().NoError(err)
		_, err = s.service.SignGraduates(s.ctx, "MIT", "2024", foreign, []models.GraduateData{{"name": "A"}})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("empty batch", func() {
		_, err := s.service.SignGraduates(s.ctx, "MIT", "2024", pair.PrivateKeyPEM, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unserializable data", func() {
		_, err := s.service.SignGraduates(s.ctx, "MIT", "2024", pair.PrivateKeyPEM, []models.GraduateData{{"name": "A", "gpa": math.NaN()}})
		s.True(dErrors.HasCode(err, dErrors.CodeUnserializableInput))
	})
}

func (s *ServiceSuite) TestSignGraduatesStopsAtFirstFailure() {
	_, pair := s.enroll("MIT", "2024")

	signed, err := s.service.SignGraduates(s.ctx, "MIT", "2024", pair.PrivateKeyPEM, []models.GraduateData{
		{"name": "Alice"},
		{"name": "Bob"},
		{"degree": "BSc"},
		{"name": "Carol"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Contains(err.Error(), "index 2")
	s.Require().Len(signed, 2)

	stored, err := s.service.ListGraduates(s.ctx, "MIT")
	s.Require().NoError(err)
	s.Require().Len(stored, 2)
	s.Equal("Alice", stored[0].Data.Name())
	s.Equal("Bob", stored[1].Data.Name())

	result, err := s.service.Verify(s.ctx, "MIT", "2024", "Carol")
	s.Require().NoError(err)
	s.Equal(models.StatusNotFound, result.Status)
}

func (s *ServiceSuite) TestSignGraduatesKeepsInputOrder() {
	_, pair := s.enroll("MIT", "2024")

	graduates := make([]models.GraduateData, 12)
	for i := range graduates {
		graduates[i] = models.GraduateData{"name": fmt.Sprintf("Graduate %02d", i)}
	}
	signed, err := s.service.SignGraduates(s.ctx, "MIT", "2024", pair.PrivateKeyPEM, graduates)
	s.Require().NoError(err)
	s.Require().Len(signed, len(graduates))

	stored, err := s.service.ListGraduates(s.ctx, "MIT")
	s.Require().NoError(err)
	for i, record := range stored {
		s.Equal(fmt.Sprintf("Graduate %02d", i), record.Data.Name())
		s.Equal(signed[i].ID, record.ID)
	}
	s.Equal(float64(len(graduates)), testutil.ToFloat64(s.metrics.GraduatesSignedTotal))
}

func (s *ServiceSuite) TestSignedDataIsIsolatedFromCaller() {
	_, pair := s.enroll("MIT", "2024")
	courses := []any{"math"}
	input := models.GraduateData{"name": "Alice", "courses": courses}

	_, err := s.service.SignGraduates(s.ctx, "MIT", "2024", pair.PrivateKeyPEM, []models.GraduateData{input})
	s.Require().NoError(err)
	courses[0] = "history"
	input["name"] = "Mallory"

	result, err := s.service.Verify(s.ctx, "MIT", "2024", "Alice")
	s.Require().NoError(err)
	s.Equal(models.StatusValid, result.Status)
}

func (s *ServiceSuite) TestMoEIssueIfAbsent() {
	first, created, err := s.service.MoEIssueIfAbsent(s.ctx, "MIT", "2024")
	s.Require().NoError(err)
	s.True(created)

	again, created, err := s.service.MoEIssueIfAbsent(s.ctx, "MIT", "2024")
	s.Require().NoError(err)
	s.False(created)
	s.True(first.Equal(again))
}

func (s *ServiceSuite) TestMoEIssueBatch() {
	results := s.service.MoEIssueBatch(s.ctx, []models.UniversityYear{
		{University: "MIT", Year: "2024"},
		{University: "", Year: "2024"},
		{University: "Harvard", Year: "24"},
		{University: " Yale ", Year: "2023"},
	})
	s.Require().Len(results, 4)

	s.Equal(models.BatchIssued, results[0].Status)
	s.False(results[0].AuthorityReference.IsZero())
	s.Equal(models.BatchFailed, results[1].Status)
	s.NotEmpty(results[1].Error)
	s.Equal(models.BatchFailed, results[2].Status)
	s.Equal(models.BatchIssued, results[3].Status)
	s.Equal("Yale", results[3].University)

	record, err := s.service.Registration(s.ctx, "Yale", "2023")
	s.Require().NoError(err)
	s.True(results[3].AuthorityReference.Equal(record.AuthorityReference))
}

func (s *ServiceSuite) TestListRegistrations() {
	for _, year := range []string{"2024", "2023"} {
		_, err := s.service.MoEIssue(s.ctx, "MIT", year)
		s.Require().NoError(err)
	}
	list, err := s.service.ListRegistrations(s.ctx, "MIT")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("2023", list[0].Year)
}

func (s *ServiceSuite) TestAuditTrail() {
	_, pair := s.enroll("MIT", "2024")
	_, err := s.service.SignGraduates(s.ctx, "MIT", "2024", pair.PrivateKeyPEM, []models.GraduateData{{"name": "Alice"}})
	s.Require().NoError(err)
	_, err = s.service.Verify(s.ctx, "MIT", "2024", "Alice")
	s.Require().NoError(err)

	events, err := s.auditStore.ListByUniversity(s.ctx, "MIT")
	s.Require().NoError(err)
	var actions []audit.Action
	for _, e := range events {
		actions = append(actions, e.Action)
		s.NotContains(e.Subject, "Alice", "graduate names never reach the audit trail")
	}
	s.Equal([]audit.Action{
		audit.ActionAuthorityIssued,
		audit.ActionUniversityKeyRegistered,
		audit.ActionGraduatesSigned,
		audit.ActionGraduateVerified,
	}, actions)
	s.Equal("valid", events[3].Reason)
}
