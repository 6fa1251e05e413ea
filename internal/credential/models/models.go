package models

import (
	"bytes"
	"crypto/subtle"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	dErrors "gradverify/pkg/domain-errors"
)

const (
	recordIDPrefix = "gr_"

	// NameField is the graduate data field used for lookups.
	NameField = "name"

	maxUniversityLength = 255
)

// AuthorityReference is the opaque MoE endorsement token for one
// (university, year). It is copied by value into every graduate record signed
// while it was active.
type AuthorityReference []byte

// String returns the reference in its wire form.
func (r AuthorityReference) String() string {
	return string(r)
}

// IsZero reports whether no reference is present.
func (r AuthorityReference) IsZero() bool {
	return len(r) == 0
}

// Equal compares two references in constant time.
func (r AuthorityReference) Equal(other AuthorityReference) bool {
	if len(r) == 0 || len(other) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(r, other) == 1
}

// Clone returns an independent copy so snapshots never alias registry state.
func (r AuthorityReference) Clone() AuthorityReference {
	if r == nil {
		return nil
	}
	out := make(AuthorityReference, len(r))
	copy(out, r)
	return out
}

// RegistrationState is the per-(university, year) issuance lifecycle.
type RegistrationState string

const (
	StateUnregistered    RegistrationState = "unregistered"
	StateAuthorityIssued RegistrationState = "authority_issued"
	StateKeyRegistered   RegistrationState = "key_registered"
)

// UniversityKeyRecord is the registry entry for one university-year.
// PublicKeyPEM is empty until the university registration step completes.
type UniversityKeyRecord struct {
	University         string
	Year               string
	AuthorityReference AuthorityReference
	PublicKeyPEM       []byte
	UpdatedAt          time.Time
}

// HasPublicKey reports whether a university key has been registered.
func (r UniversityKeyRecord) HasPublicKey() bool {
	return len(r.PublicKeyPEM) > 0
}

// SameVersion reports whether both records carry the same (reference, key)
// pair. Stores use it to detect a concurrent write before replacing a record.
func (r UniversityKeyRecord) SameVersion(other UniversityKeyRecord) bool {
	return bytes.Equal(r.AuthorityReference, other.AuthorityReference) &&
		bytes.Equal(r.PublicKeyPEM, other.PublicKeyPEM)
}

// State derives the lifecycle state from the record contents.
func (r *UniversityKeyRecord) State() RegistrationState {
	switch {
	case r == nil || r.AuthorityReference.IsZero():
		return StateUnregistered
	case !r.HasPublicKey():
		return StateAuthorityIssued
	default:
		return StateKeyRegistered
	}
}

// KeyPair is returned exactly once by university registration. The private
// key is never persisted.
type KeyPair struct {
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte
}

// GraduateData is the free-form graduate payload. It must carry a "name".
type GraduateData map[string]any

// Name returns the graduate's name field, or "" when absent or not a string.
func (d GraduateData) Name() string {
	name, _ := d[NameField].(string)
	return name
}

// Clone deep-copies nested maps and slices so stored records never share
// state with the caller.
func (d GraduateData) Clone() GraduateData {
	if d == nil {
		return nil
	}
	out := make(GraduateData, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case GraduateData:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// RecordID is the prefixed identifier for stored graduate records.
type RecordID string

// NewRecordID generates a new record ID with a stable prefix.
func NewRecordID() RecordID {
	return RecordID(recordIDPrefix + uuid.NewString())
}

func (id RecordID) String() string {
	return string(id)
}

// GraduateRecord is an immutable signed graduate entry.
type GraduateRecord struct {
	ID                 RecordID
	University         string
	Year               string
	Data               GraduateData
	AuthorityReference AuthorityReference
	Signature          []byte
	CreatedAt          time.Time
}

// NameKey returns the normalized name used for lookups.
func (r GraduateRecord) NameKey() string {
	return NormalizeName(r.Data.Name())
}

// UniversityYear identifies one registry slot.
type UniversityYear struct {
	University string
	Year       string
}

// BatchIssueStatus reports the outcome of one batch item.
type BatchIssueStatus string

const (
	BatchIssued BatchIssueStatus = "issued"
	BatchFailed BatchIssueStatus = "failed"
)

// BatchIssueResult is the per-item result of a batch authority issuance.
type BatchIssueResult struct {
	University         string
	Year               string
	AuthorityReference AuthorityReference
	Status             BatchIssueStatus
	Error              string
}

// VerificationStatus is the definitive outcome of a verification.
type VerificationStatus string

const (
	StatusValid    VerificationStatus = "valid"
	StatusInvalid  VerificationStatus = "invalid"
	StatusNotFound VerificationStatus = "not_found"
)

// Reasons attached to invalid or not-found outcomes.
const (
	ReasonSignatureMismatch      = "signature_mismatch"
	ReasonSignatureMalformed     = "signature_malformed"
	ReasonRegisteredKeyMalformed = "registered_key_malformed"
	ReasonPayloadUnserializable  = "payload_unserializable"
	ReasonUniversityNotFound     = "university_not_registered"
	ReasonKeyNotRegistered       = "university_key_not_registered"
	ReasonGraduateNotFound       = "graduate_not_found"
)

// VerificationResult is returned by verification. Invalid is a business
// outcome, not an error.
type VerificationResult struct {
	Status     VerificationStatus
	University string
	Year       string
	RecordID   RecordID
	Data       GraduateData
	Reason     string
}

// Valid reports whether the signature checked out.
func (r VerificationResult) Valid() bool {
	return r.Status == StatusValid
}

// NormalizeName strips all whitespace and lowercases, so "Alice Smith" and
// "alice   smith" compare equal.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ParseUniversity trims and validates a university name.
func ParseUniversity(value string) (string, error) {
	university := strings.TrimSpace(value)
	if university == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "university is required")
	}
	if len(university) > maxUniversityLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "university must be at most 255 characters")
	}
	return university, nil
}

// ParseYear trims and validates a four digit graduation year.
func ParseYear(value string) (string, error) {
	year := strings.TrimSpace(value)
	if year == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "year is required")
	}
	if len(year) != 4 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "year must be a four digit year")
	}
	for _, r := range year {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "year must be a four digit year")
		}
	}
	return year, nil
}

// ParseUniversityYear validates both halves of a registry key.
func ParseUniversityYear(university, year string) (UniversityYear, error) {
	u, err := ParseUniversity(university)
	if err != nil {
		return UniversityYear{}, err
	}
	y, err := ParseYear(year)
	if err != nil {
		return UniversityYear{}, err
	}
	return UniversityYear{University: u, Year: y}, nil
}
