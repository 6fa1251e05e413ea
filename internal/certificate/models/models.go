package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	credentialmodels "gradverify/internal/credential/models"
)

const certificateIDPrefix = "cert_"

// CertificateID is the prefixed identifier for stored certificates.
type CertificateID string

// NewCertificateID generates a new certificate ID with a stable prefix.
func NewCertificateID() CertificateID {
	return CertificateID(certificateIDPrefix + uuid.NewString())
}

func (id CertificateID) String() string {
	return string(id)
}

// Certificate is an uploaded certificate document. It is stored as-is and
// plays no part in signing or verification.
type Certificate struct {
	ID         CertificateID
	University string
	Name       string
	NationalID string
	Filename   string
	MimeType   string
	Content    []byte
	UploadedAt time.Time
}

// NameKey returns the normalized graduate name used for lookups.
func (c Certificate) NameKey() string {
	return credentialmodels.NormalizeName(c.Name)
}

// Query selects certificates by university and graduate name. A blank
// NationalID matches any certificate for that name.
type Query struct {
	University string
	Name       string
	NationalID string
}

// Matches reports whether c satisfies q.
func (q Query) Matches(c Certificate) bool {
	if c.University != q.University || c.NameKey() != credentialmodels.NormalizeName(q.Name) {
		return false
	}
	return q.NationalID == "" || c.NationalID == q.NationalID
}

// Normalize trims all fields.
func (q Query) Normalize() Query {
	return Query{
		University: strings.TrimSpace(q.University),
		Name:       strings.TrimSpace(q.Name),
		NationalID: strings.TrimSpace(q.NationalID),
	}
}
