// Package authority mints and checks the MoE authority references that
// endorse a university for one graduation year.
//
// A reference is an HS256 JWT signed with the MoE secret. Its raw bytes are
// what the registry stores and what universities present back at key
// registration; to every other component it is opaque.
package authority

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"gradverify/internal/credential/models"
	dErrors "gradverify/pkg/domain-errors"
)

// IssuerName is the iss claim of every reference.
const IssuerName = "moe"

const minSecretLength = 16

// Claims carried by an authority reference.
type Claims struct {
	Year string `json:"year"`
	jwt.RegisteredClaims
}

// Issuer mints authority references with the MoE signing secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source for the iat claim.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer builds an Issuer. The secret must be at least 16 bytes.
func NewIssuer(secret string, opts ...Option) (*Issuer, error) {
	if len(secret) < minSecretLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "moe signing key must be at least 16 bytes")
	}
	i := &Issuer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue mints a fresh reference for (university, year). Every call produces a
// different token because of the random jti.
func (i *Issuer) Issue(university, year string) (models.AuthorityReference, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Year: year,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   IssuerName,
			Subject:  university,
			IssuedAt: jwt.NewNumericDate(i.now()),
			ID:       uuid.NewString(),
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign authority reference")
	}
	return models.AuthorityReference(signed), nil
}

// Validate checks that ref was minted by this issuer for (university, year).
func (i *Issuer) Validate(ref models.AuthorityReference, university, year string) error {
	if ref.IsZero() {
		return dErrors.New(dErrors.CodeUnknownAuthorityReference, "authority reference is required")
	}
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(ref.String(), claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.secret, nil
	},
		jwt.WithIssuer(IssuerName),
		jwt.WithSubject(university),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return dErrors.New(dErrors.CodeUnknownAuthorityReference, "authority reference signature invalid")
		}
		return dErrors.New(dErrors.CodeUnknownAuthorityReference, "authority reference rejected")
	}
	if !parsed.Valid || claims.Year != year {
		return dErrors.New(dErrors.CodeUnknownAuthorityReference, "authority reference does not cover this university and year")
	}
	return nil
}
