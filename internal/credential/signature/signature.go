// Package signature wraps RSA key generation, PEM framing and
// RSASSA-PKCS1-v1_5/SHA-256 signing behind a small algorithm-neutral surface.
//
// Verification distinguishes three results: a valid signature (true, nil), a
// well-formed signature that does not match (false, nil), and unusable input
// (false, CodeInvalidInput). Callers must never treat the last as a mismatch.
package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"

	dErrors "gradverify/pkg/domain-errors"
)

const (
	// DefaultKeyBits is the modulus size used when none is configured.
	DefaultKeyBits = 2048
	// MinKeyBits is the weakest modulus accepted for generation or import.
	MinKeyBits = 2048

	pemPrivateKey    = "PRIVATE KEY"
	pemPublicKey     = "PUBLIC KEY"
	pemRSAPrivateKey = "RSA PRIVATE KEY"
	pemRSAPublicKey  = "RSA PUBLIC KEY"
)

// Codec generates, encodes and uses university signing keys.
type Codec struct {
	bits   int
	random io.Reader
}

// Option configures a Codec.
type Option func(*Codec)

// WithKeyBits sets the RSA modulus size for generated keys.
func WithKeyBits(bits int) Option {
	return func(c *Codec) {
		c.bits = bits
	}
}

// WithRandom overrides the entropy source used for key generation.
func WithRandom(r io.Reader) Option {
	return func(c *Codec) {
		c.random = r
	}
}

// New constructs a codec. Key sizes below MinKeyBits are rejected at
// generation time rather than silently upgraded.
func New(opts ...Option) *Codec {
	c := &Codec{bits: DefaultKeyBits, random: rand.Reader}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateKeyPair produces a fresh RSA key pair.
func (c *Codec) GenerateKeyPair() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if c.bits < MinKeyBits {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("key size must be at least %d bits", MinKeyBits))
	}
	priv, err := rsa.GenerateKey(c.random, c.bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return priv, &priv.PublicKey, nil
}

// ExportPrivate encodes a private key as PKCS#8 PEM.
func (c *Codec) ExportPrivate(key *rsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "private key is required")
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedKey, "encode private key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der}), nil
}

// ExportPublic encodes a public key as SubjectPublicKeyInfo PEM.
func (c *Codec) ExportPublic(key *rsa.PublicKey) ([]byte, error) {
	if key == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "public key is required")
	}
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedKey, "encode public key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: der}), nil
}

// ImportPrivate parses a PKCS#8 (or legacy PKCS#1) PEM private key.
func (c *Codec) ImportPrivate(data []byte) (*rsa.PrivateKey, error) {
	block, err := decodeSinglePEM(data)
	if err != nil {
		return nil, err
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case pemPrivateKey:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeMalformedKey, "invalid PKCS#8 private key")
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, dErrors.New(dErrors.CodeMalformedKey, "private key is not an RSA key")
		}
		key = rsaKey
	case pemRSAPrivateKey:
		rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeMalformedKey, "invalid PKCS#1 private key")
		}
		key = rsaKey
	default:
		return nil, dErrors.New(dErrors.CodeMalformedKey, "unexpected PEM block type "+block.Type)
	}

	if key.N.BitLen() < MinKeyBits {
		return nil, dErrors.New(dErrors.CodeMalformedKey, "private key is weaker than the minimum key size")
	}
	return key, nil
}

// ImportPublic parses a SubjectPublicKeyInfo (or legacy PKCS#1) PEM public key.
func (c *Codec) ImportPublic(data []byte) (*rsa.PublicKey, error) {
	block, err := decodeSinglePEM(data)
	if err != nil {
		return nil, err
	}

	var key *rsa.PublicKey
	switch block.Type {
	case pemPublicKey:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeMalformedKey, "invalid public key")
		}
		rsaKey, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, dErrors.New(dErrors.CodeMalformedKey, "public key is not an RSA key")
		}
		key = rsaKey
	case pemRSAPublicKey:
		rsaKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeMalformedKey, "invalid PKCS#1 public key")
		}
		key = rsaKey
	default:
		return nil, dErrors.New(dErrors.CodeMalformedKey, "unexpected PEM block type "+block.Type)
	}

	if key.N.BitLen() < MinKeyBits {
		return nil, dErrors.New(dErrors.CodeMalformedKey, "public key is weaker than the minimum key size")
	}
	return key, nil
}

// Sign signs message with RSASSA-PKCS1-v1_5 over its SHA-256 digest.
// The digest is computed here, so messages of any length are accepted.
func (c *Codec) Sign(key *rsa.PrivateKey, message []byte) ([]byte, error) {
	if key == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "private key is required")
	}
	digest := sha256.Sum256(message)
	sig, err := rsa.SignPKCS1v15(nil, key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "sign message")
	}
	return sig, nil
}

// Verify checks signature over message. A mismatch is (false, nil).
func (c *Codec) Verify(key *rsa.PublicKey, message, signature []byte) (bool, error) {
	if key == nil {
		return false, dErrors.New(dErrors.CodeInvalidInput, "public key is required")
	}
	if len(signature) == 0 {
		return false, dErrors.New(dErrors.CodeInvalidInput, "signature is required")
	}
	if len(signature) != key.Size() {
		return false, dErrors.New(dErrors.CodeInvalidInput, "signature length does not match key size")
	}
	digest := sha256.Sum256(message)
	if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature); err != nil {
		if errors.Is(err, rsa.ErrVerification) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInvalidInput, "verify signature")
	}
	return true, nil
}

// SameKey reports whether priv is the private half of pub.
func SameKey(priv *rsa.PrivateKey, pub *rsa.PublicKey) bool {
	if priv == nil || pub == nil {
		return false
	}
	return priv.PublicKey.Equal(pub)
}

func decodeSinglePEM(data []byte) (*pem.Block, error) {
	if len(data) == 0 {
		return nil, dErrors.New(dErrors.CodeMalformedKey, "key is empty")
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, dErrors.New(dErrors.CodeMalformedKey, "key is not PEM encoded")
	}
	if len(block.Headers) > 0 {
		return nil, dErrors.New(dErrors.CodeMalformedKey, "encrypted PEM keys are not supported")
	}
	return block, nil
}
