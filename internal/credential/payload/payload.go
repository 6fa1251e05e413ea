// Package payload builds the exact byte sequence that a university signs for
// a graduate record and that verification later recomputes.
//
// The signing input is the canonical JSON form of
//
//	{"authority_reference": <base64 of the reference>, "data": <graduate data>}
//
// Keeping the reference in its own base64 field means two payloads that
// differ only in their reference always serialize differently, and nothing in
// the graduate data can imitate the reference.
package payload

import (
	"encoding/base64"

	"gradverify/internal/credential/models"
	dErrors "gradverify/pkg/domain-errors"
)

const (
	fieldAuthorityReference = "authority_reference"
	fieldData               = "data"
)

// Build returns the canonical signing input for (data, ref).
func Build(data models.GraduateData, ref models.AuthorityReference) ([]byte, error) {
	if data == nil {
		return nil, dErrors.New(dErrors.CodeUnserializableInput, "graduate data is required")
	}
	envelope := map[string]any{
		fieldAuthorityReference: base64.StdEncoding.EncodeToString(ref),
		fieldData:               map[string]any(data),
	}
	out, err := Canonicalize(envelope)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnserializableInput, err.Error())
	}
	return out, nil
}
