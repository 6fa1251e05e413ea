package handler

import (
	"encoding/base64"
	"time"

	"gradverify/internal/credential/models"
)

// AuthorityResponse is returned by authority issuance.
type AuthorityResponse struct {
	University         string `json:"university"`
	Year               string `json:"year"`
	AuthorityReference string `json:"authority_reference"`
	Created            *bool  `json:"created,omitempty"`
}

// BatchIssueResultResponse is one batch issuance outcome.
type BatchIssueResultResponse struct {
	University         string `json:"university"`
	Year               string `json:"year"`
	AuthorityReference string `json:"authority_reference,omitempty"`
	Status             string `json:"status"`
	Error              string `json:"error,omitempty"`
}

// BatchIssueResponse is returned by batch authority issuance.
type BatchIssueResponse struct {
	Results []BatchIssueResultResponse `json:"results"`
}

// RegistrationResponse describes one registry entry.
type RegistrationResponse struct {
	University         string    `json:"university"`
	Year               string    `json:"year"`
	State              string    `json:"state"`
	AuthorityReference string    `json:"authority_reference"`
	PublicKey          string    `json:"public_key,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RegistrationListResponse lists a university's registry entries.
type RegistrationListResponse struct {
	University    string                 `json:"university"`
	Registrations []RegistrationResponse `json:"registrations"`
}

// KeyPairResponse is returned once by university registration.
type KeyPairResponse struct {
	University string `json:"university"`
	Year       string `json:"year"`
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// GraduateRecordResponse is a stored graduate record. Signature is base64.
type GraduateRecordResponse struct {
	ID                 string              `json:"id"`
	University         string              `json:"university"`
	Year               string              `json:"year"`
	Data               models.GraduateData `json:"data"`
	AuthorityReference string              `json:"authority_reference"`
	Signature          string              `json:"signature"`
	CreatedAt          time.Time           `json:"created_at"`
}

// SignGraduatesResponse is returned by graduate signing.
type SignGraduatesResponse struct {
	University string                   `json:"university"`
	Year       string                   `json:"year"`
	Count      int                      `json:"count"`
	Records    []GraduateRecordResponse `json:"records"`
}

// SignFailureResponse reports a signing batch that stopped part way. Records
// lists what was stored before the failure.
type SignFailureResponse struct {
	Error            string                   `json:"error"`
	ErrorDescription string                   `json:"error_description,omitempty"`
	Records          []GraduateRecordResponse `json:"records"`
}

// GraduateListResponse lists a university's signed graduates.
type GraduateListResponse struct {
	University string                   `json:"university"`
	Count      int                      `json:"count"`
	Graduates  []GraduateRecordResponse `json:"graduates"`
}

// VerifyResponse is returned by verification.
type VerifyResponse struct {
	Valid      bool                `json:"valid"`
	Status     string              `json:"status"`
	University string              `json:"university"`
	Year       string              `json:"year"`
	RecordID   string              `json:"record_id,omitempty"`
	Graduate   models.GraduateData `json:"graduate,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}

func toRegistrationResponse(r models.UniversityKeyRecord) RegistrationResponse {
	return RegistrationResponse{
		University:         r.University,
		Year:               r.Year,
		State:              string(r.State()),
		AuthorityReference: r.AuthorityReference.String(),
		PublicKey:          string(r.PublicKeyPEM),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

func toGraduateResponses(records []models.GraduateRecord) []GraduateRecordResponse {
	out := make([]GraduateRecordResponse, len(records))
	for i, r := range records {
		out[i] = GraduateRecordResponse{
			ID:                 r.ID.String(),
			University:         r.University,
			Year:               r.Year,
			Data:               r.Data,
			AuthorityReference: r.AuthorityReference.String(),
			Signature:          base64.StdEncoding.EncodeToString(r.Signature),
			CreatedAt:          r.CreatedAt.UTC(),
		}
	}
	return out
}

func toVerifyResponse(r models.VerificationResult) VerifyResponse {
	return VerifyResponse{
		Valid:      r.Valid(),
		Status:     string(r.Status),
		University: r.University,
		Year:       r.Year,
		RecordID:   r.RecordID.String(),
		Graduate:   r.Data,
		Reason:     r.Reason,
	}
}
