package audit

import "time"

// Event is emitted from domain logic to capture key actions. It never carries
// private keys, signatures or graduate names; Subject holds an opaque record
// or certificate ID.
type Event struct {
	ID         string    `json:"id"`
	Action     Action    `json:"action"`
	University string    `json:"university,omitempty"`
	Year       string    `json:"year,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Action names an audited operation.
type Action string

const (
	ActionAuthorityIssued         Action = "authority_issued"
	ActionUniversityKeyRegistered Action = "university_key_registered"
	ActionGraduatesSigned         Action = "graduates_signed"
	ActionGraduateVerified        Action = "graduate_verified"
	ActionCertificateUploaded     Action = "certificate_uploaded"
)
