package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gradverify/internal/credential/models"
	dErrors "gradverify/pkg/domain-errors"
	"gradverify/pkg/validation"
)

const maxGraduateItems = 10000

// IssueAuthorityRequest is the request body for MoE authority issuance.
// IfAbsent keeps an existing reference instead of rotating it.
type IssueAuthorityRequest struct {
	University string `json:"university" validate:"required,notblank,max=255"`
	Year       string `json:"year" validate:"required,gradyear"`
	IfAbsent   bool   `json:"if_absent"`
}

func (r *IssueAuthorityRequest) Normalize() {
	r.University = strings.TrimSpace(r.University)
	r.Year = strings.TrimSpace(r.Year)
}

func (r *IssueAuthorityRequest) Validate() error {
	return validation.Validate(r)
}

// UniversityYearRequest is one batch issuance item. Items are validated by
// the service so one bad entry fails alone.
type UniversityYearRequest struct {
	University string `json:"university"`
	Year       string `json:"year"`
}

// BatchIssueRequest is the request body for batch authority issuance.
type BatchIssueRequest struct {
	Universities []UniversityYearRequest `json:"universities" validate:"required,min=1,max=500"`
}

func (r *BatchIssueRequest) Validate() error {
	return validation.Validate(r)
}

// Items converts the request to registry keys.
func (r *BatchIssueRequest) Items() []models.UniversityYear {
	items := make([]models.UniversityYear, len(r.Universities))
	for i, u := range r.Universities {
		items[i] = models.UniversityYear{University: u.University, Year: u.Year}
	}
	return items
}

// RegisterUniversityRequest is the request body for university key
// registration.
type RegisterUniversityRequest struct {
	University         string `json:"university" validate:"required,notblank,max=255"`
	Year               string `json:"year" validate:"required,gradyear"`
	AuthorityReference string `json:"authority_reference" validate:"required,notblank,max=4096"`
}

func (r *RegisterUniversityRequest) Normalize() {
	r.University = strings.TrimSpace(r.University)
	r.Year = strings.TrimSpace(r.Year)
	r.AuthorityReference = strings.TrimSpace(r.AuthorityReference)
}

func (r *RegisterUniversityRequest) Validate() error {
	return validation.Validate(r)
}

// SignGraduatesRequest is the request body for graduate signing. Graduate
// objects are decoded with json.Number so numeric values keep their exact
// textual form.
type SignGraduatesRequest struct {
	University string            `json:"university" validate:"required,notblank,max=255"`
	Year       string            `json:"year" validate:"required,gradyear"`
	PrivateKey string            `json:"private_key" validate:"required,notblank"`
	Graduates  []json.RawMessage `json:"graduates" validate:"required,min=1"`

	parsed []models.GraduateData
}

func (r *SignGraduatesRequest) Normalize() {
	r.University = strings.TrimSpace(r.University)
	r.Year = strings.TrimSpace(r.Year)
}

func (r *SignGraduatesRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Graduates) > maxGraduateItems {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("graduates must contain at most %d items", maxGraduateItems))
	}
	if err := validation.Validate(r); err != nil {
		return err
	}

	parsed := make([]models.GraduateData, len(r.Graduates))
	for i, raw := range r.Graduates {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var data models.GraduateData
		if err := dec.Decode(&data); err != nil || data == nil {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("graduates[%d] must be an object", i))
		}
		parsed[i] = data
	}
	r.parsed = parsed
	return nil
}

// ParsedGraduates returns the decoded graduate objects.
func (r *SignGraduatesRequest) ParsedGraduates() []models.GraduateData {
	return r.parsed
}

// VerifyRequest is the request for graduate verification, from a JSON body
// or the query string.
type VerifyRequest struct {
	University string `json:"university" validate:"required,notblank,max=255"`
	Year       string `json:"year" validate:"required,gradyear"`
	Name       string `json:"name" validate:"required,notblank,max=512"`
}

func (r *VerifyRequest) Normalize() {
	r.University = strings.TrimSpace(r.University)
	r.Year = strings.TrimSpace(r.Year)
	r.Name = strings.TrimSpace(r.Name)
}

func (r *VerifyRequest) Validate() error {
	return validation.Validate(r)
}
