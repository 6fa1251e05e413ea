// Package handler exposes the credential workflows over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"gradverify/internal/credential/models"
	credentialservice "gradverify/internal/credential/service"
	"gradverify/internal/platform/middleware"
	dErrors "gradverify/pkg/domain-errors"
	"gradverify/pkg/platform/httputil"
)

// Service defines the credential operations used by the handler.
type Service interface {
	MoEIssue(ctx context.Context, university, year string) (models.AuthorityReference, error)
	MoEIssueIfAbsent(ctx context.Context, university, year string) (models.AuthorityReference, bool, error)
	MoEIssueBatch(ctx context.Context, items []models.UniversityYear) []models.BatchIssueResult
	ListRegistrations(ctx context.Context, university string) ([]models.UniversityKeyRecord, error)
	Registration(ctx context.Context, university, year string) (models.UniversityKeyRecord, error)
	UniversityRegister(ctx context.Context, university, year string, ref models.AuthorityReference) (models.KeyPair, error)
	SignGraduates(ctx context.Context, university, year string, privateKeyPEM []byte, graduates []models.GraduateData) ([]models.GraduateRecord, error)
	ListGraduates(ctx context.Context, university string) ([]models.GraduateRecord, error)
	Verify(ctx context.Context, university, year, name string) (models.VerificationResult, error)
}

// Handler wires credential endpoints to the credential service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a credential handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts credential endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/moe", func(r chi.Router) {
		r.With(middleware.ContentTypeJSON).Post("/authorities", h.HandleIssueAuthority)
		r.With(middleware.ContentTypeJSON).Post("/authorities/batch", h.HandleIssueAuthorityBatch)
		r.Get("/universities/{university}/keys", h.HandleListRegistrations)
		r.Get("/universities/{university}/keys/{year}", h.HandleGetRegistration)
	})
	r.Route("/universities", func(r chi.Router) {
		r.With(middleware.ContentTypeJSON).Post("/keys", h.HandleRegisterUniversity)
		r.With(middleware.ContentTypeJSON).Post("/graduates/sign", h.HandleSignGraduates)
		r.Get("/{university}/graduates", h.HandleListGraduates)
	})
	r.With(middleware.ContentTypeJSON).Post("/verify", h.HandleVerify)
	r.Get("/verify", h.HandleVerifyQuery)
}

// HandleIssueAuthority handles POST /moe/authorities.
func (h *Handler) HandleIssueAuthority(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueAuthorityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	response := AuthorityResponse{University: req.University, Year: req.Year}
	var (
		ref models.AuthorityReference
		err error
	)
	if req.IfAbsent {
		var created bool
		ref, created, err = h.service.MoEIssueIfAbsent(ctx, req.University, req.Year)
		response.Created = &created
	} else {
		ref, err = h.service.MoEIssue(ctx, req.University, req.Year)
	}
	if err != nil {
		h.logFailure(ctx, "failed to issue authority", requestID, err, "university", req.University, "year", req.Year)
		httputil.WriteError(w, err)
		return
	}

	response.AuthorityReference = ref.String()
	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleIssueAuthorityBatch handles POST /moe/authorities/batch.
func (h *Handler) HandleIssueAuthorityBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BatchIssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	results := h.service.MoEIssueBatch(ctx, req.Items())
	response := BatchIssueResponse{Results: make([]BatchIssueResultResponse, len(results))}
	for i, res := range results {
		response.Results[i] = BatchIssueResultResponse{
			University:         res.University,
			Year:               res.Year,
			AuthorityReference: res.AuthorityReference.String(),
			Status:             string(res.Status),
			Error:              res.Error,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleListRegistrations handles GET /moe/universities/{university}/keys.
func (h *Handler) HandleListRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	university, err := pathParam(r, "university")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.ListRegistrations(ctx, university)
	if err != nil {
		h.logFailure(ctx, "failed to list registrations", requestID, err, "university", university)
		httputil.WriteError(w, err)
		return
	}

	response := RegistrationListResponse{
		University:    university,
		Registrations: make([]RegistrationResponse, len(records)),
	}
	for i, record := range records {
		response.Registrations[i] = toRegistrationResponse(record)
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleGetRegistration handles GET /moe/universities/{university}/keys/{year}.
func (h *Handler) HandleGetRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	university, err := pathParam(r, "university")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	year, err := pathParam(r, "year")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Registration(ctx, university, year)
	if err != nil {
		h.logFailure(ctx, "failed to read registration", requestID, err, "university", university, "year", year)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRegistrationResponse(record))
}

// HandleRegisterUniversity handles POST /universities/keys. The private key
// in the response is not retained by the server.
func (h *Handler) HandleRegisterUniversity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterUniversityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	pair, err := h.service.UniversityRegister(ctx, req.University, req.Year, models.AuthorityReference(req.AuthorityReference))
	if err != nil {
		h.logFailure(ctx, "failed to register university", requestID, err, "university", req.University, "year", req.Year)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusCreated, KeyPairResponse{
		University: req.University,
		Year:       req.Year,
		PrivateKey: string(pair.PrivateKeyPEM),
		PublicKey:  string(pair.PublicKeyPEM),
	})
}

// HandleSignGraduates handles POST /universities/graduates/sign.
func (h *Handler) HandleSignGraduates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SignGraduatesRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	signed, err := h.service.SignGraduates(ctx, req.University, req.Year, []byte(req.PrivateKey), req.ParsedGraduates())
	if err != nil {
		h.logFailure(ctx, "failed to sign graduates", requestID, err,
			"university", req.University,
			"year", req.Year,
			"signed", len(signed),
		)
		if len(signed) == 0 {
			httputil.WriteError(w, err)
			return
		}
		code := dErrors.CodeOf(err)
		response := SignFailureResponse{
			Error:   httputil.DomainCodeToHTTPCode(code),
			Records: toGraduateResponses(signed),
		}
		if code != dErrors.CodeInternal {
			response.ErrorDescription = err.Error()
		}
		httputil.WriteJSON(w, httputil.DomainCodeToHTTPStatus(code), response)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, SignGraduatesResponse{
		University: req.University,
		Year:       req.Year,
		Count:      len(signed),
		Records:    toGraduateResponses(signed),
	})
}

// HandleListGraduates handles GET /universities/{university}/graduates.
func (h *Handler) HandleListGraduates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	university, err := pathParam(r, "university")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.ListGraduates(ctx, university)
	if err != nil {
		h.logFailure(ctx, "failed to list graduates", requestID, err, "university", university)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, GraduateListResponse{
		University: university,
		Count:      len(records),
		Graduates:  toGraduateResponses(records),
	})
}

// HandleVerify handles POST /verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.verify(w, r, req)
}

// HandleVerifyQuery handles GET /verify?university=&year=&name=.
func (h *Handler) HandleVerifyQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &VerifyRequest{
		University: q.Get("university"),
		Year:       q.Get("year"),
		Name:       q.Get("name"),
	}
	if err := httputil.PrepareRequest(req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.verify(w, r, req)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request, req *VerifyRequest) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	result, err := h.service.Verify(ctx, req.University, req.Year, req.Name)
	if err != nil {
		h.logFailure(ctx, "failed to verify graduate", requestID, err, "university", req.University, "year", req.Year)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if result.Status == models.StatusNotFound {
		status = http.StatusNotFound
	}
	httputil.WriteJSON(w, status, toVerifyResponse(result))
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error, attrs ...any) {
	args := append([]any{"request_id", requestID, "error", err}, attrs...)
	if dErrors.CodeOf(err) == dErrors.CodeStorageUnavailable || dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}

// pathParam returns a decoded path parameter. chi matches on the decoded
// r.URL.Path unless the request carried a non-canonical escaping, in which
// case it matches on r.URL.RawPath and the segment is still escaped.
func pathParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value, nil
	}
	value, err := url.PathUnescape(value)
	if err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid "+name+" in path")
	}
	return value, nil
}

var _ Service = (*credentialservice.Service)(nil)
