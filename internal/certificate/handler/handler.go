// Package handler exposes certificate upload and download over HTTP.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gradverify/internal/certificate/models"
	certificateservice "gradverify/internal/certificate/service"
	"gradverify/internal/platform/middleware"
	dErrors "gradverify/pkg/domain-errors"
	"gradverify/pkg/platform/httputil"
)

// multipartOverhead is the allowance for form fields and part headers on top
// of the file itself.
const multipartOverhead = 1 << 20

// Service defines the certificate operations used by the handler.
type Service interface {
	Upload(ctx context.Context, req certificateservice.UploadRequest) (models.Certificate, error)
	Download(ctx context.Context, q models.Query) (models.Certificate, error)
	MaxBytes() int64
}

// Handler wires certificate endpoints to the certificate service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a certificate handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts certificate endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates", h.HandleUpload)
	r.Get("/certificates", h.HandleDownload)
}

// UploadResponse describes a stored certificate.
type UploadResponse struct {
	ID         string    `json:"id"`
	University string    `json:"university"`
	Name       string    `json:"name"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	Size       int       `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// HandleUpload handles multipart POST /certificates with fields university,
// name, optional national_id and a file part named file.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	maxBytes := h.service.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		h.logger.WarnContext(ctx, "failed to parse certificate upload",
			"request_id", requestID,
			"error", err,
		)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error":             "request_too_large",
				"error_description": "certificate exceeds size limit",
			})
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected multipart form data"))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "file is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read uploaded file"))
		return
	}

	cert, err := h.service.Upload(ctx, certificateservice.UploadRequest{
		University: r.FormValue("university"),
		Name:       r.FormValue("name"),
		NationalID: r.FormValue("national_id"),
		Filename:   header.Filename,
		MimeType:   header.Header.Get("Content-Type"),
		Content:    content,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to upload certificate",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, UploadResponse{
		ID:         cert.ID.String(),
		University: cert.University,
		Name:       cert.Name,
		Filename:   cert.Filename,
		MimeType:   cert.MimeType,
		Size:       len(cert.Content),
		UploadedAt: cert.UploadedAt,
	})
}

// HandleDownload handles GET /certificates?university=&name=&national_id=
// and streams the earliest matching certificate as an attachment.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	q := r.URL.Query()
	cert, err := h.service.Download(ctx, models.Query{
		University: q.Get("university"),
		Name:       q.Get("name"),
		NationalID: q.Get("national_id"),
	})
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to download certificate",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", cert.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(cert.Content)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": cert.Filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(cert.Content) //nolint:errcheck // headers already sent
}

var _ Service = (*certificateservice.Service)(nil)
