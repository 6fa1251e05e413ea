package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradverify/internal/certificate/service"
	"gradverify/internal/certificate/store"
)

var pdfContent = []byte("%PDF-1.7\n1 0 obj << >> endobj\n")

func newRouter(t *testing.T, maxBytes int64) chi.Router {
	t.Helper()
	svc, err := service.New(store.NewInMemoryStore(), service.WithMaxBytes(maxBytes))
	require.NoError(t, err)
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func uploadRequest(t *testing.T, fields map[string]string, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if content != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/certificates", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAndDownload(t *testing.T) {
	r := newRouter(t, 1024)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, map[string]string{
		"university":  "MIT",
		"name":        "Alice Smith",
		"national_id": "A-123",
	}, "alice diploma.pdf", "", pdfContent))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var uploaded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	assert.Equal(t, "alice_diploma.pdf", uploaded["filename"])
	assert.Equal(t, "application/pdf", uploaded["mime_type"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/certificates?university=MIT&name=alice+smith", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=alice_diploma.pdf`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, pdfContent, rec.Body.Bytes())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/certificates?university=MIT&name=Alice+Smith&national_id=B-999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRejections(t *testing.T) {
	r := newRouter(t, 64)

	t.Run("missing file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, uploadRequest(t, map[string]string{"university": "MIT", "name": "A"}, "", "", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("file over limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, uploadRequest(t, map[string]string{"university": "MIT", "name": "A"}, "a.pdf", "", bytes.Repeat([]byte("x"), 65)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/certificates", bytes.NewBufferString(`{"name":"A"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing name", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, uploadRequest(t, map[string]string{"university": "MIT"}, "a.pdf", "", pdfContent))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
