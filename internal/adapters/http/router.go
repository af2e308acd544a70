package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/medical-doc-extractor/internal/config"
	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/core/ports"
	"github.com/kirillkom/medical-doc-extractor/internal/observability/metrics"
)

const (
	serviceName          = "medscan-api"
	defaultMaxUploadSize = 25 << 20
)

type Router struct {
	cfg       config.Config
	processor ports.DocumentProcessor
	submitter ports.DocumentSubmitter
	resolver  ports.ExaminationTypeResolver
	metrics   *metrics.HTTPServerMetrics

	openAPI func() ([]byte, error)
}

// NewRouter wires the HTTP API. submitter may be nil when async intake is
// disabled.
func NewRouter(
	cfg config.Config,
	processor ports.DocumentProcessor,
	submitter ports.DocumentSubmitter,
	resolver ports.ExaminationTypeResolver,
) *Router {
	return &Router{
		cfg:       cfg,
		processor: processor,
		submitter: submitter,
		resolver:  resolver,
		openAPI: sync.OnceValues(func() ([]byte, error) {
			return openAPIJSON(context.Background())
		}),
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(serviceName, routePattern, next)
		})
	}
	r.Use(middleware.Recoverer)

	// chi rejects Use after the first route, so routes start here.
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}
	r.Get("/healthz", rt.healthz)
	r.Get("/openapi.json", rt.openAPIDocument)

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		})
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
		})

		r.Post("/v1/documents/process", rt.processDocument)
		r.Post("/upload", rt.processDocument)
		r.Post("/v1/documents", rt.submitDocument)
		r.Get("/v1/examination-types", rt.resolveExaminationType)
	})

	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, _ *http.Request) {
	raw, err := rt.openAPI()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

type processResponse struct {
	Success bool                `json:"success"`
	Data    *domain.MedicalInfo `json:"data"`
}

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	upload, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	defer upload.file.Close()

	if upload.documentID == "" {
		writeError(w, http.StatusBadRequest, "Document ID is required", "")
		return
	}

	content, err := io.ReadAll(upload.file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err.Error())
		return
	}

	info, err := rt.processor.Process(r.Context(), domain.Document{
		ID:       upload.documentID,
		Content:  content,
		MimeType: upload.mimeType,
	})
	if err != nil {
		rt.writeFailure(w, r, "document_processing_failed", upload.documentID, err)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{Success: true, Data: info})
}

func (rt *Router) submitDocument(w http.ResponseWriter, r *http.Request) {
	if rt.submitter == nil {
		writeError(w, http.StatusNotFound, "Not found", "asynchronous intake is disabled")
		return
	}

	upload, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	defer upload.file.Close()

	submission, err := rt.submitter.Submit(r.Context(), upload.documentID, upload.mimeType, upload.file)
	if err != nil {
		rt.writeFailure(w, r, "document_submission_failed", upload.documentID, err)
		return
	}

	writeJSON(w, http.StatusAccepted, submission)
}

func (rt *Router) resolveExaminationType(w http.ResponseWriter, r *http.Request) {
	label := strings.TrimSpace(r.URL.Query().Get("label"))

	examType, err := rt.resolver.Resolve(r.Context(), label)
	if err != nil {
		rt.writeFailure(w, r, "examination_type_lookup_failed", "", err)
		return
	}
	writeJSON(w, http.StatusOK, examType)
}

type uploadForm struct {
	documentID string
	mimeType   string
	file       multipart.File
}

// readUpload parses the multipart form and checks the document part. On
// failure it has already written the response.
func (rt *Router) readUpload(w http.ResponseWriter, r *http.Request) (uploadForm, bool) {
	maxBytes := rt.cfg.APIMaxUploadMB << 20
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large", err.Error())
			return uploadForm{}, false
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err.Error())
		return uploadForm{}, false
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded", "")
		return uploadForm{}, false
	}

	mimeType := domain.NormalizeMimeType(header.Header.Get("Content-Type"))
	if !domain.IsAllowedMimeType(mimeType) {
		_ = file.Close()
		writeError(w, http.StatusBadRequest, "Invalid file type", mimeType)
		return uploadForm{}, false
	}

	return uploadForm{
		documentID: strings.TrimSpace(r.FormValue("documentId")),
		mimeType:   mimeType,
		file:       file,
	}, true
}

func (rt *Router) writeFailure(w http.ResponseWriter, r *http.Request, event, documentID string, err error) {
	status := mapErrorToHTTPStatus(err)
	attrs := []any{
		"request_id", requestIDFromContext(r.Context()),
		"document_id", documentID,
		"status", status,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		slog.Error(event, attrs...)
		writeError(w, status, "Internal server error", err.Error())
		return
	}
	slog.Warn(event, attrs...)
	writeError(w, status, http.StatusText(status), err.Error())
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, errText, message string) {
	writeJSON(w, status, errorResponse{Error: errText, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
