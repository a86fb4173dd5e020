package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/piracy-text/internal/application/analysis"
	domain "github.com/bryanwahyu/piracy-text/internal/domain/analysis"
	"github.com/bryanwahyu/piracy-text/internal/middleware"
)

// Deps is everything the router needs. Only Service is required.
type Deps struct {
	Service        *appanalysis.Service
	Logger         *zap.Logger
	Metrics        *middleware.Metrics
	Limiter        *middleware.RateLimiter
	HealthCheckers map[string]middleware.HealthChecker
	AllowedOrigins []string
	MaxUploadBytes int64
}

type Router struct {
	svc       *appanalysis.Service
	logger    *zap.Logger
	metrics   *middleware.Metrics
	maxUpload int64
	page      *template.Template
}

func NewRouter(d Deps) http.Handler {
	r := &Router{
		svc:       d.Service,
		logger:    d.Logger,
		metrics:   d.Metrics,
		maxUpload: d.MaxUploadBytes,
		page:      pageTemplate,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.metrics == nil {
		r.metrics = middleware.NewMetrics()
	}
	if r.maxUpload <= 0 {
		r.maxUpload = appanalysis.DefaultMaxUpload
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.DeviceHeader},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           300,
	}))
	mux.Use(middleware.DeviceIdentity)
	mux.Use(middleware.Logging(r.logger))
	mux.Use(r.metrics.Middleware)
	if d.Limiter != nil {
		mux.Use(middleware.RateLimitMiddleware(d.Limiter))
	}

	mux.Get("/health", middleware.HealthHandler(d.HealthCheckers))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler(d.HealthCheckers))
	mux.Get("/metrics", r.metrics.Handler)

	// page
	mux.Get("/", r.handleIndex)
	mux.Post("/analyze", r.handleAnalyzeForm)
	mux.Post("/history/clear", r.handleClearForm)

	// JSON API
	mux.Post("/process", r.wrap(r.handleProcess))
	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/history", r.wrap(r.handleHistory))
		rt.Delete("/history", r.wrap(r.handleClear))
		rt.Get("/history/latest", r.wrap(r.handleLatest))
		rt.Get("/history/{id}", r.wrap(r.handleGet))
		rt.Delete("/history/{id}", r.wrap(r.handleDelete))
		rt.Get("/stats", r.wrap(r.handleStats))
	})

	return mux
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries a status and a client-facing message.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, msg := r.classify(err)
			writeJSON(w, status, map[string]string{"error": msg})
		}
	}
}

// classify maps an error to a status code and the message shown to users.
func (r *Router) classify(err error) (int, string) {
	var he *httpError
	switch {
	case errors.As(err, &he):
		return he.status, he.msg
	case errors.Is(err, domain.ErrEmptyInput):
		return http.StatusBadRequest, "Please enter text or select a file."
	case errors.Is(err, domain.ErrInputTooShort):
		return http.StatusBadRequest, "Input text must be at least 5 characters long."
	case errors.Is(err, domain.ErrUnsupportedFile):
		return http.StatusBadRequest, "Unsupported file type. Please upload a PDF."
	case errors.Is(err, domain.ErrExtractFailed):
		detail := strings.TrimPrefix(err.Error(), domain.ErrExtractFailed.Error())
		return http.StatusBadRequest, "Failed to extract text from PDF" + detail
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("File is too large. The limit is %d MB.", r.maxUpload>>20)
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "Translation quota exceeded. Please try again later."
	case errors.Is(err, domain.ErrTranslationFailed):
		r.logger.Error("translation failed", zap.Error(err))
		return http.StatusBadGateway, "Translation service is unavailable. Please try again later."
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		r.logger.Error("request failed", zap.Error(err))
		return http.StatusInternalServerError, "An internal error occurred."
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type processResponse struct {
	ID               domain.RecordID `json:"id"`
	OriginalText     string          `json:"original_text"`
	TranslatedText   string          `json:"translated_text"`
	DetectedLanguage string          `json:"detected_language"`
	LanguageCode     string          `json:"language_code"`
	Keywords         []string        `json:"keywords"`
	Success          string          `json:"success,omitempty"`
	ArtifactURL      string          `json:"artifact_url,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

const pirateFreeMessage = "Text is pirate-free."

// POST /process
// Body: {"text": "..."} or multipart with "file" (PDF) and/or "text".
func (r *Router) handleProcess(w http.ResponseWriter, req *http.Request) error {
	rec, err := r.process(w, req)
	if err != nil {
		return err
	}

	resp := processResponse{
		ID:               rec.ID,
		OriginalText:     rec.OriginalText,
		TranslatedText:   rec.TranslatedText,
		DetectedLanguage: rec.DetectedLanguage,
		LanguageCode:     rec.LanguageCode,
		Keywords:         rec.Keywords,
		ArtifactURL:      rec.ArtifactURL,
		CreatedAt:        rec.CreatedAt,
	}
	if rec.PirateFree() {
		resp.Success = pirateFreeMessage
		resp.Keywords = []string{}
	}
	return writeJSON(w, http.StatusOK, resp)
}

// process parses the request, runs the analysis and counts the outcome.
func (r *Router) process(w http.ResponseWriter, req *http.Request) (*domain.Record, error) {
	cmd, cleanup, err := parseProcessRequest(w, req, r.maxUpload)
	defer cleanup()
	if err != nil {
		r.metrics.RecordAnalysisFailure()
		return nil, err
	}
	cmd.DeviceID = middleware.GetDeviceFromContext(req.Context())

	rec, err := r.svc.Process(req.Context(), cmd)
	if err != nil {
		r.metrics.RecordAnalysisFailure()
		return nil, err
	}
	r.metrics.RecordAnalysis(!rec.PirateFree())
	return rec, nil
}

// GET /v1/history?page=&page_size=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.svc.History(req.Context(), middleware.GetDeviceFromContext(req.Context()), page, middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/history/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.svc.Latest(req.Context(), middleware.GetDeviceFromContext(req.Context()), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/history/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return badRequest("%s", err.Error())
	}

	rec, err := r.svc.Get(req.Context(), middleware.GetDeviceFromContext(req.Context()), domain.RecordID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// DELETE /v1/history/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return badRequest("%s", err.Error())
	}
	if err := r.svc.Delete(req.Context(), middleware.GetDeviceFromContext(req.Context()), domain.RecordID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// DELETE /v1/history
func (r *Router) handleClear(w http.ResponseWriter, req *http.Request) error {
	n, err := r.svc.ClearHistory(req.Context(), middleware.GetDeviceFromContext(req.Context()))
	if err != nil {
		return err
	}
	r.metrics.RecordClear()
	return writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// GET /v1/stats
func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) error {
	st, err := r.svc.Stats(req.Context(), middleware.GetDeviceFromContext(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, st)
}
