package httpserver

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/piracy-text/internal/domain/analysis"
	"github.com/bryanwahyu/piracy-text/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// page shows at most this many cards; older entries stay reachable via /v1/history.
const pageHistoryLimit = 100

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"when": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04:05") },
}).ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Records    []*domain.Record
	Error      string
	Text       string
	MaxUpload  int64
	TwoColumns bool
}

// GET /
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	r.render(w, req, http.StatusOK, pageData{})
}

// POST /analyze (form submit from the page)
func (r *Router) handleAnalyzeForm(w http.ResponseWriter, req *http.Request) {
	if _, err := r.process(w, req); err != nil {
		status, msg := r.classify(err)
		r.render(w, req, status, pageData{Error: msg, Text: req.PostFormValue("text")})
		return
	}
	http.Redirect(w, req, "/", http.StatusSeeOther)
}

// POST /history/clear
func (r *Router) handleClearForm(w http.ResponseWriter, req *http.Request) {
	if _, err := r.svc.ClearHistory(req.Context(), middleware.GetDeviceFromContext(req.Context())); err != nil {
		status, msg := r.classify(err)
		r.render(w, req, status, pageData{Error: msg})
		return
	}
	r.metrics.RecordClear()
	http.Redirect(w, req, "/", http.StatusSeeOther)
}

func (r *Router) render(w http.ResponseWriter, req *http.Request, status int, data pageData) {
	records, err := r.svc.Latest(req.Context(), middleware.GetDeviceFromContext(req.Context()), pageHistoryLimit)
	if err != nil {
		r.logger.Error("load history", zap.Error(err))
		if data.Error == "" {
			data.Error = "Could not load history."
		}
	}
	data.Records = records
	data.TwoColumns = len(records) > 1
	data.MaxUpload = r.maxUpload >> 20

	var buf bytes.Buffer
	if err := r.page.Execute(&buf, data); err != nil {
		r.logger.Error("render page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
