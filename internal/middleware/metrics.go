package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application counters.
type Metrics struct {
	requestsTotal      atomic.Uint64
	requestsInProgress atomic.Int64
	requestsSuccess    atomic.Uint64
	requestsFailed     atomic.Uint64
	analysesTotal      atomic.Uint64
	analysesFlagged    atomic.Uint64
	analysesFailed     atomic.Uint64
	historyCleared     atomic.Uint64
	startTime          time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordAnalysis counts a stored analysis; flagged means keywords matched.
func (m *Metrics) RecordAnalysis(flagged bool) {
	m.analysesTotal.Add(1)
	if flagged {
		m.analysesFlagged.Add(1)
	}
}

// RecordAnalysisFailure counts a rejected or failed analysis.
func (m *Metrics) RecordAnalysisFailure() {
	m.analysesFailed.Add(1)
}

// RecordClear counts an explicit history wipe.
func (m *Metrics) RecordClear() {
	m.historyCleared.Add(1)
}

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]any{
		"requests_total":       m.requestsTotal.Load(),
		"requests_in_progress": m.requestsInProgress.Load(),
		"requests_success":     m.requestsSuccess.Load(),
		"requests_failed":      m.requestsFailed.Load(),
		"analyses_total":       m.analysesTotal.Load(),
		"analyses_flagged":     m.analysesFlagged.Load(),
		"analyses_failed":      m.analysesFailed.Load(),
		"history_cleared":      m.historyCleared.Load(),
		"uptime_seconds":       time.Since(m.startTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsTotal.Add(1)
		m.requestsInProgress.Add(1)
		defer m.requestsInProgress.Add(-1)

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.requestsSuccess.Add(1)
		} else {
			m.requestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.Snapshot())
}
