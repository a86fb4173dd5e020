package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const checkTimeout = 2 * time.Second

// HealthChecker is one dependency probed by /health and /readyz.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// SQLPing pings the history database.
type SQLPing struct {
	DB *sql.DB
}

func (p SQLPing) Check(ctx context.Context) error { return p.DB.PingContext(ctx) }

// HealthReport is the /health body.
type HealthReport struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// runChecks probes every dependency in parallel, each under its own timeout.
func runChecks(ctx context.Context, checkers map[string]HealthChecker) (map[string]CheckResult, bool) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		results = make(map[string]CheckResult, len(checkers))
	)
	for name, c := range checkers {
		wg.Add(1)
		go func(name string, c HealthChecker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			res := CheckResult{Status: "healthy"}
			if err := c.Check(cctx); err != nil {
				res = CheckResult{Status: "unhealthy", Message: err.Error()}
			}
			mu.Lock()
			results[name] = res
			if res.Status != "healthy" {
				healthy = false
			}
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()
	return results, healthy
}

// HealthHandler reports every check; 503 when any of them fails.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, healthy := runChecks(r.Context(), checkers)
		report := HealthReport{Status: "healthy", Timestamp: time.Now().UTC(), Checks: results}
		code := http.StatusOK
		if !healthy {
			report.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(report)
	}
}

// ReadinessHandler answers 200 "ready" or 503 "not ready", without details.
func ReadinessHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, healthy := runChecks(r.Context(), checkers)
		status, code := "ready", http.StatusOK
		if !healthy {
			status, code = "not ready", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

// LivenessHandler only proves the process serves HTTP.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}
