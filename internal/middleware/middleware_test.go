package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deviceEcho() http.Handler {
	return DeviceIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetDeviceFromContext(r.Context())))
	}))
}

func TestDeviceIdentity_MintsCookie(t *testing.T) {
	w := httptest.NewRecorder()
	deviceEcho().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DeviceCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, w.Body.String())
	assert.NoError(t, ValidateDeviceID(w.Body.String()))
}

func TestDeviceIdentity_HeaderBeatsCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DeviceHeader, "from-header")
	req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: "from-cookie"})
	w := httptest.NewRecorder()
	deviceEcho().ServeHTTP(w, req)

	assert.Equal(t, "from-header", w.Body.String())
	assert.Empty(t, w.Result().Cookies())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: "from-cookie"})
	w = httptest.NewRecorder()
	deviceEcho().ServeHTTP(w, req)
	assert.Equal(t, "from-cookie", w.Body.String())
}

func TestDeviceIdentity_RejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DeviceHeader, "../../etc")
	w := httptest.NewRecorder()
	deviceEcho().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeviceIdentity_SkipsOps(t *testing.T) {
	w := httptest.NewRecorder()
	deviceEcho().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestTokenBucket(t *testing.T) {
	now := time.Unix(1000, 0)
	tb := NewTokenBucket(2, 1, now)
	assert.True(t, tb.Allow(now))
	assert.True(t, tb.Allow(now))
	assert.False(t, tb.Allow(now))
	assert.Equal(t, time.Second, tb.RetryAfter())

	// half a second is not a whole token yet
	assert.False(t, tb.Allow(now.Add(500*time.Millisecond)))
	assert.True(t, tb.Allow(now.Add(1100*time.Millisecond)))

	// refill never exceeds capacity
	later := now.Add(time.Hour)
	assert.True(t, tb.Allow(later))
	assert.True(t, tb.Allow(later))
	assert.False(t, tb.Allow(later))
}

func TestRateLimiter_SweepIdle(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("a")
	assert.True(t, ok)
	ok, wait := rl.Allow("a")
	assert.False(t, ok)
	assert.Positive(t, wait)

	now = now.Add(11 * time.Minute)
	assert.Equal(t, 1, rl.Sweep())
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }
	h := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/process", nil)
		req = req.WithContext(WithDevice(req.Context(), "dev1"))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, post().Code)
	w := post()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// reads are not limited
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/history", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitMiddleware_MintedDevicesShareIPBucket(t *testing.T) {
	rl := NewRateLimiter(2, 1)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }
	h := DeviceIdentity(RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, DeviceMinted(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})))

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/process", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes[w.Code]++
	}
	assert.Equal(t, map[int]int{http.StatusNoContent: 2, http.StatusTooManyRequests: 3}, codes)
}

func TestDeviceMinted(t *testing.T) {
	var minted bool
	h := DeviceIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		minted = DeviceMinted(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, minted)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: "known-device"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, minted)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateDeviceID("abc-DEF_123"))
	assert.Error(t, ValidateDeviceID(""))
	assert.Error(t, ValidateDeviceID(strings.Repeat("a", 65)))
	assert.Error(t, ValidateDeviceID("a b"))

	assert.NoError(t, ValidateRecordID("1b4e28ba-2fa1-11d2-883f-0016d3cca427"))
	assert.Error(t, ValidateRecordID("nope"))
	assert.Error(t, ValidateRecordID(""))

	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(1000))
	assert.Equal(t, 7, ValidateLimit(7))

	assert.Equal(t, "hello\tworld\nline", SanitizeString(" hello\x00\tworld\r\nline\x07 "))
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))
	m.RecordAnalysis(true)
	m.RecordAnalysis(false)
	m.RecordAnalysisFailure()

	s := m.Snapshot()
	assert.Equal(t, uint64(2), s["requests_total"])
	assert.Equal(t, uint64(1), s["requests_success"])
	assert.Equal(t, uint64(1), s["requests_failed"])
	assert.Equal(t, int64(0), s["requests_in_progress"])
	assert.Equal(t, uint64(2), s["analyses_total"])
	assert.Equal(t, uint64(1), s["analyses_flagged"])
	assert.Equal(t, uint64(1), s["analyses_failed"])
}

func TestHealthHandler(t *testing.T) {
	ok := CheckFunc(func(context.Context) error { return nil })
	bad := CheckFunc(func(context.Context) error { return errors.New("down") })

	w := httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": ok})(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": ok, "storage": bad})(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "down")
}

func TestReadinessHandler(t *testing.T) {
	ok := CheckFunc(func(context.Context) error { return nil })
	slow := CheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	w := httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"db": ok})(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	w = httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"db": ok, "storage": slow})(w, httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "deadline")

	w = httptest.NewRecorder()
	ReadinessHandler(nil)(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
