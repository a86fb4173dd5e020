package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	DeviceKey contextKey = "device"

	deviceMintedKey contextKey = "device_minted"
)

const (
	DeviceCookie = "device_id"
	DeviceHeader = "X-Device-ID"

	deviceCookieMaxAge = 365 * 24 * 60 * 60
)

// DeviceIdentity resolves the device that owns the history for this request.
// The X-Device-ID header wins over the device_id cookie; when neither is
// present a fresh id is minted and set as a cookie.
func DeviceIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isOpsPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		device := strings.TrimSpace(r.Header.Get(DeviceHeader))
		if device == "" {
			if c, err := r.Cookie(DeviceCookie); err == nil {
				device = c.Value
			}
		}

		minted := false
		if device != "" {
			if err := ValidateDeviceID(device); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		} else {
			minted = true
			device = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceCookie,
				Value:    device,
				Path:     "/",
				MaxAge:   deviceCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   r.TLS != nil,
			})
		}

		ctx := context.WithValue(r.Context(), DeviceKey, device)
		if minted {
			ctx = context.WithValue(ctx, deviceMintedKey, true)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetDeviceFromContext extracts device from context
func GetDeviceFromContext(ctx context.Context) string {
	if device, ok := ctx.Value(DeviceKey).(string); ok {
		return device
	}
	return ""
}

// DeviceMinted reports whether the device id was created for this request,
// i.e. the client sent neither header nor cookie.
func DeviceMinted(ctx context.Context) bool {
	minted, _ := ctx.Value(deviceMintedKey).(bool)
	return minted
}

// WithDevice returns ctx carrying device. Useful in tests.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, DeviceKey, device)
}

func isOpsPath(p string) bool {
	switch p {
	case "/health", "/livez", "/readyz", "/metrics":
		return true
	}
	return strings.HasPrefix(p, "/static/")
}
