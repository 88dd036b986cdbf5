package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func authHandler(cfg AuthConfig) http.Handler {
	logger := zerolog.Nop()
	return Auth(cfg, &logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuth_Disabled(t *testing.T) {
	h := authHandler(AuthConfig{Enabled: false})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/failures", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuth_MissingKey(t *testing.T) {
	h := authHandler(AuthConfig{Enabled: true, APIKey: "secret", HeaderName: "X-API-Key"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/failures", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_ValidKey(t *testing.T) {
	h := authHandler(AuthConfig{Enabled: true, APIKey: "secret", HeaderName: "X-API-Key"})

	req := httptest.NewRequest("GET", "/api/v1/failures", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuth_BearerToken(t *testing.T) {
	h := authHandler(AuthConfig{Enabled: true, APIKey: "secret", HeaderName: "X-API-Key"})

	req := httptest.NewRequest("GET", "/api/v1/failures", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuth_PublicPathsSkipAuth(t *testing.T) {
	cfg := DefaultAuthConfig()
	cfg.Enabled = true
	cfg.APIKey = "secret"
	h := authHandler(cfg)

	for _, path := range []string{"/health", "/logs/validation-failures", "/mock/caregiver", "/mock/correct"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 without key", path, rec.Code)
		}
	}
}

func TestAuth_WrongKey(t *testing.T) {
	h := authHandler(AuthConfig{Enabled: true, APIKey: "secret", HeaderName: "X-API-Key"})

	req := httptest.NewRequest("GET", "/api/v1/failures", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
