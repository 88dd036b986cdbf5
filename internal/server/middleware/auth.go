package middleware

import (
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// AuthConfig holds API key authentication settings.
type AuthConfig struct {
	Enabled      bool
	APIKey       string
	HeaderName   string
	PublicPaths  []string
	BearerPrefix bool
}

// DefaultAuthConfig reads the key from the API_KEY environment variable
// and leaves enforcement off. The plain-text log and mock endpoints stay
// public so the review UI can call them without credentials.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Enabled:    false,
		APIKey:     os.Getenv("API_KEY"),
		HeaderName: "X-API-Key",
		PublicPaths: []string{
			"/health",
			"/api/v1/health",
			"/api/v1/ready",
			"/logs/validation-failures",
			"/mock/caregiver",
			"/mock/correct",
		},
		BearerPrefix: false,
	}
}

// Auth rejects requests to protected paths that lack the configured key.
func Auth(config AuthConfig, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled || slices.Contains(config.PublicPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := requestKey(r, config.HeaderName)
			if key == "" || key != config.APIKey {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Bool("key_provided", key != "").
					Msg("Authentication failed")
				writeUnauthorized(w, config.HeaderName)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestKey pulls the API key from the named header, falling back to
// the Authorization header with or without a Bearer prefix.
func requestKey(r *http.Request, header string) string {
	if key := r.Header.Get(header); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(auth, "Bearer "); found {
		return token
	}
	return auth
}

func writeUnauthorized(w http.ResponseWriter, header string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"data":null,"error":{"code":"UNAUTHORIZED","message":"Invalid or missing API key","details":"Provide a valid API key in the ` + header + ` header"}}`))
}
