package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// KeyHeader is the alternative to a bearer token.
const KeyHeader = "X-API-Key"

type contextKey string

const clientKey contextKey = "auth_client"

// Middleware rejects requests without a valid API key with 401 and stores
// the client name in the request context for the rest.
func Middleware(v *Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, err := v.Validate(ExtractKey(r))
			if err != nil {
				logger.Warn("request rejected",
					"error", err,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				unauthorized(w, err)
				return
			}

			logger.Debug("request authenticated", "client", client.Name, "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), client.Name)))
		})
	}
}

// ExtractKey returns the key from a bearer Authorization header, falling
// back to X-API-Key. It returns "" when neither is present.
func ExtractKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(KeyHeader))
}

// WithClient returns a context carrying the authenticated client name.
func WithClient(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, clientKey, name)
}

// ClientName returns the authenticated client name stored by Middleware.
func ClientName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(clientKey).(string)
	return name, ok
}

func unauthorized(w http.ResponseWriter, err error) {
	msg := "unauthorized"
	if errors.Is(err, ErrMissingKey) {
		msg = "missing API key"
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="riskctl"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
