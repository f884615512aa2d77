package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIKeyAuth checks the X-API-Key header against keys. When require is
// false every request passes; when it is true and keys is empty every
// request is rejected.
func APIKeyAuth(require bool, keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !require {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				slog.Warn("auth: missing API key", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				reject(w, http.StatusUnauthorized, "AUTH003", "missing API key")
				return
			}
			if !validAPIKey(key, keys) {
				slog.Warn("auth: invalid API key", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				reject(w, http.StatusForbidden, "AUTH004", "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// validAPIKey compares against every key so timing does not reveal which
// one matched.
func validAPIKey(key string, keys []string) bool {
	valid := 0
	for _, k := range keys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return valid == 1
}

// reject writes the same error envelope the web package uses.
func reject(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
