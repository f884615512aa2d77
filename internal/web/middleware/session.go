package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/JonMunkholm/prospector/internal/prospect"
	"github.com/google/uuid"
)

// Identity headers set by the authenticating proxy in front of the server.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderWorkMode  = "X-Work-Mode"
	HeaderTeamID    = "X-Team-ID"
)

type sessionKey struct{}

// Session builds a prospect.Session from the identity headers and stores
// it in the request context. A request without X-User-ID gets an empty
// session; operations then fail with prospect.ErrNoUser. Malformed header
// values are rejected with 400.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromHeaders(r.Header)
		if err != nil {
			reject(w, http.StatusBadRequest, "AUTH002", err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// SessionFrom returns the session stored by Session, or an empty one.
func SessionFrom(ctx context.Context) prospect.Session {
	sess, _ := ctx.Value(sessionKey{}).(prospect.Session)
	return sess
}

// WithSession stores sess in ctx. Tests use it to skip the headers.
func WithSession(ctx context.Context, sess prospect.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func sessionFromHeaders(h http.Header) (prospect.Session, error) {
	var sess prospect.Session

	if raw := strings.TrimSpace(h.Get(HeaderUserID)); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return sess, &headerError{header: HeaderUserID, value: raw}
		}
		sess.UserID = id
	}
	sess.UserEmail = strings.TrimSpace(h.Get(HeaderUserEmail))

	mode, err := prospect.ParseWorkMode(h.Get(HeaderWorkMode))
	if err != nil {
		return sess, err
	}
	sess.Mode = mode

	if raw := strings.TrimSpace(h.Get(HeaderTeamID)); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return sess, &headerError{header: HeaderTeamID, value: raw}
		}
		sess.TeamID = id
	}
	return sess, nil
}

type headerError struct {
	header string
	value  string
}

func (e *headerError) Error() string {
	return "invalid " + e.header + " header: " + e.value
}
