package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/prospector/internal/importer"
	"github.com/JonMunkholm/prospector/internal/logging"
	"github.com/a-h/templ"
)

// ErrorResponse is the JSON error body. Report is set when an import got
// far enough to count rows, including partial imports.
type ErrorResponse struct {
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Action  string           `json:"action,omitempty"`
	Code    string           `json:"code"`
	Report  *importer.Report `json:"report,omitempty"`
}

// respondError logs err with the request id and answers with the mapped
// user message as an HTMX toast, JSON or plain text.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg, status := MapError(err)

	log := logging.FromContext(r.Context())
	args := []any{"path", r.URL.Path, "method", r.Method, "status", status, "code", msg.Code, "error", err}
	if status >= 500 {
		log.Error("request error", args...)
	} else {
		log.Warn("request error", args...)
	}

	switch {
	case isHTMX(r):
		renderToast(w, r, status, toastError, msg.Message, msg.Action+" ("+msg.Code+")")
	case wantsJSON(r):
		writeJSON(w, status, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
			Report:  reportOf(err),
		})
	default:
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
	}
}

// reportOf extracts the import report carried by a pipeline error.
func reportOf(err error) *importer.Report {
	var perr *importer.PersistenceError
	if errors.As(err, &perr) {
		return perr.Partial
	}
	var parseErr *importer.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Report
	}
	return nil
}

type toastKind string

const (
	toastSuccess toastKind = "success"
	toastError   toastKind = "error"
)

// toast is the fragment HTMX swaps into the notification area.
func toast(kind toastKind, title, detail string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="toast toast-%s" role="status"><strong>%s</strong><p>%s</p></div>`,
			kind, templ.EscapeString(title), templ.EscapeString(detail))
		return err
	})
}

func renderToast(w http.ResponseWriter, r *http.Request, status int, kind toastKind, title, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := toast(kind, title, detail).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render toast", "error", err)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON is true for API routes and for clients asking for JSON.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
