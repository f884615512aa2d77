package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/prospector/internal/importer"
	"github.com/JonMunkholm/prospector/internal/logging"
	mw "github.com/JonMunkholm/prospector/internal/web/middleware"
)

const (
	// multipartOverhead covers the form boundaries and headers around the file.
	multipartOverhead = 1 << 20
	uploadWriteSlack  = 30 * time.Second
)

// ImportResponse is the JSON body of a successful import.
type ImportResponse struct {
	*importer.Report
	Summary string `json:"summary"`
}

// handleImport accepts a multipart upload with the CSV in the "file" part.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("read upload: %w", importer.ErrFileTooLarge))
			return
		}
		respondError(w, r, fmt.Errorf("parse form: %w", errNoFile))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	// The server-wide write timeout is sized for ordinary requests. Give
	// the upload room for the slot wait plus a full pass.
	if budget := s.cfg.Import.MaxWaitTime + s.cfg.Import.Timeout; budget > 0 {
		deadline := time.Now().Add(budget + uploadWriteSlack)
		if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
			logging.FromContext(r.Context()).Warn("extend upload write deadline", "error", err)
		}
	}

	report, err := s.imports.Import(r.Context(), mw.SessionFrom(r.Context()), header.Filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		renderToast(w, r, http.StatusOK, toastSuccess, "Import complete", report.Summary())
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Report: report, Summary: report.Summary()})
}

// handleAliases returns the header alias dictionary in use.
func (s *Server) handleAliases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.imports.Aliases())
}

// handleImportStatus reports limiter slot usage.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.imports.LimiterStatus())
}
