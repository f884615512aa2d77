package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/prospector/internal/metrics"
	"github.com/JonMunkholm/prospector/internal/prospect"
	mw "github.com/JonMunkholm/prospector/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxJSONBody bounds command and form bodies.
const maxJSONBody = 64 << 10

// decodeJSON reads a bounded JSON body into v. Failures are reported as
// prospect.ErrInvalidPayload.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", prospect.ErrInvalidPayload, err)
	}
	return nil
}

// idParam parses the {id} route parameter. A malformed id cannot name
// anything, so it reports notFound.
func idParam(r *http.Request, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

// createProspectRequest is the manual entry form.
type createProspectRequest struct {
	FirstName   string          `json:"firstName"`
	LastName    *string         `json:"lastName"`
	Email       *string         `json:"email"`
	Phone       *string         `json:"phone"`
	LinkedInURL *string         `json:"linkedinUrl"`
	Company     *string         `json:"company"`
	JobTitle    *string         `json:"jobTitle"`
	Sector      *string         `json:"sector"`
	City        *string         `json:"city"`
	CompanySize *string         `json:"companySize"`
	Notes       *string         `json:"notes"`
	Status      prospect.Status `json:"status"`
	Source      prospect.Source `json:"source"`
}

func (req createProspectRequest) draft() prospect.Prospect {
	return prospect.Prospect{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		LinkedInURL: req.LinkedInURL,
		Company:     req.Company,
		JobTitle:    req.JobTitle,
		Sector:      req.Sector,
		City:        req.City,
		CompanySize: req.CompanySize,
		Notes:       req.Notes,
		Status:      req.Status,
		Source:      req.Source,
	}
}

func (s *Server) handleCreateProspect(w http.ResponseWriter, r *http.Request) {
	var req createProspectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	p, err := s.prospects.CreateProspect(r.Context(), mw.SessionFrom(r.Context()), req.draft())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProspect(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, prospect.ErrNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	p, err := s.prospects.Get(r.Context(), mw.SessionFrom(r.Context()), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, prospect.ErrNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	acts, err := s.prospects.Activities(r.Context(), mw.SessionFrom(r.Context()), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if acts == nil {
		acts = []prospect.Activity{}
	}
	writeJSON(w, http.StatusOK, acts)
}

// handleCommand runs one action from the command envelope
// {"action": "...", "payload": {...}}.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, prospect.ErrNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var cmd prospect.Command
	if err := decodeJSON(w, r, &cmd); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.dispatcher.Dispatch(r.Context(), mw.SessionFrom(r.Context()), id, cmd)
	metrics.RecordCommand(string(cmd.Action), err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteProspect(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, prospect.ErrNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	err = s.prospects.Delete(r.Context(), mw.SessionFrom(r.Context()), id)
	metrics.RecordCommand(string(prospect.ActionDelete), err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.Actions())
}
