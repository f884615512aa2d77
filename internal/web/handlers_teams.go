package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/prospector/internal/prospect"
	mw "github.com/JonMunkholm/prospector/internal/web/middleware"
	"github.com/google/uuid"
)

type createTeamRequest struct {
	Name string `json:"name"`
	// EnabledChannels defaults to every channel when omitted.
	EnabledChannels *prospect.EnabledChannels `json:"enabledChannels"`
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	channels := prospect.AllChannels()
	if req.EnabledChannels != nil {
		channels = *req.EnabledChannels
	}

	team, err := s.prospects.CreateTeam(r.Context(), mw.SessionFrom(r.Context()), req.Name, channels)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	teamID, err := idParam(r, prospect.ErrTeamNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	members, err := s.prospects.ListMembers(r.Context(), mw.SessionFrom(r.Context()), teamID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if members == nil {
		members = []prospect.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	teamID, err := idParam(r, prospect.ErrTeamNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	role, err := prospect.ParseRole(req.Role)
	if err != nil {
		respondError(w, r, err)
		return
	}

	m, err := s.prospects.InviteMember(r.Context(), mw.SessionFrom(r.Context()), teamID, req.Email, role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	s.answerInvitation(w, r, s.prospects.AcceptInvitation)
}

func (s *Server) handleRejectInvitation(w http.ResponseWriter, r *http.Request) {
	s.answerInvitation(w, r, s.prospects.RejectInvitation)
}

type invitationAnswer func(ctx context.Context, sess prospect.Session, memberID uuid.UUID) (prospect.Member, error)

func (s *Server) answerInvitation(w http.ResponseWriter, r *http.Request, answer invitationAnswer) {
	memberID, err := idParam(r, prospect.ErrMemberNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	m, err := answer(r.Context(), mw.SessionFrom(r.Context()), memberID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
