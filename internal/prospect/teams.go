package prospect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// CreateTeam creates a team owned by the session user, who becomes its
// first accepted member with the owner role.
func (s *Service) CreateTeam(ctx context.Context, sess Session, name string, channels EnabledChannels) (Team, error) {
	if sess.UserID == uuid.Nil {
		return Team{}, ErrNoUser
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Team{}, ErrTeamNameRequired
	}

	now := sess.Clock()
	team := Team{
		ID:              uuid.New(),
		OwnerID:         sess.UserID,
		Name:            name,
		EnabledChannels: channels,
		CreatedAt:       now,
	}
	userID := sess.UserID
	joined := now
	owner := Member{
		ID:               uuid.New(),
		TeamID:           team.ID,
		UserID:           &userID,
		InvitedEmail:     NormalizeEmail(sess.UserEmail),
		Role:             RoleOwner,
		InvitationStatus: InvitationAccepted,
		JoinedAt:         &joined,
		CreatedAt:        now,
	}

	if err := s.store.InsertTeam(ctx, team, owner); err != nil {
		return Team{}, fmt.Errorf("insert team: %w", err)
	}

	slog.Info("team created", "team_id", team.ID, "owner_id", team.OwnerID)
	return team, nil
}

// InviteMember records a pending invitation keyed by the lower-cased email.
// The inviter must be an accepted owner or admin. A previously rejected
// invitation is reopened rather than duplicated.
func (s *Service) InviteMember(ctx context.Context, sess Session, teamID uuid.UUID, email string, role Role) (Member, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Member{}, ErrInvitationEmailRequired
	}
	switch role {
	case RoleAdmin, RoleMember:
	default:
		return Member{}, fmt.Errorf("%w: %q cannot be invited", ErrInvalidRole, role)
	}

	inviter, err := s.activeMember(ctx, teamID, sess.UserID)
	if err != nil {
		return Member{}, err
	}
	if !inviter.Role.CanInvite() {
		return Member{}, fmt.Errorf("%w: only owners and admins can invite", ErrForbidden)
	}

	members, err := s.store.ListMembers(ctx, teamID)
	if err != nil {
		return Member{}, fmt.Errorf("list members: %w", err)
	}

	now := sess.Clock()
	for _, m := range members {
		if m.InvitedEmail != email {
			continue
		}
		if m.InvitationStatus != InvitationRejected {
			return Member{}, ErrAlreadyInvited
		}
		m.Role = role
		m.InvitationStatus = InvitationPending
		m.UserID = nil
		m.JoinedAt = nil
		if err := s.store.UpdateMember(ctx, m); err != nil {
			return Member{}, fmt.Errorf("reopen invitation: %w", err)
		}
		return m, nil
	}

	m := Member{
		ID:               uuid.New(),
		TeamID:           teamID,
		InvitedEmail:     email,
		Role:             role,
		InvitationStatus: InvitationPending,
		CreatedAt:        now,
	}
	if err := s.store.InsertMember(ctx, m); err != nil {
		return Member{}, fmt.Errorf("insert member: %w", err)
	}

	slog.Info("member invited", "team_id", teamID, "member_id", m.ID, "role", role)
	return m, nil
}

// AcceptInvitation binds the session user to a pending invitation sent to
// their email address.
func (s *Service) AcceptInvitation(ctx context.Context, sess Session, memberID uuid.UUID) (Member, error) {
	m, err := s.pendingInvitation(ctx, sess, memberID)
	if err != nil {
		return Member{}, err
	}

	now := sess.Clock()
	userID := sess.UserID
	m.UserID = &userID
	m.InvitationStatus = InvitationAccepted
	m.JoinedAt = &now

	if err := s.store.UpdateMember(ctx, m); err != nil {
		return Member{}, fmt.Errorf("accept invitation: %w", err)
	}
	slog.Info("invitation accepted", "team_id", m.TeamID, "member_id", m.ID, "user_id", userID)
	return m, nil
}

// RejectInvitation declines a pending invitation.
func (s *Service) RejectInvitation(ctx context.Context, sess Session, memberID uuid.UUID) (Member, error) {
	m, err := s.pendingInvitation(ctx, sess, memberID)
	if err != nil {
		return Member{}, err
	}

	m.InvitationStatus = InvitationRejected
	if err := s.store.UpdateMember(ctx, m); err != nil {
		return Member{}, fmt.Errorf("reject invitation: %w", err)
	}
	return m, nil
}

// ListMembers returns the roster of a team the session user belongs to.
func (s *Service) ListMembers(ctx context.Context, sess Session, teamID uuid.UUID) ([]Member, error) {
	if _, err := s.activeMember(ctx, teamID, sess.UserID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, teamID)
}

// IsActiveMember reports whether userID is an accepted member of teamID.
func (s *Service) IsActiveMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	_, err := s.activeMember(ctx, teamID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotTeamMember):
		return false, nil
	}
	return false, err
}

func (s *Service) pendingInvitation(ctx context.Context, sess Session, memberID uuid.UUID) (Member, error) {
	if sess.UserID == uuid.Nil {
		return Member{}, ErrNoUser
	}
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return Member{}, err
	}
	if m.InvitationStatus != InvitationPending {
		return Member{}, ErrInvitationNotPending
	}
	if NormalizeEmail(sess.UserEmail) != m.InvitedEmail {
		return Member{}, ErrInvitationEmailMismatch
	}
	return m, nil
}

func (s *Service) activeMember(ctx context.Context, teamID, userID uuid.UUID) (Member, error) {
	members, err := s.store.ListMembers(ctx, teamID)
	if err != nil {
		return Member{}, fmt.Errorf("list members: %w", err)
	}
	for _, m := range members {
		if m.Active() && *m.UserID == userID {
			return m, nil
		}
	}
	if len(members) == 0 {
		if _, err := s.store.GetTeam(ctx, teamID); err != nil {
			return Member{}, err
		}
	}
	return Member{}, ErrNotTeamMember
}
