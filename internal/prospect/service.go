package prospect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Service implements the prospect lifecycle and the team model.
// Every mutation appends exactly one Activity.
type Service struct {
	store Store
}

// NewService creates a Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateProspect stores a manually entered prospect owned by the session's
// current scope. Source is manual unless the draft names one of the
// integration sources (linkedin, pharow, extension).
func (s *Service) CreateProspect(ctx context.Context, sess Session, draft Prospect) (Prospect, error) {
	scope, err := sess.Scope()
	if err != nil {
		return Prospect{}, err
	}
	if scope.Kind == ScopeTeam {
		if _, err := s.activeMember(ctx, scope.ID, sess.UserID); err != nil {
			return Prospect{}, err
		}
	}

	now := sess.Clock()
	p := draft
	p.ID = uuid.New()
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.AssignedTo = nil
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = StatusNew
	}
	switch p.Source {
	case SourceLinkedIn, SourcePharow, SourceExtension:
	default:
		p.Source = SourceManual
	}
	scope.Apply(&p)

	if err := p.Validate(); err != nil {
		return Prospect{}, err
	}

	if err := s.store.InsertProspect(ctx, p, CreatedActivity(p)); err != nil {
		return Prospect{}, fmt.Errorf("insert prospect: %w", err)
	}

	slog.Info("prospect created", "prospect_id", p.ID, "scope", scope.Key(), "source", p.Source)
	return p, nil
}

// Get returns a prospect visible to the session.
func (s *Service) Get(ctx context.Context, sess Session, id uuid.UUID) (Prospect, error) {
	return s.load(ctx, sess, id)
}

// Activities returns the history of a prospect, oldest first.
func (s *Service) Activities(ctx context.Context, sess Session, id uuid.UUID) ([]Activity, error) {
	if _, err := s.load(ctx, sess, id); err != nil {
		return nil, err
	}
	return s.store.ListActivities(ctx, id)
}

// SetStatus moves a prospect to any status. There is no transition table;
// only membership in the status enum is checked.
func (s *Service) SetStatus(ctx context.Context, sess Session, id uuid.UUID, status Status) (Prospect, error) {
	if !status.Valid() {
		return Prospect{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	p, err := s.load(ctx, sess, id)
	if err != nil {
		return Prospect{}, err
	}
	if p.Status == status {
		return p, nil
	}

	now := sess.Clock()
	prev := p.Status
	p.Status = status
	p.UpdatedAt = now

	a := newActivity(p.ID, ActivityStatusChanged, now, "Status changed from %s to %s", prev, status)
	return s.save(ctx, p, a)
}

// ChannelUpdate carries the fields to change on one channel. Nil fields are
// left untouched.
type ChannelUpdate struct {
	Done    *bool   `json:"done,omitempty"`
	Replied *bool   `json:"replied,omitempty"`
	Notes   *string `json:"notes,omitempty"`
	// Result is the call outcome; only valid on the call channel.
	Result *string `json:"result,omitempty"`
}

func (u ChannelUpdate) empty() bool {
	return u.Done == nil && u.Replied == nil && u.Notes == nil && u.Result == nil
}

// UpdateChannel changes the outreach state of one channel, stamping or
// clearing timestamps so they stay in step with their flags.
func (s *Service) UpdateChannel(ctx context.Context, sess Session, id uuid.UUID, ch Channel, upd ChannelUpdate) (Prospect, error) {
	if _, err := ParseChannel(string(ch)); err != nil {
		return Prospect{}, err
	}
	if upd.empty() {
		return Prospect{}, fmt.Errorf("%w: nothing to update", ErrInvalidPayload)
	}
	if ch == ChannelCall && upd.Replied != nil {
		return Prospect{}, fmt.Errorf("%w: call channel has no reply state", ErrInvalidPayload)
	}
	if ch != ChannelCall && upd.Result != nil {
		return Prospect{}, fmt.Errorf("%w: result only applies to calls", ErrInvalidPayload)
	}

	p, err := s.load(ctx, sess, id)
	if err != nil {
		return Prospect{}, err
	}
	if p.OwnerTeamID != nil {
		team, err := s.store.GetTeam(ctx, *p.OwnerTeamID)
		if err != nil {
			return Prospect{}, err
		}
		if !team.EnabledChannels.Enabled(ch) {
			return Prospect{}, fmt.Errorf("%w: %s", ErrChannelDisabled, ch)
		}
	}

	now := sess.Clock()
	state := p.ChannelState(ch)
	var changes []string
	if upd.Done != nil {
		state.MarkDone(*upd.Done, now)
		changes = append(changes, fmt.Sprintf("done=%t", *upd.Done))
	}
	if upd.Replied != nil {
		state.MarkReplied(*upd.Replied, now)
		changes = append(changes, fmt.Sprintf("replied=%t", *upd.Replied))
	}
	if upd.Notes != nil {
		state.Notes = blankToNil(*upd.Notes)
		changes = append(changes, "notes")
	}
	if upd.Result != nil {
		p.CallResult = blankToNil(*upd.Result)
		changes = append(changes, "result")
	}
	p.UpdatedAt = now

	if err := p.Validate(); err != nil {
		return Prospect{}, err
	}

	a := newActivity(p.ID, ActivityChannelUpdated, now, "%s channel updated (%s)", ch, strings.Join(changes, ", "))
	return s.save(ctx, p, a)
}

// UpdateNotes replaces the free-text notes. Blank clears them.
func (s *Service) UpdateNotes(ctx context.Context, sess Session, id uuid.UUID, notes string) (Prospect, error) {
	p, err := s.load(ctx, sess, id)
	if err != nil {
		return Prospect{}, err
	}

	now := sess.Clock()
	p.Notes = blankToNil(notes)
	p.UpdatedAt = now

	desc := "Notes updated"
	if p.Notes == nil {
		desc = "Notes cleared"
	}
	return s.save(ctx, p, newActivity(p.ID, ActivityNotesUpdated, now, "%s", desc))
}

// Assign sets or clears the member responsible for a prospect. Team-owned
// prospects accept any accepted member of the owning team; personal
// prospects only accept their owner. A nil assignee clears the assignment.
func (s *Service) Assign(ctx context.Context, sess Session, id uuid.UUID, assignee *uuid.UUID) (Prospect, error) {
	p, err := s.load(ctx, sess, id)
	if err != nil {
		return Prospect{}, err
	}

	now := sess.Clock()
	if assignee == nil {
		if p.AssignedTo == nil {
			return p, nil
		}
		prev := *p.AssignedTo
		p.AssignedTo = nil
		p.UpdatedAt = now
		return s.save(ctx, p, newActivity(p.ID, ActivityUnassigned, now, "Unassigned from %s", prev))
	}

	switch {
	case p.OwnerTeamID != nil:
		if _, err := s.activeMember(ctx, *p.OwnerTeamID, *assignee); err != nil {
			return Prospect{}, err
		}
	case p.OwnerUserID != nil && *p.OwnerUserID != *assignee:
		return Prospect{}, fmt.Errorf("%w: personal prospects can only be assigned to their owner", ErrForbidden)
	}

	if p.AssignedTo != nil && *p.AssignedTo == *assignee {
		return p, nil
	}
	to := *assignee
	p.AssignedTo = &to
	p.UpdatedAt = now
	return s.save(ctx, p, newActivity(p.ID, ActivityAssigned, now, "Assigned to %s", to))
}

// Delete removes a prospect. Its history is removed with it.
func (s *Service) Delete(ctx context.Context, sess Session, id uuid.UUID) error {
	if _, err := s.load(ctx, sess, id); err != nil {
		return err
	}
	if err := s.store.DeleteProspect(ctx, id); err != nil {
		return fmt.Errorf("delete prospect: %w", err)
	}
	slog.Info("prospect deleted", "prospect_id", id, "user_id", sess.UserID)
	return nil
}

// load fetches a prospect and hides it unless the session can see it.
// Personal prospects are visible to their owner; team prospects to every
// accepted member of the team.
func (s *Service) load(ctx context.Context, sess Session, id uuid.UUID) (Prospect, error) {
	p, err := s.store.GetProspect(ctx, id)
	if err != nil {
		return Prospect{}, err
	}
	switch {
	case p.OwnerUserID != nil:
		if *p.OwnerUserID != sess.UserID {
			return Prospect{}, ErrNotFound
		}
	case p.OwnerTeamID != nil:
		if _, err := s.activeMember(ctx, *p.OwnerTeamID, sess.UserID); err != nil {
			return Prospect{}, ErrNotFound
		}
	default:
		return Prospect{}, ErrOwnership
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p Prospect, a Activity) (Prospect, error) {
	if err := s.store.UpdateProspect(ctx, p, a); err != nil {
		return Prospect{}, fmt.Errorf("update prospect: %w", err)
	}
	return p, nil
}

func blankToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
