package prospect

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScopeKind distinguishes personal from team ownership.
type ScopeKind string

const (
	ScopeUser ScopeKind = "user"
	ScopeTeam ScopeKind = "team"
)

// Scope is the tenant that owns a prospect: one user or one team.
// Email uniqueness and deduplication are evaluated within a scope.
type Scope struct {
	Kind ScopeKind
	ID   uuid.UUID
}

// UserScope returns the personal scope of userID.
func UserScope(userID uuid.UUID) Scope { return Scope{Kind: ScopeUser, ID: userID} }

// TeamScope returns the scope of teamID.
func TeamScope(teamID uuid.UUID) Scope { return Scope{Kind: ScopeTeam, ID: teamID} }

// Apply stamps the owner columns of p so that exactly one is set.
func (s Scope) Apply(p *Prospect) {
	id := s.ID
	switch s.Kind {
	case ScopeTeam:
		p.OwnerTeamID = &id
		p.OwnerUserID = nil
	default:
		p.OwnerUserID = &id
		p.OwnerTeamID = nil
	}
}

// Key is a stable string form used for lock names and log fields.
func (s Scope) Key() string {
	return string(s.Kind) + ":" + s.ID.String()
}

func (s Scope) String() string { return s.Key() }

// WorkMode is the user's current working context.
type WorkMode string

const (
	WorkModeSolo WorkMode = "solo"
	WorkModeTeam WorkMode = "team"
)

// ParseWorkMode converts a header or form value to a WorkMode.
// An empty value means solo.
func ParseWorkMode(raw string) (WorkMode, error) {
	switch m := WorkMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "", WorkModeSolo:
		return WorkModeSolo, nil
	case WorkModeTeam:
		return WorkModeTeam, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWorkMode, raw)
}

// Session identifies the caller of an operation. It is passed explicitly
// to every operation that needs it; nothing reads it from global state.
type Session struct {
	UserID    uuid.UUID
	UserEmail string
	Mode      WorkMode
	// TeamID is the active team; uuid.Nil when none is selected.
	TeamID uuid.UUID
	// Now is the clock used for timestamps. Nil means time.Now.
	Now func() time.Time
}

// Clock returns the session time source.
func (s Session) Clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Scope resolves the owning tenant for records created in this session.
func (s Session) Scope() (Scope, error) {
	if s.UserID == uuid.Nil {
		return Scope{}, ErrNoUser
	}
	if s.Mode == WorkModeTeam {
		if s.TeamID == uuid.Nil {
			return Scope{}, ErrNoActiveTeam
		}
		return TeamScope(s.TeamID), nil
	}
	return UserScope(s.UserID), nil
}
