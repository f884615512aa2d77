package prospect

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a member's authority within a team.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole converts user input to a Role. Empty input means member.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case "":
		return RoleMember, nil
	case RoleOwner, RoleAdmin, RoleMember:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

// CanInvite reports whether the role may invite new members.
func (r Role) CanInvite() bool {
	return r == RoleOwner || r == RoleAdmin
}

// InvitationStatus tracks a membership invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// EnabledChannels lists which outreach channels a team works.
type EnabledChannels struct {
	Email bool `json:"email"`
	DM    bool `json:"dm"`
	Call  bool `json:"call"`
}

// AllChannels enables every channel.
func AllChannels() EnabledChannels {
	return EnabledChannels{Email: true, DM: true, Call: true}
}

// Enabled reports whether ch is switched on.
func (e EnabledChannels) Enabled(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return e.Email
	case ChannelDM:
		return e.DM
	case ChannelCall:
		return e.Call
	}
	return false
}

// Team is a shared workspace. Prospects owned by a team are visible to
// every accepted member.
type Team struct {
	ID              uuid.UUID       `json:"id"`
	OwnerID         uuid.UUID       `json:"ownerId"`
	Name            string          `json:"name"`
	EnabledChannels EnabledChannels `json:"enabledChannels"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Member is one row of a team's roster. Until an invitation is accepted
// the member is identified only by InvitedEmail and UserID is nil.
type Member struct {
	ID               uuid.UUID        `json:"id"`
	TeamID           uuid.UUID        `json:"teamId"`
	UserID           *uuid.UUID       `json:"userId,omitempty"`
	InvitedEmail     string           `json:"invitedEmail"`
	Role             Role             `json:"role"`
	InvitationStatus InvitationStatus `json:"invitationStatus"`
	JoinedAt         *time.Time       `json:"joinedAt,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// Active reports whether the member has accepted and is bound to a user.
func (m Member) Active() bool {
	return m.InvitationStatus == InvitationAccepted && m.UserID != nil
}
