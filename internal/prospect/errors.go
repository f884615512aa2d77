package prospect

import "errors"

var (
	ErrNotFound          = errors.New("prospect not found")
	ErrFirstNameRequired = errors.New("first name is required")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidSource     = errors.New("invalid source")
	ErrInvalidChannel    = errors.New("invalid channel")
	ErrInvalidWorkMode   = errors.New("invalid work mode")
	ErrOwnership         = errors.New("prospect must be owned by exactly one user or team")
	ErrDuplicateEmail    = errors.New("a prospect with this email already exists in this workspace")
	ErrChannelDisabled   = errors.New("channel is disabled for this team")

	ErrNoUser       = errors.New("no authenticated user")
	ErrNoActiveTeam = errors.New("team mode requires an active team")
	ErrForbidden    = errors.New("operation not permitted")

	ErrTeamNotFound            = errors.New("team not found")
	ErrMemberNotFound          = errors.New("team member not found")
	ErrNotTeamMember           = errors.New("user is not an accepted member of the team")
	ErrInvalidRole             = errors.New("invalid team role")
	ErrAlreadyInvited          = errors.New("email already invited to this team")
	ErrInvitationNotPending    = errors.New("invitation is not pending")
	ErrInvitationEmailMismatch = errors.New("invitation was sent to a different email")
	ErrTeamNameRequired        = errors.New("team name is required")
	ErrInvitationEmailRequired = errors.New("invitation email is required")

	ErrUnknownAction  = errors.New("unknown action")
	ErrInvalidPayload = errors.New("invalid command payload")
)
