package web

// Error codes shown to users. A user can quote the code to support, who
// look it up here and in the server log (ERR000 always needs the log).
//
//	IMP001-IMP006  import pipeline outcomes
//	UPL001-UPL006  upload handling and request lifetime
//	PRO001-PRO011  prospect commands
//	TEAM001-TEAM009  teams and invitations
//	AUTH001-AUTH004  identity and API keys (AUTH002-004 come from middleware)
//	DB001-DB005  storage failures matched by message
//	RATE001  rate limiting
//	ERR000  fallback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/prospector/internal/importer"
	"github.com/JonMunkholm/prospector/internal/prospect"
)

// UserMessage is the client-facing description of an error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

// errRateLimited is returned by the rate limiter middleware.
var errRateLimited = errors.New("rate limit exceeded")

// errNoFile is returned when the multipart form has no "file" part.
var errNoFile = errors.New("no file provided")

// sentinelError binds a typed error to its message and HTTP status.
type sentinelError struct {
	target error
	status int
	msg    UserMessage
}

// sentinelErrors is checked with errors.Is in order, before any pattern.
var sentinelErrors = []sentinelError{
	// Import
	{importer.ErrNothingToImport, http.StatusUnprocessableEntity, UserMessage{
		"The file has no data rows", "Upload a CSV with a header line and at least one prospect", "IMP001"}},
	{importer.ErrNoValidRows, http.StatusUnprocessableEntity, UserMessage{
		"No row has a first name", "Check that the file has a first name column (prenom, first name...)", "IMP002"}},
	{importer.ErrImportInProgress, http.StatusConflict, UserMessage{
		"Another import is running for this workspace", "Wait for it to finish, then try again", "IMP003"}},
	{prospect.ErrNoActiveTeam, http.StatusBadRequest, UserMessage{
		"Team mode needs an active team", "Select a team or switch to solo mode", "IMP004"}},

	// Upload
	{importer.ErrFileTooLarge, http.StatusRequestEntityTooLarge, UserMessage{
		"File exceeds the maximum upload size", "Split the file into smaller files", "UPL001"}},
	{importer.ErrTooManyImports, http.StatusServiceUnavailable, UserMessage{
		"System is busy processing other imports", "Please wait a moment and try again", "UPL002"}},
	{errNoFile, http.StatusBadRequest, UserMessage{
		"No file was selected", "Please select a CSV file to upload", "UPL003"}},
	{context.Canceled, 499, UserMessage{
		"Request was cancelled", "Please try again", "UPL004"}},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, UserMessage{
		"Request timed out", "Try a smaller file or try again later", "UPL005"}},

	// Prospects
	{prospect.ErrNotFound, http.StatusNotFound, UserMessage{
		"Prospect not found", "It may have been deleted or belong to another workspace", "PRO001"}},
	{prospect.ErrFirstNameRequired, http.StatusBadRequest, UserMessage{
		"First name is required", "Fill in the first name", "PRO002"}},
	{prospect.ErrInvalidStatus, http.StatusBadRequest, UserMessage{
		"Unknown status", "Use one of the pipeline statuses", "PRO003"}},
	{prospect.ErrInvalidChannel, http.StatusBadRequest, UserMessage{
		"Unknown channel", "Use email, dm or call", "PRO004"}},
	{prospect.ErrDuplicateEmail, http.StatusConflict, UserMessage{
		"A prospect with this email already exists in this workspace", "Open the existing prospect instead", "PRO005"}},
	{prospect.ErrChannelDisabled, http.StatusUnprocessableEntity, UserMessage{
		"This channel is disabled for the team", "Ask a team admin to enable it", "PRO006"}},
	{prospect.ErrUnknownAction, http.StatusBadRequest, UserMessage{
		"Unknown action", "Check the action name", "PRO007"}},
	{prospect.ErrInvalidPayload, http.StatusBadRequest, UserMessage{
		"The request body is not valid", "Check the payload fields", "PRO008"}},
	{prospect.ErrForbidden, http.StatusForbidden, UserMessage{
		"You are not allowed to do this", "Ask a team admin", "PRO009"}},
	{prospect.ErrInvalidSource, http.StatusBadRequest, UserMessage{
		"Unknown prospect source", "Use manual, csv, linkedin, pharow or extension", "PRO010"}},
	{prospect.ErrOwnership, http.StatusBadRequest, UserMessage{
		"A prospect needs exactly one owner", "Pick either a user or a team", "PRO011"}},

	// Teams
	{prospect.ErrTeamNotFound, http.StatusNotFound, UserMessage{
		"Team not found", "Verify the team id", "TEAM001"}},
	{prospect.ErrNotTeamMember, http.StatusForbidden, UserMessage{
		"You are not a member of this team", "Accept the invitation first", "TEAM002"}},
	{prospect.ErrMemberNotFound, http.StatusNotFound, UserMessage{
		"Invitation not found", "It may have been withdrawn", "TEAM003"}},
	{prospect.ErrAlreadyInvited, http.StatusConflict, UserMessage{
		"This email is already invited", "Wait for the invitation to be answered", "TEAM004"}},
	{prospect.ErrInvitationNotPending, http.StatusConflict, UserMessage{
		"This invitation was already answered", "Ask for a new invitation", "TEAM005"}},
	{prospect.ErrInvitationEmailMismatch, http.StatusForbidden, UserMessage{
		"This invitation was sent to another email", "Sign in with the invited address", "TEAM006"}},
	{prospect.ErrInvalidRole, http.StatusBadRequest, UserMessage{
		"Unknown team role", "Use admin or member", "TEAM007"}},
	{prospect.ErrTeamNameRequired, http.StatusBadRequest, UserMessage{
		"Team name is required", "Give the team a name", "TEAM008"}},
	{prospect.ErrInvitationEmailRequired, http.StatusBadRequest, UserMessage{
		"Invitation email is required", "Enter the email to invite", "TEAM009"}},

	// Identity
	{prospect.ErrNoUser, http.StatusUnauthorized, UserMessage{
		"You are not signed in", "Sign in and try again", "AUTH001"}},
	{prospect.ErrInvalidWorkMode, http.StatusBadRequest, UserMessage{
		"Unknown work mode", "Use solo or team", "AUTH002"}},

	{errRateLimited, http.StatusTooManyRequests, UserMessage{
		"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// errorPattern maps a lower-case substring of an unrecognized error to a
// message. Patterns only apply when no sentinel matched.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"connection refused", UserMessage{"Unable to connect to the database", "Please try again in a few moments", "DB001"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB002"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB003"}},
	{"timeout", UserMessage{"Operation timed out", "Try again later", "DB004"}},
	{"violates", UserMessage{"The data conflicts with existing records", "Review the values and try again", "DB005"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts err to a user message and an HTTP status. Partial
// imports map to IMP005 with 500 so the client knows some rows landed.
func MapError(err error) (UserMessage, int) {
	if err == nil {
		return UserMessage{}, http.StatusOK
	}

	var perr *importer.PersistenceError
	if errors.As(err, &perr) && perr.Partial != nil && perr.Partial.Imported > 0 {
		return UserMessage{
			Message: fmt.Sprintf("Import stopped after %d prospect(s)", perr.Partial.Imported),
			Action:  "Re-upload the file; rows already imported are skipped as duplicates",
			Code:    "IMP005",
		}, http.StatusInternalServerError
	}

	for _, se := range sentinelErrors {
		if errors.Is(err, se.target) {
			return se.msg, se.status
		}
	}

	lower := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(lower, ep.pattern) {
			return ep.msg, http.StatusInternalServerError
		}
	}

	if errors.As(err, &perr) {
		return UserMessage{
			Message: "The import could not be saved",
			Action:  "Nothing was imported. Please try again",
			Code:    "IMP006",
		}, http.StatusInternalServerError
	}
	return defaultMessage, http.StatusInternalServerError
}

// FormatUserError renders err as "Message (Code: X). Action".
func FormatUserError(err error) string {
	msg, _ := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something better than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg, _ := MapError(err)
	return msg.Code != defaultMessage.Code
}
