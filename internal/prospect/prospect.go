// Package prospect holds the CRM domain model: prospects, their per-channel
// outreach state, the append-only activity log, and the team/assignment model
// that decides who owns and who works each record.
//
// Every write path goes through [Prospect.Validate], which enforces the
// ownership XOR rule, the fixed status and source enums, and the channel
// timestamp rule (a timestamp is set if and only if its flag is true).
package prospect

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the pipeline stage of a prospect.
type Status string

const (
	StatusNew          Status = "new"
	StatusContacted    Status = "contacted"
	StatusInDiscussion Status = "in_discussion"
	StatusRDVBooked    Status = "rdv_booked"
	StatusConverted    Status = "converted"
	StatusLost         Status = "lost"
	StatusNotQualified Status = "not_qualified"
)

// Statuses returns every valid status in display order.
func Statuses() []Status {
	return []Status{
		StatusNew,
		StatusContacted,
		StatusInDiscussion,
		StatusRDVBooked,
		StatusConverted,
		StatusLost,
		StatusNotQualified,
	}
}

// Valid reports whether s is one of the fixed status values.
func (s Status) Valid() bool {
	for _, v := range Statuses() {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus converts user input to a Status. Matching is case-insensitive.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Source records how a prospect entered the system.
type Source string

const (
	SourceManual    Source = "manual"
	SourceCSV       Source = "csv"
	SourceLinkedIn  Source = "linkedin"
	SourcePharow    Source = "pharow"
	SourceExtension Source = "extension"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceCSV, SourceLinkedIn, SourcePharow, SourceExtension:
		return true
	}
	return false
}

// Channel identifies one outreach channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelDM    Channel = "dm"
	ChannelCall  Channel = "call"
)

// ParseChannel converts user input to a Channel.
func ParseChannel(raw string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(raw))); c {
	case ChannelEmail, ChannelDM, ChannelCall:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChannel, raw)
}

// ChannelState is the outreach state for one channel.
//
// Done means "contacted" for email and DM and "call done" for calls.
// Replied is only meaningful for email and DM.
type ChannelState struct {
	Done      bool       `json:"done"`
	At        *time.Time `json:"at,omitempty"`
	Replied   bool       `json:"replied"`
	RepliedAt *time.Time `json:"repliedAt,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// MarkDone sets Done and keeps At consistent with it.
func (c *ChannelState) MarkDone(done bool, now time.Time) {
	if done == c.Done {
		return
	}
	c.Done = done
	if done {
		at := now
		c.At = &at
	} else {
		c.At = nil
	}
}

// MarkReplied sets Replied and keeps RepliedAt consistent with it.
func (c *ChannelState) MarkReplied(replied bool, now time.Time) {
	if replied == c.Replied {
		return
	}
	c.Replied = replied
	if replied {
		at := now
		c.RepliedAt = &at
	} else {
		c.RepliedAt = nil
	}
}

func (c ChannelState) validate(ch Channel) error {
	if c.Done != (c.At != nil) {
		return fmt.Errorf("%s channel: timestamp must be set iff done", ch)
	}
	if c.Replied != (c.RepliedAt != nil) {
		return fmt.Errorf("%s channel: reply timestamp must be set iff replied", ch)
	}
	if ch == ChannelCall && c.Replied {
		return fmt.Errorf("call channel cannot be marked replied")
	}
	return nil
}

// Prospect is a single sales lead owned by exactly one user or one team.
type Prospect struct {
	ID uuid.UUID `json:"id"`

	FirstName   string  `json:"firstName"`
	LastName    *string `json:"lastName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	LinkedInURL *string `json:"linkedinUrl,omitempty"`

	Company     *string `json:"company,omitempty"`
	JobTitle    *string `json:"jobTitle,omitempty"`
	Sector      *string `json:"sector,omitempty"`
	City        *string `json:"city,omitempty"`
	CompanySize *string `json:"companySize,omitempty"`

	Notes *string `json:"notes,omitempty"`

	Status Status `json:"status"`
	Source Source `json:"source"`

	EmailChannel ChannelState `json:"emailChannel"`
	DMChannel    ChannelState `json:"dmChannel"`
	CallChannel  ChannelState `json:"callChannel"`
	CallResult   *string      `json:"callResult,omitempty"`

	AssignedTo  *uuid.UUID `json:"assignedTo,omitempty"`
	OwnerUserID *uuid.UUID `json:"ownerUserId,omitempty"`
	OwnerTeamID *uuid.UUID `json:"ownerTeamId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChannelState returns a pointer to the state for ch, or nil for an unknown channel.
func (p *Prospect) ChannelState(ch Channel) *ChannelState {
	switch ch {
	case ChannelEmail:
		return &p.EmailChannel
	case ChannelDM:
		return &p.DMChannel
	case ChannelCall:
		return &p.CallChannel
	}
	return nil
}

// Scope returns the tenant scope that owns p.
func (p Prospect) Scope() (Scope, error) {
	switch {
	case p.OwnerUserID != nil && p.OwnerTeamID == nil:
		return UserScope(*p.OwnerUserID), nil
	case p.OwnerTeamID != nil && p.OwnerUserID == nil:
		return TeamScope(*p.OwnerTeamID), nil
	}
	return Scope{}, ErrOwnership
}

// Validate checks the record-level invariants.
func (p Prospect) Validate() error {
	var errs []error

	if strings.TrimSpace(p.FirstName) == "" {
		errs = append(errs, ErrFirstNameRequired)
	}
	if _, err := p.Scope(); err != nil {
		errs = append(errs, err)
	}
	if !p.Status.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status))
	}
	if !p.Source.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidSource, p.Source))
	}
	for _, ch := range []Channel{ChannelEmail, ChannelDM, ChannelCall} {
		if err := p.ChannelState(ch).validate(ch); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// NormalizedEmail returns the dedup key for p, or "" when p has no email.
func (p Prospect) NormalizedEmail() string {
	if p.Email == nil {
		return ""
	}
	return NormalizeEmail(*p.Email)
}

// NormalizeEmail lower-cases and trims an email for identity comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
