package prospect

import (
	"context"

	"github.com/google/uuid"
)

// Store persists prospects, their history and the team roster.
//
// InsertProspect and UpdateProspect write the record and its activity entry
// in one transaction so a mutation is never visible without its history.
// Lookups return ErrNotFound, ErrTeamNotFound or ErrMemberNotFound when the
// row does not exist.
type Store interface {
	InsertProspect(ctx context.Context, p Prospect, a Activity) error
	UpdateProspect(ctx context.Context, p Prospect, a Activity) error
	GetProspect(ctx context.Context, id uuid.UUID) (Prospect, error)
	DeleteProspect(ctx context.Context, id uuid.UUID) error
	ListActivities(ctx context.Context, prospectID uuid.UUID) ([]Activity, error)

	InsertTeam(ctx context.Context, t Team, owner Member) error
	GetTeam(ctx context.Context, id uuid.UUID) (Team, error)
	InsertMember(ctx context.Context, m Member) error
	UpdateMember(ctx context.Context, m Member) error
	GetMember(ctx context.Context, id uuid.UUID) (Member, error)
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]Member, error)
}
