package memory

import (
	"context"
	"testing"
	"time"

	"github.com/JonMunkholm/prospector/internal/prospect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProspect(scope prospect.Scope, name, email string) prospect.Prospect {
	p := prospect.Prospect{
		ID:        uuid.New(),
		FirstName: name,
		Status:    prospect.StatusNew,
		Source:    prospect.SourceCSV,
		CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if email != "" {
		p.Email = &email
	}
	scope.Apply(&p)
	return p
}

func TestInsertProspects_ChunkIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()
	scope := prospect.UserScope(uuid.New())

	require.NoError(t, s.InsertProspects(ctx, scope, []prospect.Prospect{newProspect(scope, "Jean", "jean@acme.fr")}))

	err := s.InsertProspects(ctx, scope, []prospect.Prospect{
		newProspect(scope, "Marie", "marie@acme.fr"),
		newProspect(scope, "Paul", "JEAN@acme.fr"),
	})
	assert.ErrorIs(t, err, prospect.ErrDuplicateEmail)

	emails, err := s.ExistingEmails(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, []string{"jean@acme.fr"}, emails, "marie was rolled back with the chunk")
}

func TestInsertProspects_WritesCreatedActivity(t *testing.T) {
	ctx := context.Background()
	s := New()
	scope := prospect.UserScope(uuid.New())
	p := newProspect(scope, "Jean", "jean@acme.fr")

	require.NoError(t, s.InsertProspects(ctx, scope, []prospect.Prospect{p}))

	history, err := s.ListActivities(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, prospect.ActivityCreated, history[0].Type)
	assert.Equal(t, p.CreatedAt, history[0].CreatedAt)

	// A rejected chunk leaves no orphan history.
	dup := newProspect(scope, "Paul", "JEAN@acme.fr")
	require.Error(t, s.InsertProspects(ctx, scope, []prospect.Prospect{dup}))
	orphan, err := s.ListActivities(ctx, dup.ID)
	require.NoError(t, err)
	assert.Empty(t, orphan)
}

func TestInsertProspects_DuplicateInsideChunk(t *testing.T) {
	s := New()
	scope := prospect.UserScope(uuid.New())

	err := s.InsertProspects(context.Background(), scope, []prospect.Prospect{
		newProspect(scope, "Jean", "a@x.fr"),
		newProspect(scope, "Paul", "A@x.fr"),
	})
	assert.ErrorIs(t, err, prospect.ErrDuplicateEmail)
}

func TestInsertProspects_ScopeMismatch(t *testing.T) {
	s := New()
	scope := prospect.UserScope(uuid.New())
	other := prospect.TeamScope(uuid.New())

	err := s.InsertProspects(context.Background(), scope, []prospect.Prospect{newProspect(other, "Jean", "")})
	assert.ErrorIs(t, err, prospect.ErrOwnership)
}

func TestEmailsAreScoped(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := prospect.UserScope(uuid.New())
	b := prospect.TeamScope(uuid.New())

	require.NoError(t, s.InsertProspects(ctx, a, []prospect.Prospect{newProspect(a, "Jean", "jean@acme.fr")}))
	require.NoError(t, s.InsertProspects(ctx, b, []prospect.Prospect{newProspect(b, "Jean", "jean@acme.fr")}))

	emails, err := s.ExistingEmails(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"jean@acme.fr"}, emails)
}

func TestUpdateProspect_ReindexesEmail(t *testing.T) {
	ctx := context.Background()
	s := New()
	scope := prospect.UserScope(uuid.New())
	p := newProspect(scope, "Jean", "old@acme.fr")
	require.NoError(t, s.InsertProspect(ctx, p, prospect.Activity{ID: uuid.New(), ProspectID: p.ID}))

	newEmail := "new@acme.fr"
	p.Email = &newEmail
	require.NoError(t, s.UpdateProspect(ctx, p, prospect.Activity{ID: uuid.New(), ProspectID: p.ID}))

	emails, _ := s.ExistingEmails(ctx, scope)
	assert.Equal(t, []string{"new@acme.fr"}, emails)

	acts, _ := s.ListActivities(ctx, p.ID)
	assert.Len(t, acts, 2)

	require.NoError(t, s.DeleteProspect(ctx, p.ID))
	emails, _ = s.ExistingEmails(ctx, scope)
	assert.Empty(t, emails)
	assert.ErrorIs(t, s.DeleteProspect(ctx, p.ID), prospect.ErrNotFound)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	scope := prospect.UserScope(uuid.New())

	assert.ErrorIs(t, s.InsertProspects(ctx, scope, nil), context.Canceled)
	_, err := s.ExistingEmails(ctx, scope)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMembers(t *testing.T) {
	ctx := context.Background()
	s := New()
	team := prospect.Team{ID: uuid.New(), Name: "Sales"}
	owner := prospect.Member{ID: uuid.New(), TeamID: team.ID, InvitedEmail: "o@acme.fr", Role: prospect.RoleOwner}

	assert.ErrorIs(t, s.InsertMember(ctx, owner), prospect.ErrTeamNotFound)
	require.NoError(t, s.InsertTeam(ctx, team, owner))

	dup := prospect.Member{ID: uuid.New(), TeamID: team.ID, InvitedEmail: "o@acme.fr"}
	assert.ErrorIs(t, s.InsertMember(ctx, dup), prospect.ErrAlreadyInvited)

	_, err := s.GetMember(ctx, uuid.New())
	assert.ErrorIs(t, err, prospect.ErrMemberNotFound)

	members, err := s.ListMembers(ctx, team.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}
