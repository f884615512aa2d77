package prospect_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/JonMunkholm/prospector/internal/prospect"
	"github.com/JonMunkholm/prospector/internal/store/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	svc   *prospect.Service
	store *memory.Store
	clock *clock
}

func newFixture() *fixture {
	store := memory.New()
	return &fixture{
		svc:   prospect.NewService(store),
		store: store,
		clock: &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
}

func (f *fixture) solo(user uuid.UUID, email string) prospect.Session {
	return prospect.Session{UserID: user, UserEmail: email, Mode: prospect.WorkModeSolo, Now: f.clock.Now}
}

func (f *fixture) team(user uuid.UUID, email string, team uuid.UUID) prospect.Session {
	s := f.solo(user, email)
	s.Mode = prospect.WorkModeTeam
	s.TeamID = team
	return s
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCreateProspect(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := uuid.New()

	p, err := f.svc.CreateProspect(ctx, f.solo(user, "me@acme.fr"), prospect.Prospect{
		FirstName: "  Jean ",
		Email:     strPtr("jean@acme.fr"),
		Source:    prospect.SourceCSV,
	})
	require.NoError(t, err)

	assert.Equal(t, "Jean", p.FirstName)
	assert.Equal(t, prospect.StatusNew, p.Status)
	assert.Equal(t, prospect.SourceManual, p.Source, "csv is reserved for imports")
	require.NotNil(t, p.OwnerUserID)
	assert.Equal(t, user, *p.OwnerUserID)

	acts, err := f.svc.Activities(ctx, f.solo(user, ""), p.ID)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, prospect.ActivityCreated, acts[0].Type)

	_, err = f.svc.CreateProspect(ctx, f.solo(user, ""), prospect.Prospect{FirstName: "Paul", Email: strPtr("JEAN@acme.fr")})
	assert.ErrorIs(t, err, prospect.ErrDuplicateEmail)

	_, err = f.svc.CreateProspect(ctx, f.solo(user, ""), prospect.Prospect{FirstName: " "})
	assert.ErrorIs(t, err, prospect.ErrFirstNameRequired)

	linked, err := f.svc.CreateProspect(ctx, f.solo(user, ""), prospect.Prospect{FirstName: "Luc", Source: prospect.SourceLinkedIn})
	require.NoError(t, err)
	assert.Equal(t, prospect.SourceLinkedIn, linked.Source)
}

func TestCreateProspect_TeamRequiresMembership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner, outsider := uuid.New(), uuid.New()

	team, err := f.svc.CreateTeam(ctx, f.solo(owner, "owner@acme.fr"), "Sales", prospect.AllChannels())
	require.NoError(t, err)

	p, err := f.svc.CreateProspect(ctx, f.team(owner, "owner@acme.fr", team.ID), prospect.Prospect{FirstName: "Jean"})
	require.NoError(t, err)
	require.NotNil(t, p.OwnerTeamID)
	assert.Nil(t, p.OwnerUserID)

	_, err = f.svc.CreateProspect(ctx, f.team(outsider, "x@y.fr", team.ID), prospect.Prospect{FirstName: "Paul"})
	assert.ErrorIs(t, err, prospect.ErrNotTeamMember)

	_, err = f.svc.CreateProspect(ctx, f.team(owner, "", uuid.New()), prospect.Prospect{FirstName: "Paul"})
	assert.ErrorIs(t, err, prospect.ErrTeamNotFound)
}

func TestVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	p, err := f.svc.CreateProspect(ctx, f.solo(alice, ""), prospect.Prospect{FirstName: "Jean"})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.solo(bob, ""), p.ID)
	assert.ErrorIs(t, err, prospect.ErrNotFound)

	_, err = f.svc.SetStatus(ctx, f.solo(bob, ""), p.ID, prospect.StatusLost)
	assert.ErrorIs(t, err, prospect.ErrNotFound)

	err = f.svc.Delete(ctx, f.solo(bob, ""), p.ID)
	assert.ErrorIs(t, err, prospect.ErrNotFound)

	got, err := f.svc.Get(ctx, f.solo(alice, ""), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestSetStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := uuid.New()
	sess := f.solo(user, "")

	p, err := f.svc.CreateProspect(ctx, sess, prospect.Prospect{FirstName: "Jean"})
	require.NoError(t, err)

	f.clock.advance(time.Hour)
	p, err = f.svc.SetStatus(ctx, sess, p.ID, prospect.StatusConverted)
	require.NoError(t, err)
	assert.Equal(t, prospect.StatusConverted, p.Status)
	assert.Equal(t, f.clock.now, p.UpdatedAt)

	// Any status may follow any other.
	p, err = f.svc.SetStatus(ctx, sess, p.ID, prospect.StatusNew)
	require.NoError(t, err)
	assert.Equal(t, prospect.StatusNew, p.Status)

	_, err = f.svc.SetStatus(ctx, sess, p.ID, prospect.StatusNew)
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, sess, p.ID, prospect.Status("won"))
	assert.ErrorIs(t, err, prospect.ErrInvalidStatus)

	acts, err := f.svc.Activities(ctx, sess, p.ID)
	require.NoError(t, err)
	require.Len(t, acts, 3, "created plus two real changes")
	assert.Equal(t, prospect.ActivityStatusChanged, acts[1].Type)
	assert.Contains(t, acts[1].Description, "new")
	assert.Contains(t, acts[1].Description, "converted")
}

func TestUpdateChannel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := f.solo(uuid.New(), "")

	p, err := f.svc.CreateProspect(ctx, sess, prospect.Prospect{FirstName: "Jean"})
	require.NoError(t, err)

	contactedAt := f.clock.now
	p, err = f.svc.UpdateChannel(ctx, sess, p.ID, prospect.ChannelEmail, prospect.ChannelUpdate{Done: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, p.EmailChannel.Done)
	assert.Equal(t, contactedAt, *p.EmailChannel.At)

	f.clock.advance(24 * time.Hour)
	p, err = f.svc.UpdateChannel(ctx, sess, p.ID, prospect.ChannelEmail, prospect.ChannelUpdate{
		Replied: boolPtr(true),
		Notes:   strPtr("interested"),
	})
	require.NoError(t, err)
	assert.Equal(t, contactedAt, *p.EmailChannel.At, "done timestamp is kept")
	assert.Equal(t, f.clock.now, *p.EmailChannel.RepliedAt)
	assert.Equal(t, "interested", *p.EmailChannel.Notes)

	p, err = f.svc.UpdateChannel(ctx, sess, p.ID, prospect.ChannelEmail, prospect.ChannelUpdate{Done: boolPtr(false)})
	require.NoError(t, err)
	assert.Nil(t, p.EmailChannel.At)

	p, err = f.svc.UpdateChannel(ctx, sess, p.ID, prospect.ChannelCall, prospect.ChannelUpdate{
		Done:   boolPtr(true),
		Result: strPtr("callback friday"),
	})
	require.NoError(t, err)
	assert.Equal(t, "callback friday", *p.CallResult)

	_, err = f.svc.UpdateChannel(ctx, sess, p.ID, prospect.ChannelCall, prospect.ChannelUpdate{Replied: boolPtr(true)})
	assert.ErrorIs(t, err, prospect.ErrInvalidPayload)

	_, err = f.svc.UpdateChannel(ctx, sess, p.ID, prospect.ChannelDM, prospect.ChannelUpdate{Result: strPtr("x")})
	assert.ErrorIs(t, err, prospect.ErrInvalidPayload)

	_, err = f.svc.UpdateChannel(ctx, sess, p.ID, prospect.ChannelDM, prospect.ChannelUpdate{})
	assert.ErrorIs(t, err, prospect.ErrInvalidPayload)

	_, err = f.svc.UpdateChannel(ctx, sess, p.ID, prospect.Channel("fax"), prospect.ChannelUpdate{Done: boolPtr(true)})
	assert.ErrorIs(t, err, prospect.ErrInvalidChannel)
}

func TestUpdateChannel_DisabledForTeam(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := uuid.New()

	team, err := f.svc.CreateTeam(ctx, f.solo(owner, "o@acme.fr"), "Sales", prospect.EnabledChannels{Email: true, DM: true})
	require.NoError(t, err)
	sess := f.team(owner, "o@acme.fr", team.ID)

	p, err := f.svc.CreateProspect(ctx, sess, prospect.Prospect{FirstName: "Jean"})
	require.NoError(t, err)

	_, err = f.svc.UpdateChannel(ctx, sess, p.ID, prospect.ChannelCall, prospect.ChannelUpdate{Done: boolPtr(true)})
	assert.ErrorIs(t, err, prospect.ErrChannelDisabled)

	_, err = f.svc.UpdateChannel(ctx, sess, p.ID, prospect.ChannelDM, prospect.ChannelUpdate{Done: boolPtr(true)})
	assert.NoError(t, err)
}

func TestUpdateNotes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := f.solo(uuid.New(), "")

	p, err := f.svc.CreateProspect(ctx, sess, prospect.Prospect{FirstName: "Jean"})
	require.NoError(t, err)

	p, err = f.svc.UpdateNotes(ctx, sess, p.ID, " met at the fair ")
	require.NoError(t, err)
	assert.Equal(t, "met at the fair", *p.Notes)

	p, err = f.svc.UpdateNotes(ctx, sess, p.ID, "   ")
	require.NoError(t, err)
	assert.Nil(t, p.Notes)

	acts, err := f.svc.Activities(ctx, sess, p.ID)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, "Notes cleared", acts[2].Description)
}

func TestAssign(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner, member, outsider := uuid.New(), uuid.New(), uuid.New()

	team, err := f.svc.CreateTeam(ctx, f.solo(owner, "owner@acme.fr"), "Sales", prospect.AllChannels())
	require.NoError(t, err)
	inv, err := f.svc.InviteMember(ctx, f.solo(owner, "owner@acme.fr"), team.ID, "member@acme.fr", prospect.RoleMember)
	require.NoError(t, err)
	_, err = f.svc.AcceptInvitation(ctx, f.solo(member, "member@acme.fr"), inv.ID)
	require.NoError(t, err)

	sess := f.team(owner, "owner@acme.fr", team.ID)
	p, err := f.svc.CreateProspect(ctx, sess, prospect.Prospect{FirstName: "Jean"})
	require.NoError(t, err)

	p, err = f.svc.Assign(ctx, sess, p.ID, &member)
	require.NoError(t, err)
	assert.Equal(t, member, *p.AssignedTo)

	_, err = f.svc.Assign(ctx, sess, p.ID, &outsider)
	assert.ErrorIs(t, err, prospect.ErrNotTeamMember)

	p, err = f.svc.Assign(ctx, sess, p.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, p.AssignedTo)

	acts, err := f.svc.Activities(ctx, sess, p.ID)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, prospect.ActivityAssigned, acts[1].Type)
	assert.Equal(t, prospect.ActivityUnassigned, acts[2].Type)

	// The member sees the team prospect too.
	_, err = f.svc.Get(ctx, f.team(member, "member@acme.fr", team.ID), p.ID)
	assert.NoError(t, err)
}

func TestAssign_Personal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := uuid.New()
	sess := f.solo(user, "")

	p, err := f.svc.CreateProspect(ctx, sess, prospect.Prospect{FirstName: "Jean"})
	require.NoError(t, err)

	p, err = f.svc.Assign(ctx, sess, p.ID, &user)
	require.NoError(t, err)
	assert.Equal(t, user, *p.AssignedTo)

	other := uuid.New()
	_, err = f.svc.Assign(ctx, sess, p.ID, &other)
	assert.ErrorIs(t, err, prospect.ErrForbidden)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := f.solo(uuid.New(), "")

	p, err := f.svc.CreateProspect(ctx, sess, prospect.Prospect{FirstName: "Jean", Email: strPtr("jean@acme.fr")})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, sess, p.ID))
	_, err = f.svc.Get(ctx, sess, p.ID)
	assert.ErrorIs(t, err, prospect.ErrNotFound)

	// The email is free again.
	_, err = f.svc.CreateProspect(ctx, sess, prospect.Prospect{FirstName: "Jean", Email: strPtr("jean@acme.fr")})
	assert.NoError(t, err)
}

func TestDispatcher(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := uuid.New()
	sess := f.solo(user, "")
	d := prospect.NewDispatcher(f.svc)

	p, err := f.svc.CreateProspect(ctx, sess, prospect.Prospect{FirstName: "Jean"})
	require.NoError(t, err)

	run := func(action prospect.Action, payload string) (prospect.Result, error) {
		var raw json.RawMessage
		if payload != "" {
			raw = json.RawMessage(payload)
		}
		return d.Dispatch(ctx, sess, p.ID, prospect.Command{Action: action, Payload: raw})
	}

	res, err := run(prospect.ActionSetStatus, `{"status":"contacted"}`)
	require.NoError(t, err)
	assert.Equal(t, prospect.StatusContacted, res.Prospect.Status)

	res, err = run(prospect.ActionUpdateChannel, `{"channel":"dm","done":true,"notes":"sent invite"}`)
	require.NoError(t, err)
	assert.True(t, res.Prospect.DMChannel.Done)
	assert.Equal(t, "sent invite", *res.Prospect.DMChannel.Notes)

	res, err = run(prospect.ActionUpdateNotes, `{"notes":"hot lead"}`)
	require.NoError(t, err)
	assert.Equal(t, "hot lead", *res.Prospect.Notes)

	res, err = run(prospect.ActionAssign, `{"userId":"`+user.String()+`"}`)
	require.NoError(t, err)
	assert.Equal(t, user, *res.Prospect.AssignedTo)

	_, err = run(prospect.ActionSetStatus, `{"status":"won"}`)
	assert.ErrorIs(t, err, prospect.ErrInvalidStatus)

	_, err = run(prospect.ActionSetStatus, `not json`)
	assert.ErrorIs(t, err, prospect.ErrInvalidPayload)

	_, err = run(prospect.ActionUpdateNotes, "")
	assert.ErrorIs(t, err, prospect.ErrInvalidPayload)

	_, err = run("archive", `{}`)
	assert.ErrorIs(t, err, prospect.ErrUnknownAction)

	res, err = run(prospect.ActionDelete, "")
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Nil(t, res.Prospect)

	assert.Equal(t, []prospect.Action{
		prospect.ActionAssign,
		prospect.ActionDelete,
		prospect.ActionSetStatus,
		prospect.ActionUpdateChannel,
		prospect.ActionUpdateNotes,
	}, d.Actions())
}
