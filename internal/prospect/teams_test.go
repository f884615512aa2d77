package prospect_test

import (
	"context"
	"testing"

	"github.com/JonMunkholm/prospector/internal/prospect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTeam(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := uuid.New()

	team, err := f.svc.CreateTeam(ctx, f.solo(owner, "Owner@Acme.fr"), "  Sales ", prospect.AllChannels())
	require.NoError(t, err)
	assert.Equal(t, "Sales", team.Name)
	assert.Equal(t, owner, team.OwnerID)

	members, err := f.svc.ListMembers(ctx, f.solo(owner, ""), team.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, prospect.RoleOwner, members[0].Role)
	assert.True(t, members[0].Active())
	assert.Equal(t, "owner@acme.fr", members[0].InvitedEmail)

	_, err = f.svc.CreateTeam(ctx, f.solo(owner, ""), " ", prospect.AllChannels())
	assert.ErrorIs(t, err, prospect.ErrTeamNameRequired)

	_, err = f.svc.CreateTeam(ctx, prospect.Session{}, "Sales", prospect.AllChannels())
	assert.ErrorIs(t, err, prospect.ErrNoUser)
}

func TestInvitationLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner, invitee := uuid.New(), uuid.New()
	ownerSess := f.solo(owner, "owner@acme.fr")

	team, err := f.svc.CreateTeam(ctx, ownerSess, "Sales", prospect.AllChannels())
	require.NoError(t, err)

	inv, err := f.svc.InviteMember(ctx, ownerSess, team.ID, " Invitee@Acme.fr ", prospect.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "invitee@acme.fr", inv.InvitedEmail)
	assert.Equal(t, prospect.InvitationPending, inv.InvitationStatus)
	assert.Nil(t, inv.UserID)

	_, err = f.svc.InviteMember(ctx, ownerSess, team.ID, "INVITEE@acme.fr", prospect.RoleMember)
	assert.ErrorIs(t, err, prospect.ErrAlreadyInvited)

	ok, err := f.svc.IsActiveMember(ctx, team.ID, invitee)
	require.NoError(t, err)
	assert.False(t, ok, "pending invitations grant nothing")

	_, err = f.svc.AcceptInvitation(ctx, f.solo(invitee, "someone@else.fr"), inv.ID)
	assert.ErrorIs(t, err, prospect.ErrInvitationEmailMismatch)

	accepted, err := f.svc.AcceptInvitation(ctx, f.solo(invitee, "invitee@acme.fr"), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, prospect.InvitationAccepted, accepted.InvitationStatus)
	require.NotNil(t, accepted.UserID)
	assert.Equal(t, invitee, *accepted.UserID)
	assert.Equal(t, f.clock.now, *accepted.JoinedAt)

	ok, err = f.svc.IsActiveMember(ctx, team.ID, invitee)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.svc.AcceptInvitation(ctx, f.solo(invitee, "invitee@acme.fr"), inv.ID)
	assert.ErrorIs(t, err, prospect.ErrInvitationNotPending)

	// Admins may invite as well.
	_, err = f.svc.InviteMember(ctx, f.solo(invitee, "invitee@acme.fr"), team.ID, "third@acme.fr", prospect.RoleMember)
	assert.NoError(t, err)
}

func TestRejectAndReinvite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner, invitee := uuid.New(), uuid.New()
	ownerSess := f.solo(owner, "owner@acme.fr")

	team, err := f.svc.CreateTeam(ctx, ownerSess, "Sales", prospect.AllChannels())
	require.NoError(t, err)
	inv, err := f.svc.InviteMember(ctx, ownerSess, team.ID, "invitee@acme.fr", prospect.RoleMember)
	require.NoError(t, err)

	rejected, err := f.svc.RejectInvitation(ctx, f.solo(invitee, "invitee@acme.fr"), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, prospect.InvitationRejected, rejected.InvitationStatus)

	again, err := f.svc.InviteMember(ctx, ownerSess, team.ID, "invitee@acme.fr", prospect.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, again.ID, "rejected row is reopened")
	assert.Equal(t, prospect.InvitationPending, again.InvitationStatus)
	assert.Equal(t, prospect.RoleAdmin, again.Role)

	members, err := f.svc.ListMembers(ctx, ownerSess, team.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestInviteMember_Permissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner, member, outsider := uuid.New(), uuid.New(), uuid.New()
	ownerSess := f.solo(owner, "owner@acme.fr")

	team, err := f.svc.CreateTeam(ctx, ownerSess, "Sales", prospect.AllChannels())
	require.NoError(t, err)
	inv, err := f.svc.InviteMember(ctx, ownerSess, team.ID, "member@acme.fr", prospect.RoleMember)
	require.NoError(t, err)
	_, err = f.svc.AcceptInvitation(ctx, f.solo(member, "member@acme.fr"), inv.ID)
	require.NoError(t, err)

	_, err = f.svc.InviteMember(ctx, f.solo(member, "member@acme.fr"), team.ID, "x@acme.fr", prospect.RoleMember)
	assert.ErrorIs(t, err, prospect.ErrForbidden)

	_, err = f.svc.InviteMember(ctx, f.solo(outsider, "o@x.fr"), team.ID, "x@acme.fr", prospect.RoleMember)
	assert.ErrorIs(t, err, prospect.ErrNotTeamMember)

	_, err = f.svc.InviteMember(ctx, ownerSess, team.ID, "x@acme.fr", prospect.RoleOwner)
	assert.ErrorIs(t, err, prospect.ErrInvalidRole)

	_, err = f.svc.InviteMember(ctx, ownerSess, team.ID, "  ", prospect.RoleMember)
	assert.ErrorIs(t, err, prospect.ErrInvitationEmailRequired)

	_, err = f.svc.ListMembers(ctx, f.solo(outsider, ""), team.ID)
	assert.ErrorIs(t, err, prospect.ErrNotTeamMember)

	_, err = f.svc.ListMembers(ctx, ownerSess, uuid.New())
	assert.ErrorIs(t, err, prospect.ErrTeamNotFound)
}
