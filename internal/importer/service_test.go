package importer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/prospector/internal/events"
	"github.com/JonMunkholm/prospector/internal/lock"
	"github.com/JonMunkholm/prospector/internal/prospect"
	"github.com/JonMunkholm/prospector/internal/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ImportCompleted
}

func (p *recordingPublisher) PublishImportCompleted(_ context.Context, ev events.ImportCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) sent() []events.ImportCompleted {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.ImportCompleted(nil), p.events...)
}

// noMembers refuses every team. Solo imports never consult it.
type noMembers struct{}

func (noMembers) IsActiveMember(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

func newRedisLocker(t *testing.T) *lock.Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return lock.NewRedis(client, "")
}

func TestService_Import(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	svc := NewService(store, noMembers{}, Config{MaxFileSize: 1 << 20}, WithPublisher(pub), WithLocker(newRedisLocker(t)))
	user := uuid.New()

	report, err := svc.Import(context.Background(), soloSession(user), "leads.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 4, report.Imported)
	assert.NotEmpty(t, report.ImportID)

	sent := pub.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, report.ImportID, sent[0].ImportID)
	assert.Equal(t, "user:"+user.String(), sent[0].Scope)
	assert.Equal(t, 4, sent[0].Imported)
	assert.False(t, sent[0].Partial)
	assert.Equal(t, fixedNow, sent[0].CompletedAt)

	// The lock is released: a second import of the same file runs. Rows
	// with an email are now duplicates, rows without one are imported again.
	again, err := svc.Import(context.Background(), soloSession(user), "leads.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, again.Imported)
	assert.Equal(t, 3, again.DuplicatesSkipped)
}

func TestService_ImportInProgress(t *testing.T) {
	locker := newRedisLocker(t)
	svc := NewService(memory.New(), noMembers{}, Config{}, WithLocker(locker))
	user := uuid.New()

	held, err := locker.Acquire(context.Background(), "import:user:"+user.String(), time.Minute)
	require.NoError(t, err)
	defer held.Release(context.Background())

	_, err = svc.Import(context.Background(), soloSession(user), "x.csv", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, ErrImportInProgress)

	// Another workspace is not blocked.
	_, err = svc.Import(context.Background(), soloSession(uuid.New()), "x.csv", strings.NewReader(sampleCSV))
	assert.NoError(t, err)
}

func TestService_FileTooLarge(t *testing.T) {
	store := memory.New()
	svc := NewService(store, noMembers{}, Config{MaxFileSize: 16})
	user := uuid.New()

	_, err := svc.Import(context.Background(), soloSession(user), "x.csv", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	stored, _ := store.ListProspects(context.Background(), prospect.UserScope(user))
	assert.Empty(t, stored)
}

func TestService_TooManyImports(t *testing.T) {
	svc := NewService(memory.New(), noMembers{}, Config{MaxConcurrent: 1, MaxWaitTime: 20 * time.Millisecond})
	require.True(t, svc.limiter.TryAcquire())
	defer svc.limiter.Release()

	_, err := svc.Import(context.Background(), soloSession(uuid.New()), "x.csv", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, ErrTooManyImports)
	assert.Equal(t, 1, svc.LimiterStatus().Active)
}

func TestService_ParseErrorSendsNoEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(memory.New(), noMembers{}, Config{}, WithPublisher(pub))

	_, err := svc.Import(context.Background(), soloSession(uuid.New()), "x.csv", strings.NewReader("prenom\n"))
	assert.ErrorIs(t, err, ErrNothingToImport)
	assert.Empty(t, pub.sent())
}

func TestService_PartialFailurePublishes(t *testing.T) {
	pub := &recordingPublisher{}
	store := &flakyStore{Store: memory.New(), failOn: 2}
	svc := NewService(store, noMembers{}, Config{ChunkSize: 10}, WithPublisher(pub))

	_, err := svc.Import(context.Background(), soloSession(uuid.New()), "x.csv", strings.NewReader(bigCSV(35)))
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 20, perr.Partial.Imported)

	sent := pub.sent()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].Partial)
	assert.Equal(t, 20, sent[0].Imported)
}

func TestService_FirstChunkFailureSendsNoEvent(t *testing.T) {
	pub := &recordingPublisher{}
	store := &flakyStore{Store: memory.New(), failOn: 0}
	svc := NewService(store, noMembers{}, Config{}, WithPublisher(pub))

	_, err := svc.Import(context.Background(), soloSession(uuid.New()), "x.csv", strings.NewReader(sampleCSV))
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Zero(t, perr.Partial.Imported)
	assert.Empty(t, pub.sent())
}

func TestService_NoActiveTeam(t *testing.T) {
	sess := soloSession(uuid.New())
	sess.Mode = prospect.WorkModeTeam

	_, err := NewService(memory.New(), noMembers{}, Config{}).Import(context.Background(), sess, "x.csv", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, ErrNoActiveTeam)
}

func TestService_TeamImportRequiresMembership(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	teams := prospect.NewService(store)
	svc := NewService(store, teams, Config{})

	owner, outsider := uuid.New(), uuid.New()
	team, err := teams.CreateTeam(ctx, soloSession(owner), "Sales", prospect.AllChannels())
	require.NoError(t, err)

	_, err = svc.Import(ctx, teamSession(owner, team.ID), "x.csv", strings.NewReader("prenom,email\nJean,ceo@target.com\n"))
	require.NoError(t, err)

	tests := []struct {
		name string
		sess prospect.Session
	}{
		{"outsider", teamSession(outsider, team.ID)},
		{"unknown team", teamSession(outsider, uuid.New())},
		{"owner of another team id", teamSession(owner, uuid.New())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := svc.Import(ctx, tt.sess, "x.csv", strings.NewReader("prenom,email\nA,ceo@target.com\nB,b@evil.com\n"))
			assert.ErrorIs(t, err, prospect.ErrNotTeamMember)
			assert.Nil(t, report, "no duplicate counts leak to a non-member")
		})
	}

	stored, err := store.ListProspects(ctx, prospect.TeamScope(team.ID))
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestService_TeamImportByInvitedMember(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	teams := prospect.NewService(store)
	svc := NewService(store, teams, Config{})

	owner, bob := uuid.New(), uuid.New()
	team, err := teams.CreateTeam(ctx, soloSession(owner), "Sales", prospect.AllChannels())
	require.NoError(t, err)
	inv, err := teams.InviteMember(ctx, soloSession(owner), team.ID, "bob@acme.fr", prospect.RoleMember)
	require.NoError(t, err)

	bobSess := teamSession(bob, team.ID)
	bobSess.UserEmail = "bob@acme.fr"

	// Pending invitations do not grant access.
	_, err = svc.Import(ctx, bobSess, "x.csv", strings.NewReader("prenom\nJean\n"))
	assert.ErrorIs(t, err, prospect.ErrNotTeamMember)

	solo := bobSess
	solo.Mode = prospect.WorkModeSolo
	solo.TeamID = uuid.Nil
	_, err = teams.AcceptInvitation(ctx, solo, inv.ID)
	require.NoError(t, err)

	report, err := svc.Import(ctx, bobSess, "x.csv", strings.NewReader("prenom\nJean\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
}

// countingLocker hands out leases that count renewals.
type countingLocker struct {
	mu      sync.Mutex
	extends int
}

func (l *countingLocker) Acquire(context.Context, string, time.Duration) (lock.Lease, error) {
	return countingLease{l}, nil
}

func (l *countingLocker) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.extends
}

type countingLease struct{ l *countingLocker }

func (countingLease) Release(context.Context) error { return nil }

func (c countingLease) Extend(context.Context, time.Duration) error {
	c.l.mu.Lock()
	defer c.l.mu.Unlock()
	c.l.extends++
	return nil
}

func TestService_RenewsLockDuringLongImport(t *testing.T) {
	locker := &countingLocker{}
	store := &flakyStore{Store: memory.New(), failOn: -1}
	store.afterInsert = func(int) { time.Sleep(40 * time.Millisecond) }
	svc := NewService(store, noMembers{}, Config{ChunkSize: 1, LockTTL: 30 * time.Millisecond}, WithLocker(locker))

	report, err := svc.Import(context.Background(), soloSession(uuid.New()), "x.csv", strings.NewReader(bigCSV(3)))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Imported)
	assert.Positive(t, locker.count(), "lease extended while chunks were written")
}
