// Package memory is an in-process store used in development mode and in
// tests. It enforces the same uniqueness rules as the Postgres schema so
// that behaviour observed against it carries over.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/prospector/internal/prospect"
	"github.com/google/uuid"
)

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	prospects  map[uuid.UUID]prospect.Prospect
	activities map[uuid.UUID][]prospect.Activity
	teams      map[uuid.UUID]prospect.Team
	members    map[uuid.UUID]prospect.Member
	// emails indexes lower-cased email per scope key.
	emails map[string]map[string]uuid.UUID
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		prospects:  make(map[uuid.UUID]prospect.Prospect),
		activities: make(map[uuid.UUID][]prospect.Activity),
		teams:      make(map[uuid.UUID]prospect.Team),
		members:    make(map[uuid.UUID]prospect.Member),
		emails:     make(map[string]map[string]uuid.UUID),
	}
}

// ExistingEmails returns every non-null email already stored in scope.
func (s *Store) ExistingEmails(ctx context.Context, scope prospect.Scope) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.emails[scope.Key()]
	out := make([]string, 0, len(idx))
	for e := range idx {
		out = append(out, e)
	}
	sort.Strings(out)
	return out, nil
}

// InsertProspects stores one chunk atomically: either every record is
// written, each with its created activity, or none is.
func (s *Store) InsertProspects(ctx context.Context, scope prospect.Scope, records []prospect.Prospect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(records))
	for i, p := range records {
		if err := s.checkInsert(scope, p); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if e := p.NormalizedEmail(); e != "" {
			if _, dup := seen[e]; dup {
				return fmt.Errorf("record %d: %w", i, prospect.ErrDuplicateEmail)
			}
			seen[e] = struct{}{}
		}
	}
	for _, p := range records {
		s.put(p)
		s.activities[p.ID] = append(s.activities[p.ID], prospect.CreatedActivity(p))
	}
	return nil
}

func (s *Store) checkInsert(scope prospect.Scope, p prospect.Prospect) error {
	if err := p.Validate(); err != nil {
		return err
	}
	got, err := p.Scope()
	if err != nil {
		return err
	}
	if got != scope {
		return fmt.Errorf("%w: record scope %s does not match %s", prospect.ErrOwnership, got, scope)
	}
	if _, exists := s.prospects[p.ID]; exists {
		return fmt.Errorf("duplicate prospect id %s", p.ID)
	}
	if e := p.NormalizedEmail(); e != "" {
		if _, taken := s.emails[scope.Key()][e]; taken {
			return prospect.ErrDuplicateEmail
		}
	}
	return nil
}

func (s *Store) put(p prospect.Prospect) {
	s.prospects[p.ID] = p
	scope, _ := p.Scope()
	if e := p.NormalizedEmail(); e != "" {
		idx := s.emails[scope.Key()]
		if idx == nil {
			idx = make(map[string]uuid.UUID)
			s.emails[scope.Key()] = idx
		}
		idx[e] = p.ID
	}
}

func (s *Store) unindex(p prospect.Prospect) {
	scope, err := p.Scope()
	if err != nil {
		return
	}
	if e := p.NormalizedEmail(); e != "" {
		delete(s.emails[scope.Key()], e)
	}
}

// InsertProspect stores a single prospect with its creation activity.
func (s *Store) InsertProspect(ctx context.Context, p prospect.Prospect, a prospect.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	scope, err := p.Scope()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInsert(scope, p); err != nil {
		return err
	}
	s.put(p)
	s.activities[p.ID] = append(s.activities[p.ID], a)
	return nil
}

// UpdateProspect replaces a stored prospect and appends its activity.
func (s *Store) UpdateProspect(ctx context.Context, p prospect.Prospect, a prospect.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.prospects[p.ID]
	if !ok {
		return prospect.ErrNotFound
	}
	if e := p.NormalizedEmail(); e != "" && e != old.NormalizedEmail() {
		scope, _ := p.Scope()
		if _, taken := s.emails[scope.Key()][e]; taken {
			return prospect.ErrDuplicateEmail
		}
	}
	s.unindex(old)
	s.put(p)
	s.activities[p.ID] = append(s.activities[p.ID], a)
	return nil
}

// GetProspect returns a prospect by id.
func (s *Store) GetProspect(ctx context.Context, id uuid.UUID) (prospect.Prospect, error) {
	if err := ctx.Err(); err != nil {
		return prospect.Prospect{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prospects[id]
	if !ok {
		return prospect.Prospect{}, prospect.ErrNotFound
	}
	return p, nil
}

// DeleteProspect removes a prospect and its activities.
func (s *Store) DeleteProspect(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prospects[id]
	if !ok {
		return prospect.ErrNotFound
	}
	s.unindex(p)
	delete(s.prospects, id)
	delete(s.activities, id)
	return nil
}

// ListActivities returns a prospect's history, oldest first.
func (s *Store) ListActivities(ctx context.Context, prospectID uuid.UUID) ([]prospect.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.activities[prospectID]
	out := make([]prospect.Activity, len(src))
	copy(out, src)
	return out, nil
}

// ListProspects returns every prospect in scope, oldest first. Used by
// tests and the development console.
func (s *Store) ListProspects(ctx context.Context, scope prospect.Scope) ([]prospect.Prospect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []prospect.Prospect
	for _, p := range s.prospects {
		if got, err := p.Scope(); err == nil && got == scope {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// InsertTeam stores a team together with its owner membership.
func (s *Store) InsertTeam(ctx context.Context, t prospect.Team, owner prospect.Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.teams[t.ID]; exists {
		return fmt.Errorf("duplicate team id %s", t.ID)
	}
	s.teams[t.ID] = t
	s.members[owner.ID] = owner
	return nil
}

// GetTeam returns a team by id.
func (s *Store) GetTeam(ctx context.Context, id uuid.UUID) (prospect.Team, error) {
	if err := ctx.Err(); err != nil {
		return prospect.Team{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teams[id]
	if !ok {
		return prospect.Team{}, prospect.ErrTeamNotFound
	}
	return t, nil
}

// InsertMember adds a roster row. Invited emails are unique per team.
func (s *Store) InsertMember(ctx context.Context, m prospect.Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[m.TeamID]; !ok {
		return prospect.ErrTeamNotFound
	}
	for _, other := range s.members {
		if other.TeamID == m.TeamID && other.InvitedEmail == m.InvitedEmail {
			return prospect.ErrAlreadyInvited
		}
	}
	s.members[m.ID] = m
	return nil
}

// UpdateMember replaces a roster row.
func (s *Store) UpdateMember(ctx context.Context, m prospect.Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[m.ID]; !ok {
		return prospect.ErrMemberNotFound
	}
	s.members[m.ID] = m
	return nil
}

// GetMember returns a roster row by id.
func (s *Store) GetMember(ctx context.Context, id uuid.UUID) (prospect.Member, error) {
	if err := ctx.Err(); err != nil {
		return prospect.Member{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return prospect.Member{}, prospect.ErrMemberNotFound
	}
	return m, nil
}

// ListMembers returns a team's roster ordered by creation time.
func (s *Store) ListMembers(ctx context.Context, teamID uuid.UUID) ([]prospect.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []prospect.Member
	for _, m := range s.members {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].InvitedEmail < out[j].InvitedEmail
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}
