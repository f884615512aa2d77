package postgres

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/prospector/internal/prospect"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const memberColumns = "id, team_id, user_id, invited_email, role, invitation_status, joined_at, created_at"

// InsertTeam stores a team together with its owner membership.
func (s *Store) InsertTeam(ctx context.Context, t prospect.Team, owner prospect.Member) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO teams (id, owner_id, name, email_enabled, dm_enabled, call_enabled, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			toPgUUID(t.ID), toPgUUID(t.OwnerID), t.Name,
			t.EnabledChannels.Email, t.EnabledChannels.DM, t.EnabledChannels.Call, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert team: %w", err)
		}
		return insertMember(ctx, tx, owner)
	})
}

// GetTeam returns a team by id.
func (s *Store) GetTeam(ctx context.Context, id uuid.UUID) (prospect.Team, error) {
	var (
		t          prospect.Team
		tid, owner pgtype.UUID
	)
	err := s.pool.QueryRow(ctx,
		"SELECT id, owner_id, name, email_enabled, dm_enabled, call_enabled, created_at FROM teams WHERE id = $1",
		toPgUUID(id),
	).Scan(&tid, &owner, &t.Name, &t.EnabledChannels.Email, &t.EnabledChannels.DM, &t.EnabledChannels.Call, &t.CreatedAt)
	if err != nil {
		return prospect.Team{}, mapError(err, prospect.ErrTeamNotFound)
	}
	t.ID = uuid.UUID(tid.Bytes)
	t.OwnerID = uuid.UUID(owner.Bytes)
	return t, nil
}

// InsertMember adds a roster row.
func (s *Store) InsertMember(ctx context.Context, m prospect.Member) error {
	return insertMember(ctx, s.pool, m)
}

func insertMember(ctx context.Context, db DBTX, m prospect.Member) error {
	_, err := db.Exec(ctx,
		"INSERT INTO team_members ("+memberColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		toPgUUID(m.ID), toPgUUID(m.TeamID), toPgUUIDPtr(m.UserID), m.InvitedEmail,
		string(m.Role), string(m.InvitationStatus), toPgTime(m.JoinedAt), m.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return prospect.ErrTeamNotFound
		}
		return fmt.Errorf("insert member: %w", mapError(err, nil))
	}
	return nil
}

// UpdateMember rewrites the mutable parts of a roster row.
func (s *Store) UpdateMember(ctx context.Context, m prospect.Member) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE team_members
		 SET user_id = $2, role = $3, invitation_status = $4, joined_at = $5
		 WHERE id = $1`,
		toPgUUID(m.ID), toPgUUIDPtr(m.UserID), string(m.Role), string(m.InvitationStatus), toPgTime(m.JoinedAt))
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return prospect.ErrMemberNotFound
	}
	return nil
}

// GetMember returns a roster row by id.
func (s *Store) GetMember(ctx context.Context, id uuid.UUID) (prospect.Member, error) {
	m, err := scanMember(s.pool.QueryRow(ctx, "SELECT "+memberColumns+" FROM team_members WHERE id = $1", toPgUUID(id)))
	if err != nil {
		return prospect.Member{}, mapError(err, prospect.ErrMemberNotFound)
	}
	return m, nil
}

// ListMembers returns a team's roster ordered by creation time.
func (s *Store) ListMembers(ctx context.Context, teamID uuid.UUID) ([]prospect.Member, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+memberColumns+" FROM team_members WHERE team_id = $1 ORDER BY created_at, invited_email",
		toPgUUID(teamID))
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (prospect.Member, error) {
		return scanMember(row)
	})
}

func scanMember(row pgx.Row) (prospect.Member, error) {
	var (
		m                  prospect.Member
		id, teamID, userID pgtype.UUID
		role, status       string
		joinedAt           pgtype.Timestamptz
	)
	if err := row.Scan(&id, &teamID, &userID, &m.InvitedEmail, &role, &status, &joinedAt, &m.CreatedAt); err != nil {
		return prospect.Member{}, err
	}
	m.ID = uuid.UUID(id.Bytes)
	m.TeamID = uuid.UUID(teamID.Bytes)
	m.UserID = fromPgUUID(userID)
	m.Role = prospect.Role(role)
	m.InvitationStatus = prospect.InvitationStatus(status)
	m.JoinedAt = fromPgTime(joinedAt)
	return m, nil
}
