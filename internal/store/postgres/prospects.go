package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/prospector/internal/prospect"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// prospectColumns is the column order shared by inserts, updates and scans.
var prospectColumns = []string{
	"id", "first_name", "last_name", "email", "phone", "linkedin_url",
	"company", "job_title", "sector", "city", "company_size", "notes",
	"status", "source",
	"email_contacted", "email_contacted_at", "email_replied", "email_replied_at", "email_notes",
	"dm_contacted", "dm_contacted_at", "dm_replied", "dm_replied_at", "dm_notes",
	"call_done", "call_done_at", "call_notes", "call_result",
	"assigned_to", "owner_user_id", "owner_team_id", "created_at", "updated_at",
}

var (
	selectProspectSQL = "SELECT " + strings.Join(prospectColumns, ", ") + " FROM prospects"
	insertProspectSQL = buildInsert("prospects", prospectColumns)
	updateProspectSQL = buildUpdate("prospects", prospectColumns)
)

func buildInsert(table string, cols []string) string {
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// buildUpdate sets every column but the first from the same argument list
// used for inserts. The first column is the key; created_at is immutable.
func buildUpdate(table string, cols []string) string {
	var sets []string
	for i, c := range cols {
		if i == 0 || c == "created_at" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = $1", table, strings.Join(sets, ", "), cols[0])
}

func prospectValues(p prospect.Prospect) []any {
	return []any{
		toPgUUID(p.ID), p.FirstName, toPgText(p.LastName), toPgText(p.Email), toPgText(p.Phone), toPgText(p.LinkedInURL),
		toPgText(p.Company), toPgText(p.JobTitle), toPgText(p.Sector), toPgText(p.City), toPgText(p.CompanySize), toPgText(p.Notes),
		string(p.Status), string(p.Source),
		p.EmailChannel.Done, toPgTime(p.EmailChannel.At), p.EmailChannel.Replied, toPgTime(p.EmailChannel.RepliedAt), toPgText(p.EmailChannel.Notes),
		p.DMChannel.Done, toPgTime(p.DMChannel.At), p.DMChannel.Replied, toPgTime(p.DMChannel.RepliedAt), toPgText(p.DMChannel.Notes),
		p.CallChannel.Done, toPgTime(p.CallChannel.At), toPgText(p.CallChannel.Notes), toPgText(p.CallResult),
		toPgUUIDPtr(p.AssignedTo), toPgUUIDPtr(p.OwnerUserID), toPgUUIDPtr(p.OwnerTeamID), p.CreatedAt, p.UpdatedAt,
	}
}

func scanProspect(row pgx.Row) (prospect.Prospect, error) {
	var (
		p                                          prospect.Prospect
		id, assigned, ownerUser, ownerTeam         pgtype.UUID
		lastName, email, phone, linkedin, company  pgtype.Text
		jobTitle, sector, city, size, notes        pgtype.Text
		emailNotes, dmNotes, callNotes, callResult pgtype.Text
		status, source                             string
		emailAt, emailRepliedAt, dmAt, dmRepliedAt pgtype.Timestamptz
		callAt                                     pgtype.Timestamptz
	)

	err := row.Scan(
		&id, &p.FirstName, &lastName, &email, &phone, &linkedin,
		&company, &jobTitle, &sector, &city, &size, &notes,
		&status, &source,
		&p.EmailChannel.Done, &emailAt, &p.EmailChannel.Replied, &emailRepliedAt, &emailNotes,
		&p.DMChannel.Done, &dmAt, &p.DMChannel.Replied, &dmRepliedAt, &dmNotes,
		&p.CallChannel.Done, &callAt, &callNotes, &callResult,
		&assigned, &ownerUser, &ownerTeam, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return prospect.Prospect{}, err
	}

	p.ID = uuid.UUID(id.Bytes)
	p.LastName = fromPgText(lastName)
	p.Email = fromPgText(email)
	p.Phone = fromPgText(phone)
	p.LinkedInURL = fromPgText(linkedin)
	p.Company = fromPgText(company)
	p.JobTitle = fromPgText(jobTitle)
	p.Sector = fromPgText(sector)
	p.City = fromPgText(city)
	p.CompanySize = fromPgText(size)
	p.Notes = fromPgText(notes)
	p.Status = prospect.Status(status)
	p.Source = prospect.Source(source)
	p.EmailChannel.At = fromPgTime(emailAt)
	p.EmailChannel.RepliedAt = fromPgTime(emailRepliedAt)
	p.EmailChannel.Notes = fromPgText(emailNotes)
	p.DMChannel.At = fromPgTime(dmAt)
	p.DMChannel.RepliedAt = fromPgTime(dmRepliedAt)
	p.DMChannel.Notes = fromPgText(dmNotes)
	p.CallChannel.At = fromPgTime(callAt)
	p.CallChannel.Notes = fromPgText(callNotes)
	p.CallResult = fromPgText(callResult)
	p.AssignedTo = fromPgUUID(assigned)
	p.OwnerUserID = fromPgUUID(ownerUser)
	p.OwnerTeamID = fromPgUUID(ownerTeam)
	return p, nil
}

// scopeFilter returns the WHERE clause selecting rows owned by scope.
func scopeFilter(scope prospect.Scope) string {
	if scope.Kind == prospect.ScopeTeam {
		return "owner_team_id = $1"
	}
	return "owner_user_id = $1"
}

// ExistingEmails returns every non-null email stored in scope, lower-cased.
func (s *Store) ExistingEmails(ctx context.Context, scope prospect.Scope) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT lower(email) FROM prospects WHERE "+scopeFilter(scope)+" AND email IS NOT NULL",
		toPgUUID(scope.ID))
	if err != nil {
		return nil, fmt.Errorf("query emails: %w", err)
	}
	emails, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan emails: %w", err)
	}
	return emails, nil
}

// InsertProspects copies one chunk and its created activities inside a
// transaction so that either every record is written or none is.
func (s *Store) InsertProspects(ctx context.Context, scope prospect.Scope, records []prospect.Prospect) error {
	rows := make([][]any, len(records))
	history := make([][]any, len(records))
	for i, p := range records {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if got, _ := p.Scope(); got != scope {
			return fmt.Errorf("record %d: %w: scope %s does not match %s", i, prospect.ErrOwnership, got, scope)
		}
		rows[i] = prospectValues(p)
		a := prospect.CreatedActivity(p)
		history[i] = []any{toPgUUID(a.ID), toPgUUID(a.ProspectID), string(a.Type), a.Description, a.CreatedAt}
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"prospects"}, prospectColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return mapError(err, nil)
		}
		if int(n) != len(records) {
			return fmt.Errorf("copied %d of %d records", n, len(records))
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"prospect_activities"}, activityColumns, pgx.CopyFromRows(history)); err != nil {
			return fmt.Errorf("copy activities: %w", err)
		}
		return nil
	})
}

// InsertProspect stores a prospect and its creation activity.
func (s *Store) InsertProspect(ctx context.Context, p prospect.Prospect, a prospect.Activity) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertProspectSQL, prospectValues(p)...); err != nil {
			return mapError(err, nil)
		}
		return insertActivity(ctx, tx, a)
	})
}

// UpdateProspect rewrites a prospect and appends its activity.
func (s *Store) UpdateProspect(ctx context.Context, p prospect.Prospect, a prospect.Activity) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateProspectSQL, prospectValues(p)...)
		if err != nil {
			return mapError(err, nil)
		}
		if tag.RowsAffected() == 0 {
			return prospect.ErrNotFound
		}
		return insertActivity(ctx, tx, a)
	})
}

// GetProspect returns a prospect by id.
func (s *Store) GetProspect(ctx context.Context, id uuid.UUID) (prospect.Prospect, error) {
	p, err := scanProspect(s.pool.QueryRow(ctx, selectProspectSQL+" WHERE id = $1", toPgUUID(id)))
	if err != nil {
		return prospect.Prospect{}, mapError(err, prospect.ErrNotFound)
	}
	return p, nil
}

// ListProspects returns every prospect in scope, oldest first.
func (s *Store) ListProspects(ctx context.Context, scope prospect.Scope) ([]prospect.Prospect, error) {
	rows, err := s.pool.Query(ctx,
		selectProspectSQL+" WHERE "+scopeFilter(scope)+" ORDER BY created_at, first_name",
		toPgUUID(scope.ID))
	if err != nil {
		return nil, fmt.Errorf("query prospects: %w", err)
	}
	defer rows.Close()

	var out []prospect.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prospect: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProspect removes a prospect. Activities go with it through the
// foreign key cascade.
func (s *Store) DeleteProspect(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM prospects WHERE id = $1", toPgUUID(id))
	if err != nil {
		return fmt.Errorf("delete prospect: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return prospect.ErrNotFound
	}
	return nil
}

var activityColumns = []string{"id", "prospect_id", "type", "description", "created_at"}

func insertActivity(ctx context.Context, db DBTX, a prospect.Activity) error {
	_, err := db.Exec(ctx,
		"INSERT INTO prospect_activities (id, prospect_id, type, description, created_at) VALUES ($1, $2, $3, $4, $5)",
		toPgUUID(a.ID), toPgUUID(a.ProspectID), string(a.Type), a.Description, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListActivities returns a prospect's history, oldest first.
func (s *Store) ListActivities(ctx context.Context, prospectID uuid.UUID) ([]prospect.Activity, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, prospect_id, type, description, created_at FROM prospect_activities WHERE prospect_id = $1 ORDER BY seq",
		toPgUUID(prospectID))
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (prospect.Activity, error) {
		var (
			a        prospect.Activity
			id, pid  pgtype.UUID
			activity string
		)
		if err := row.Scan(&id, &pid, &activity, &a.Description, &a.CreatedAt); err != nil {
			return prospect.Activity{}, err
		}
		a.ID = uuid.UUID(id.Bytes)
		a.ProspectID = uuid.UUID(pid.Bytes)
		a.Type = prospect.ActivityType(activity)
		return a, nil
	})
}
