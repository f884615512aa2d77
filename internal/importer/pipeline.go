package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/prospector/internal/prospect"
	"github.com/google/uuid"
)

// Store is the persistence the pipeline needs.
type Store interface {
	// ExistingEmails returns every non-null email stored in scope.
	ExistingEmails(ctx context.Context, scope prospect.Scope) ([]string, error)
	// InsertProspects writes one chunk atomically.
	InsertProspects(ctx context.Context, scope prospect.Scope, records []prospect.Prospect) error
}

// Pipeline holds the tunables of one import pass. The zero value uses the
// default aliases, DefaultChunkSize and the default logger.
type Pipeline struct {
	ImportID  string
	Aliases   AliasDictionary
	ChunkSize int
	Logger    *slog.Logger
}

// Run imports text with a zero Pipeline.
func Run(ctx context.Context, store Store, sess prospect.Session, fileName, text string) (*Report, error) {
	return Pipeline{}.Run(ctx, store, sess, fileName, text)
}

// Run executes one sequential import pass: tokenize, map columns, then for
// each row normalize, deduplicate and assign ownership, and finally write
// the surviving records in chunks.
//
// Files with nothing usable return a *ParseError and write nothing. A
// failed chunk returns a *PersistenceError whose Partial report counts the
// records committed before it.
//
// Run trusts the session's scope. Service.Import checks team membership
// before calling it.
func (pl Pipeline) Run(ctx context.Context, store Store, sess prospect.Session, fileName, text string) (*Report, error) {
	log := pl.Logger
	if log == nil {
		log = slog.Default()
	}
	aliases := pl.Aliases
	if aliases == nil {
		aliases = DefaultAliases()
	}

	scope, err := sess.Scope()
	if err != nil {
		return nil, err
	}

	table := Tokenize(text)
	if table.Empty() {
		return nil, &ParseError{FileName: fileName, Err: ErrNothingToImport}
	}

	mapping := MapColumns(table.Headers, aliases)
	for _, a := range mapping.Ambiguities() {
		log.Warn("ambiguous column mapping", "kind", a.Kind, "detail", a.String())
	}

	report := &Report{
		ImportID:      pl.ImportID,
		FileName:      fileName,
		TotalRows:     len(table.Rows),
		ColumnsMapped: mapping.Count(),
		MalformedRows: table.Malformed,
		Mapping:       mapping.Columns(),
		Ambiguities:   mapping.Ambiguities(),
	}

	existing, err := store.ExistingEmails(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load existing emails: %w", err)
	}
	emails := NewEmailSet(existing)

	now := sess.Clock()
	accepted := 0
	records := make([]prospect.Prospect, 0, len(table.Rows))
	for _, row := range table.Rows {
		p, ok := NormalizeRow(row, mapping, now)
		if !ok {
			report.SkippedNoName++
			continue
		}
		accepted++
		if !emails.Admit(p.Email) {
			report.DuplicatesSkipped++
			continue
		}

		ResolveOwnership(&p, scope)
		p.ID = uuid.New()
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("build record: %w", err)
		}
		records = append(records, p)
	}

	if accepted == 0 {
		return nil, &ParseError{FileName: fileName, Err: ErrNoValidRows, Report: report}
	}

	log.Debug("writing prospects",
		"records", len(records),
		"duplicates", report.DuplicatesSkipped,
		"skipped_no_name", report.SkippedNoName,
	)

	written, err := WriteChunks(ctx, store, scope, records, pl.ChunkSize)
	report.Imported = written
	if err != nil {
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			perr = &PersistenceError{Err: err}
		}
		perr.Partial = report
		return nil, perr
	}

	return report, nil
}
