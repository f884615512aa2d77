package importer

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/prospector/internal/prospect"
)

var (
	// ErrNothingToImport means the file had fewer than two non-blank lines.
	ErrNothingToImport = errors.New("nothing to import: the file needs a header and at least one data row")
	// ErrNoValidRows means no row had a first name.
	ErrNoValidRows = errors.New("no valid rows: every row is missing a first name")

	ErrNoActiveTeam     = prospect.ErrNoActiveTeam
	ErrImportInProgress = errors.New("another import is already running for this workspace")
	ErrTooManyImports   = errors.New("too many concurrent imports")
	ErrFileTooLarge     = errors.New("file too large")
)

// ParseError reports a file that produced nothing to write. Nothing was
// persisted. Report is set when parsing got far enough to count rows.
type ParseError struct {
	FileName string
	Err      error
	Report   *Report
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError reports a failed chunk write. Chunks before Chunk were
// committed and stay committed; Partial describes them.
type PersistenceError struct {
	// Chunk is the zero-based index of the chunk that failed.
	Chunk   int
	Err     error
	Partial *Report
}

func (e *PersistenceError) Error() string {
	imported := 0
	if e.Partial != nil {
		imported = e.Partial.Imported
	}
	return fmt.Sprintf("write chunk %d (%d records already imported): %v", e.Chunk, imported, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
