// Package importer turns an uploaded CSV/TSV-like file into prospects.
//
// The package holds only ingestion logic and knows nothing of HTTP. A
// pass is strictly sequential:
//
//  1. [ReadText] decodes the upload (BOM stripping, Windows-1252 fallback).
//  2. [Tokenize] splits lines and fields, choosing ';' or ',' with
//     [DetectDelimiter] and dropping rows whose width differs from the header.
//  3. [MapColumns] binds headers to [CanonicalField]s through the
//     [AliasDictionary]; first match wins and conflicts are reported.
//  4. [NormalizeRow] builds a draft per row and rejects rows without a
//     first name.
//  5. [EmailSet] drops rows whose email already exists in the workspace or
//     appeared earlier in the file.
//  6. [ResolveOwnership] assigns the record to the user or the active team.
//  7. [WriteChunks] inserts the survivors in fixed-size chunks, stopping at
//     the first failure. Earlier chunks stay committed.
//  8. A [Report] summarizes the pass.
//
// [Service.Import] wraps a pass with the upload size limit, a concurrency
// [Limiter], a per-workspace lock, Prometheus metrics and the
// import.completed event.
//
// # Errors
//
// A file with nothing usable yields a [*ParseError] wrapping
// [ErrNothingToImport] or [ErrNoValidRows]; nothing is written. A failed
// chunk yields a [*PersistenceError] carrying the partial [Report].
package importer
