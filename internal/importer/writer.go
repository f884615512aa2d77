package importer

import (
	"context"

	"github.com/JonMunkholm/prospector/internal/prospect"
)

// DefaultChunkSize is the number of records per insert.
const DefaultChunkSize = 100

// WriteChunks inserts records in consecutive chunks of size, one at a time
// and in order. It stops at the first failure and returns the number of
// records committed by earlier chunks together with a *PersistenceError.
// Context cancellation is checked between chunks.
func WriteChunks(ctx context.Context, store Store, scope prospect.Scope, records []prospect.Prospect, size int) (int, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}

	committed := 0
	for chunk, start := 0, 0; start < len(records); chunk, start = chunk+1, start+size {
		if err := ctx.Err(); err != nil {
			return committed, &PersistenceError{Chunk: chunk, Err: err}
		}
		end := min(start+size, len(records))
		if err := store.InsertProspects(ctx, scope, records[start:end]); err != nil {
			return committed, &PersistenceError{Chunk: chunk, Err: err}
		}
		committed = end
	}
	return committed, nil
}
