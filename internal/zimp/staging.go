package zimp

import (
	"context"
	"io"
)

// StagingStore provides scratch space for archives and their extracted files.
// Every path it hands out is owned by a single ImportContext.
type StagingStore interface {
	// Stage streams r into a new, uniquely named file and returns its path.
	// The stream is pumped through a bounded buffer, never held in memory.
	// On failure the partial file, if one was created, is returned along with
	// the error; removing it is the caller's job.
	Stage(ctx context.Context, r io.Reader) (string, error)

	// MkdirTemp creates a new, uniquely named directory whose name starts
	// with the given prefix.
	MkdirTemp(prefix string) (string, error)

	// Remove deletes path and everything below it.
	// A path that does not exist is not an error.
	Remove(path string) error
}
