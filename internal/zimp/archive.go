package zimp

import (
	"context"
	"io"
)

// Visitor receives archive walk events in depth-first, pre-order.
// EnterDirectory and ExitDirectory calls are strictly nested; the files of a
// directory are visited between them. Returning an error aborts the walk.
type Visitor interface {
	EnterDirectory(path string) error
	VisitFile(path string, size int64) error
	ExitDirectory(path string) error
}

// ArchiveFS gives random access to the files of an open archive.
type ArchiveFS interface {
	// Open opens the file at the given archive-internal path (as reported to
	// Visitor.VisitFile).
	Open(path string) (io.ReadCloser, error)
}

// ArchiveReader is the archive-read capability the importer consumes.
type ArchiveReader interface {
	// Walk traverses the archive at archivePath. The archive's implicit root
	// is never reported. Entries keep the archive's native order.
	Walk(ctx context.Context, archivePath string, v Visitor) error

	// WithFS opens the archive, calls fn with a view of its contents and
	// closes it again before returning.
	WithFS(ctx context.Context, archivePath string, fn func(fsys ArchiveFS) error) error
}
