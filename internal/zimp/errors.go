package zimp

import "errors"

// Error kinds produced by the import pipeline. Returned errors wrap one of
// these, so callers classify failures with errors.Is.
var (
	// ErrUpload means the incoming stream could not be staged. No context exists.
	ErrUpload = errors.New("upload failed")

	// ErrArchiveRead means the archive could not be opened or walked.
	// The import is aborted and no partial graph is kept.
	ErrArchiveRead = errors.New("archive read failed")

	// ErrExtraction means an archived file could not be copied to scratch space.
	// The whole extraction stage is aborted on the first failure.
	ErrExtraction = errors.New("extraction failed")

	// ErrPersistence marks a single file that the vault refused. It never
	// fails the import; it only appears inside ImportError entries.
	ErrPersistence = errors.New("write failed")

	// ErrBulkWrite means the document store rejected the final bulk insert.
	ErrBulkWrite = errors.New("bulk write failed")
)

// ImportError describes one file that was excluded from the import.
type ImportError struct {
	Path       string `json:"path"`
	DocumentID string `json:"documentId,omitempty"`
	Message    string `json:"message"`
	Detail     string `json:"details"`
}
