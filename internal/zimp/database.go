package zimp

import (
	"context"
	"database/sql"
	"time"
)

// DocumentStore receives the records of a finished import.
type DocumentStore interface {
	// ImportRecords writes all records to the named collection in a single
	// request. Either every record is written or an error is returned.
	ImportRecords(ctx context.Context, collection string, records []*Record) error
}

// ImportOperation is one recorded run of the importer.
type ImportOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	Saved      int
	Failed     int
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// Database is the document store plus the queries the CLI needs around it.
type Database interface {
	DocumentStore

	// FindRecord returns the record with the given id, or nil if there is none.
	FindRecord(ctx context.Context, id string) (*Record, error)

	// ListRecords returns every record owned by ownerID, folders first.
	ListRecords(ctx context.Context, ownerID string) ([]*Record, error)

	// CreateImportOperation records the start of an import.
	CreateImportOperation(ctx context.Context, operation string, parameters string) (*ImportOperation, error)

	// FinishImportOperation records the outcome of an import.
	FinishImportOperation(ctx context.Context, id int64, status string, saved int, failed int) error

	// ListImportOperations returns the most recent operations, newest first.
	ListImportOperations(ctx context.Context, limit int) ([]*ImportOperation, error)

	// CheckMigrations verifies the schema is up to date.
	CheckMigrations() error

	// Close closes the database connection.
	Close() error
}
