package testutil

import (
	"context"
	"sync"
	"testing"

	"zimp-go/internal/database"
	"zimp-go/internal/zimp"
)

// NewTestDatabase creates a new in-memory SQLite database with the schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	return db
}

// RecordingDocumentStore remembers every ImportRecords call.
// Set Err to make the calls fail.
type RecordingDocumentStore struct {
	Err error

	mu         sync.Mutex
	calls      int
	collection string
	records    []*zimp.Record
}

var _ zimp.DocumentStore = (*RecordingDocumentStore)(nil)

func (s *RecordingDocumentStore) ImportRecords(_ context.Context, collection string, records []*zimp.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return s.Err
	}
	s.collection = collection
	s.records = append(s.records, records...)
	return nil
}

// Calls returns how many times ImportRecords was called.
func (s *RecordingDocumentStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Collection returns the collection of the last successful call.
func (s *RecordingDocumentStore) Collection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection
}

// Records returns every record written so far.
func (s *RecordingDocumentStore) Records() []*zimp.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*zimp.Record(nil), s.records...)
}
