package testutil

import (
	"sync"
	"testing"

	"zimp-go/internal/staging"
	"zimp-go/internal/zimp"
)

// DefaultStagingMaxSize is the default max size for test staging stores (10MB).
const DefaultStagingMaxSize = 10 * 1024 * 1024

// NewTestStagingStore creates a staging store in a temp dir.
func NewTestStagingStore(t *testing.T) *staging.FileSystemStagingStore {
	t.Helper()
	return NewTestStagingStoreWithSize(t, DefaultStagingMaxSize)
}

// NewTestStagingStoreWithSize creates a staging store with a custom max size.
func NewTestStagingStoreWithSize(t *testing.T, maxSize int64) *staging.FileSystemStagingStore {
	t.Helper()
	s, err := staging.NewFileSystemStagingStore(t.TempDir(), maxSize, NewPrefixedIDGenerator("stage"))
	if err != nil {
		t.Fatalf("failed to create staging store: %v", err)
	}
	return s
}

// RecordingStagingStore wraps a staging store, counting Remove calls per
// path and failing removal of chosen paths.
type RecordingStagingStore struct {
	zimp.StagingStore

	mu       sync.Mutex
	removes  map[string]int
	failures map[string]error
}

var _ zimp.StagingStore = (*RecordingStagingStore)(nil)

func NewRecordingStagingStore(inner zimp.StagingStore) *RecordingStagingStore {
	return &RecordingStagingStore{
		StagingStore: inner,
		removes:      make(map[string]int),
		failures:     make(map[string]error),
	}
}

// FailRemove makes Remove(path) return err without deleting anything.
func (s *RecordingStagingStore) FailRemove(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = err
}

func (s *RecordingStagingStore) Remove(path string) error {
	s.mu.Lock()
	s.removes[path]++
	failure := s.failures[path]
	s.mu.Unlock()

	if failure != nil {
		return failure
	}
	return s.StagingStore.Remove(path)
}

// Removes returns how many times Remove was called for each path.
func (s *RecordingStagingStore) Removes() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.removes))
	for p, n := range s.removes {
		out[p] = n
	}
	return out
}
