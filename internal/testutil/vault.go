package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"zimp-go/internal/vault"
	"zimp-go/internal/zimp"
)

// NewTestVault creates a new in-memory vault. enc may be nil.
func NewTestVault(enc zimp.Encryptor) *vault.MemoryVault {
	return vault.NewMemoryVault("test-vault", enc, NewPrefixedIDGenerator("blob"))
}

// InstrumentedVault wraps a vault, failing writes of chosen files and
// tracking how many writes run at once.
type InstrumentedVault struct {
	zimp.Vault

	mu          sync.Mutex
	failures    map[string]error
	delay       time.Duration
	writes      int
	inFlight    int
	maxInFlight int
}

var _ zimp.Vault = (*InstrumentedVault)(nil)

func NewInstrumentedVault(inner zimp.Vault) *InstrumentedVault {
	return &InstrumentedVault{Vault: inner, failures: make(map[string]error)}
}

// FailOn makes writes of files with the given base name return err.
func (v *InstrumentedVault) FailOn(baseName string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failures[baseName] = err
}

// SetDelay makes every write hold its slot for d.
func (v *InstrumentedVault) SetDelay(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.delay = d
}

func (v *InstrumentedVault) Write(ctx context.Context, path, folder, ownerID string) (*zimp.StoredFile, error) {
	v.mu.Lock()
	v.writes++
	v.inFlight++
	if v.inFlight > v.maxInFlight {
		v.maxInFlight = v.inFlight
	}
	delay := v.delay
	failure := v.failures[filepath.Base(path)]
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.inFlight--
		v.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}
	return v.Vault.Write(ctx, path, folder, ownerID)
}

// Writes returns how many writes were attempted.
func (v *InstrumentedVault) Writes() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.writes
}

// MaxInFlight returns the highest number of concurrent writes observed.
func (v *InstrumentedVault) MaxInFlight() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.maxInFlight
}
