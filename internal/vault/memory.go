package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"zimp-go/internal/zimp"
)

// MemoryObject is an object held by a MemoryVault.
type MemoryObject struct {
	Data    []byte
	OwnerID string
	Folder  string
}

// MemoryVault keeps objects in memory. Useful for tests and dry runs.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name    string
	enc     zimp.Encryptor
	idgen   zimp.IDGenerator
	objects map[string]*MemoryObject
	mu      sync.RWMutex
}

var _ zimp.Vault = (*MemoryVault)(nil)

// NewMemoryVault creates a new in-memory vault with the given name.
// enc may be nil.
func NewMemoryVault(name string, enc zimp.Encryptor, idgen zimp.IDGenerator) *MemoryVault {
	return &MemoryVault{
		name:    name,
		enc:     enc,
		idgen:   idgen,
		objects: make(map[string]*MemoryObject),
	}
}

// Write reads the whole file at path into memory.
func (m *MemoryVault) Write(ctx context.Context, path, folder, ownerID string) (*zimp.StoredFile, error) {
	src, err := openSource(ctx, path, m.enc)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	if err := src.verify(); err != nil {
		return nil, err
	}

	id := m.idgen.New()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id] = &MemoryObject{Data: data, OwnerID: ownerID, Folder: folder}
	return &zimp.StoredFile{ID: id, Size: src.plainSize()}, nil
}

// Read streams the stored object to w.
func (m *MemoryVault) Read(ctx context.Context, id string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	obj, ok := m.objects[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if _, err := io.Copy(w, bytes.NewReader(obj.Data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// Object returns the stored object with the given id, or nil.
func (m *MemoryVault) Object(id string) *MemoryObject {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[id]
}

// Len returns the number of stored objects.
func (m *MemoryVault) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(context.Context) error {
	return nil
}
