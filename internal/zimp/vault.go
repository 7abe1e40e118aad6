package zimp

import (
	"context"
	"io"
)

// StoredFile is the outcome of a successful vault write.
type StoredFile struct {
	// ID identifies the stored object in the vault.
	ID string

	// Size is the number of content bytes the vault accepted.
	// A negative value means the vault did not report a size.
	Size int64
}

// Vault is the content store that archived files are persisted to.
// Writes for different files may run concurrently.
type Vault interface {
	// Write stores the local file at path on behalf of ownerID.
	// folder is an optional destination hint; backends may ignore it.
	Write(ctx context.Context, path string, folder string, ownerID string) (*StoredFile, error)

	// Read streams the stored object with the given id to w, exactly as
	// stored (encrypted objects stay encrypted).
	Read(ctx context.Context, id string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
