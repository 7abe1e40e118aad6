package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"zimp-go/internal/zimp"
)

// ErrNotFound is returned by Read for unknown object ids.
var ErrNotFound = errors.New("object not found")

// FileSystemVault stores objects as files in a directory structure:
//
//	<root>/
//	  content/
//	    <id>     (object content, encrypted if an Encryptor is set)
type FileSystemVault struct {
	name       string
	root       string
	contentDir string
	enc        zimp.Encryptor
	idgen      zimp.IDGenerator
}

var _ zimp.Vault = (*FileSystemVault)(nil)

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
// enc may be nil.
func NewFileSystemVault(name, root string, enc zimp.Encryptor, idgen zimp.IDGenerator) (*FileSystemVault, error) {
	contentDir := filepath.Join(root, "content")
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}

	return &FileSystemVault{
		name:       name,
		root:       root,
		contentDir: contentDir,
		enc:        enc,
		idgen:      idgen,
	}, nil
}

// Write copies the file at path into the vault under a fresh id.
// The folder hint and owner are not used by this backend.
func (v *FileSystemVault) Write(ctx context.Context, path, folder, ownerID string) (*zimp.StoredFile, error) {
	src, err := openSource(ctx, path, v.enc)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	id := v.idgen.New()
	if err := v.writeFile(filepath.Join(v.contentDir, id), src); err != nil {
		return nil, err
	}
	if err := src.verify(); err != nil {
		os.Remove(filepath.Join(v.contentDir, id))
		return nil, err
	}
	return &zimp.StoredFile{ID: id, Size: src.plainSize()}, nil
}

// Read streams the stored object to w.
func (v *FileSystemVault) Read(ctx context.Context, id string, w io.Writer) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(v.contentDir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to open object: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, withContext(ctx, f)); err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the vault directories exist and are writable.
func (v *FileSystemVault) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	probe, err := os.CreateTemp(v.contentDir, ".probe-*")
	if err != nil {
		return fmt.Errorf("vault content directory not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// writeFile writes r to destPath through a temp file and a rename.
func (v *FileSystemVault) writeFile(destPath string, r io.Reader) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
