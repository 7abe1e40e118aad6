// Package staging holds uploaded archives and their extracted content on
// local disk until an import cleans them up.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"zimp-go/internal/zimp"
)

// DefaultMaxSize is the default maximum scratch area size (1GB).
const DefaultMaxSize int64 = 1 << 30

// chunkSize is the size of the single buffer a stream is pumped through.
const chunkSize = 32 * 1024

// ErrQuotaExceeded is returned by Stage when the scratch area is full.
var ErrQuotaExceeded = errors.New("staging area full")

// FileSystemStagingStore is a directory-backed implementation of
// zimp.StagingStore.
//
// Directory structure:
//
//	<scratch_dir>/
//	  <uuid>.zip            (staged upload)
//	  <archive>-<random>/   (extraction scratch for one import)
type FileSystemStagingStore struct {
	scratchDir string
	maxSize    int64
	idgen      zimp.IDGenerator

	mu sync.Mutex
	// inflight maps each upload being staged to the bytes it has reserved.
	inflight map[string]int64
	reserved int64
	// settled caches the size of everything except in-flight uploads;
	// negative when it must be recomputed.
	settled int64
}

var _ zimp.StagingStore = (*FileSystemStagingStore)(nil)

// NewFileSystemStagingStore creates the scratch directory if needed.
// maxSize is the maximum total size in bytes; must be positive.
func NewFileSystemStagingStore(scratchDir string, maxSize int64, idgen zimp.IDGenerator) (*FileSystemStagingStore, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max size must be positive, got %d", maxSize)
	}
	abs, err := filepath.Abs(scratchDir)
	if err != nil {
		return nil, fmt.Errorf("resolving scratch directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &FileSystemStagingStore{
		scratchDir: abs,
		maxSize:    maxSize,
		idgen:      idgen,
		inflight:   make(map[string]int64),
		settled:    -1,
	}, nil
}

// Dir returns the absolute scratch directory.
func (s *FileSystemStagingStore) Dir() string {
	return s.scratchDir
}

// Stage pumps r into a new file one chunk at a time: the next chunk is only
// read once the previous one has been written. Each chunk is reserved
// against the quota before it is written, so concurrent uploads share the
// free space. On failure the path of the partial file is returned with the
// error so the caller can remove it.
func (s *FileSystemStagingStore) Stage(ctx context.Context, r io.Reader) (string, error) {
	target := filepath.Join(s.scratchDir, s.idgen.New()+".zip")

	s.mu.Lock()
	s.inflight[target] = 0
	s.settled = -1
	s.mu.Unlock()
	defer s.release(target)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating staged file: %w", err)
	}

	reserve := func(n int64) error { return s.reserve(target, n) }
	if _, err := pump(ctx, f, r, reserve); err != nil {
		f.Close()
		return target, err
	}
	if err := f.Close(); err != nil {
		return target, fmt.Errorf("closing staged file: %w", err)
	}
	return target, nil
}

// reserve claims n more bytes of the quota for the upload at target.
func (s *FileSystemStagingStore) reserve(target string, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settled < 0 {
		settled, err := s.usage(s.inflight)
		if err != nil {
			return fmt.Errorf("getting current size: %w", err)
		}
		s.settled = settled
	}
	available := s.maxSize - s.settled - s.reserved
	if n > available {
		return fmt.Errorf("%w: %d bytes requested, %d available", ErrQuotaExceeded, n, available)
	}
	s.inflight[target] += n
	s.reserved += n
	return nil
}

// release drops the reservation of a finished upload. Its bytes are on
// disk by now and are picked up by the next size walk.
func (s *FileSystemStagingStore) release(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved -= s.inflight[target]
	delete(s.inflight, target)
	s.settled = -1
}

// pump copies src to dst through a single fixed buffer, checking ctx and
// reserving each chunk before it is written.
func pump(ctx context.Context, dst io.Writer, src io.Reader, reserve func(int64) error) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if err := reserve(int64(n)); err != nil {
				return written, err
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("writing staged file: %w", err)
			}
			written += int64(n)
		}
		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("reading upload: %w", rerr)
		}
	}
}

// MkdirTemp creates a uniquely named directory in the scratch area.
func (s *FileSystemStagingStore) MkdirTemp(prefix string) (string, error) {
	dir, err := os.MkdirTemp(s.scratchDir, prefix+"-")
	if err != nil {
		return "", fmt.Errorf("creating scratch directory: %w", err)
	}
	return dir, nil
}

// Remove deletes path and everything below it. Paths outside the scratch
// area are refused. Removing a missing path is not an error.
func (s *FileSystemStagingStore) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if !s.contains(abs) {
		return fmt.Errorf("refusing to remove %s: outside scratch directory %s", abs, s.scratchDir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled = -1
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("removing %s: %w", abs, err)
	}
	return nil
}

func (s *FileSystemStagingStore) contains(abs string) bool {
	rel, err := filepath.Rel(s.scratchDir, abs)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Size returns the total size in bytes of the files in the scratch area.
func (s *FileSystemStagingStore) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage(nil)
}

// usage walks the scratch area, skipping the files in skip.
// The caller must hold s.mu.
func (s *FileSystemStagingStore) usage(skip map[string]int64) (int64, error) {
	var total int64
	err := filepath.WalkDir(s.scratchDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := skip[p]; ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking scratch directory: %w", err)
	}
	return total, nil
}
