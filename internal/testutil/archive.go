package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"

	"zimp-go/internal/zimp"
)

// ZipEntry is one entry of a test archive. Names ending in '/' are
// directory entries.
type ZipEntry struct {
	Name    string
	Content []byte
}

// File returns a file entry with the given content.
func File(name, content string) ZipEntry {
	return ZipEntry{Name: name, Content: []byte(content)}
}

// Dir returns an explicit directory entry.
func Dir(name string) ZipEntry {
	if name == "" || name[len(name)-1] != '/' {
		name += "/"
	}
	return ZipEntry{Name: name}
}

// WriteZip writes the entries, in order, to a new archive in a temp dir
// and returns its path.
func WriteZip(t *testing.T, name string, entries ...ZipEntry) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("creating zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("adding %s to zip: %v", e.Name, err)
		}
		if len(e.Content) > 0 {
			if _, err := w.Write(e.Content); err != nil {
				t.Fatalf("writing %s to zip: %v", e.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return p
}

// CountingArchiveReader counts the walks made through an ArchiveReader.
type CountingArchiveReader struct {
	zimp.ArchiveReader
	walks atomic.Int64
}

// NewCountingArchiveReader wraps r.
func NewCountingArchiveReader(r zimp.ArchiveReader) *CountingArchiveReader {
	return &CountingArchiveReader{ArchiveReader: r}
}

func (c *CountingArchiveReader) Walk(ctx context.Context, archivePath string, v zimp.Visitor) error {
	c.walks.Add(1)
	return c.ArchiveReader.Walk(ctx, archivePath, v)
}

// Walks returns the number of Walk calls so far.
func (c *CountingArchiveReader) Walks() int {
	return int(c.walks.Load())
}
