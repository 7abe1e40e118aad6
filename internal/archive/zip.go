// Package archive reads zip archives for the import pipeline.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"

	ignorefs "zimp-go/internal/fs"
	"zimp-go/internal/zimp"
)

// ErrConflict is returned when an archive holds both a file and a
// directory at the same path.
var ErrConflict = errors.New("conflicting archive entries")

// ZipReader walks zip archives as a directory tree.
type ZipReader struct {
	ignore *ignorefs.IgnoreMatcher
	logger zimp.Logger
}

var _ zimp.ArchiveReader = (*ZipReader)(nil)

// NewZipReader creates a ZipReader. Entries matched by ignore are skipped
// together with everything below them; ignore may be nil.
func NewZipReader(ignore *ignorefs.IgnoreMatcher, logger zimp.Logger) *ZipReader {
	if logger == nil {
		logger = zimp.NewNopLogger()
	}
	return &ZipReader{ignore: ignore, logger: logger}
}

// node is one entry of the reconstructed tree. Children keep the order in
// which they first appeared in the archive.
type node struct {
	path     string
	dir      bool
	size     int64
	children []*node
	byName   map[string]*node
}

func newDir(p string) *node {
	return &node{path: p, dir: true, byName: make(map[string]*node)}
}

func (n *node) child(name string) *node {
	return n.byName[name]
}

func (n *node) add(c *node) {
	n.byName[path.Base(c.path)] = c
	n.children = append(n.children, c)
}

// entryPath normalizes a zip entry name to an absolute slash path.
// It returns "/" for names that resolve to the archive root.
func entryPath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return path.Clean("/" + name)
}

// Walk reports the archive tree to v in depth-first pre-order. Directories
// that are only implied by file names are reported where first implied.
func (z *ZipReader) Walk(ctx context.Context, archivePath string, v zimp.Visitor) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer r.Close()

	root, err := z.buildTree(r.File)
	if err != nil {
		return fmt.Errorf("reading archive %s: %w", archivePath, err)
	}
	return walkTree(ctx, root, v)
}

func (z *ZipReader) buildTree(files []*zip.File) (*node, error) {
	root := newDir("/")
	for _, f := range files {
		p := entryPath(f.Name)
		if p == "/" {
			continue
		}
		if z.ignore.MatchTree(p) {
			z.logger.Debug("ignoring archive entry", "path", p)
			continue
		}

		mode := f.Mode()
		isDir := mode.IsDir() || strings.HasSuffix(f.Name, "/")
		if !isDir && !mode.IsRegular() {
			z.logger.Warn("skipping non-regular archive entry", "path", p, "mode", mode.String())
			continue
		}

		parent, err := ensureDirs(root, path.Dir(p))
		if err != nil {
			return nil, err
		}

		existing := parent.child(path.Base(p))
		switch {
		case existing == nil && isDir:
			parent.add(newDir(p))
		case existing == nil:
			parent.add(&node{path: p, size: int64(f.UncompressedSize64)})
		case existing.dir != isDir:
			return nil, fmt.Errorf("%w: %s", ErrConflict, p)
		case !isDir:
			z.logger.Warn("skipping duplicate archive entry", "path", p)
		}
	}
	return root, nil
}

// ensureDirs returns the node for directory p, creating every missing
// directory on the way down.
func ensureDirs(root *node, p string) (*node, error) {
	if p == "/" {
		return root, nil
	}

	cur := root
	for _, name := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		next := cur.child(name)
		if next == nil {
			next = newDir(path.Join(cur.path, name))
			cur.add(next)
		}
		if !next.dir {
			return nil, fmt.Errorf("%w: %s", ErrConflict, next.path)
		}
		cur = next
	}
	return cur, nil
}

func walkTree(ctx context.Context, dir *node, v zimp.Visitor) error {
	for _, c := range dir.children {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !c.dir {
			if err := v.VisitFile(c.path, c.size); err != nil {
				return fmt.Errorf("visiting %s: %w", c.path, err)
			}
			continue
		}

		if err := v.EnterDirectory(c.path); err != nil {
			return fmt.Errorf("entering %s: %w", c.path, err)
		}
		if err := walkTree(ctx, c, v); err != nil {
			return err
		}
		if err := v.ExitDirectory(c.path); err != nil {
			return fmt.Errorf("leaving %s: %w", c.path, err)
		}
	}
	return nil
}

// WithFS opens the archive, hands a read-only view of it to fn and closes
// the archive again when fn returns.
func (z *ZipReader) WithFS(ctx context.Context, archivePath string, fn func(zimp.ArchiveFS) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer r.Close()

	view := &zipFS{files: make(map[string]*zip.File, len(r.File))}
	for _, f := range r.File {
		p := entryPath(f.Name)
		if _, dup := view.files[p]; !dup {
			view.files[p] = f
		}
	}
	return fn(view)
}

// zipFS resolves absolute archive paths to zip entries. The first entry
// with a given path wins, matching what Walk reports.
type zipFS struct {
	files map[string]*zip.File
}

func (z *zipFS) Open(p string) (io.ReadCloser, error) {
	f, ok := z.files[entryPath(p)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	if f.Mode().IsDir() || strings.HasSuffix(f.Name, "/") {
		return nil, &fs.PathError{Op: "open", Path: p, Err: errors.New("is a directory")}
	}
	return f.Open()
}
