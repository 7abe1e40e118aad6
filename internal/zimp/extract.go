package zimp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// extract copies every pending document out of the archive into a fresh
// scratch directory. The returned files carry the scratch paths; the
// records are shared with the context. The first failure aborts the stage.
func (i *Importer) extract(ctx context.Context, ic *ImportContext) ([]*PendingFile, error) {
	pending := ic.PendingFiles()
	if len(pending) == 0 {
		return nil, nil
	}

	base := filepath.Base(ic.archivePath)
	dir, err := i.staging.MkdirTemp(strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		return nil, fmt.Errorf("%w: creating scratch directory: %w", ErrExtraction, err)
	}
	ic.addCleanup(dir)

	extracted := make([]*PendingFile, 0, len(pending))
	err = i.archives.WithFS(ctx, ic.archivePath, func(fsys ArchiveFS) error {
		for _, f := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			target, err := copyOut(fsys, f, dir)
			if err != nil {
				return fmt.Errorf("copying %s: %w", f.Path, err)
			}
			extracted = append(extracted, &PendingFile{Record: f.Record, Size: f.Size, Path: target})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	i.logger.Debug("archive extracted", "path", ic.archivePath, "dir", dir, "files", len(extracted))
	return extracted, nil
}

func copyOut(fsys ArchiveFS, f *PendingFile, dir string) (string, error) {
	src, err := fsys.Open(f.Path)
	if err != nil {
		return "", fmt.Errorf("opening archived file: %w", err)
	}
	defer src.Close()

	dst, target, err := createScratchFile(dir, f)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("writing %s: %w", target, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", target, err)
	}
	return target, nil
}

// createScratchFile creates the extraction target for f. Files land flat in
// dir under their base name; when two archived files share a base name the
// later one goes into a subdirectory named after its document ID.
func createScratchFile(dir string, f *PendingFile) (*os.File, string, error) {
	name := path.Base(f.Path)
	target := filepath.Join(dir, name)
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err == nil {
		return out, target, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, "", fmt.Errorf("creating %s: %w", target, err)
	}

	sub := filepath.Join(dir, f.Record.ID)
	if err := os.Mkdir(sub, 0o700); err != nil {
		return nil, "", fmt.Errorf("creating %s: %w", sub, err)
	}
	target = filepath.Join(sub, name)
	out, err = os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, "", fmt.Errorf("creating %s: %w", target, err)
	}
	return out, target, nil
}
