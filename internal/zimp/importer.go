package zimp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"zimp-go/internal/contenttype"
)

const (
	// DefaultCollection is the document store collection imports write to.
	DefaultCollection = "documents"

	// DefaultConcurrency bounds the number of concurrent vault writes.
	DefaultConcurrency = 4
)

var errAlreadyFinalized = errors.New("import context already finalized")

// Options tunes an Importer. Zero values select the defaults.
type Options struct {
	// Application is the application tag of created records.
	Application string

	// Collection is the document store collection records are written to.
	Collection string

	// Concurrency bounds the number of vault writes in flight.
	Concurrency int

	// DestinationFolder is passed to the vault as a placement hint.
	DestinationFolder string

	// Shares computes inherited sharing. Defaults to InheritShares.
	Shares ShareMerger

	// ContentTypes resolves content types of extracted files.
	ContentTypes ContentTypeResolver
}

// Importer runs archive imports: prepare, extract, commit, clean.
// A single Importer serves any number of ImportContexts.
type Importer struct {
	staging   StagingStore
	archives  ArchiveReader
	vault     Vault
	documents DocumentStore
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	opts      Options
}

// NewImporter creates an Importer with the provided dependencies.
func NewImporter(staging StagingStore, archives ArchiveReader, vault Vault, documents DocumentStore, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Importer {
	if opts.Application == "" {
		opts.Application = DefaultApplication
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Shares == nil {
		opts.Shares = InheritShares{}
	}
	if opts.ContentTypes == nil {
		opts.ContentTypes = contenttype.NewResolver()
	}
	return &Importer{
		staging:   staging,
		archives:  archives,
		vault:     vault,
		documents: documents,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		opts:      opts,
	}
}

// CreateContext stages the archive read from r and returns a context for it.
func (i *Importer) CreateContext(ctx context.Context, r io.Reader, owner Owner) (*ImportContext, error) {
	archivePath, err := i.staging.Stage(ctx, r)
	if err != nil {
		if archivePath != "" {
			if rmErr := i.staging.Remove(archivePath); rmErr != nil {
				i.logger.Warn("failed to remove partial upload", "path", archivePath, "error", rmErr)
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}

	i.logger.Debug("archive staged", "path", archivePath, "owner", owner.ID)
	return NewImportContext(archivePath, owner), nil
}

// NewContext wraps an archive that is already staged. The archive is
// removed at cleanup only if SetCleanArchive(true) is called.
func (i *Importer) NewContext(archivePath string, owner Owner) *ImportContext {
	return NewImportContext(archivePath, owner)
}

// CreateContextFromUpload stages the first file part of a multipart upload.
// Non-file parts before it are skipped.
func (i *Importer) CreateContextFromUpload(ctx context.Context, mr *multipart.Reader, owner Owner) (*ImportContext, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: upload not found", ErrUpload)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading upload: %w", ErrUpload, err)
		}
		if part.FileName() == "" {
			part.Close()
			continue
		}

		ic, err := i.CreateContext(ctx, part, owner)
		part.Close()
		return ic, err
	}
}

// Prepare walks the archive and builds the record graph. The walk happens
// once per context; later and concurrent calls return the same outcome.
func (i *Importer) Prepare(ctx context.Context, ic *ImportContext) error {
	ic.prepareOnce.Do(func() {
		ic.prepared = true
		b := &graphBuilder{
			ctx:         ic,
			idgen:       i.idgen,
			clock:       i.clock,
			shares:      i.opts.Shares,
			application: i.opts.Application,
			logger:      i.logger,
			floor:       ic.AncestorDepth(),
		}

		if err := i.archives.Walk(ctx, ic.archivePath, b); err != nil {
			ic.discardGraph(b.floor)
			ic.prepareErr = fmt.Errorf("%w: %w", ErrArchiveRead, err)
			i.logger.Error("failed to read archive", "path", ic.archivePath, "error", err)
			return
		}

		if depth := ic.AncestorDepth(); depth != b.floor {
			i.logger.Warn("ancestor stack not balanced after walk", "path", ic.archivePath, "depth", depth, "want", b.floor)
		}

		for _, f := range ic.PendingFiles() {
			ic.totalSize += f.Size
		}

		i.logger.Debug("archive prepared",
			"path", ic.archivePath,
			"documents", len(ic.documents),
			"directories", len(ic.directories),
		)
	})
	return ic.prepareErr
}

// TotalSize returns the summed size of every document in the archive.
// It prepares the context if needed, but never extracts or commits.
// The total is fixed at prepare time and ignores later per-file failures.
func (i *Importer) TotalSize(ctx context.Context, ic *ImportContext) (int64, error) {
	if err := i.Prepare(ctx, ic); err != nil {
		return 0, err
	}
	return ic.totalSize, nil
}

// Finalize runs the whole import: prepare, extract, commit. Cleanup always
// runs afterwards, whether or not an earlier stage failed.
//
// Per-file vault failures do not fail the import. They are reported in
// Result.Errors and the affected documents are left out of Result.Saved.
func (i *Importer) Finalize(ctx context.Context, ic *ImportContext) (*Result, error) {
	if ic.finalized {
		return nil, errAlreadyFinalized
	}
	ic.finalized = true
	defer i.Clean(ic)

	if err := i.Prepare(ctx, ic); err != nil {
		return nil, err
	}

	files, err := i.extract(ctx, ic)
	if err != nil {
		i.logger.Error("extraction failed", "path", ic.archivePath, "error", err)
		return nil, err
	}

	if err := i.commit(ctx, ic, files); err != nil {
		i.logger.Error("commit failed", "path", ic.archivePath, "error", err)
		return nil, err
	}

	result := ic.Result()
	i.logger.Info("import finished",
		"path", ic.archivePath,
		"saved", len(result.Saved),
		"errors", len(result.Errors),
	)
	return result, nil
}

// Clean deletes the scratch paths of the context, and the staged archive
// if SetCleanArchive(true) was called. Failures are logged, never returned.
// Only the first call has any effect.
func (i *Importer) Clean(ic *ImportContext) {
	ic.cleanOnce.Do(func() {
		for _, p := range ic.CleanupPaths() {
			if err := i.staging.Remove(p); err != nil {
				i.logger.Warn("failed to clean path", "path", p, "error", err)
				continue
			}
			i.logger.Debug("cleaned path", "path", p)
		}
	})
}
