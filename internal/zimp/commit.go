package zimp

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

var errNoStoredFile = errors.New("vault returned no stored file")

// writeOutcome is the result of persisting one extracted file.
// Each vault task owns exactly one slot; nothing else is shared.
type writeOutcome struct {
	stored      *StoredFile
	contentType string
	err         error
}

// commit writes every extracted file to the vault, at most Concurrency at a
// time, then writes the surviving records in a single bulk call. A failed
// vault write drops its document from the import and records an error.
func (i *Importer) commit(ctx context.Context, ic *ImportContext, files []*PendingFile) error {
	outcomes := make([]writeOutcome, len(files))

	var g errgroup.Group
	g.SetLimit(i.opts.Concurrency)
	for n, f := range files {
		g.Go(func() error {
			stored, err := i.vault.Write(ctx, f.Path, i.opts.DestinationFolder, ic.owner.ID)
			if err == nil && stored == nil {
				err = errNoStoredFile
			}
			if err != nil {
				outcomes[n] = writeOutcome{err: err}
				return nil
			}
			outcomes[n] = writeOutcome{
				stored:      stored,
				contentType: i.opts.ContentTypes.ContentType(f.Path),
			}
			return nil
		})
	}
	// Tasks never return an error; failures live in outcomes.
	_ = g.Wait()

	for n, f := range files {
		out := outcomes[n]
		if out.err != nil {
			archived := f.Path
			if orig, ok := ic.documents[f.Record.ID]; ok {
				archived = orig.Path
			}
			i.logger.Warn("failed to write file to vault", "path", archived, "document", f.Record.ID, "error", out.err)
			ic.AddError(archived, f.Record.ID, ErrPersistence.Error(), out.err.Error())
			continue
		}

		r := f.Record
		r.FileID = out.stored.ID
		r.Thumbnails = map[string]string{}
		if r.Metadata == nil {
			r.Metadata = &Metadata{Filename: r.Name}
		}
		r.Metadata.ContentType = out.contentType
		if out.stored.Size >= 0 {
			r.Metadata.Size = out.stored.Size
		}
	}

	records := ic.Records()
	if err := i.documents.ImportRecords(ctx, i.opts.Collection, records); err != nil {
		ic.writeFailed = true
		return fmt.Errorf("%w: %w", ErrBulkWrite, err)
	}

	i.logger.Debug("records imported", "collection", i.opts.Collection, "records", len(records))
	return nil
}
