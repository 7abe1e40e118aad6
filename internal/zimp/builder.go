package zimp

import "path"

// graphBuilder turns archive walk events into folder and document records.
// The ancestor stack of the context tracks the folder currently being
// visited, so every record is parented and shared at creation time.
type graphBuilder struct {
	ctx         *ImportContext
	idgen       IDGenerator
	clock       Clock
	shares      ShareMerger
	application string
	logger      Logger

	// floor is the stack depth before the walk started (the pre-seeded root).
	floor int
}

var _ Visitor = (*graphBuilder)(nil)

func (b *graphBuilder) EnterDirectory(p string) error {
	dir := b.newChild(KindFolder, p)
	b.ctx.addDirectory(dir)
	b.ctx.pushAncestor(dir)
	return nil
}

func (b *graphBuilder) VisitFile(p string, size int64) error {
	doc := b.newChild(KindFile, p)
	doc.Metadata.Size = size
	b.ctx.addDocument(&PendingFile{Record: doc, Size: size, Path: p})
	return nil
}

func (b *graphBuilder) ExitDirectory(p string) error {
	if b.ctx.AncestorDepth() <= b.floor {
		b.logger.Warn("unbalanced directory exit in archive", "archive", b.ctx.archivePath, "path", p)
		return nil
	}
	b.ctx.popAncestor()
	return nil
}

// newChild creates a record under the current top of the ancestor stack.
func (b *graphBuilder) newChild(kind Kind, p string) *Record {
	name := path.Base(p)
	r := newRecord(kind, b.idgen.New(), b.ctx.owner, name, b.application, b.clock.Now())
	if parent := b.ctx.currentParent(); parent != nil {
		r.ParentID = parent.ID
		b.shares.Merge(parent, r, true)
	}
	return r
}
