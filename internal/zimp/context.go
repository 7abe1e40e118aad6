package zimp

import "sync"

// PendingFile is a document record together with the size and location of
// its content. Before extraction Path is the archive-internal path; after
// extraction it is the path of the copy in scratch space.
type PendingFile struct {
	Record *Record
	Size   int64
	Path   string
}

// Result is the outcome of a finalized import.
type Result struct {
	// Errors lists the files that were excluded. A non-empty list with a nil
	// error from Finalize means partial success.
	Errors []ImportError `json:"errors"`

	// Saved holds every record written to the document store, folders first.
	Saved []*Record `json:"saved"`

	// Root is the pre-seeded root folder, if one was set.
	Root *Record `json:"root,omitempty"`
}

// ImportContext is the state of a single import, threaded through every
// stage of the pipeline. It is created once the archive is staged and stays
// readable after cleanup so callers can inspect errors and the result.
//
// The stages run one after the other; an ImportContext is not meant to be
// mutated from several goroutines at once. Prepare is the exception: it may
// be called concurrently and every caller observes the same outcome.
type ImportContext struct {
	archivePath  string
	owner        Owner
	cleanArchive bool
	root         *Record

	documents      map[string]*PendingFile
	documentOrder  []string
	directories    map[string]*Record
	directoryOrder []string
	ancestors      []*Record
	errors         []ImportError
	cleanup        []string
	totalSize      int64

	prepareOnce sync.Once
	prepared    bool
	prepareErr  error
	writeFailed bool
	finalized   bool
	cleanOnce   sync.Once
}

// NewImportContext creates a context for an archive that is already staged.
func NewImportContext(archivePath string, owner Owner) *ImportContext {
	return &ImportContext{
		archivePath: archivePath,
		owner:       owner,
		documents:   make(map[string]*PendingFile),
		directories: make(map[string]*Record),
	}
}

// ArchivePath returns the path of the staged archive.
func (c *ImportContext) ArchivePath() string {
	return c.archivePath
}

// Owner returns the identity of the importing user.
func (c *ImportContext) Owner() Owner {
	return c.owner
}

// SetRootFolder attaches the top level of the archive to an existing folder.
// Calls made once the context has been prepared are ignored.
func (c *ImportContext) SetRootFolder(folder *Record) *ImportContext {
	if c.prepared {
		return c
	}
	if c.root == nil {
		c.root = folder
	}
	c.pushAncestor(folder)
	return c
}

// SetCleanArchive controls whether cleanup deletes the staged archive itself
// or only the extraction scratch directory.
func (c *ImportContext) SetCleanArchive(clean bool) *ImportContext {
	c.cleanArchive = clean
	return c
}

// AncestorDepth returns the current depth of the ancestor stack.
func (c *ImportContext) AncestorDepth() int {
	return len(c.ancestors)
}

func (c *ImportContext) pushAncestor(r *Record) {
	c.ancestors = append(c.ancestors, r)
}

// popAncestor removes the top of the ancestor stack.
// Returns nil when the stack is empty.
func (c *ImportContext) popAncestor() *Record {
	if len(c.ancestors) == 0 {
		return nil
	}
	top := c.ancestors[len(c.ancestors)-1]
	c.ancestors = c.ancestors[:len(c.ancestors)-1]
	return top
}

// currentParent returns the top of the ancestor stack, or nil.
func (c *ImportContext) currentParent() *Record {
	if len(c.ancestors) == 0 {
		return nil
	}
	return c.ancestors[len(c.ancestors)-1]
}

func (c *ImportContext) addDirectory(r *Record) {
	c.directories[r.ID] = r
	c.directoryOrder = append(c.directoryOrder, r.ID)
}

func (c *ImportContext) addDocument(f *PendingFile) {
	c.documents[f.Record.ID] = f
	c.documentOrder = append(c.documentOrder, f.Record.ID)
}

// discardGraph drops everything the builder produced and truncates the
// ancestor stack back to depth.
func (c *ImportContext) discardGraph(depth int) {
	c.documents = make(map[string]*PendingFile)
	c.documentOrder = nil
	c.directories = make(map[string]*Record)
	c.directoryOrder = nil
	c.totalSize = 0
	if len(c.ancestors) > depth {
		c.ancestors = c.ancestors[:depth]
	}
}

// PendingFiles returns the documents still scheduled for import, in the
// order they were found in the archive.
func (c *ImportContext) PendingFiles() []*PendingFile {
	files := make([]*PendingFile, 0, len(c.documents))
	for _, id := range c.documentOrder {
		if f, ok := c.documents[id]; ok {
			files = append(files, f)
		}
	}
	return files
}

// Directories returns the folder records built from the archive.
func (c *ImportContext) Directories() []*Record {
	dirs := make([]*Record, 0, len(c.directoryOrder))
	for _, id := range c.directoryOrder {
		dirs = append(dirs, c.directories[id])
	}
	return dirs
}

// AddError records a failed file and removes its document from the import.
func (c *ImportContext) AddError(path, documentID, message, detail string) {
	c.errors = append(c.errors, ImportError{
		Path:       path,
		DocumentID: documentID,
		Message:    message,
		Detail:     detail,
	})
	delete(c.documents, documentID)
}

// Errors returns the per-file failures recorded so far.
func (c *ImportContext) Errors() []ImportError {
	return append([]ImportError(nil), c.errors...)
}

// addCleanup registers a path to be deleted at teardown.
func (c *ImportContext) addCleanup(path string) {
	for _, p := range c.cleanup {
		if p == path {
			return
		}
	}
	c.cleanup = append(c.cleanup, path)
}

// CleanupPaths returns every path cleanup will delete: the registered
// scratch paths plus the archive when SetCleanArchive(true) was called.
func (c *ImportContext) CleanupPaths() []string {
	paths := append([]string(nil), c.cleanup...)
	if c.cleanArchive {
		found := false
		for _, p := range paths {
			if p == c.archivePath {
				found = true
				break
			}
		}
		if !found {
			paths = append(paths, c.archivePath)
		}
	}
	return paths
}

// Records returns every record that would be written to the document store:
// folders first, then the documents that are still pending.
func (c *ImportContext) Records() []*Record {
	records := c.Directories()
	for _, f := range c.PendingFiles() {
		records = append(records, f.Record)
	}
	return records
}

// Result builds the import summary from the current state. Saved stays
// empty when the bulk write to the document store failed.
func (c *ImportContext) Result() *Result {
	res := &Result{
		Errors: c.Errors(),
		Root:   c.root,
	}
	if !c.writeFailed {
		res.Saved = c.Records()
	}
	return res
}
