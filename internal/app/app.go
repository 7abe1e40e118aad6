package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"zimp-go/internal/archive"
	"zimp-go/internal/config"
	"zimp-go/internal/database"
	"zimp-go/internal/encryption"
	"zimp-go/internal/fs"
	"zimp-go/internal/staging"
	"zimp-go/internal/vault"
	"zimp-go/internal/zimp"
)

// ErrNoEncryption is returned by Cat's passphrase check when objects are
// stored in plaintext.
var ErrNoEncryption = errors.New("encryption is not configured")

// ZimpApp is the application layer between the CLI and the importer.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the DB lifecycle on Close.
type ZimpApp struct {
	cfg       *config.Config
	owner     zimp.Owner
	db        zimp.Database
	vault     zimp.Vault
	encryptor zimp.Encryptor
	importer  *zimp.Importer
	logger    zimp.Logger
	op        *ImportOperation
	logFile   *os.File
}

// NewZimpApp creates a fully wired ZimpApp from the given config.
// operation identifies the CLI command being run (e.g. "Import", "List").
// The caller must call Close when done.
func NewZimpApp(ctx context.Context, cfg *config.Config, operation string) (*ZimpApp, error) {
	if len(cfg.Vaults) == 0 {
		return nil, fmt.Errorf("no vaults configured")
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a, err := newZimpApp(ctx, cfg, operation, logger)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	a.logFile = logFile
	return a, nil
}

func newZimpApp(ctx context.Context, cfg *config.Config, operation string, logger zimp.Logger) (*ZimpApp, error) {
	idgen := zimp.UUIDGenerator{}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0], enc, idgen)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	store, err := staging.NewStagingStoreFromConfig(cfg.Staging, idgen)
	if err != nil {
		return nil, fmt.Errorf("creating staging store: %w", err)
	}

	ignore, err := loadIgnoreRules(cfg)
	if err != nil {
		return nil, err
	}
	reader := archive.NewZipReader(ignore, logger)

	db, err := database.NewDatabaseFromConfig(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	importer := zimp.NewImporter(store, reader, v, db, logger, zimp.RealClock{}, idgen, zimp.Options{
		Application:       cfg.Import.Application,
		Collection:        cfg.Import.Collection,
		Concurrency:       cfg.Import.Concurrency,
		DestinationFolder: cfg.Import.DestinationFolder,
	})

	return &ZimpApp{
		cfg:       cfg,
		owner:     zimp.Owner{ID: cfg.OwnerID, Name: cfg.OwnerName},
		db:        db,
		vault:     v,
		encryptor: enc,
		importer:  importer,
		logger:    logger,
		op:        NewImportOperation(operation, ""),
	}, nil
}

// loadIgnoreRules merges the configured ignore patterns with the ignore
// file in the base directory.
func loadIgnoreRules(cfg *config.Config) (*fs.IgnoreMatcher, error) {
	lines := append([]string(nil), cfg.Import.Ignore...)
	fileLines, err := fs.ParseIgnoreFile(filepath.Join(cfg.BaseDir, fs.IgnoreFileName))
	if err != nil {
		return nil, fmt.Errorf("loading ignore rules: %w", err)
	}
	return fs.NewIgnoreMatcher(append(lines, fileLines...)), nil
}

// persistOperation saves the import operation to the database, giving it an auto-increment ID.
// This should only be called for DB-mutating commands.
func (a *ZimpApp) persistOperation(ctx context.Context) error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.db.CreateImportOperation(ctx, a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting import operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// Import stages the archive at rawPath and imports it. When rootID is set,
// the top level of the archive is attached to that existing folder.
// keepArchive leaves the staged copy in scratch space after the import.
func (a *ZimpApp) Import(ctx context.Context, rawPath, rootID string, keepArchive bool) (*zimp.Result, error) {
	p, _, err := fs.ResolveArchive(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	a.op.Parameters = p
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}

	result, err := a.runImport(ctx, p, rootID, keepArchive)
	switch {
	case err != nil:
		a.op.Status = StatusError
	case len(result.Errors) > 0:
		a.op.Status = StatusPartial
		a.op.Saved, a.op.Failed = len(result.Saved), len(result.Errors)
	default:
		a.op.Saved = len(result.Saved)
	}
	return result, err
}

func (a *ZimpApp) runImport(ctx context.Context, p, rootID string, keepArchive bool) (*zimp.Result, error) {
	var root *zimp.Record
	if rootID != "" {
		r, err := a.db.FindRecord(ctx, rootID)
		if err != nil {
			return nil, fmt.Errorf("looking up root folder: %w", err)
		}
		if r == nil {
			return nil, fmt.Errorf("root folder %s not found", rootID)
		}
		if !r.IsFolder() {
			return nil, fmt.Errorf("root %s is not a folder", rootID)
		}
		root = r
	}

	if err := a.vault.ValidateSetup(ctx); err != nil {
		return nil, fmt.Errorf("vault not ready: %w", err)
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	ic, err := a.importer.CreateContext(ctx, f, a.owner)
	if err != nil {
		return nil, err
	}
	ic.SetCleanArchive(a.cfg.Import.CleanArchive && !keepArchive)
	if root != nil {
		ic.SetRootFolder(root)
	}

	return a.importer.Finalize(ctx, ic)
}

// Size returns the total uncompressed size of the documents in the archive
// at rawPath. The archive is read in place and nothing is imported.
func (a *ZimpApp) Size(ctx context.Context, rawPath string) (int64, error) {
	p, _, err := fs.ResolveArchive(rawPath)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}

	ic := a.importer.NewContext(p, a.owner)
	defer a.importer.Clean(ic)
	return a.importer.TotalSize(ctx, ic)
}

// List returns every record owned by the configured owner, folders first.
func (a *ZimpApp) List(ctx context.Context) ([]*zimp.Record, error) {
	return a.db.ListRecords(ctx, a.owner.ID)
}

// History returns the most recent import operations.
func (a *ZimpApp) History(ctx context.Context, limit int) ([]*zimp.ImportOperation, error) {
	return a.db.ListImportOperations(ctx, limit)
}

// NeedsPassphrase reports whether Cat requires a passphrase.
func (a *ZimpApp) NeedsPassphrase() bool {
	return a.encryptor != nil
}

// SetupEncryption generates the key pair used for encryption at rest.
func (a *ZimpApp) SetupEncryption(passphrase string) error {
	if a.encryptor == nil {
		return ErrNoEncryption
	}
	return a.encryptor.Setup(passphrase)
}

// Cat writes the content of the document with the given id to w,
// decrypting it first when encryption is configured.
func (a *ZimpApp) Cat(ctx context.Context, id, passphrase string, w io.Writer) error {
	r, err := a.db.FindRecord(ctx, id)
	if err != nil {
		return fmt.Errorf("looking up record: %w", err)
	}
	if r == nil {
		return fmt.Errorf("record %s not found", id)
	}
	if r.IsFolder() || r.FileID == "" {
		return fmt.Errorf("record %s has no stored content", id)
	}

	if a.encryptor == nil {
		return a.vault.Read(ctx, r.FileID, w)
	}

	dec, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking key: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(a.vault.Read(ctx, r.FileID, pw))
	}()
	defer pr.Close()

	if err := dec.Decrypt(pr, w); err != nil {
		return fmt.Errorf("decrypting %s: %w", id, err)
	}
	return nil
}

// Close finishes the operation record and closes all resources.
func (a *ZimpApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		// A fresh context: the command's context may already be cancelled.
		ctx := context.Background()
		if err := a.db.FinishImportOperation(ctx, a.op.ID, a.op.Status, a.op.Saved, a.op.Failed); err != nil {
			firstErr = fmt.Errorf("finishing import operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
