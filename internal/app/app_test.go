package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"zimp-go/internal/config"
	"zimp-go/internal/testutil"
	"zimp-go/internal/zimp"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig("owner-1", "Test Owner", t.TempDir())
	cfg.Encryption.Type = "test"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, operation string) *ZimpApp {
	t.Helper()
	a, err := newZimpApp(context.Background(), cfg, operation, zimp.NewNopLogger())
	if err != nil {
		t.Fatalf("newZimpApp() error = %v", err)
	}
	return a
}

func TestZimpApp_ImportListCat(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	zipPath := testutil.WriteZip(t, "photos.zip",
		testutil.File("trip/day1.txt", "sunny"),
		testutil.File("trip/day2.txt", "rainy"),
	)

	a := newTestApp(t, cfg, "Import")
	result, err := a.Import(ctx, zipPath, "", false)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(result.Saved) != 3 || len(result.Errors) != 0 {
		t.Fatalf("Import() result = %+v", result)
	}

	records, err := a.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 3 || !records[0].IsFolder() {
		t.Fatalf("List() = %+v", records)
	}

	contents := map[string]bool{}
	for _, r := range records[1:] {
		var buf bytes.Buffer
		if err := a.Cat(ctx, r.ID, "", &buf); err != nil {
			t.Fatalf("Cat(%s) error = %v", r.Name, err)
		}
		contents[buf.String()] = true
	}
	if !contents["sunny"] || !contents["rainy"] {
		t.Errorf("Cat() contents = %v", contents)
	}

	if err := a.Cat(ctx, records[0].ID, "", &bytes.Buffer{}); err == nil {
		t.Error("Cat() of a folder expected error")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// The operation survives in the history of the next run.
	h := newTestApp(t, cfg, "History")
	defer h.Close()
	ops, err := h.History(ctx, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("History() returned %d operations, want 1", len(ops))
	}
	op := ops[0]
	if op.Operation != "Import" || op.Status != StatusSuccess || op.Saved != 3 || !op.FinishedAt.Valid {
		t.Errorf("History()[0] = %+v", op)
	}

	if left, _ := os.ReadDir(cfg.Staging.ScratchDir); len(left) != 0 {
		t.Errorf("scratch dir not cleaned: %d entries", len(left))
	}
}

func TestZimpApp_ImportUnderRoot(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg, "Import")
	defer a.Close()

	first, err := a.Import(ctx, testutil.WriteZip(t, "first.zip", testutil.Dir("albums")), "", false)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	root := first.Saved[0]

	second, err := a.Import(ctx, testutil.WriteZip(t, "second.zip", testutil.File("cover.txt", "x")), root.ID, true)
	if err != nil {
		t.Fatalf("Import() under root error = %v", err)
	}
	if len(second.Saved) != 1 || second.Saved[0].ParentID != root.ID {
		t.Errorf("Import() under root = %+v", second.Saved)
	}
	if second.Root == nil || second.Root.ID != root.ID {
		t.Errorf("Result.Root = %+v", second.Root)
	}

	// keepArchive leaves the staged copy behind.
	if left, _ := os.ReadDir(cfg.Staging.ScratchDir); len(left) != 1 {
		t.Errorf("scratch dir holds %d entries, want 1", len(left))
	}

	if _, err := a.Import(ctx, testutil.WriteZip(t, "third.zip"), "missing", false); err == nil {
		t.Error("Import() with unknown root expected error")
	}
	if a.op.Status != StatusError {
		t.Errorf("operation status = %q, want %q", a.op.Status, StatusError)
	}
}

func TestZimpApp_IgnoreRules(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.BaseDir, "ignore"), []byte("*.tmp\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	a := newTestApp(t, cfg, "Import")
	defer a.Close()

	result, err := a.Import(ctx, testutil.WriteZip(t, "mixed.zip",
		testutil.File("keep.txt", "keep"),
		testutil.File("scratch.tmp", "drop"),
		testutil.File("__MACOSX/._keep.txt", "drop"),
	), "", false)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(result.Saved) != 1 || result.Saved[0].Name != "keep.txt" {
		t.Errorf("Import() saved %+v, want only keep.txt", result.Saved)
	}
}

func TestZimpApp_Size(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg, "Size")
	defer a.Close()

	size, err := a.Size(context.Background(), testutil.WriteZip(t, "s.zip",
		testutil.File("a/one.txt", "12345"),
		testutil.File("two.txt", "123"),
	))
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if size != 8 {
		t.Errorf("Size() = %d, want 8", size)
	}

	if _, err := a.Size(context.Background(), t.TempDir()); err == nil {
		t.Error("Size() of a directory expected error")
	}

	records, err := a.List(context.Background())
	if err != nil || len(records) != 0 {
		t.Errorf("Size() persisted records: %v, %v", records, err)
	}
}

func TestZimpApp_SetupEncryption(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Encryption.Type = "none"
	a := newTestApp(t, cfg, "SetupEncryption")
	defer a.Close()

	if a.NeedsPassphrase() {
		t.Error("NeedsPassphrase() = true without encryption")
	}
	if err := a.SetupEncryption("secret"); err != ErrNoEncryption {
		t.Errorf("SetupEncryption() error = %v, want ErrNoEncryption", err)
	}
}
