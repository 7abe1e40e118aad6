package zimp

import (
	"testing"
	"time"
)

func TestImportContext_AncestorStack(t *testing.T) {
	ic := NewImportContext("/scratch/a.zip", Owner{ID: "o"})

	if ic.popAncestor() != nil {
		t.Error("popAncestor() on empty stack returned a record")
	}
	if ic.currentParent() != nil {
		t.Error("currentParent() on empty stack returned a record")
	}

	root := &Record{ID: "root"}
	ic.SetRootFolder(root)
	ic.SetRootFolder(&Record{ID: "second"})
	if ic.root != root {
		t.Error("SetRootFolder() replaced the first root")
	}
	if ic.AncestorDepth() != 2 {
		t.Errorf("AncestorDepth() = %d, want 2", ic.AncestorDepth())
	}

	ic.discardGraph(1)
	if ic.AncestorDepth() != 1 || ic.currentParent() != root {
		t.Errorf("discardGraph(1) left depth %d", ic.AncestorDepth())
	}
}

func TestImportContext_AddErrorDropsDocument(t *testing.T) {
	ic := NewImportContext("/scratch/a.zip", Owner{ID: "o"})
	now := time.Now()

	for _, id := range []string{"d1", "d2", "d3"} {
		r := newRecord(KindFile, id, ic.owner, id+".txt", DefaultApplication, now)
		ic.addDocument(&PendingFile{Record: r, Size: 1, Path: "/" + id + ".txt"})
	}
	ic.addDirectory(newRecord(KindFolder, "f1", ic.owner, "f1", DefaultApplication, now))

	ic.AddError("/d2.txt", "d2", ErrPersistence.Error(), "boom")

	var got []string
	for _, r := range ic.Records() {
		got = append(got, r.ID)
	}
	want := []string{"f1", "d1", "d3"}
	if len(got) != len(want) {
		t.Fatalf("Records() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Records() = %v, want %v", got, want)
		}
	}

	errs := ic.Errors()
	if len(errs) != 1 || errs[0].DocumentID != "d2" || errs[0].Detail != "boom" {
		t.Errorf("Errors() = %+v", errs)
	}
}

func TestImportContext_CleanupPaths(t *testing.T) {
	ic := NewImportContext("/scratch/a.zip", Owner{ID: "o"})
	ic.addCleanup("/scratch/a-1")
	ic.addCleanup("/scratch/a-1")

	if got := ic.CleanupPaths(); len(got) != 1 || got[0] != "/scratch/a-1" {
		t.Errorf("CleanupPaths() = %v", got)
	}

	ic.SetCleanArchive(true)
	got := ic.CleanupPaths()
	if len(got) != 2 || got[1] != "/scratch/a.zip" {
		t.Errorf("CleanupPaths() with clean archive = %v", got)
	}
}

func TestNewRecord(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	owner := Owner{ID: "o", Name: "Owner"}

	file := newRecord(KindFile, "id", owner, "Report.PDF", "app", now)
	if file.Metadata == nil || file.Metadata.Extension != "PDF" || file.Metadata.Filename != "Report.PDF" {
		t.Errorf("file metadata = %+v", file.Metadata)
	}
	if file.Shared == nil || file.InheritedShares == nil {
		t.Error("share lists not initialized")
	}

	folder := newRecord(KindFolder, "id", owner, "docs", "app", now)
	if folder.Metadata != nil || !folder.IsFolder() {
		t.Errorf("folder = %+v", folder)
	}
}
