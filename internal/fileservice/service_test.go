package fileservice_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/starford/pagefs/internal/apperr"
	"github.com/starford/pagefs/internal/fileservice"
	"github.com/starford/pagefs/internal/index"
	"github.com/starford/pagefs/internal/models"
	"github.com/starford/pagefs/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) callback(kind, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+":"+name)
}

type memSnapshots struct {
	saved    bool
	entries  []models.FileEntry
	pageSize int
}

func (m *memSnapshots) Save(_ context.Context, entries []models.FileEntry, pageSize int) error {
	m.saved, m.entries, m.pageSize = true, entries, pageSize
	return nil
}

func (m *memSnapshots) Load(_ context.Context) ([]models.FileEntry, int, error) {
	if !m.saved {
		return nil, 0, apperr.ErrNoSnapshot
	}
	return m.entries, m.pageSize, nil
}

func TestLifecycleEmitsEvents(t *testing.T) {
	rec := &recorder{}
	svc, _ := testutil.TestService(t, 10, fileservice.WithEvents(rec.callback))
	ctx := context.Background()

	if err := svc.CreateFile(ctx, "a.txt", "0123456789ABCDE"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := svc.AppendToFile(ctx, "a.txt", "more"); err != nil {
		t.Fatalf("AppendToFile: %v", err)
	}
	if err := svc.ReorganizePages(ctx, "a.txt"); err != nil {
		t.Fatalf("ReorganizePages: %v", err)
	}
	if err := svc.UpdateFile(ctx, "a.txt", 0, "XY"); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}
	if err := svc.RenameFile(ctx, "a.txt", "b.txt"); err != nil {
		t.Fatalf("RenameFile: %v", err)
	}
	if err := svc.DeleteFile(ctx, "b.txt"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}

	want := []string{
		"created:a.txt", "appended:a.txt", "reorganized:a.txt", "updated:a.txt",
		"deleted:a.txt", "renamed:b.txt", "deleted:b.txt",
	}
	if !slices.Equal(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestFailedOperationsEmitNothing(t *testing.T) {
	rec := &recorder{}
	svc, _ := testutil.TestService(t, 10, fileservice.WithEvents(rec.callback))
	ctx := context.Background()

	if err := svc.DeleteFile(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("DeleteFile err = %v", err)
	}
	if err := svc.UpdateFile(ctx, "missing", 0, "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("UpdateFile err = %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("events = %v, want none", rec.events)
	}
}

func TestSaveToDisk(t *testing.T) {
	db := testutil.TestDB(t)
	svc, dir := testutil.TestService(t, 4, fileservice.WithLedger(db))
	ctx := context.Background()

	_ = svc.CreateFile(ctx, "notes.txt", "abcdef")
	_ = svc.AppendToFile(ctx, "notes.txt", "gh")

	written, err := svc.SaveToDisk(ctx, "notes.txt", "")
	if err != nil {
		t.Fatalf("SaveToDisk: %v", err)
	}
	if written != "notes.txt" {
		t.Errorf("written = %q, want default to file name", written)
	}
	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	if err != nil {
		t.Fatalf("read saved: %v", err)
	}
	if string(data) != "abcdefgh" {
		t.Errorf("saved = %q", data)
	}

	if _, err := svc.SaveToDisk(ctx, "notes.txt", "out/copy.txt"); err != nil {
		t.Fatalf("SaveToDisk with path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "copy.txt")); err != nil {
		t.Errorf("copy not written: %v", err)
	}

	last, err := db.LastExport("notes.txt")
	if err != nil || last == nil {
		t.Fatalf("LastExport = %v, %v", last, err)
	}
	if last.Kind != index.KindSave || last.Size != 8 || last.Pages != 3 {
		t.Errorf("ledger row = %+v", last)
	}

	viaSvc, err := svc.LastExport(ctx, "notes.txt")
	if err != nil || viaSvc.Path != "out/copy.txt" {
		t.Errorf("svc.LastExport = %+v, %v", viaSvc, err)
	}
	_ = svc.CreateFile(ctx, "unsaved.txt", "x")
	if _, err := svc.LastExport(ctx, "unsaved.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("LastExport(unsaved) err = %v, want ErrNotFound", err)
	}
}

func TestSaveToDisk_Errors(t *testing.T) {
	svc, _ := testutil.TestService(t, 4)
	ctx := context.Background()

	if _, err := svc.SaveToDisk(ctx, "missing", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	_ = svc.CreateFile(ctx, "f", "x")
	if _, err := svc.SaveToDisk(ctx, "f", "../escape.txt"); err == nil {
		t.Error("expected error for path outside workspace")
	}
}

func TestDumpAll(t *testing.T) {
	db := testutil.TestDB(t)
	svc, dir := testutil.TestService(t, 3, fileservice.WithLedger(db))
	ctx := context.Background()

	_ = svc.CreateFile(ctx, "b.txt", "bbbbbbb")
	_ = svc.CreateFile(ctx, "a.txt", "a")

	used, err := svc.DumpAll(ctx, "")
	if err != nil {
		t.Fatalf("DumpAll: %v", err)
	}
	if used != fileservice.DefaultDumpDir {
		t.Errorf("dir = %q", used)
	}
	for name, want := range map[string]string{"a.txt": "a", "b.txt": "bbbbbbb"} {
		data, err := os.ReadFile(filepath.Join(dir, "dump", name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", name, data, want)
		}
	}

	exports, _ := svc.Exports(ctx, "", 0)
	if len(exports) != 2 {
		t.Errorf("ledger rows = %d, want 2", len(exports))
	}
}

func TestDumpAll_EmptyStoreCreatesDir(t *testing.T) {
	svc, dir := testutil.TestService(t, 3)
	if _, err := svc.DumpAll(context.Background(), "backup"); err != nil {
		t.Fatalf("DumpAll: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "backup"))
	if err != nil || !info.IsDir() {
		t.Errorf("backup dir not created: %v", err)
	}
}

func TestExports_NotConfigured(t *testing.T) {
	svc, _ := testutil.TestService(t, 3)
	if _, err := svc.Exports(context.Background(), "", 0); !errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSnapshotRestore(t *testing.T) {
	snaps := &memSnapshots{}
	rec := &recorder{}
	svc, _ := testutil.TestService(t, 4, fileservice.WithSnapshots(snaps), fileservice.WithEvents(rec.callback))
	ctx := context.Background()

	_ = svc.CreateFile(ctx, "f", "abcdef")
	_ = svc.AppendToFile(ctx, "f", "gh")

	n, err := svc.Snapshot(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Snapshot = %d, %v", n, err)
	}

	_ = svc.DeleteFile(ctx, "f")
	_ = svc.CreateFile(ctx, "other", "x")

	n, err = svc.Restore(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Restore = %d, %v", n, err)
	}
	if got := svc.ListFiles(ctx); !slices.Equal(got, []string{"f"}) {
		t.Errorf("files = %v", got)
	}
	pages, _ := svc.Pages(ctx, "f")
	if !slices.Equal(pages, []string{"abcd", "ef", "gh"}) {
		t.Errorf("pages = %q, want fragmentation preserved", pages)
	}
	if rec.events[len(rec.events)-1] != "restored:f" {
		t.Errorf("last event = %q", rec.events[len(rec.events)-1])
	}
}

func TestRestore_NothingSavedKeepsFiles(t *testing.T) {
	rec := &recorder{}
	svc, _ := testutil.TestService(t, 4, fileservice.WithSnapshots(&memSnapshots{}), fileservice.WithEvents(rec.callback))
	ctx := context.Background()
	_ = svc.CreateFile(ctx, "keep.txt", "precious")

	n, err := svc.Restore(ctx)
	if !errors.Is(err, apperr.ErrNoSnapshot) || n != 0 {
		t.Fatalf("Restore = %d, %v, want ErrNoSnapshot", n, err)
	}
	if got := svc.ListFiles(ctx); !slices.Equal(got, []string{"keep.txt"}) {
		t.Errorf("files = %v, want [keep.txt]", got)
	}
	if rec.events[len(rec.events)-1] != "created:keep.txt" {
		t.Errorf("unexpected events after failed restore: %v", rec.events)
	}
}

func TestRestore_EmptySnapshotClearsStore(t *testing.T) {
	svc, _ := testutil.TestService(t, 4, fileservice.WithSnapshots(&memSnapshots{}))
	ctx := context.Background()

	if n, err := svc.Snapshot(ctx); err != nil || n != 0 {
		t.Fatalf("Snapshot = %d, %v", n, err)
	}
	_ = svc.CreateFile(ctx, "later.txt", "x")
	if n, err := svc.Restore(ctx); err != nil || n != 0 {
		t.Fatalf("Restore = %d, %v", n, err)
	}
	if got := svc.ListFiles(ctx); len(got) != 0 {
		t.Errorf("files = %v, want none", got)
	}
}

func TestRestore_RepaginatesOnPageSizeChange(t *testing.T) {
	snaps := &memSnapshots{}
	ctx := context.Background()

	wide, _ := testutil.TestService(t, 10, fileservice.WithSnapshots(snaps))
	_ = wide.CreateFile(ctx, "a", "0123456789abcdefghij")
	if _, err := wide.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	narrow, _ := testutil.TestService(t, 4, fileservice.WithSnapshots(snaps))
	if n, err := narrow.Restore(ctx); err != nil || n != 1 {
		t.Fatalf("Restore = %d, %v", n, err)
	}
	pages, _ := narrow.Pages(ctx, "a")
	want := []string{"0123", "4567", "89ab", "cdef", "ghij"}
	if !slices.Equal(pages, want) {
		t.Errorf("pages = %q, want %q", pages, want)
	}
	info, _ := narrow.FileInfo(ctx, "a")
	if info.Pages != 5 || info.Size != 20 {
		t.Errorf("info = %+v", info)
	}
}

func TestEventsFollowMutationOrder(t *testing.T) {
	rec := &recorder{}
	svc, _ := testutil.TestService(t, 4, fileservice.WithEvents(rec.callback))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.CreateFile(ctx, "race", "x"); err == nil {
				_ = svc.DeleteFile(ctx, "race")
			}
		}()
	}
	wg.Wait()

	exists := false
	for _, ev := range rec.events {
		switch ev {
		case "created:race":
			if exists {
				t.Fatalf("created twice without delete: %v", rec.events)
			}
			exists = true
		case "deleted:race":
			if !exists {
				t.Fatalf("deleted before created: %v", rec.events)
			}
			exists = false
		}
	}
}

func TestSnapshot_NotConfigured(t *testing.T) {
	svc, _ := testutil.TestService(t, 4)
	ctx := context.Background()
	if _, err := svc.Snapshot(ctx); !errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("Snapshot err = %v", err)
	}
	if _, err := svc.Restore(ctx); !errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("Restore err = %v", err)
	}
}

func TestPutFile(t *testing.T) {
	rec := &recorder{}
	svc, _ := testutil.TestService(t, 4, fileservice.WithEvents(rec.callback))
	ctx := context.Background()

	if !svc.PutFile(ctx, "seed.txt", "one") {
		t.Error("first PutFile should create")
	}
	if svc.PutFile(ctx, "seed.txt", "two two") {
		t.Error("second PutFile should replace")
	}
	info, _ := svc.FileInfo(ctx, "seed.txt")
	if info.Size != 7 || info.Pages != 2 {
		t.Errorf("info = %+v", info)
	}
	if !slices.Equal(rec.events, []string{"created:seed.txt", "updated:seed.txt"}) {
		t.Errorf("events = %v", rec.events)
	}
}

func TestConcurrentAppends(t *testing.T) {
	svc, _ := testutil.TestService(t, 8)
	ctx := context.Background()
	_ = svc.CreateFile(ctx, "log", "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.AppendToFile(ctx, "log", "abc")
		}()
	}
	wg.Wait()

	info, _ := svc.FileInfo(ctx, "log")
	if info.Size != 150 {
		t.Errorf("size = %d, want 150", info.Size)
	}
}
