package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("hello\nworld\n")
	if err := s.Write("note.txt", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("dump/nested/c.txt", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("dump/nested/c.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWritePages(t *testing.T) {
	s := tempRoot(t)
	if err := WritePages(s, "paged.txt", []string{"ab", "cd", "e"}); err != nil {
		t.Fatalf("WritePages: %v", err)
	}
	got, _ := s.Read("paged.txt")
	if string(got) != "abcde" {
		t.Errorf("content = %q, want %q", got, "abcde")
	}
}

func TestMkdirAll(t *testing.T) {
	s := tempRoot(t)
	if err := s.MkdirAll("dump"); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "dump"))
	if err != nil || !info.IsDir() {
		t.Errorf("dump dir not created: %v", err)
	}
	if err := s.MkdirAll("dump"); err != nil {
		t.Errorf("MkdirAll on existing dir: %v", err)
	}
}

func TestList_TopLevelRegularFiles(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("a.txt", []byte("a"))
	_ = s.Write("b.md", []byte("b"))
	_ = s.Write("sub/c.txt", []byte("c"))
	_ = os.WriteFile(filepath.Join(s.Root(), ".hidden"), []byte("h"), 0o644)

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("%s: empty checksum", it.Path)
		}
	}

	sub, err := s.List("sub")
	if err != nil {
		t.Fatalf("List sub: %v", err)
	}
	if len(sub) != 1 || sub[0].Path != "sub/c.txt" {
		t.Errorf("sub = %+v", sub)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.txt",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.MkdirAll(p); err == nil {
			t.Errorf("expected error for mkdir %q", p)
		}
	}
}

func TestWriteRootRejected(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("", []byte("x")); err == nil {
		t.Error("expected error writing to root")
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.txt", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.txt", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.txt")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "pagefs-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
