package pagestore

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/starford/pagefs/internal/apperr"
	"github.com/starford/pagefs/internal/models"
)

func newStore(t *testing.T, pageSize int) *Store {
	t.Helper()
	s, err := New(pageSize)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestPaginate(t *testing.T) {
	cases := []struct {
		content  string
		pageSize int
		want     []string
	}{
		{"", 10, []string{""}},
		{"abc", 10, []string{"abc"}},
		{"0123456789", 10, []string{"0123456789"}},
		{"0123456789ABCDE", 10, []string{"0123456789", "ABCDE"}},
		{"abcdef", 2, []string{"ab", "cd", "ef"}},
		{"héllo wörld", 3, []string{"hél", "lo ", "wör", "ld"}},
	}
	for _, tc := range cases {
		got := Paginate(tc.content, tc.pageSize)
		if !slices.Equal(got, tc.want) {
			t.Errorf("Paginate(%q, %d) = %q, want %q", tc.content, tc.pageSize, got, tc.want)
		}
	}
}

func TestPaginate_RoundTrip(t *testing.T) {
	contents := []string{"", "x", strings.Repeat("abc", 33), "日本語のテキスト", strings.Repeat("z", 40)}
	for _, content := range contents {
		for size := 1; size <= 12; size++ {
			pages := Paginate(content, size)
			if got := strings.Join(pages, ""); got != content {
				t.Fatalf("join = %q, want %q", got, content)
			}
			n := utf8.RuneCountInString(content)
			want := (n + size - 1) / size
			if n == 0 {
				want = 1
			}
			if len(pages) != want {
				t.Errorf("len(Paginate(%q, %d)) = %d, want %d", content, size, len(pages), want)
			}
		}
	}
}

func TestNew_RejectsNonPositivePageSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("New(%d) err = %v, want ErrInvalidArgument", size, err)
		}
	}
}

func TestScenario_UpdateMergesPages(t *testing.T) {
	s := newStore(t, 10)
	if err := s.Create("a.txt", "0123456789ABCDE"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	pages, _ := s.Pages("a.txt")
	if !slices.Equal(pages, []string{"0123456789", "ABCDE"}) {
		t.Fatalf("pages = %q", pages)
	}
	got, err := s.Read("a.txt", 1, false, 0)
	if err != nil || got != "ABCDE" {
		t.Fatalf("Read = %q, %v", got, err)
	}
	if err := s.Update("a.txt", 0, "XY"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	pages, _ = s.Pages("a.txt")
	if !slices.Equal(pages, []string{"XYABCDE"}) {
		t.Errorf("pages after update = %q, want [XYABCDE]", pages)
	}
	info, err := s.Info("a.txt")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Pages != 1 || info.Size != 7 {
		t.Errorf("info = %+v, want 1 page and 7 characters", info)
	}
}

func TestRead_SurroundingContext(t *testing.T) {
	s := newStore(t, 10)
	_ = s.Create("f", "0123456789abcdefghijABCDEFGHIJ")

	got, err := s.Read("f", 1, true, 5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := "56789abcdefghijABCDE"; got != want {
		t.Errorf("Read = %q, want %q", got, want)
	}

	first, _ := s.Read("f", 0, true, 3)
	if first != "0123456789abc" {
		t.Errorf("first page = %q", first)
	}
	last, _ := s.Read("f", 2, true, 3)
	if last != "hijABCDEFGHIJ" {
		t.Errorf("last page = %q", last)
	}
}

func TestRead_SurroundingEdgeValues(t *testing.T) {
	s := newStore(t, 4)
	_ = s.Create("f", "aaaabbbbcc")

	got, _ := s.Read("f", 1, true, 100)
	if got != "aaaabbbbcc" {
		t.Errorf("oversized surrounding = %q", got)
	}
	got, _ = s.Read("f", 1, true, 0)
	if got != "bbbb" {
		t.Errorf("zero surrounding = %q", got)
	}
	got, _ = s.Read("f", 1, true, -3)
	if got != "bbbb" {
		t.Errorf("negative surrounding = %q", got)
	}
}

func TestRead_InvalidPage(t *testing.T) {
	s := newStore(t, 10)
	_ = s.Create("f", "short")
	for _, page := range []int{1, 5, -1} {
		if _, err := s.Read("f", page, false, 0); !errors.Is(err, apperr.ErrInvalidPage) {
			t.Errorf("Read page %d err = %v, want ErrInvalidPage", page, err)
		}
	}
	if _, err := s.Read("missing", 0, false, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Read missing err = %v, want ErrNotFound", err)
	}
}

func TestUpdate_RestoresBoundaries(t *testing.T) {
	s := newStore(t, 5)
	_ = s.Create("f", "aaaaabbbbbccccc")
	if err := s.Update("f", 1, "0123456789012"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	pages, _ := s.Pages("f")
	if got, want := strings.Join(pages, ""), "aaaaa0123456789012ccccc"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
	for i, p := range pages[:len(pages)-1] {
		if len(p) != 5 {
			t.Errorf("page %d len = %d, want 5", i, len(p))
		}
	}
}

func TestUpdate_FailureLeavesStateUnchanged(t *testing.T) {
	s := newStore(t, 5)
	_ = s.Create("f", "abcdefg")
	if err := s.Update("f", 2, "zzz"); !errors.Is(err, apperr.ErrInvalidPage) {
		t.Fatalf("err = %v, want ErrInvalidPage", err)
	}
	if err := s.Update("nope", 0, "zzz"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	pages, _ := s.Pages("f")
	if !slices.Equal(pages, []string{"abcde", "fg"}) {
		t.Errorf("pages = %q", pages)
	}
}

func TestAppend_FragmentsThenReorganizeRepairs(t *testing.T) {
	s := newStore(t, 4)
	_ = s.Create("f", "abcdef")
	if err := s.Append("f", "ghijk"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	pages, _ := s.Pages("f")
	if !slices.Equal(pages, []string{"abcd", "ef", "ghij", "k"}) {
		t.Errorf("pages after append = %q", pages)
	}
	if err := s.Reorganize("f"); err != nil {
		t.Fatalf("Reorganize: %v", err)
	}
	pages, _ = s.Pages("f")
	if !slices.Equal(pages, []string{"abcd", "efgh", "ijk"}) {
		t.Errorf("pages after reorganize = %q", pages)
	}
}

func TestAppend_EmptyContentIsNoop(t *testing.T) {
	s := newStore(t, 4)
	_ = s.Create("f", "ab")
	_ = s.Append("f", "")
	if info, _ := s.Info("f"); info.Pages != 1 {
		t.Errorf("pages = %d, want 1", info.Pages)
	}
	if err := s.Append("missing", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReorganize_Idempotent(t *testing.T) {
	s := newStore(t, 3)
	_ = s.Create("f", "ab")
	_ = s.Append("f", "cdefg")
	_ = s.Append("f", "h")
	_ = s.Reorganize("f")
	once, _ := s.Pages("f")
	_ = s.Reorganize("f")
	twice, _ := s.Pages("f")
	if !slices.Equal(once, twice) {
		t.Errorf("once = %q, twice = %q", once, twice)
	}
}

func TestCreate_DuplicateLeavesOriginal(t *testing.T) {
	s := newStore(t, 10)
	_ = s.Create("f", "original")
	if err := s.Create("f", "other"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	got, _ := s.Read("f", 0, false, 0)
	if got != "original" {
		t.Errorf("content = %q", got)
	}
}

func TestCreate_EmptyContent(t *testing.T) {
	s := newStore(t, 10)
	if err := s.Create("empty", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	info, _ := s.Info("empty")
	if info.Pages != 1 || info.Size != 0 {
		t.Errorf("info = %+v", info)
	}
	got, err := s.Read("empty", 0, true, 10)
	if err != nil || got != "" {
		t.Errorf("Read = %q, %v", got, err)
	}
}

func TestRename(t *testing.T) {
	s := newStore(t, 10)
	_ = s.Create("a", "alpha")
	_ = s.Create("b", "beta")

	if err := s.Rename("a", "b"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("rename onto existing err = %v", err)
	}
	if got, _ := s.Read("a", 0, false, 0); got != "alpha" {
		t.Errorf("a = %q", got)
	}
	if got, _ := s.Read("b", 0, false, 0); got != "beta" {
		t.Errorf("b = %q", got)
	}

	if err := s.Rename("missing", "c"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("rename missing err = %v", err)
	}

	if err := s.Rename("a", "c"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := s.Info("a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old name still resolves: %v", err)
	}
	if got, _ := s.Read("c", 0, false, 0); got != "alpha" {
		t.Errorf("c = %q", got)
	}
}

func TestDeleteAndList(t *testing.T) {
	s := newStore(t, 10)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_ = s.Create(name, name)
	}
	if got := s.List(); !slices.Equal(got, []string{"alpha", "mid", "zeta"}) {
		t.Errorf("List = %v", got)
	}
	if err := s.Delete("mid"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("mid"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestReturnedPagesAreCopies(t *testing.T) {
	s := newStore(t, 2)
	_ = s.Create("f", "abcd")
	pages, _ := s.Pages("f")
	pages[0] = "XX"
	entry, _ := s.Export("f")
	entry.Pages[1] = "YY"
	if got, _ := s.Read("f", 0, false, 0); got != "ab" {
		t.Errorf("page 0 = %q", got)
	}
	if got, _ := s.Read("f", 1, false, 0); got != "cd" {
		t.Errorf("page 1 = %q", got)
	}
}

func TestExportAll_NameOrder(t *testing.T) {
	s := newStore(t, 3)
	_ = s.Create("b", "bbbbb")
	_ = s.Create("a", "aa")
	entries := s.ExportAll()
	if len(entries) != 2 || entries[0].Name != "a" || entries[1].Name != "b" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[1].Content() != "bbbbb" {
		t.Errorf("content = %q", entries[1].Content())
	}
}

func TestPut(t *testing.T) {
	s := newStore(t, 3)
	if created := s.Put("f", "abcd"); !created {
		t.Error("first Put should report created")
	}
	if created := s.Put("f", "xy"); created {
		t.Error("second Put should report replaced")
	}
	pages, _ := s.Pages("f")
	if !slices.Equal(pages, []string{"xy"}) {
		t.Errorf("pages = %q", pages)
	}
}

func TestReplace(t *testing.T) {
	s := newStore(t, 3)
	_ = s.Create("old", "data")

	err := s.Replace([]models.FileEntry{{Name: "x"}, {Name: "x"}}, 3)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := s.Info("old"); err != nil {
		t.Fatalf("failed Replace mutated store: %v", err)
	}

	err = s.Replace([]models.FileEntry{
		{Name: "frag", Pages: []string{"ab", "cde"}},
		{Name: "empty"},
	}, 3)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got := s.List(); !slices.Equal(got, []string{"empty", "frag"}) {
		t.Errorf("List = %v", got)
	}
	pages, _ := s.Pages("frag")
	if !slices.Equal(pages, []string{"ab", "cde"}) {
		t.Errorf("pages kept as given = %q", pages)
	}
	if info, _ := s.Info("empty"); info.Pages != 1 {
		t.Errorf("empty entry pages = %d", info.Pages)
	}
}

func TestReplace_RepaginatesOnPageSizeChange(t *testing.T) {
	s := newStore(t, 4)
	err := s.Replace([]models.FileEntry{
		{Name: "a", Pages: []string{"0123456789", "abcdefghij"}},
		{Name: "frag", Pages: []string{"ab", "c"}},
	}, 10)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	pages, _ := s.Pages("a")
	want := []string{"0123", "4567", "89ab", "cdef", "ghij"}
	if !slices.Equal(pages, want) {
		t.Errorf("pages = %q, want %q", pages, want)
	}
	pages, _ = s.Pages("frag")
	if !slices.Equal(pages, []string{"abc"}) {
		t.Errorf("frag pages = %q, want [abc]", pages)
	}
	got, err := s.Read("a", 2, false, 0)
	if err != nil || got != "89ab" {
		t.Errorf("Read page 2 = %q, %v", got, err)
	}
}
