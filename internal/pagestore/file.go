// Package pagestore implements the in-memory paged file store.
//
// A Store maps file names to PagedFiles. Each PagedFile holds its content as an
// ordered list of pages of at most pageSize characters. Page lengths are counted
// in Unicode code points, so a page never splits a multi-byte character.
//
// The Store is not safe for concurrent use; callers that share one across
// goroutines must guard it with their own lock.
package pagestore

import (
	"strings"
	"unicode/utf8"
)

// Paginate splits content into consecutive chunks of pageSize characters.
// The last chunk holds the remainder. Empty content yields a single empty page.
func Paginate(content string, pageSize int) []string {
	if pageSize <= 0 {
		panic("pagestore: page size must be positive")
	}
	n := utf8.RuneCountInString(content)
	if n == 0 {
		return []string{""}
	}
	pages := make([]string, 0, (n+pageSize-1)/pageSize)
	start, count := 0, 0
	for i := range content {
		if count == pageSize {
			pages = append(pages, content[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(pages, content[start:])
}

// PagedFile is one virtual file's content as an ordered page sequence.
type PagedFile struct {
	pages []string
}

func newPagedFile(content string, pageSize int) *PagedFile {
	return &PagedFile{pages: Paginate(content, pageSize)}
}

// Content returns the concatenation of all pages.
func (f *PagedFile) Content() string {
	return strings.Join(f.pages, "")
}

// Len returns the total content length in characters.
func (f *PagedFile) Len() int {
	n := 0
	for _, p := range f.pages {
		n += utf8.RuneCountInString(p)
	}
	return n
}

// PageCount returns the number of pages.
func (f *PagedFile) PageCount() int {
	return len(f.pages)
}

// Page returns the text of page i. The caller validates i.
func (f *PagedFile) Page(i int) string {
	return f.pages[i]
}

// Pages returns a copy of the page sequence.
func (f *PagedFile) Pages() []string {
	out := make([]string, len(f.pages))
	copy(out, f.pages)
	return out
}

func (f *PagedFile) validPage(i int) bool {
	return i >= 0 && i < len(f.pages)
}

// repaginate re-derives the pages from the current content.
func (f *PagedFile) repaginate(pageSize int) {
	f.pages = Paginate(f.Content(), pageSize)
}

// tail returns the last n characters of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := len(s)
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

// head returns the first n characters of s.
func head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}
