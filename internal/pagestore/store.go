package pagestore

import (
	"fmt"
	"slices"

	"github.com/starford/pagefs/internal/apperr"
	"github.com/starford/pagefs/internal/models"
)

// Store owns a set of named PagedFiles that share one page size.
type Store struct {
	pageSize int
	files    map[string]*PagedFile
}

// New creates an empty Store. pageSize must be positive.
func New(pageSize int) (*Store, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("pagestore: page size %d: %w", pageSize, apperr.ErrInvalidArgument)
	}
	return &Store{pageSize: pageSize, files: make(map[string]*PagedFile)}, nil
}

// PageSize returns the store's page size in characters.
func (s *Store) PageSize() int {
	return s.pageSize
}

func (s *Store) lookup(name string) (*PagedFile, error) {
	f, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("pagestore: file %q: %w", name, apperr.ErrNotFound)
	}
	return f, nil
}

func (s *Store) lookupPage(name string, page int) (*PagedFile, error) {
	f, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if !f.validPage(page) {
		return nil, fmt.Errorf("pagestore: file %q page %d: %w", name, page, apperr.ErrInvalidPage)
	}
	return f, nil
}

// Create adds a new file holding content.
func (s *Store) Create(name, content string) error {
	if _, ok := s.files[name]; ok {
		return fmt.Errorf("pagestore: file %q: %w", name, apperr.ErrAlreadyExists)
	}
	s.files[name] = newPagedFile(content, s.pageSize)
	return nil
}

// Put creates name or replaces its content, re-paginating from scratch.
// It reports whether the file was newly created.
func (s *Store) Put(name, content string) bool {
	_, existed := s.files[name]
	s.files[name] = newPagedFile(content, s.pageSize)
	return !existed
}

// Read returns the text of one page. With includeSurrounding, the last
// surroundingChars characters of the previous page and the first
// surroundingChars characters of the next page are added around it as
// read-only context.
func (s *Store) Read(name string, page int, includeSurrounding bool, surroundingChars int) (string, error) {
	f, err := s.lookupPage(name, page)
	if err != nil {
		return "", err
	}
	text := f.Page(page)
	if !includeSurrounding {
		return text, nil
	}
	var prev, next string
	if page > 0 {
		prev = tail(f.Page(page-1), surroundingChars)
	}
	if page < f.PageCount()-1 {
		next = head(f.Page(page+1), surroundingChars)
	}
	return prev + text + next, nil
}

// Update replaces a page's text verbatim and then reorganizes the whole file,
// so page boundaries may shift.
func (s *Store) Update(name string, page int, content string) error {
	f, err := s.lookupPage(name, page)
	if err != nil {
		return err
	}
	f.pages[page] = content
	f.repaginate(s.pageSize)
	return nil
}

// Append paginates content on its own and adds the pages after the file's
// last page. The old last page is left as is, so it may be short until
// Reorganize is called.
func (s *Store) Append(name, content string) error {
	f, err := s.lookup(name)
	if err != nil {
		return err
	}
	if content == "" {
		return nil
	}
	f.pages = append(f.pages, Paginate(content, s.pageSize)...)
	return nil
}

// Rename moves a file to a new name.
func (s *Store) Rename(oldName, newName string) error {
	f, err := s.lookup(oldName)
	if err != nil {
		return err
	}
	if _, ok := s.files[newName]; ok {
		return fmt.Errorf("pagestore: file %q: %w", newName, apperr.ErrAlreadyExists)
	}
	delete(s.files, oldName)
	s.files[newName] = f
	return nil
}

// Delete removes a file.
func (s *Store) Delete(name string) error {
	if _, err := s.lookup(name); err != nil {
		return err
	}
	delete(s.files, name)
	return nil
}

// Info reports page count and total size of a file.
func (s *Store) Info(name string) (models.FileInfo, error) {
	f, err := s.lookup(name)
	if err != nil {
		return models.FileInfo{}, err
	}
	return models.FileInfo{Name: name, Pages: f.PageCount(), Size: f.Len()}, nil
}

// Reorganize concatenates a file's pages and splits the result again at
// page-size boundaries.
func (s *Store) Reorganize(name string) error {
	f, err := s.lookup(name)
	if err != nil {
		return err
	}
	f.repaginate(s.pageSize)
	return nil
}

// List returns all file names in ascending order.
func (s *Store) List() []string {
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Pages returns a copy of a file's page sequence.
func (s *Store) Pages(name string) ([]string, error) {
	f, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return f.Pages(), nil
}

// Export returns a copy of one file's pages for persistence.
func (s *Store) Export(name string) (models.FileEntry, error) {
	f, err := s.lookup(name)
	if err != nil {
		return models.FileEntry{}, err
	}
	return models.FileEntry{Name: name, Pages: f.Pages()}, nil
}

// ExportAll returns copies of every file, in name order.
func (s *Store) ExportAll() []models.FileEntry {
	names := s.List()
	out := make([]models.FileEntry, len(names))
	for i, name := range names {
		out[i] = models.FileEntry{Name: name, Pages: s.files[name].Pages()}
	}
	return out
}

// Replace swaps the whole mapping for the given entries, which were split
// with savedPageSize. When that matches the store's page size the pages are
// taken as given, fragmentation included; otherwise every file is
// re-paginated. Duplicate names are rejected and leave the store untouched.
func (s *Store) Replace(entries []models.FileEntry, savedPageSize int) error {
	files := make(map[string]*PagedFile, len(entries))
	for _, e := range entries {
		if _, dup := files[e.Name]; dup {
			return fmt.Errorf("pagestore: file %q: %w", e.Name, apperr.ErrAlreadyExists)
		}
		if savedPageSize != s.pageSize {
			files[e.Name] = newPagedFile(e.Content(), s.pageSize)
			continue
		}
		pages := make([]string, len(e.Pages))
		copy(pages, e.Pages)
		if len(pages) == 0 {
			pages = []string{""}
		}
		files[e.Name] = &PagedFile{pages: pages}
	}
	s.files = files
	return nil
}

// Len returns the number of files in the store.
func (s *Store) Len() int {
	return len(s.files)
}
