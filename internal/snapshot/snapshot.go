// Package snapshot saves and restores the whole virtual file set in BadgerDB.
//
// Each file is stored under its own key ("file:<name>") as a msgpack record
// compressed with zstd. A "meta" key records the page size the files were
// split with; its absence means nothing was ever saved. Saving replaces the
// previous snapshot entirely.
// Snapshots are taken on request only; nothing is written implicitly.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/starford/pagefs/internal/apperr"
	"github.com/starford/pagefs/internal/models"
)

const (
	keyPrefix = "file:"
	metaKey   = "meta"
)

// meta describes the snapshot as a whole.
type meta struct {
	PageSize int       `msgpack:"page_size"`
	Files    int       `msgpack:"files"`
	SavedAt  time.Time `msgpack:"saved_at"`
}

// record is the stored form of one file.
type record struct {
	Name     string    `msgpack:"name"`
	Pages    []string  `msgpack:"pages"`
	PageSize int       `msgpack:"page_size"`
	SavedAt  time.Time `msgpack:"saved_at"`
}

// Options configures the snapshot store.
type Options struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without touching disk. Used in tests.
	InMemory bool
}

// Store persists snapshots of virtual files.
type Store struct {
	db *badger.DB

	encOnce sync.Once
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	initErr error
}

// Open opens (or creates) a snapshot store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("snapshot: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(quietLogger{})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	s.encOnce.Do(func() {
		s.enc, s.initErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if s.initErr != nil {
			return
		}
		s.dec, s.initErr = zstd.NewReader(nil)
	})
	return s.enc, s.dec, s.initErr
}

// Save replaces the stored snapshot with entries.
func (s *Store) Save(_ context.Context, entries []models.FileEntry, pageSize int) error {
	enc, _, err := s.codecs()
	if err != nil {
		return fmt.Errorf("snapshot: init zstd: %w", err)
	}
	stale, err := s.keys()
	if err != nil {
		return fmt.Errorf("snapshot: list previous: %w", err)
	}

	now := time.Now().UTC()
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range entries {
		delete(stale, e.Name)
	}
	for name := range stale {
		if err := wb.Delete([]byte(keyPrefix + name)); err != nil {
			return fmt.Errorf("snapshot: stage delete %q: %w", name, err)
		}
	}
	for _, e := range entries {
		raw, err := msgpack.Marshal(record{Name: e.Name, Pages: e.Pages, PageSize: pageSize, SavedAt: now})
		if err != nil {
			return fmt.Errorf("snapshot: encode %q: %w", e.Name, err)
		}
		if err := wb.Set([]byte(keyPrefix+e.Name), enc.EncodeAll(raw, nil)); err != nil {
			return fmt.Errorf("snapshot: stage %q: %w", e.Name, err)
		}
	}
	rawMeta, err := msgpack.Marshal(meta{PageSize: pageSize, Files: len(entries), SavedAt: now})
	if err != nil {
		return fmt.Errorf("snapshot: encode meta: %w", err)
	}
	if err := wb.Set([]byte(metaKey), rawMeta); err != nil {
		return fmt.Errorf("snapshot: stage meta: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("snapshot: flush: %w", err)
	}
	return nil
}

// keys returns the names currently stored.
func (s *Store) keys() (map[string]struct{}, error) {
	prefix := []byte(keyPrefix)
	out := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			out[strings.TrimPrefix(string(it.Item().Key()), keyPrefix)] = struct{}{}
		}
		return nil
	})
	return out, err
}

// Load returns every stored file in name order together with the page size
// the files were split with. It fails with apperr.ErrNoSnapshot when Save
// was never called.
func (s *Store) Load(_ context.Context) ([]models.FileEntry, int, error) {
	_, dec, err := s.codecs()
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot: init zstd: %w", err)
	}
	prefix := []byte(keyPrefix)
	out := []models.FileEntry{}
	var m meta
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperr.ErrNoSnapshot
		}
		if err != nil {
			return fmt.Errorf("read meta: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &m)
		}); err != nil {
			return fmt.Errorf("decode meta: %w", err)
		}

		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), keyPrefix)
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %q: %w", name, err)
			}
			raw, err := dec.DecodeAll(val, nil)
			if err != nil {
				return fmt.Errorf("decompress %q: %w", name, err)
			}
			var rec record
			if err := msgpack.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("decode %q: %w", name, err)
			}
			out = append(out, models.FileEntry{Name: rec.Name, Pages: rec.Pages})
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot: load: %w", err)
	}
	return out, m.PageSize, nil
}

// Close releases the codecs and closes the database.
func (s *Store) Close() error {
	if s.enc != nil {
		_ = s.enc.Close()
	}
	if s.dec != nil {
		s.dec.Close()
	}
	return s.db.Close()
}

// quietLogger forwards badger warnings and errors to the default slog logger
// and drops the rest.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{}) {
	slog.Default().Error("snapshot: badger", slog.String("error", strings.TrimSpace(fmt.Sprintf(f, v...))))
}

func (quietLogger) Warningf(f string, v ...interface{}) {
	slog.Default().Warn("snapshot: badger", slog.String("message", strings.TrimSpace(fmt.Sprintf(f, v...))))
}
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
