package index

import "github.com/starford/pagefs/internal/models"

// Ledger defines the export-ledger operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Ledger interface {
	RecordExport(e models.Export) error
	ListExports(name string, limit int) ([]models.Export, error)
	LastExport(name string) (*models.Export, error)
	Close() error
}

// Verify *DB satisfies Ledger at compile time.
var _ Ledger = (*DB)(nil)
