package storage

import (
	"github.com/IshaanNene/nfrminer/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists a batch of issues.
	Store(issues []*types.Issue) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}
