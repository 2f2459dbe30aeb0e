package backend

import (
	"context"

	"dompet/internal/services"
	"dompet/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is a ready ledger service and the store behind it.
type BackendResult struct {
	Store   storage.Store
	Ledger  *services.LedgerService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
