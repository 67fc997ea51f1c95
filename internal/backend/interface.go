package backend

import (
	"context"

	"litfunds/internal/ports"
	"litfunds/internal/services"
	"litfunds/internal/sheets"
)

// BackendType names a storage implementation.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

func (t BackendType) IsValid() bool {
	return t == MemoryBackend || t == SQLiteBackend
}

func (t BackendType) String() string {
	return string(t)
}

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Pinger reports whether a backend can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult holds the store the web app runs on. Publisher is nil when
// event publishing is disabled.
type BackendResult struct {
	Store     ports.Store
	Publisher services.Publisher
	Cleanup   CleanupFunc
}

// Ping checks the store when it supports it.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// MirrorResult holds the spreadsheet mirror used by the sync worker.
type MirrorResult struct {
	Mirror sheets.Mirror
	Remote bool
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateMirror(ctx context.Context, config Config) (*MirrorResult, error)
}
