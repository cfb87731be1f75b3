package engine

import (
	"context"

	"github.com/stacklok/toolhive-assetsync/internal/checker"
	"github.com/stacklok/toolhive-assetsync/internal/git"
	"github.com/stacklok/toolhive-assetsync/internal/store"
)

//go:generate mockgen -destination=mocks/mock_syncer.go -package=mocks -source=syncer.go Syncer

// Syncer is the part of the engine that keeps resources current
type Syncer interface {
	// CheckForUpdate compares the recorded revision with the remote branch tip
	CheckForUpdate(ctx context.Context, locale, typ string) (*checker.Result, error)

	// Download clones a resource that has no working copy yet
	Download(ctx context.Context, locale, typ string, onProgress git.ProgressFunc) error

	// Update fetches and checks out the branch tip of an existing working copy
	Update(ctx context.Context, locale, typ string, onProgress git.ProgressFunc) (UpdateStatus, error)

	// Sync downloads or updates, whichever applies
	Sync(ctx context.Context, locale, typ string, onProgress git.ProgressFunc) (UpdateStatus, error)

	// Record returns the revision record of a resource, or nil when it has no working copy
	Record(locale, typ string) (*store.Record, error)
}

var _ Syncer = (*Engine)(nil)
