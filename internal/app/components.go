package app

import (
	"github.com/stacklok/toolhive-assetsync/internal/coordinator"
	"github.com/stacklok/toolhive-assetsync/internal/engine"
	"github.com/stacklok/toolhive-assetsync/internal/service"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Engine owns the working copies of the data directory
	Engine *engine.Engine

	// SyncCoordinator keeps the watched resources current; nil when nothing is watched
	SyncCoordinator coordinator.Coordinator

	// AssetService provides the read operations behind the HTTP API
	AssetService service.AssetService
}
