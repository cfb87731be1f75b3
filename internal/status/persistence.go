// Package status tracks and persists the watcher's sync status per resource.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stacklok/toolhive-assetsync/internal/naming"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"
)

// StatusPersistence defines the interface for sync status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the sync status of key
	SaveStatus(ctx context.Context, key naming.ResourceKey, status *SyncStatus) error

	// LoadStatus loads the sync status of key.
	// Returns an empty SyncStatus if none was saved yet.
	LoadStatus(ctx context.Context, key naming.ResourceKey) (*SyncStatus, error)

	// LoadAllStatus loads the sync status of every resource that has one
	LoadAllStatus(ctx context.Context) (map[naming.ResourceKey]*SyncStatus, error)
}

// fileStatusPersistence keeps one JSON file per resource below basePath/<locale>/<type>/
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

func (f *fileStatusPersistence) statusPath(key naming.ResourceKey) string {
	return filepath.Join(f.basePath, key.Locale, key.Type, StatusFileName)
}

// SaveStatus writes the status through a temporary file and an atomic rename
func (f *fileStatusPersistence) SaveStatus(_ context.Context, key naming.ResourceKey, status *SyncStatus) error {
	if err := key.Validate(); err != nil {
		return err
	}

	filePath := f.statusPath(key)
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("failed to create status directory for '%s': %w", key, err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status data for '%s': %w", key, err)
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for '%s': %w", key, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for '%s': %w", key, err)
	}

	return nil
}

// LoadStatus reads the status file of key
func (f *fileStatusPersistence) LoadStatus(_ context.Context, key naming.ResourceKey) (*SyncStatus, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	// #nosec G304 -- the path is built from the base path and a validated resource key
	data, err := os.ReadFile(f.statusPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return &SyncStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file for '%s': %w", key, err)
	}

	var status SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for '%s': %w", key, err)
	}

	return &status, nil
}

// LoadAllStatus walks basePath/<locale>/<type> and loads every status file found
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[naming.ResourceKey]*SyncStatus, error) {
	result := make(map[naming.ResourceKey]*SyncStatus)

	locales, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, locale := range locales {
		if !locale.IsDir() {
			continue
		}
		types, err := os.ReadDir(filepath.Join(f.basePath, locale.Name()))
		if err != nil {
			continue
		}
		for _, typ := range types {
			if !typ.IsDir() {
				continue
			}
			key, err := naming.NewResourceKey(locale.Name(), typ.Name())
			if err != nil {
				continue
			}
			if _, err := os.Stat(f.statusPath(key)); err != nil {
				continue
			}
			// A corrupt file only hides that resource
			status, err := f.LoadStatus(ctx, key)
			if err != nil {
				continue
			}
			result[key] = status
		}
	}

	return result, nil
}
