package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/opencontainers/go-digest"

	"github.com/stacklok/toolhive-assetsync/internal/checker"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/status"
	"github.com/stacklok/toolhive-assetsync/internal/store"
)

// Engine is the part of the sync engine the service reads through
type Engine interface {
	List(ctx context.Context) ([]*store.Record, error)
	Record(locale, typ string) (*store.Record, error)
	CheckForUpdate(ctx context.Context, locale, typ string) (*checker.Result, error)
	FileHash(path, locale, typ string) (digest.Digest, error)
	FileData(path, locale, typ string) ([]byte, error)
	ContentsOfDirectory(path, locale, typ string) ([]string, error)
}

// StatusSource provides the watcher's per-resource status
type StatusSource interface {
	GetStatus(key naming.ResourceKey) *status.SyncStatus
	GetAllStatus() map[naming.ResourceKey]*status.SyncStatus
}

// assetService implements AssetService on top of an engine and an optional watcher
type assetService struct {
	engine  Engine
	watcher StatusSource
}

// New creates an AssetService. watcher may be nil when no resources are watched.
func New(engine Engine, watcher StatusSource) AssetService {
	return &assetService{engine: engine, watcher: watcher}
}

// CheckReadiness succeeds once the engine can list its working copies
func (s *assetService) CheckReadiness(ctx context.Context) error {
	if _, err := s.engine.List(ctx); err != nil {
		return fmt.Errorf("engine not ready: %w", err)
	}
	return nil
}

// ListResources merges the engine's records with the watched resources
func (s *assetService) ListResources(
	ctx context.Context, opts ...Option[ListResourcesOptions],
) ([]*ResourceInfo, error) {
	options := &ListResourcesOptions{}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	records, err := s.engine.List(ctx)
	if err != nil {
		return nil, err
	}

	byKey := make(map[naming.ResourceKey]*ResourceInfo, len(records))
	for _, record := range records {
		byKey[record.Key()] = infoFromRecord(record)
	}
	if s.watcher != nil {
		for key, st := range s.watcher.GetAllStatus() {
			info, ok := byKey[key]
			if !ok {
				info = infoFromKey(key)
				byKey[key] = info
			}
			info.Watch = st
		}
	}

	result := make([]*ResourceInfo, 0, len(byKey))
	for key, info := range byKey {
		if options.Locale != "" && key.Locale != options.Locale {
			continue
		}
		if options.Type != "" && key.Type != options.Type {
			continue
		}
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key().String() < result[j].Key().String()
	})
	return result, nil
}

// GetResource returns ErrResourceNotFound when key is neither downloaded nor watched
func (s *assetService) GetResource(_ context.Context, key naming.ResourceKey) (*ResourceInfo, error) {
	record, err := s.engine.Record(key.Locale, key.Type)
	if err != nil {
		return nil, err
	}

	var info *ResourceInfo
	if record != nil {
		info = infoFromRecord(record)
	}
	if s.watcher != nil {
		if st := s.watcher.GetStatus(key); st != nil {
			if info == nil {
				info = infoFromKey(key)
			}
			info.Watch = st
		}
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, key)
	}
	return info, nil
}

func (s *assetService) CheckForUpdate(ctx context.Context, key naming.ResourceKey) (*checker.Result, error) {
	return s.engine.CheckForUpdate(ctx, key.Locale, key.Type)
}

func (s *assetService) FileHash(_ context.Context, key naming.ResourceKey, path string) (digest.Digest, error) {
	return s.engine.FileHash(path, key.Locale, key.Type)
}

func (s *assetService) FileData(_ context.Context, key naming.ResourceKey, path string) ([]byte, error) {
	return s.engine.FileData(path, key.Locale, key.Type)
}

func (s *assetService) ListDirectory(_ context.Context, key naming.ResourceKey, path string) ([]string, error) {
	return s.engine.ContentsOfDirectory(path, key.Locale, key.Type)
}

func infoFromRecord(record *store.Record) *ResourceInfo {
	updatedAt := record.UpdatedAt
	return &ResourceInfo{
		Locale:     record.Locale,
		Type:       record.Type,
		Branch:     record.Branch,
		Downloaded: true,
		Revision:   record.Revision,
		Remote:     record.Remote,
		UpdatedAt:  &updatedAt,
	}
}

func infoFromKey(key naming.ResourceKey) *ResourceInfo {
	return &ResourceInfo{
		Locale: key.Locale,
		Type:   key.Type,
		Branch: key.String(),
	}
}
