// Package service provides the read-only business logic behind the asset sync HTTP API
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/stacklok/toolhive-assetsync/internal/checker"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/status"
)

// ErrResourceNotFound is returned when a resource has neither a working copy nor a watch status
var ErrResourceNotFound = errors.New("resource not found")

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go AssetService

// AssetService defines the read operations exposed over HTTP
type AssetService interface {
	// CheckReadiness checks if the service is ready to serve requests
	CheckReadiness(ctx context.Context) error

	// ListResources returns every known resource, sorted by key
	ListResources(ctx context.Context, opts ...Option[ListResourcesOptions]) ([]*ResourceInfo, error)

	// GetResource returns one resource
	GetResource(ctx context.Context, key naming.ResourceKey) (*ResourceInfo, error)

	// CheckForUpdate compares the recorded revision of key with the remote branch tip
	CheckForUpdate(ctx context.Context, key naming.ResourceKey) (*checker.Result, error)

	// FileHash returns the digest of a file in the working copy of key
	FileHash(ctx context.Context, key naming.ResourceKey, path string) (digest.Digest, error)

	// FileData returns the bytes of a file in the working copy of key
	FileData(ctx context.Context, key naming.ResourceKey, path string) ([]byte, error)

	// ListDirectory returns the sorted entry names of a directory in the working copy of key
	ListDirectory(ctx context.Context, key naming.ResourceKey, path string) ([]string, error)
}

// ResourceInfo describes one resource as seen by the engine and the watcher
type ResourceInfo struct {
	Locale string `json:"locale"`
	Type   string `json:"type"`
	Branch string `json:"branch"`

	// Downloaded reports whether the resource has a working copy
	Downloaded bool `json:"downloaded"`

	// Revision is the checked out commit, empty when not downloaded
	Revision  string     `json:"revision,omitempty"`
	Remote    string     `json:"remote,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`

	// Watch is the watcher's status, nil when the resource is not watched
	Watch *status.SyncStatus `json:"watch,omitempty"`
}

// Key returns the resource key of the info
func (r *ResourceInfo) Key() naming.ResourceKey {
	return naming.ResourceKey{Locale: r.Locale, Type: r.Type}
}

// Option is a function that sets an option for the ListResources operation
type Option[T ListResourcesOptions] func(*T) error

// ListResourcesOptions is the options for the ListResources operation
type ListResourcesOptions struct {
	Locale string
	Type   string
}

// WithLocale restricts ListResources to one locale
func WithLocale(locale string) Option[ListResourcesOptions] {
	return func(o *ListResourcesOptions) error {
		if locale == "" {
			return fmt.Errorf("invalid locale: %s", locale)
		}
		o.Locale = locale
		return nil
	}
}

// WithType restricts ListResources to one resource type
func WithType(typ string) Option[ListResourcesOptions] {
	return func(o *ListResourcesOptions) error {
		if typ == "" {
			return fmt.Errorf("invalid type: %s", typ)
		}
		o.Type = typ
		return nil
	}
}
