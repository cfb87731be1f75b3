package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stacklok/toolhive-assetsync/internal/naming"
)

//go:generate mockgen -destination=mocks/mock_record_persistence.go -package=mocks -source=persistence.go RecordPersistence

const (
	// RecordFileName is the name of the per-key revision record file
	RecordFileName = "revision.json"
)

// Record is the persisted state of one working copy
type Record struct {
	// Locale of the resource
	Locale string `json:"locale"`

	// Type of the resource
	Type string `json:"type"`

	// Branch the working copy tracks
	Branch string `json:"branch"`

	// Revision is the commit checked out at the last successful sync
	Revision string `json:"revision"`

	// Remote is the repository URL the working copy was synced from
	Remote string `json:"remote,omitempty"`

	// UpdatedAt is the time of the last successful sync
	UpdatedAt time.Time `json:"updatedAt"`
}

// Key returns the resource key of the record
func (r *Record) Key() naming.ResourceKey {
	return naming.ResourceKey{Locale: r.Locale, Type: r.Type}
}

// RecordPersistence stores revision records
type RecordPersistence interface {
	// SaveRecord atomically replaces the record for a key
	SaveRecord(key naming.ResourceKey, record *Record) error

	// LoadRecord returns the record for a key, or nil if there is none
	LoadRecord(key naming.ResourceKey) (*Record, error)

	// DeleteRecord removes the record for a key; deleting a missing record is not an error
	DeleteRecord(key naming.ResourceKey) error

	// ListRecords returns every stored record
	ListRecords() ([]*Record, error)
}

// fileRecordPersistence keeps one JSON file per key below basePath/<locale>/<type>/
type fileRecordPersistence struct {
	basePath string
}

// NewFileRecordPersistence creates a file-based record persistence rooted at basePath
func NewFileRecordPersistence(basePath string) RecordPersistence {
	return &fileRecordPersistence{basePath: basePath}
}

func (f *fileRecordPersistence) recordPath(key naming.ResourceKey) string {
	return filepath.Join(f.basePath, key.Locale, key.Type, RecordFileName)
}

// SaveRecord writes the record to a temporary file and renames it into place
func (f *fileRecordPersistence) SaveRecord(key naming.ResourceKey, record *Record) error {
	filePath := f.recordPath(key)
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("failed to create record directory for '%s': %w", key, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record for '%s': %w", key, err)
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary record file for '%s': %w", key, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename record file for '%s': %w", key, err)
	}

	return nil
}

// LoadRecord reads the record for key
func (f *fileRecordPersistence) LoadRecord(key naming.ResourceKey) (*Record, error) {
	// #nosec G304 -- the path is built from the base path and a validated resource key
	data, err := os.ReadFile(f.recordPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read record file for '%s': %w", key, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record for '%s': %w", key, err)
	}
	return &record, nil
}

// DeleteRecord removes the record file and its now empty directories
func (f *fileRecordPersistence) DeleteRecord(key naming.ResourceKey) error {
	filePath := f.recordPath(key)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record for '%s': %w", key, err)
	}
	// Best effort: these fail harmlessly when other records share the directory
	_ = os.Remove(filepath.Dir(filePath))
	_ = os.Remove(filepath.Dir(filepath.Dir(filePath)))
	return nil
}

// ListRecords loads every record below the base path, skipping unreadable ones
func (f *fileRecordPersistence) ListRecords() ([]*Record, error) {
	var records []*Record

	locales, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("failed to read record directory: %w", err)
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
			key := naming.ResourceKey{Locale: locale.Name(), Type: typ.Name()}
			if key.Validate() != nil {
				continue
			}
			record, err := f.LoadRecord(key)
			if err != nil || record == nil {
				continue
			}
			records = append(records, record)
		}
	}

	return records, nil
}
