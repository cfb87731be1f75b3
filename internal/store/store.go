// Package store tracks working copies and the revision each one has checked out.
//
// Every resource key owns one working copy below the data directory and one
// revision record. The working copy's HEAD is authoritative: Reconcile repairs
// records that disagree with it, and every change to a working copy is paired
// with its record update inside Commit while the key's state lock is held, so
// readers never observe one without the other.
package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

const (
	stagingDirName = ".staging"
	stateDirName   = ".state"
	locksDirName   = ".locks"

	// gitDirName marks a directory as a working copy
	gitDirName = ".git"
)

// HeadReader returns the revision checked out in a working copy directory
type HeadReader func(dir string) (string, error)

// Store maps resource keys to working copies and their recorded revisions
type Store struct {
	root        string
	persistence RecordPersistence
	locks       *keyLocks

	// now is replaceable in tests
	now func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithPersistence replaces the default file-based record persistence
func WithPersistence(p RecordPersistence) Option {
	return func(s *Store) {
		s.persistence = p
	}
}

// New creates a store rooted at root, creating its directories and discarding staging leftovers
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, syncerr.New(syncerr.CodeValidation, "open", "", "data directory cannot be empty")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeStorage, "open", "", err, "failed to resolve data directory")
	}

	for _, dir := range []string{absRoot, filepath.Join(absRoot, stateDirName), filepath.Join(absRoot, locksDirName)} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, syncerr.Wrap(syncerr.CodeStorage, "open", "", err, "failed to create data directory")
		}
	}

	// Staging clones only survive a crash; none of them can be in use yet
	if err := os.RemoveAll(filepath.Join(absRoot, stagingDirName)); err != nil {
		return nil, syncerr.Wrap(syncerr.CodeStorage, "open", "", err, "failed to clear staging directory")
	}

	s := &Store{
		root:        absRoot,
		persistence: NewFileRecordPersistence(filepath.Join(absRoot, stateDirName)),
		locks:       newKeyLocks(filepath.Join(absRoot, locksDirName)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute data directory
func (s *Store) Root() string {
	return s.root
}

// WorkingCopyPath returns the directory holding the working copy of key
func (s *Store) WorkingCopyPath(key naming.ResourceKey) string {
	return filepath.Join(s.root, key.Locale, key.Type)
}

// NewStagingDir returns a fresh, not yet existing directory for a clone that is later committed with Commit
func (s *Store) NewStagingDir() (string, error) {
	staging := filepath.Join(s.root, stagingDirName)
	if err := os.MkdirAll(staging, 0750); err != nil {
		return "", syncerr.Wrap(syncerr.CodeStorage, "", "", err, "failed to create staging directory")
	}
	return filepath.Join(staging, uuid.NewString()), nil
}

// Exists reports whether key has a working copy
func (s *Store) Exists(key naming.ResourceKey) bool {
	info, err := os.Stat(filepath.Join(s.WorkingCopyPath(key), gitDirName))
	return err == nil && info.IsDir()
}

// Lock serializes download and update operations on key, within this process and across processes.
// It blocks until the lock is available or ctx is done.
func (s *Store) Lock(ctx context.Context, key naming.ResourceKey) (func(), error) {
	return s.locks.lockOperation(ctx, key)
}

// Record returns the record of key, or nil when the key has no working copy
func (s *Store) Record(key naming.ResourceKey) (*Record, error) {
	state := s.locks.state(key)
	state.RLock()
	defer state.RUnlock()
	return s.loadRecord(key)
}

// Revision returns the recorded revision of key, or "" when the key has no working copy
func (s *Store) Revision(key naming.ResourceKey) (string, error) {
	record, err := s.Record(key)
	if err != nil || record == nil {
		return "", err
	}
	return record.Revision, nil
}

// View runs fn with the working copy directory of key while no commit can change it
func (s *Store) View(key naming.ResourceKey, fn func(dir string) error) error {
	state := s.locks.state(key)
	state.RLock()
	defer state.RUnlock()
	if !s.Exists(key) {
		return syncerr.New(syncerr.CodeNotFound, "", key.String(), "no working copy")
	}
	return fn(s.WorkingCopyPath(key))
}

// CommitFunc changes a working copy and returns the revision now checked out
type CommitFunc func(dir string) (revision string, err error)

// RollbackFunc undoes a successful CommitFunc when its record cannot be saved
type RollbackFunc func(dir string) error

// Commit applies change to the working copy of key and records the resulting revision.
// The record is only written when change succeeds; both happen under the key's state lock.
// When the record cannot be saved, rollback restores the working copy so the old record still matches it.
func (s *Store) Commit(key naming.ResourceKey, remote string, change CommitFunc, rollback RollbackFunc) (*Record, error) {
	branch, err := key.Branch()
	if err != nil {
		return nil, err
	}

	state := s.locks.state(key)
	state.Lock()
	defer state.Unlock()

	dir := s.WorkingCopyPath(key)
	revision, err := change(dir)
	if err != nil {
		return nil, err
	}

	record := &Record{
		Locale:    key.Locale,
		Type:      key.Type,
		Branch:    branch.String(),
		Revision:  revision,
		Remote:    remote,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.persistence.SaveRecord(key, record); err != nil {
		if rollback != nil {
			if rbErr := rollback(dir); rbErr != nil {
				// Reconcile repairs the record from HEAD on next open
				slog.Error("Failed to roll back working copy",
					"resource", key.String(),
					"revision", revision,
					"error", rbErr)
			}
		}
		return nil, syncerr.Wrap(syncerr.CodeStorage, "", key.String(), err, "failed to save revision record")
	}
	return record, nil
}

// Adopt moves a staged clone into place as the working copy of key and records its revision.
// When the record cannot be saved the clone goes back to stagingDir.
func (s *Store) Adopt(key naming.ResourceKey, remote, stagingDir, revision string) (*Record, error) {
	return s.Commit(key, remote, func(dir string) (string, error) {
		if s.Exists(key) {
			return "", syncerr.New(syncerr.CodeExists, "", key.String(), "working copy already exists")
		}
		if err := os.MkdirAll(filepath.Dir(dir), 0750); err != nil {
			return "", syncerr.Wrap(syncerr.CodeStorage, "", key.String(), err, "failed to create locale directory")
		}
		// A leftover directory without .git is not a working copy
		if err := os.RemoveAll(dir); err != nil {
			return "", syncerr.Wrap(syncerr.CodeStorage, "", key.String(), err, "failed to clear working copy path")
		}
		if err := os.Rename(stagingDir, dir); err != nil {
			return "", syncerr.Wrap(syncerr.CodeStorage, "", key.String(), err, "failed to move clone into place")
		}
		return revision, nil
	}, func(dir string) error {
		if err := os.Rename(dir, stagingDir); err != nil {
			return os.RemoveAll(dir)
		}
		_ = os.Remove(filepath.Dir(dir))
		return nil
	})
}

// Remove deletes the working copy and record of key
func (s *Store) Remove(key naming.ResourceKey) error {
	state := s.locks.state(key)
	state.Lock()
	defer state.Unlock()

	if err := os.RemoveAll(s.WorkingCopyPath(key)); err != nil {
		return syncerr.Wrap(syncerr.CodeStorage, "", key.String(), err, "failed to remove working copy")
	}
	_ = os.Remove(filepath.Join(s.root, key.Locale))
	if err := s.persistence.DeleteRecord(key); err != nil {
		return syncerr.Wrap(syncerr.CodeStorage, "", key.String(), err, "failed to remove revision record")
	}
	return nil
}

// List returns the records of every working copy, sorted by key
func (s *Store) List() ([]*Record, error) {
	records, err := s.persistence.ListRecords()
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeStorage, "list", "", err, "failed to list revision records")
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key().String() < records[j].Key().String()
	})
	return records, nil
}

// Reconcile makes records agree with the working copies on disk.
// A working copy whose record is missing or stale gets its record rewritten from head;
// a record without a working copy is dropped.
func (s *Store) Reconcile(head HeadReader) error {
	keys, err := s.workingCopyKeys()
	if err != nil {
		return err
	}

	present := make(map[naming.ResourceKey]bool, len(keys))
	for _, key := range keys {
		present[key] = true
		if err := s.reconcileKey(key, head); err != nil {
			return err
		}
	}

	records, err := s.persistence.ListRecords()
	if err != nil {
		return syncerr.Wrap(syncerr.CodeStorage, "reconcile", "", err, "failed to list revision records")
	}
	for _, record := range records {
		key := record.Key()
		if present[key] {
			continue
		}
		slog.Warn("Dropping revision record without working copy", "resource", key.String())
		if err := s.persistence.DeleteRecord(key); err != nil {
			return syncerr.Wrap(syncerr.CodeStorage, "reconcile", key.String(), err, "failed to drop revision record")
		}
	}
	return nil
}

func (s *Store) reconcileKey(key naming.ResourceKey, head HeadReader) error {
	state := s.locks.state(key)
	state.Lock()
	defer state.Unlock()

	revision, err := head(s.WorkingCopyPath(key))
	if err != nil {
		// A working copy without a resolvable HEAD cannot be trusted
		slog.Warn("Removing unreadable working copy", "resource", key.String(), "error", err)
		if rmErr := os.RemoveAll(s.WorkingCopyPath(key)); rmErr != nil {
			return syncerr.Wrap(syncerr.CodeStorage, "reconcile", key.String(), rmErr, "failed to remove unreadable working copy")
		}
		return s.persistence.DeleteRecord(key)
	}

	record, err := s.loadRecord(key)
	if err != nil {
		record = nil
	}
	if record != nil && record.Revision == revision {
		return nil
	}

	slog.Warn("Repairing revision record from working copy HEAD",
		"resource", key.String(),
		"recorded", recordedRevision(record),
		"head", revision)

	branch, err := key.Branch()
	if err != nil {
		return err
	}
	repaired := &Record{
		Locale:    key.Locale,
		Type:      key.Type,
		Branch:    branch.String(),
		Revision:  revision,
		UpdatedAt: s.now().UTC(),
	}
	if record != nil {
		repaired.Remote = record.Remote
	}
	if err := s.persistence.SaveRecord(key, repaired); err != nil {
		return syncerr.Wrap(syncerr.CodeStorage, "reconcile", key.String(), err, "failed to repair revision record")
	}
	return nil
}

// workingCopyKeys finds every <locale>/<type> directory holding a .git directory
func (s *Store) workingCopyKeys() ([]naming.ResourceKey, error) {
	var keys []naming.ResourceKey

	locales, err := os.ReadDir(s.root)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeStorage, "reconcile", "", err, "failed to read data directory")
	}
	for _, locale := range locales {
		if !locale.IsDir() || strings.HasPrefix(locale.Name(), ".") {
			continue
		}
		types, err := os.ReadDir(filepath.Join(s.root, locale.Name()))
		if err != nil {
			return nil, syncerr.Wrap(syncerr.CodeStorage, "reconcile", "", err, "failed to read locale directory")
		}
		for _, typ := range types {
			key := naming.ResourceKey{Locale: locale.Name(), Type: typ.Name()}
			if !typ.IsDir() || key.Validate() != nil {
				continue
			}
			if s.Exists(key) {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (s *Store) loadRecord(key naming.ResourceKey) (*Record, error) {
	record, err := s.persistence.LoadRecord(key)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeStorage, "", key.String(), err, "failed to load revision record")
	}
	if record == nil || !s.Exists(key) {
		return nil, nil
	}
	return record, nil
}

func recordedRevision(record *Record) string {
	if record == nil {
		return ""
	}
	return record.Revision
}
