// Package files provides read access to the files checked out in working copies.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/opencontainers/go-digest"

	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/store"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// Facade reads files of working copies. Every path is relative to the working copy root.
type Facade struct {
	store     *store.Store
	exportDir string
}

// New creates a Facade over s. Exported files are written below exportDir.
func New(s *store.Store, exportDir string) *Facade {
	return &Facade{store: s, exportDir: exportDir}
}

// FileExists reports whether path exists in the working copy of (locale, typ).
// Invalid keys, invalid paths and missing working copies all report false.
func (f *Facade) FileExists(path, locale, typ string) bool {
	key, err := naming.NewResourceKey(locale, typ)
	if err != nil {
		return false
	}

	exists := false
	_ = f.store.View(key, func(dir string) error {
		resolved, err := store.ResolvePath(dir, path)
		if err != nil {
			return err
		}
		_, err = os.Stat(resolved)
		exists = err == nil
		return nil
	})
	return exists
}

// ContentsOfDirectory lists the entry names of the directory at path, sorted.
// Repository metadata is never listed.
func (f *Facade) ContentsOfDirectory(path, locale, typ string) ([]string, error) {
	var names []string
	err := f.view("ls", path, locale, typ, func(resolved string) error {
		entries, err := os.ReadDir(resolved)
		if err != nil {
			return notFoundOr(err, path, "failed to read directory")
		}
		names = make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.Name() == ".git" {
				continue
			}
			names = append(names, entry.Name())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// FileData returns the bytes of the file at path
func (f *Facade) FileData(path, locale, typ string) ([]byte, error) {
	var data []byte
	err := f.view("read", path, locale, typ, func(resolved string) error {
		info, err := os.Stat(resolved)
		if err != nil {
			return notFoundOr(err, path, "failed to stat file")
		}
		if !info.Mode().IsRegular() {
			return syncerr.New(syncerr.CodeNotFound, "", "", fmt.Sprintf("%s is not a regular file", path))
		}
		data, err = os.ReadFile(resolved)
		if err != nil {
			return syncerr.Wrap(syncerr.CodeStorage, "", "", err, fmt.Sprintf("failed to read %s", path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ExportFile copies the file at path out of the working copy to a content-addressed
// location <exportDir>/<hex digest><ext> and returns that location. An existing export
// with the same name is left as is.
func (f *Facade) ExportFile(path, locale, typ string) (string, error) {
	if f.exportDir == "" {
		return "", syncerr.New(syncerr.CodeValidation, "export", "", "no export directory configured")
	}

	data, err := f.FileData(path, locale, typ)
	if err != nil {
		return "", syncerr.Wrap(syncerr.CodeStorage, "export", "", err, "failed to read file")
	}

	target := filepath.Join(f.exportDir, digest.FromBytes(data).Encoded()+filepath.Ext(path))
	if _, err := os.Stat(target); err == nil {
		slog.Debug("Export already present", "path", path, "target", target)
		return target, nil
	}

	if err := writeAtomic(target, data); err != nil {
		return "", syncerr.Wrap(syncerr.CodeStorage, "export", naming.ResourceKey{Locale: locale, Type: typ}.String(), err, "failed to export file")
	}
	slog.Debug("Exported file", "path", path, "target", target, "bytes", len(data))
	return target, nil
}

// view resolves path inside the working copy of (locale, typ) and runs fn on it while the copy cannot change
func (f *Facade) view(op, path, locale, typ string, fn func(resolved string) error) error {
	key, err := naming.NewResourceKey(locale, typ)
	if err != nil {
		return syncerr.Wrap(syncerr.CodeValidation, op, "", err, "invalid resource key")
	}
	err = f.store.View(key, func(dir string) error {
		resolved, err := store.ResolvePath(dir, path)
		if err != nil {
			return err
		}
		return fn(resolved)
	})
	if err != nil {
		return syncerr.Wrap(syncerr.CodeStorage, op, key.String(), err, "file access failed")
	}
	return nil
}

func notFoundOr(err error, path, message string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return syncerr.New(syncerr.CodeNotFound, "", "", fmt.Sprintf("%s does not exist", path))
	}
	return syncerr.Wrap(syncerr.CodeStorage, "", "", err, fmt.Sprintf("%s: %s", message, path))
}

// writeAtomic writes data to a temporary file next to target and renames it into place
func writeAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating export temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing export temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing export temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing export temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("renaming export temp file: %w", err)
	}

	success = true
	return nil
}
