package store

import (
	"fmt"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// ResolvePath joins rel, a slash-separated path relative to a working copy, onto dir.
// Absolute paths, paths leaving dir and paths into the .git directory are rejected with
// a validation error. Symlinks are resolved as if dir were the filesystem root.
func ResolvePath(dir, rel string) (string, error) {
	if strings.HasPrefix(rel, "/") || filepath.IsAbs(rel) {
		return "", syncerr.New(syncerr.CodeValidation, "", "", fmt.Sprintf("path %q must be relative to the working copy", rel))
	}

	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == "." {
		return dir, nil
	}
	if !filepath.IsLocal(cleaned) {
		return "", syncerr.New(syncerr.CodeValidation, "", "", fmt.Sprintf("path %q escapes the working copy", rel))
	}
	if first, _, _ := strings.Cut(filepath.ToSlash(cleaned), "/"); first == gitDirName {
		return "", syncerr.New(syncerr.CodeValidation, "", "", fmt.Sprintf("path %q points into repository metadata", rel))
	}

	resolved, err := securejoin.SecureJoin(dir, cleaned)
	if err != nil {
		return "", syncerr.Wrap(syncerr.CodeStorage, "", "", err, fmt.Sprintf("failed to resolve path %q", rel))
	}
	return resolved, nil
}
