package git

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// classifyError maps a go-git failure onto the sync error domain.
// localDir is the directory the operation writes to; filesystem errors below it are storage failures.
func classifyError(err error, tracker *progressTracker, localDir string) error {
	if err == nil {
		return nil
	}

	switch {
	case tracker != nil && tracker.isCancelled(), errors.Is(err, ErrCancelled):
		return &syncerr.Error{Code: syncerr.CodeCancelled, Message: "transfer cancelled", Err: err}
	case errors.Is(err, context.Canceled):
		return &syncerr.Error{Code: syncerr.CodeCancelled, Message: "operation cancelled", Err: err}
	case errors.Is(err, transport.ErrRepositoryNotFound):
		// A wrong URL or an unreachable host, not a missing branch
		return &syncerr.Error{Code: syncerr.CodeNetwork, Message: "repository not found", Err: err}
	case isRefNotFound(err):
		return &syncerr.Error{Code: syncerr.CodeRefNotFound, Message: "branch not found on remote", Err: err}
	case isLocalStorageError(err, localDir):
		return &syncerr.Error{Code: syncerr.CodeStorage, Message: "local storage failure", Err: err}
	default:
		return &syncerr.Error{Code: syncerr.CodeNetwork, Message: "transport failure", Err: err}
	}
}

func isRefNotFound(err error) bool {
	var noMatch git.NoMatchingRefSpecError
	if errors.As(err, &noMatch) {
		return true
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) ||
		errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return true
	}
	// Some transports only surface the condition as text
	return strings.Contains(err.Error(), "couldn't find remote ref")
}

func isLocalStorageError(err error, localDir string) bool {
	if localDir == "" {
		return false
	}
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		return false
	}
	rel, relErr := filepath.Rel(localDir, pathErr.Path)
	if relErr != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}
