package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/stretchr/testify/assert"

	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	localDir := filepath.Join(string(filepath.Separator), "data", "en", "cards")
	cancelledTracker := newProgressTracker(func(Progress) bool { return false }, nil)
	_ = cancelledTracker.report()

	tests := []struct {
		name    string
		err     error
		tracker *progressTracker
		want    syncerr.Code
	}{
		{name: "cancelled by callback", err: errors.New("write failed"), tracker: cancelledTracker, want: syncerr.CodeCancelled},
		{name: "cancelled sentinel", err: fmt.Errorf("fetch: %w", ErrCancelled), want: syncerr.CodeCancelled},
		{name: "context cancelled", err: context.Canceled, want: syncerr.CodeCancelled},
		{name: "missing reference", err: plumbing.ErrReferenceNotFound, want: syncerr.CodeRefNotFound},
		{name: "empty remote", err: transport.ErrEmptyRemoteRepository, want: syncerr.CodeRefNotFound},
		{name: "missing repository", err: transport.ErrRepositoryNotFound, want: syncerr.CodeNetwork},
		{name: "wrapped missing repository", err: fmt.Errorf("ls-remote: %w", transport.ErrRepositoryNotFound), want: syncerr.CodeNetwork},
		{name: "textual missing ref", err: errors.New("couldn't find remote ref refs/heads/fr/sounds"), want: syncerr.CodeRefNotFound},
		{
			name: "write below working copy",
			err:  &fs.PathError{Op: "open", Path: filepath.Join(localDir, ".git", "objects"), Err: fs.ErrPermission},
			want: syncerr.CodeStorage,
		},
		{
			name: "path error elsewhere",
			err:  &fs.PathError{Op: "open", Path: filepath.Join(string(filepath.Separator), "etc", "ssl"), Err: fs.ErrNotExist},
			want: syncerr.CodeNetwork,
		},
		{name: "transport failure", err: errors.New("connection reset by peer"), want: syncerr.CodeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := classifyError(tt.err, tt.tracker, localDir)
			assert.Equal(t, tt.want, syncerr.CodeOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, classifyError(nil, nil, ""))
}
