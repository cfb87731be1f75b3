package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// Transport defines the git operations the sync engine needs
//
//go:generate mockgen -destination=mocks/mock_transport.go -package=mocks -source=client.go Transport
type Transport interface {
	// Clone clones a single branch into a new directory and returns the checked out revision
	Clone(ctx context.Context, opts *CloneOptions) (string, error)

	// Fetch fetches a branch into an existing working copy and returns the fetched tip
	// without touching the checked out files
	Fetch(ctx context.Context, opts *FetchOptions) (string, error)

	// Checkout hard-resets the working copy in dir onto revision
	Checkout(dir, revision string) error

	// Head returns the revision checked out in dir
	Head(dir string) (string, error)

	// ListRemote returns the tip of a remote branch without transferring objects
	ListRemote(ctx context.Context, opts *ListOptions) (string, error)
}

// defaultClient implements Transport using go-git
type defaultClient struct{}

// NewDefaultClient creates a new go-git backed Transport
func NewDefaultClient() Transport {
	return &defaultClient{}
}

// Clone clones the branch into opts.Directory, reporting pack progress to opts.OnProgress
func (*defaultClient) Clone(ctx context.Context, opts *CloneOptions) (string, error) {
	if opts == nil || opts.URL == "" || opts.Branch == "" || opts.Directory == "" {
		return "", syncerr.New(syncerr.CodeValidation, "", "", "clone requires a URL, a branch and a directory")
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	tracker := newProgressTracker(opts.OnProgress, cancel)
	storage := newProgressStorage(opts.Directory, tracker)

	cloneOptions := &git.CloneOptions{
		URL:           opts.URL,
		Auth:          authMethod(opts.Auth),
		RemoteName:    naming.RemoteName,
		ReferenceName: naming.RemoteRefOfBranch(opts.Branch),
		SingleBranch:  true,
		Tags:          git.NoTags,
		Progress:      &sidebandWriter{tracker: tracker},
	}

	startTime := time.Now()
	slog.Debug("Starting git clone",
		"repository", opts.URL,
		"branch", opts.Branch.String(),
		"directory", opts.Directory)

	repo, err := git.CloneContext(ctx, storage, osfs.New(opts.Directory), cloneOptions)
	if err != nil {
		return "", classifyError(err, tracker, opts.Directory)
	}

	head, err := repo.Head()
	if err != nil {
		return "", storageError("failed to get HEAD reference", err)
	}

	progress := tracker.snapshot()
	slog.Debug("Git clone completed",
		"repository", opts.URL,
		"branch", opts.Branch.String(),
		"commit_sha", head.Hash().String(),
		"objects", progress.TotalObjects,
		"bytes", progress.ReceivedBytes,
		"duration", time.Since(startTime).String())

	return head.Hash().String(), nil
}

// Fetch fetches the branch's refspec into the working copy at opts.Directory
func (*defaultClient) Fetch(ctx context.Context, opts *FetchOptions) (string, error) {
	if opts == nil || opts.URL == "" || opts.Branch == "" || opts.Directory == "" {
		return "", syncerr.New(syncerr.CodeValidation, "", "", "fetch requires a URL, a branch and a directory")
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	tracker := newProgressTracker(opts.OnProgress, cancel)
	repo, err := git.Open(newProgressStorage(opts.Directory, tracker), osfs.New(opts.Directory))
	if err != nil {
		return "", storageError("failed to open working copy", err)
	}

	fetchOptions := &git.FetchOptions{
		RemoteName: naming.RemoteName,
		RemoteURL:  opts.URL,
		RefSpecs:   []config.RefSpec{config.RefSpec(naming.RefspecOfBranch(opts.Branch))},
		Auth:       authMethod(opts.Auth),
		Tags:       git.NoTags,
		Force:      true,
		Progress:   &sidebandWriter{tracker: tracker},
	}

	err = repo.FetchContext(ctx, fetchOptions)
	switch {
	case err == nil:
		slog.Debug("Git fetch received new objects",
			"repository", opts.URL,
			"branch", opts.Branch.String(),
			"bytes", tracker.snapshot().ReceivedBytes)
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		slog.Debug("Git fetch already up to date", "repository", opts.URL, "branch", opts.Branch.String())
	default:
		return "", classifyError(err, tracker, opts.Directory)
	}

	ref, err := repo.Reference(naming.LocalRefOfBranch(opts.Branch), true)
	if err != nil {
		return "", storageError("failed to resolve fetched branch", err)
	}
	return ref.Hash().String(), nil
}

// Checkout hard-resets the working copy onto revision, moving the checked out branch with it
func (*defaultClient) Checkout(dir, revision string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return storageError("failed to open working copy", err)
	}

	workTree, err := repo.Worktree()
	if err != nil {
		return storageError("failed to get worktree", err)
	}

	hash := plumbing.NewHash(revision)
	if _, err := repo.CommitObject(hash); err != nil {
		return storageError(fmt.Sprintf("revision %s is not available locally", revision), err)
	}

	if err := workTree.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return storageError(fmt.Sprintf("failed to checkout revision %s", revision), err)
	}
	return nil
}

// Head returns the commit HEAD points to in the working copy at dir
func (*defaultClient) Head(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", storageError("failed to open working copy", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", storageError("failed to get HEAD reference", err)
	}
	return ref.Hash().String(), nil
}

// ListRemote asks the remote for its advertised refs and returns the tip of opts.Branch
func (*defaultClient) ListRemote(ctx context.Context, opts *ListOptions) (string, error) {
	if opts == nil || opts.URL == "" || opts.Branch == "" {
		return "", syncerr.New(syncerr.CodeValidation, "", "", "list requires a URL and a branch")
	}

	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: naming.RemoteName,
		URLs: []string{opts.URL},
	})

	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: authMethod(opts.Auth)})
	if err != nil {
		return "", classifyError(err, nil, "")
	}

	want := naming.RemoteRefOfBranch(opts.Branch)
	for _, ref := range refs {
		if ref.Name() == want && ref.Type() == plumbing.HashReference {
			return ref.Hash().String(), nil
		}
	}
	return "", &syncerr.Error{
		Code:    syncerr.CodeRefNotFound,
		Message: fmt.Sprintf("branch %s not found on remote", opts.Branch),
	}
}

func newProgressStorage(dir string, tracker *progressTracker) *progressStorage {
	dotGit := osfs.New(filepath.Join(dir, git.GitDirName))
	return &progressStorage{
		Storage: filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault()),
		tracker: tracker,
	}
}

func authMethod(auth *AuthConfig) transport.AuthMethod {
	if auth == nil || auth.Username == "" {
		return nil
	}
	slog.Debug("Using Git HTTP Basic authentication", "username", auth.Username)
	return &githttp.BasicAuth{
		Username: auth.Username,
		Password: auth.Password,
	}
}

func storageError(message string, err error) error {
	return &syncerr.Error{Code: syncerr.CodeStorage, Message: message, Err: err}
}
