// Package checker compares the recorded revision of a working copy with the tip of its remote branch.
package checker

import (
	"context"
	"log/slog"

	"github.com/stacklok/toolhive-assetsync/internal/git"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/store"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// Result is the outcome of an update check
type Result struct {
	// IsUpdateAvailable is true when there is no local revision or it differs from the remote tip
	IsUpdateAvailable bool `json:"isUpdateAvailable"`

	// LocalSHA is the recorded revision, empty when the key has no working copy
	LocalSHA string `json:"localSHA,omitempty"`

	// RemoteSHA is the tip of the remote branch
	RemoteSHA string `json:"remoteSHA"`
}

// HasLocal reports whether a local revision is recorded
func (r *Result) HasLocal() bool {
	return r.LocalSHA != ""
}

// Checker answers whether a resource has an update available without touching its working copy
type Checker struct {
	transport git.Transport
	store     *store.Store
	remote    string
	auth      *git.AuthConfig
}

// New creates a Checker that lists refs of remote through transport
func New(transport git.Transport, s *store.Store, remote string, auth *git.AuthConfig) *Checker {
	return &Checker{
		transport: transport,
		store:     s,
		remote:    remote,
		auth:      auth,
	}
}

// Check lists the remote tip of the branch for (locale, typ) and compares it with the recorded revision
func (c *Checker) Check(ctx context.Context, locale, typ string) (*Result, error) {
	key, err := naming.NewResourceKey(locale, typ)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeValidation, "check", "", err, "invalid resource key")
	}
	branch, err := key.Branch()
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeValidation, "check", key.String(), err, "invalid branch")
	}

	remoteSHA, err := c.transport.ListRemote(ctx, &git.ListOptions{
		URL:    c.remote,
		Branch: branch,
		Auth:   c.auth,
	})
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeNetwork, "check", key.String(), err, "failed to list remote branch")
	}

	localSHA, err := c.store.Revision(key)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeStorage, "check", key.String(), err, "failed to read recorded revision")
	}

	result := &Result{
		IsUpdateAvailable: localSHA == "" || localSHA != remoteSHA,
		LocalSHA:          localSHA,
		RemoteSHA:         remoteSHA,
	}
	slog.Debug("Checked for update",
		"resource", key.String(),
		"local", localSHA,
		"remote", remoteSHA,
		"update_available", result.IsUpdateAvailable)
	return result, nil
}
