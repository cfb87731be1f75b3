// Package gittest provides local bundle repositories for exercising the sync
// engine without network access.
package gittest

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/packfile"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Files maps a path inside the working tree to its content
type Files map[string]string

// Remote is a repository on local disk that can be cloned and fetched by path
type Remote struct {
	t      *testing.T
	dir    string
	repo   *git.Repository
	author *object.Signature
}

// NewRemote creates a repository with one commit per branch. Every branch starts
// from a shared base commit and adds its own files on top.
func NewRemote(t *testing.T, branches map[string]Files) *Remote {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}

	r := &Remote{
		t:    t,
		dir:  dir,
		repo: repo,
		author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  time.Now(),
		},
	}

	base := r.commit(Files{"README.md": "bundle"}, "Initial commit")

	// Map iteration order is random; create branches deterministically
	names := make([]string, 0, len(branches))
	for name := range branches {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r.checkout(plumbing.NewBranchReferenceName(name), base, true)
		r.commit(branches[name], "Add "+name)
	}
	return r
}

// URL returns the location to clone the remote from
func (r *Remote) URL() string {
	return r.dir
}

// Pack encodes every object of the remote into a packfile without deltas
func (r *Remote) Pack() []byte {
	r.t.Helper()

	iter, err := r.repo.Storer.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		r.t.Fatalf("Failed to list objects: %v", err)
	}
	var hashes []plumbing.Hash
	err = iter.ForEach(func(obj plumbing.EncodedObject) error {
		hashes = append(hashes, obj.Hash())
		return nil
	})
	if err != nil {
		r.t.Fatalf("Failed to list objects: %v", err)
	}

	var buf bytes.Buffer
	if _, err := packfile.NewEncoder(&buf, r.repo.Storer, false).Encode(hashes, 0); err != nil {
		r.t.Fatalf("Failed to encode pack: %v", err)
	}
	return buf.Bytes()
}

// Commit adds a commit with files on top of branch and returns its hash
func (r *Remote) Commit(branch string, files Files) plumbing.Hash {
	r.t.Helper()
	r.checkout(plumbing.NewBranchReferenceName(branch), plumbing.ZeroHash, false)
	return r.commit(files, "Update "+branch)
}

// Tip returns the commit branch points to
func (r *Remote) Tip(branch string) plumbing.Hash {
	r.t.Helper()
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		r.t.Fatalf("Failed to resolve branch %s: %v", branch, err)
	}
	return ref.Hash()
}

// DeleteBranch removes branch from the remote
func (r *Remote) DeleteBranch(branch string) {
	r.t.Helper()
	if err := r.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(branch)); err != nil {
		r.t.Fatalf("Failed to delete branch %s: %v", branch, err)
	}
}

func (r *Remote) checkout(branch plumbing.ReferenceName, from plumbing.Hash, create bool) {
	r.t.Helper()
	workTree, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("Failed to get worktree: %v", err)
	}
	opts := &git.CheckoutOptions{Branch: branch, Create: create, Force: true}
	if create {
		opts.Hash = from
	}
	if err := workTree.Checkout(opts); err != nil {
		r.t.Fatalf("Failed to checkout branch %s: %v", branch, err)
	}
}

func (r *Remote) commit(files Files, message string) plumbing.Hash {
	r.t.Helper()
	workTree, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("Failed to get worktree: %v", err)
	}

	for filename, content := range files {
		filePath := filepath.Join(r.dir, filename)
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			r.t.Fatalf("Failed to create directory for %s: %v", filename, err)
		}
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			r.t.Fatalf("Failed to write file %s: %v", filename, err)
		}
		if _, err := workTree.Add(filename); err != nil {
			r.t.Fatalf("Failed to add file %s: %v", filename, err)
		}
	}

	hash, err := workTree.Commit(message, &git.CommitOptions{Author: r.author, AllowEmptyCommits: true})
	if err != nil {
		r.t.Fatalf("Failed to commit: %v", err)
	}
	return hash
}
