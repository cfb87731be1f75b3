// Package verify computes content digests of files checked out in working copies.
//
// Digests depend only on file bytes, never on the revision that produced them, so
// identical content at two revisions yields the same digest.
package verify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/store"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// Verifier hashes files inside the working copies of a store
type Verifier struct {
	store *store.Store
}

// New creates a Verifier reading from s
func New(s *store.Store) *Verifier {
	return &Verifier{store: s}
}

// FileHash returns the SHA-256 digest of the file at path in the working copy of (locale, typ)
func (v *Verifier) FileHash(path, locale, typ string) (digest.Digest, error) {
	return v.digestFile("hash", path, locale, typ, digest.Canonical)
}

// Verify checks that the file at path has the expected digest.
// The digest's own algorithm is used, so callers may pin files with any algorithm go-digest supports.
func (v *Verifier) Verify(path, locale, typ string, expected digest.Digest) error {
	if err := expected.Validate(); err != nil {
		return syncerr.Wrap(syncerr.CodeValidation, "verify", "", err, fmt.Sprintf("invalid digest %q", expected))
	}

	actual, err := v.digestFile("verify", path, locale, typ, expected.Algorithm())
	if err != nil {
		return err
	}
	if actual != expected {
		return &syncerr.Error{
			Code:    syncerr.CodeIntegrity,
			Op:      "verify",
			Key:     naming.ResourceKey{Locale: locale, Type: typ}.String(),
			Message: fmt.Sprintf("digest mismatch for %s: expected %s, got %s", path, expected, actual),
		}
	}
	return nil
}

func (v *Verifier) digestFile(op, path, locale, typ string, alg digest.Algorithm) (digest.Digest, error) {
	key, err := naming.NewResourceKey(locale, typ)
	if err != nil {
		return "", syncerr.Wrap(syncerr.CodeValidation, op, "", err, "invalid resource key")
	}

	var dgst digest.Digest
	err = v.store.View(key, func(dir string) error {
		resolved, err := store.ResolvePath(dir, path)
		if err != nil {
			return err
		}
		dgst, err = hashFile(resolved, path, alg)
		return err
	})
	if err != nil {
		return "", syncerr.Wrap(syncerr.CodeIntegrity, op, key.String(), err, "failed to hash file")
	}
	return dgst, nil
}

func hashFile(resolved, path string, alg digest.Algorithm) (digest.Digest, error) {
	f, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", syncerr.New(syncerr.CodeNotFound, "", "", fmt.Sprintf("file %s does not exist", path))
		}
		return "", syncerr.Wrap(syncerr.CodeIntegrity, "", "", err, fmt.Sprintf("failed to open %s", path))
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return "", syncerr.Wrap(syncerr.CodeIntegrity, "", "", err, fmt.Sprintf("failed to stat %s", path))
	}
	if !info.Mode().IsRegular() {
		return "", syncerr.New(syncerr.CodeNotFound, "", "", fmt.Sprintf("%s is not a regular file", path))
	}

	dgst, err := alg.FromReader(f)
	if err != nil {
		return "", syncerr.Wrap(syncerr.CodeIntegrity, "", "", err, fmt.Sprintf("failed to read %s", path))
	}
	return dgst, nil
}
