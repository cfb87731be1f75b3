package naming

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

const (
	// ConventionVersion is bumped whenever the key to branch mapping changes
	ConventionVersion = 1

	// RemoteName is the name under which the bundle repository is configured in every working copy
	RemoteName = "origin"

	// MaxComponentLength is the longest locale or type accepted
	MaxComponentLength = 64
)

// ResourceKey identifies one logical asset bundle
type ResourceKey struct {
	Locale string `json:"locale" yaml:"locale"`
	Type   string `json:"type" yaml:"type"`
}

// NewResourceKey returns a validated key
func NewResourceKey(locale, typ string) (ResourceKey, error) {
	key := ResourceKey{Locale: locale, Type: typ}
	if err := key.Validate(); err != nil {
		return ResourceKey{}, err
	}
	return key, nil
}

// String renders the key as locale/type
func (k ResourceKey) String() string {
	return k.Locale + "/" + k.Type
}

// Validate checks both components against the naming rule
func (k ResourceKey) Validate() error {
	if err := validateComponent("locale", k.Locale); err != nil {
		return syncerr.Wrap(syncerr.CodeValidation, "", k.String(), err, "invalid resource key")
	}
	if err := validateComponent("type", k.Type); err != nil {
		return syncerr.Wrap(syncerr.CodeValidation, "", k.String(), err, "invalid resource key")
	}
	return nil
}

// Branch returns the branch name for the key
func (k ResourceKey) Branch() (BranchName, error) {
	return BranchNameFromLocaleType(k.Locale, k.Type)
}

// BranchName is a branch of the bundle repository, without the refs/heads/ prefix
type BranchName string

// String returns the branch name
func (b BranchName) String() string {
	return string(b)
}

// BranchNameFromLocaleType derives the branch holding the bundle for locale and typ
func BranchNameFromLocaleType(locale, typ string) (BranchName, error) {
	key := ResourceKey{Locale: locale, Type: typ}
	if err := key.Validate(); err != nil {
		return "", err
	}
	return BranchName(locale + "/" + typ), nil
}

// RefspecOfBranch returns the fetch refspec mapping the remote branch onto its own remote-tracking ref
func RefspecOfBranch(branch BranchName) string {
	return fmt.Sprintf("+%s:%s", RemoteRefOfBranch(branch), LocalRefOfBranch(branch))
}

// RemoteRefOfBranch returns the ref of the branch on the remote
func RemoteRefOfBranch(branch BranchName) plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(string(branch))
}

// LocalRefOfBranch returns the remote-tracking ref the branch is fetched into
func LocalRefOfBranch(branch BranchName) plumbing.ReferenceName {
	return plumbing.NewRemoteReferenceName(RemoteName, string(branch))
}

func validateComponent(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if len(value) > MaxComponentLength {
		return fmt.Errorf("%s %q is longer than %d bytes", field, value, MaxComponentLength)
	}
	for i := 0; i < len(value); i++ {
		if !isAllowedByte(value[i]) {
			return fmt.Errorf("%s %q contains forbidden character %q", field, value, value[i])
		}
	}
	if value[0] == '.' || value[0] == '-' {
		return fmt.Errorf("%s %q must not start with %q", field, value, value[0])
	}
	if strings.HasSuffix(value, ".") || strings.HasSuffix(value, ".lock") {
		return fmt.Errorf("%s %q has a forbidden suffix", field, value)
	}
	if strings.Contains(value, "..") {
		return fmt.Errorf("%s %q must not contain \"..\"", field, value)
	}
	return nil
}

func isAllowedByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '.':
		return true
	}
	return false
}
