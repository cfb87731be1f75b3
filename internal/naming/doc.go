// Package naming maps logical resource keys to git refs.
//
// A resource bundle is identified by a (locale, type) pair. Each pair lives on
// its own branch of the bundle repository, named "<locale>/<type>", and is
// fetched into the remote-tracking ref "refs/remotes/origin/<locale>/<type>".
// This convention is the single source of truth shared by the download, update
// and check paths and by the tooling that publishes bundles; it is versioned by
// ConventionVersion.
//
// # Validation
//
// Both components of a key must satisfy the same rule:
//   - non-empty and at most 64 bytes
//   - only ASCII letters, digits, '-', '_' and '.'
//   - must not start with '.' or '-'
//   - must not end with '.' or ".lock"
//   - must not contain ".."
//
// The rule is a strict subset of git check-ref-format, and because '/' is not
// allowed inside a component the mapping from key to branch is injective.
package naming
