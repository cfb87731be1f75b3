package git

import (
	"github.com/stacklok/toolhive-assetsync/internal/naming"
)

// AuthConfig contains HTTP basic authentication settings for the bundle repository
type AuthConfig struct {
	// Username for HTTP basic authentication
	Username string

	// Password or token for HTTP basic authentication
	Password string
}

// CloneOptions contains configuration for cloning one resource branch
type CloneOptions struct {
	// URL is the repository URL to clone from
	URL string

	// Branch is the branch to clone; only this branch is fetched
	Branch naming.BranchName

	// Directory is where the working copy is created; it must not exist yet
	Directory string

	// Auth contains optional authentication
	Auth *AuthConfig

	// OnProgress receives indexer progress during the transfer and may cancel it
	OnProgress ProgressFunc
}

// FetchOptions contains configuration for fetching one resource branch into an existing working copy
type FetchOptions struct {
	// URL is the repository URL to fetch from
	URL string

	// Branch is the branch to fetch using its refspec
	Branch naming.BranchName

	// Directory is the existing working copy
	Directory string

	// Auth contains optional authentication
	Auth *AuthConfig

	// OnProgress receives indexer progress during the transfer and may cancel it
	OnProgress ProgressFunc
}

// ListOptions contains configuration for listing the tip of a remote branch
type ListOptions struct {
	// URL is the repository URL to query
	URL string

	// Branch is the branch whose tip is returned
	Branch naming.BranchName

	// Auth contains optional authentication
	Auth *AuthConfig
}
