// Package git provides the Git transport used to synchronize resource bundles.
//
// The package wraps go-git so the sync engine can clone one branch of the
// bundle repository into an on-disk working copy, fetch that branch again
// later, and move the working copy onto a fetched revision.
//
// # Transport Interface
//
// The Transport interface defines the operations the engine relies on:
//   - Clone: Clone a single branch into a new directory
//   - Fetch: Fetch a branch through its refspec without touching the checkout
//   - Checkout: Hard-reset a working copy onto a revision
//   - Head: Read the revision a working copy has checked out
//   - ListRemote: Read the tip of a remote branch without transferring objects
//
// # Progress
//
// Clone and Fetch report Progress snapshots while the pack is received and
// indexed. The counters come from the pack stream itself, read with go-git's
// packfile scanner, and from the server's sideband messages. A ProgressFunc
// that returns false stops the transfer and the operation fails with a
// cancelled error.
//
// # Example Usage
//
//	client := git.NewDefaultClient()
//	revision, err := client.Clone(ctx, &git.CloneOptions{
//	    URL:       "https://github.com/Greatdori/Greatdori-OfflineResBundle.git",
//	    Branch:    "en/basic",
//	    Directory: "/var/lib/assets/.staging/clone",
//	    OnProgress: func(p git.Progress) bool {
//	        fmt.Printf("%.0f%%\n", p.Fraction()*100)
//	        return true
//	    },
//	})
package git
