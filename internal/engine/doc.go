// Package engine ties the asset sync components together behind one lifecycle object.
//
// An Engine is created with Open and released with Close. Open prepares the data
// directory and reconciles revision records with the working copies found on disk;
// Close waits for in-flight operations, after which every operation fails with a
// not-started error. Several engines may coexist in one process, each with its own
// data directory.
//
// # Operations
//
//   - Download clones the branch of a resource into a fresh working copy
//   - Update fetches the branch and checks out the fetched tip, reporting whether anything changed
//   - CheckForUpdate compares the recorded revision with the remote tip without transferring objects
//   - FileHash, Verify and the file accessors read the checked out files
//
// Download and Update on the same resource never run concurrently, within a process
// or across processes sharing a data directory. Operations on distinct resources do
// not contend. A working copy and its recorded revision always change together.
//
// # Downloading and Updating
//
// The relationship between the two is strict: Download on a resource that already
// has a working copy fails with an exists error, and Update on a resource without
// one fails with a not-found error. Sync picks whichever applies.
package engine
