package engine

import "fmt"

// UpdateStatus is the outcome of an update
type UpdateStatus int

const (
	// UpdateStatusFailed means the update did not complete; the error says why
	UpdateStatusFailed UpdateStatus = -1

	// UpdateStatusUpToDate means the working copy already had the remote tip
	UpdateStatusUpToDate UpdateStatus = 0

	// UpdateStatusUpdated means a new revision was checked out
	UpdateStatusUpdated UpdateStatus = 1
)

// String returns the status as used in logs and metrics
func (s UpdateStatus) String() string {
	switch s {
	case UpdateStatusFailed:
		return "failed"
	case UpdateStatusUpToDate:
		return "up_to_date"
	case UpdateStatusUpdated:
		return "updated"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
