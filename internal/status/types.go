package status

import "time"

// SyncPhase represents the current phase of a watched resource
type SyncPhase string

const (
	// SyncPhasePending means the resource has not been synced by the watcher yet
	SyncPhasePending SyncPhase = "Pending"

	// SyncPhaseSyncing means sync is currently in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means the last sync succeeded
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means the last sync failed
	SyncPhaseFailed SyncPhase = "Failed"
)

// SyncStatus is the watcher's view of one resource
type SyncStatus struct {
	// Phase represents the current synchronization phase
	Phase SyncPhase `json:"phase"`

	// Message provides additional information about the sync status
	Message string `json:"message,omitempty"`

	// ErrorCode is the error code name of the last failure
	ErrorCode string `json:"errorCode,omitempty"`

	// LastAttempt is the timestamp of the last sync attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of sync attempts since last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSyncTime is the timestamp of the last successful sync
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`

	// LastRevision is the revision checked out by the last successful sync
	LastRevision string `json:"lastRevision,omitempty"`

	// LastCheckTime is the timestamp of the last update check
	LastCheckTime *time.Time `json:"lastCheckTime,omitempty"`
}
