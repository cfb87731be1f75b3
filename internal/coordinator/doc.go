// Package coordinator keeps a configured set of resource bundles current in the background.
//
// Each round the coordinator asks the engine whether a resource's branch moved and syncs
// the resources that need it. Resources are processed concurrently up to the configured
// limit; one resource failing never stops the others.
//
// # Core Interface
//
//	type Coordinator interface {
//	    Start(ctx context.Context) error  // Begin background watch loop
//	    Stop() error                       // Graceful shutdown
//	    RunOnce(ctx context.Context) error // One round, for the CLI
//	    GetStatus(key) *status.SyncStatus  // Thread-safe status access
//	}
//
// # Usage Example
//
//	coord := coordinator.New(eng, cfg.Watch,
//	    coordinator.WithStatusPersistence(status.NewFileStatusPersistence(dir)))
//
//	go coord.Start(ctx)
//
//	// ... run server ...
//
//	coord.Stop()
//
// # Error Handling
//
// Network failures are retried with exponential backoff up to watch.retry.maxAttempts.
// Every other failure is final for the round: the status moves to Failed with the error
// code and the next attempt happens on the next tick. Status persistence errors are logged
// and never stop a sync.
package coordinator
