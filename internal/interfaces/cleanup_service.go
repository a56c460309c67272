package interfaces

import "context"

// CleanupService removes expired batches, their staged files, and their
// selection records on a schedule.
type CleanupService interface {
	// Start begins the scheduled cleanup loop. No-op when disabled.
	Start() error

	// Stop halts the scheduler and waits for an in-flight run to finish.
	Stop()

	// RunOnce performs a single cleanup pass and returns the number of
	// batches removed.
	RunOnce(ctx context.Context) (int, error)

	// PurgeBatch removes one batch regardless of age: database record,
	// staged files, and selections.
	PurgeBatch(ctx context.Context, batchID string) error
}
