package tasks

import (
	"context"
	"fmt"
)

// newSnapshotRetentionTask prunes snapshots of messages that have not been
// seen for longer than the configured retention. Pruned messages are no
// longer diffed, and their deletion is recorded without before content.
func newSnapshotRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "snapshot_retention")

	return func(ctx context.Context) error {
		retention := deps.Config.Database.SnapshotRetention
		if retention <= 0 {
			log.WarnContext(ctx, "Snapshot retention disabled, skipping")
			return nil
		}

		cutoff := deps.Clock.Now().UTC().Add(-retention)
		removed, err := deps.Store.DeleteSnapshotsBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("failed to prune snapshots: %w", err)
		}

		log.InfoContext(ctx, "Pruned stale snapshots", "removed", removed, "cutoff", cutoff)
		return nil
	}
}
