package pipeline

import (
	"context"
	"log/slog"

	"revoice/internal/jobs"
	"revoice/internal/logging"
)

// RecoverOrphans fails any job still marked processing. Run at daemon startup:
// a processing status found then is an orphan from a prior crash, since runs
// never survive a restart.
func RecoverOrphans(ctx context.Context, store *jobs.Store, logger *slog.Logger) (int64, error) {
	recovered, err := store.FailInFlight(ctx, jobs.OrphanRecoveryMessage)
	if err != nil {
		return 0, err
	}
	if recovered > 0 && logger != nil {
		logger.Warn("recovered orphaned jobs from previous run", logging.Int64("count", recovered))
	}
	return recovered, nil
}

// FailInFlight proactively fails in-flight jobs during graceful shutdown so
// the processing status never outlives the daemon.
func FailInFlight(ctx context.Context, store *jobs.Store, logger *slog.Logger) (int64, error) {
	failed, err := store.FailInFlight(ctx, jobs.DaemonStopMessage)
	if err != nil {
		return 0, err
	}
	if failed > 0 && logger != nil {
		logger.Info("marked in-flight jobs for retry", logging.Int64("count", failed))
	}
	return failed, nil
}
