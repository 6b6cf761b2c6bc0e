package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/angas/skyphase/config"
)

const maintenanceTimeout = time.Minute

type MaintenanceStore interface {
	Backup(ctx context.Context) error
	PurgeBackups(ctx context.Context, retentionDays int) error
	PurgeLog(ctx context.Context, maxLogEntries int) error
	PurgeFetchCycles(ctx context.Context, retentionDays int) error
}

type maintenanceStep struct {
	name string
	run  func(ctx context.Context) error
}

// NewMaintenanceTask backs up the database, then applies the retention
// settings. A failing step is logged and the remaining steps still run.
func NewMaintenanceTask(logger *slog.Logger, db MaintenanceStore, cnfg *config.AppConfig) func() {
	backupDays := cnfg.Database.GetBackupRetentionDays()
	dataDays := cnfg.Database.GetDataRetentionDays()
	logEntries := cnfg.Logging.GetDbMaxEntries()

	steps := []maintenanceStep{
		{"backup", db.Backup},
		{"purge backups", func(ctx context.Context) error { return db.PurgeBackups(ctx, backupDays) }},
		{"purge log", func(ctx context.Context) error { return db.PurgeLog(ctx, logEntries) }},
		{"purge fetch history", func(ctx context.Context) error { return db.PurgeFetchCycles(ctx, dataDays) }},
	}

	return func() {
		logger.Debug("running maintenance task...")
		start := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
		defer cancel()

		failed := 0
		for _, step := range steps {
			if err := step.run(ctx); err != nil {
				failed++
				logger.Error("maintenance step failed", slog.String("step", step.name), slog.Any("error", err))
			}
		}

		logger.Info("maintenance task done",
			slog.Int("failed", failed),
			slog.Duration("took", time.Since(start)))
	}
}
