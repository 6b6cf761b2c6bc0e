package task

import (
	"context"
	"log/slog"

	"github.com/angas/skyphase/config"
	"github.com/robfig/cron/v3"
)

const maintenanceRunAt = "30 2 * * *"

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	RefreshTask     func()
	MaintenanceTask func()
}

func NewTasks(refresher Refresher, store MaintenanceStore, cnfg *config.AppConfig) *Tasks {
	logger := slog.Default().With("module", "tasks")
	return &Tasks{
		cron:            cron.New(),
		cnfg:            cnfg,
		RefreshTask:     NewRefreshTask(logger.With(slog.String("task", "refresh")), refresher, cnfg.Refresh.GetTimeout()),
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), store, cnfg),
	}
}

// Run schedules the tasks and starts the cron scheduler. An invalid cron
// spec in the config is a startup error.
func (t *Tasks) Run() error {
	if _, err := t.cron.AddFunc(t.cnfg.Refresh.GetRunAt(), t.RefreshTask); err != nil {
		return err
	}
	if _, err := t.cron.AddFunc(maintenanceRunAt, t.MaintenanceTask); err != nil {
		return err
	}
	t.cron.Start()
	return nil
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
