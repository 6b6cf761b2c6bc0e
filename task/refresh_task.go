package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/angas/skyphase/engine"
)

type Refresher interface {
	Refresh(ctx context.Context) error
}

func NewRefreshTask(logger *slog.Logger, refresher Refresher, timeout time.Duration) func() {
	return func() {
		logger.Debug("running refresh task...")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := refresher.Refresh(ctx)
		switch {
		case errors.Is(err, engine.ErrSuperseded):
			logger.Debug("refresh superseded by a newer request")
		case err != nil:
			logger.Warn("refresh task error", slog.Any("error", err))
		default:
			logger.Info("refresh task done")
		}
	}
}
