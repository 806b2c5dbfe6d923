package main

import (
	"context"
	"log/slog"
)

// runSweepOnce ejecuta una pasada del sweeper (útil desde cron externo).
func runSweepOnce(ctx context.Context, a *app) error {
	rep, err := a.ctrl.Sweep(ctx)
	if err != nil {
		return err
	}
	slog.Info("sweep done",
		"checked", rep.Checked,
		"finished", rep.Finished,
		"retried", rep.Retried,
		"finalized", rep.Finalized,
	)
	return nil
}
