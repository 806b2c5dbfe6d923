package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/tokenpools/internal/adapters/httpapi"
	"github.com/alejandrodnm/tokenpools/internal/application/contest"
)

// runServe arranca el sweeper y la API HTTP hasta que el contexto se cancele.
func runServe(ctx context.Context, a *app) error {
	sweeper, err := contest.NewSweeper(a.ctrl, a.cfg.SweepInterval())
	if err != nil {
		return err
	}
	sweeper.Start()

	if a.cfg.Server.AdminToken == "" {
		slog.Warn("admin token not set, admin routes are disabled")
	}
	srv := httpapi.New(httpapi.Config{AdminToken: a.cfg.Server.AdminToken}, a.ctrl, a.teams)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(a.cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err = <-errCh:
		slog.Error("http server stopped", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		slog.Warn("http shutdown error", "err", serr)
	}
	if serr := sweeper.Stop(); serr != nil {
		slog.Warn("sweeper shutdown error", "err", serr)
	}
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
