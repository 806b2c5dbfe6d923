package main

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// runLeaderboard imprime el leaderboard de un contest. Como cualquier lector,
// termina el contest si ya expiró.
func runLeaderboard(ctx context.Context, a *app, id string) error {
	standings, err := a.ctrl.Leaderboard(ctx, id)
	if err != nil {
		return fmt.Errorf("leaderboard %s: %w", id, err)
	}
	a.notifier.PrintStandings(standings)
	return nil
}

// runList imprime los contests con el estado dado.
func runList(ctx context.Context, a *app, status string) error {
	if status == "all" {
		status = ""
	}
	contests, err := a.ctrl.List(ctx, domain.Status(status))
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	a.notifier.PrintContests(contests)
	return nil
}
