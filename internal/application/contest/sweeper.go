package contest

// sweeper.go: observador periódico del lado servidor.
//
// No es imprescindible para la corrección (cualquier lectura termina un
// contest expirado), pero garantiza que un contest sin lectores también
// termine y que un resultado fallido se reintente.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper ejecuta Controller.Sweep cada intervalo usando gocron.
type Sweeper struct {
	ctrl     *Controller
	interval time.Duration
	timeout  time.Duration
	sched    gocron.Scheduler
}

// NewSweeper crea el scheduler y registra el job. No arranca hasta Start.
// El job corre en singleton mode: si una pasada tarda más que el intervalo,
// la siguiente se reprograma en vez de solaparse.
func NewSweeper(ctrl *Controller, interval time.Duration) (*Sweeper, error) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("contest.NewSweeper: scheduler: %w", err)
	}
	s := &Sweeper{ctrl: ctrl, interval: interval, timeout: 4 * interval, sched: sched}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.runOnce),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("contest-sweeper"),
	)
	if err != nil {
		return nil, fmt.Errorf("contest.NewSweeper: register job: %w", err)
	}
	return s, nil
}

// Start arranca el scheduler en background.
func (s *Sweeper) Start() {
	slog.Info("sweeper starting", "interval", s.interval)
	s.sched.Start()
}

// Stop detiene el scheduler y espera a que termine la pasada en curso.
func (s *Sweeper) Stop() error {
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("contest.Sweeper.Stop: %w", err)
	}
	slog.Info("sweeper stopped")
	return nil
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.ctrl.Sweep(ctx); err != nil {
		slog.Error("sweep failed", "err", err)
	}
}
