package contest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/tokenpools/internal/application/ledger"
	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// observe evalúa los predicados de transición sobre un contest leído y, si
// alguno se cumple, intenta la transición. Devuelve el contest actualizado y
// si en esta observación ya se intentó finalizar.
//
//	upcoming + lleno   → start (un start previo pudo fallar tras el join)
//	ongoing  + expiró  → finish
func (c *Controller) observe(ctx context.Context, ct domain.Contest) (domain.Contest, bool, error) {
	finalized := false
	switch {
	case ct.Status == domain.StatusUpcoming && ct.IsFull():
		if _, err := c.start(ctx, ct.ID); err != nil {
			slog.Warn("start on observation failed", "contest", ct.ID, "err", err)
			return ct, false, nil
		}
	case ct.Expired(c.now()):
		won, err := c.MaybeFinish(ctx, ct)
		finalized = won
		if err != nil {
			slog.Warn("finish on observation failed", "contest", ct.ID, "err", err)
		}
	default:
		return ct, false, nil
	}
	updated, err := c.contests.GetContest(ctx, ct.ID)
	if err != nil {
		return ct, finalized, err
	}
	return updated, finalized, nil
}

// start ejecuta upcoming → ongoing. El CAS del storage decide el ganador; solo
// el ganador captura los precios locked. Si la captura falla el contest queda
// ongoing y el primer leaderboard la reintenta.
func (c *Controller) start(ctx context.Context, id string) (bool, error) {
	v, err, _ := c.group.Do("start:"+id, func() (any, error) {
		startedAt := c.now().UTC()
		won, err := c.contests.StartContest(ctx, id, startedAt)
		if err != nil {
			return false, fmt.Errorf("contest.start %s: %w", id, err)
		}
		if !won {
			slog.Debug("start already done by another observer", "contest", id)
			return false, nil
		}
		slog.Info("contest started", "contest", id, "started_at", startedAt)

		assets, err := c.contestAssets(ctx, id)
		if err != nil {
			slog.Error("load assets for locked capture failed", "contest", id, "err", err)
			return true, nil
		}
		if _, err := c.ledger.CaptureLocked(ctx, id, assets); err != nil {
			slog.Error("locked price capture failed, will retry on read", "contest", id, "err", err)
		}
		return true, nil
	})
	won, _ := v.(bool)
	return won, err
}

// MaybeFinish ejecuta ongoing → finished si el contest expiró. El instante de
// fin es start + duration, el mismo para cualquier observador. Solo el
// ganador del CAS finaliza; devuelve true si este observador hizo la transición.
func (c *Controller) MaybeFinish(ctx context.Context, ct domain.Contest) (bool, error) {
	if !ct.Expired(c.now()) {
		return false, nil
	}
	won, err := c.contests.FinishContest(ctx, ct.ID, ct.EndsAt().UTC())
	if err != nil {
		return false, fmt.Errorf("contest.MaybeFinish %s: %w", ct.ID, err)
	}
	if !won {
		return false, nil
	}
	slog.Info("contest finished", "contest", ct.ID, "ended_at", ct.EndsAt().UTC())

	if err := c.finalize(ctx, ct.ID); err != nil {
		// Queda finished sin rankings: lo detecta la próxima lectura o el sweeper.
		return true, fmt.Errorf("contest.MaybeFinish %s: %w", ct.ID, err)
	}
	return true, nil
}

// finalize captura precios finales, puntúa, rankea, reparte premios y persiste
// el resultado. Si el contest ya tiene resultado no hace nada; si otro
// observador lo persiste antes, el resultado calculado aquí se descarta.
func (c *Controller) finalize(ctx context.Context, id string) error {
	_, err, _ := c.group.Do("finalize:"+id, func() (any, error) {
		return nil, c.doFinalize(ctx, id)
	})
	return err
}

func (c *Controller) doFinalize(ctx context.Context, id string) error {
	start := time.Now()

	done, err := c.rankings.HasFinalRankings(ctx, id)
	if err != nil {
		return fmt.Errorf("contest.finalize %s: %w", id, err)
	}
	if done {
		return nil
	}

	ct, err := c.contests.GetContest(ctx, id)
	if err != nil {
		return fmt.Errorf("contest.finalize: %w", err)
	}
	if ct.Status != domain.StatusFinished {
		return fmt.Errorf("contest.finalize %s: status is %s", id, ct.Status)
	}

	entries, err := c.contests.ListEntries(ctx, id)
	if err != nil {
		return fmt.Errorf("contest.finalize %s: %w", id, err)
	}
	assets := unionAssets(entries)

	locked, err := c.ledger.GetLocked(ctx, id)
	if err != nil {
		return fmt.Errorf("contest.finalize %s: %w", id, err)
	}
	// El snapshot locked no se toca después del start: lo que falte puntúa 0.
	if missing := ledger.Missing(locked, assets); len(missing) > 0 {
		slog.Warn("locked prices missing at finish, scoring them as 0",
			"contest", id, "missing", len(missing))
	}
	final, err := c.ledger.CaptureFinal(ctx, id, assets)
	if err != nil {
		return fmt.Errorf("contest.finalize %s: final prices: %w", id, err)
	}

	scores := scoreEntriesConcurrent(entries, func(t domain.Team) domain.TeamScore {
		return domain.ScoreTeamFinal(t, locked, final)
	}, c.cfg.ScoringWorkers)

	ranked := domain.RankTeams(scores, c.shuffle)
	domain.ApplyPrizes(ranked, ct.Distribution, ct.PoolSize)

	saved, err := c.rankings.SaveFinalRankings(ctx, id, domain.ToFinalRankings(id, ranked), c.now().UTC())
	if err != nil {
		return fmt.Errorf("contest.finalize %s: %w", id, err)
	}
	if !saved {
		slog.Info("results already persisted by another observer, discarding", "contest", id)
		return nil
	}

	slog.Info("contest finalized",
		"contest", id,
		"teams", len(ranked),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	standings, err := c.finishedStandings(ctx, ct)
	if err != nil {
		slog.Warn("load standings for notification failed", "contest", id, "err", err)
		return nil
	}
	c.results.Add(id, standings)
	if c.notifier != nil {
		if err := c.notifier.ContestFinished(ctx, standings); err != nil {
			slog.Warn("notifier error", "contest", id, "err", err)
		}
	}
	return nil
}

// SweepReport resume una pasada del sweeper.
type SweepReport struct {
	Checked   int // contests ongoing evaluados
	Finished  int // transiciones ongoing → finished hechas en esta pasada
	Retried   int // contests finished sin resultado reintentados
	Finalized int // reintentos que dejaron resultado persistido
}

// Sweep es el observador del lado servidor: termina los contests ongoing
// expirados y reintenta una vez cada contest finished sin resultado.
func (c *Controller) Sweep(ctx context.Context) (SweepReport, error) {
	var rep SweepReport

	ongoing, err := c.contests.ListContests(ctx, domain.StatusOngoing)
	if err != nil {
		return rep, fmt.Errorf("contest.Sweep: %w", err)
	}
	attempted := make(map[string]bool)
	for _, ct := range ongoing {
		rep.Checked++
		if ct.StartedAt == nil {
			continue
		}
		won, err := c.MaybeFinish(ctx, ct)
		if won {
			rep.Finished++
			attempted[ct.ID] = true
		}
		if err != nil {
			slog.Warn("sweep finish failed", "contest", ct.ID, "err", err)
		}
	}

	pending, err := c.rankings.ListUnrankedFinished(ctx)
	if err != nil {
		return rep, fmt.Errorf("contest.Sweep: %w", err)
	}
	for _, id := range pending {
		if attempted[id] {
			continue
		}
		rep.Retried++
		if err := c.finalize(ctx, id); err != nil {
			slog.Warn("sweep finalize retry failed", "contest", id, "err", err)
			continue
		}
		rep.Finalized++
	}

	if rep.Finished > 0 || rep.Retried > 0 {
		slog.Info("sweep complete",
			"checked", rep.Checked,
			"finished", rep.Finished,
			"retried", rep.Retried,
			"finalized", rep.Finalized,
		)
	}
	return rep, nil
}

// contestAssets devuelve la unión de assets de todos los teams del contest.
func (c *Controller) contestAssets(ctx context.Context, id string) ([]string, error) {
	entries, err := c.contests.ListEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	return unionAssets(entries), nil
}

func unionAssets(entries []domain.Entry) []string {
	teams := make([]domain.Team, len(entries))
	for i, e := range entries {
		teams[i] = e.Team
	}
	return domain.UnionAssetIDs(teams)
}
