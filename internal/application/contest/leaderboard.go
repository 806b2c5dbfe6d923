package contest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/tokenpools/internal/application/ledger"
	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// Leaderboard devuelve la vista de standings según el estado del contest.
//
//	upcoming: participantes sin scores ni ranks
//	ongoing:  scores live contra precios actuales, ranks provisionales
//	finished: resultado persistido (cacheado, es inmutable)
//
// Leer es también observar: si el contest ya expiró, la lectura lo termina.
func (c *Controller) Leaderboard(ctx context.Context, id string) (domain.Standings, error) {
	if v, ok := c.results.Get(id); ok {
		return v.(domain.Standings), nil
	}

	ct, err := c.contests.GetContest(ctx, id)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("contest.Leaderboard: %w", err)
	}
	ct, attempted, err := c.observe(ctx, ct)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("contest.Leaderboard: %w", err)
	}

	switch ct.Status {
	case domain.StatusUpcoming:
		return c.upcomingStandings(ctx, ct)
	case domain.StatusOngoing:
		return c.liveStandings(ctx, ct)
	default:
		return c.resultStandings(ctx, ct, attempted)
	}
}

func (c *Controller) upcomingStandings(ctx context.Context, ct domain.Contest) (domain.Standings, error) {
	entries, err := c.contests.ListEntries(ctx, ct.ID)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("contest.upcomingStandings: %w", err)
	}
	teams := make([]domain.RankedTeam, len(entries))
	for i, e := range entries {
		ts := domain.ScoreTeamLive(e.Team, nil, nil)
		ts.UserID = e.Participation.UserID
		teams[i] = domain.RankedTeam{TeamScore: ts}
	}
	return domain.Standings{Contest: ct, Teams: teams, GeneratedAt: c.now().UTC()}, nil
}

// liveStandings puntúa contra precios actuales. No escribe nada salvo la
// captura locked perezosa si el start no llegó a completarla. Un fallo del
// oráculo degrada a scores parciales (assets no disponibles aportan 0).
func (c *Controller) liveStandings(ctx context.Context, ct domain.Contest) (domain.Standings, error) {
	entries, err := c.contests.ListEntries(ctx, ct.ID)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("contest.liveStandings: %w", err)
	}
	assets := unionAssets(entries)

	locked, err := c.ledger.GetLocked(ctx, ct.ID)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("contest.liveStandings: %w", err)
	}
	if missing := ledger.Missing(locked, assets); len(missing) > 0 {
		slog.Info("locked prices incomplete, capturing", "contest", ct.ID, "missing", len(missing))
		healed, err := c.ledger.CaptureLocked(ctx, ct.ID, assets)
		if err != nil {
			slog.Warn("lazy locked capture failed", "contest", ct.ID, "err", err)
		}
		if healed != nil {
			locked = healed
		}
	}

	current := c.livePrices(ctx, ct.ID, assets)

	scores := scoreEntriesConcurrent(entries, func(t domain.Team) domain.TeamScore {
		return domain.ScoreTeamLive(t, locked, current)
	}, c.cfg.ScoringWorkers)

	return domain.Standings{
		Contest:     ct,
		Teams:       domain.RankLive(scores),
		Provisional: true,
		GeneratedAt: c.now().UTC(),
	}, nil
}

// livePrices devuelve los precios actuales para el scoring live. Los assets
// cotizados hace menos de QuoteTTL salen de la caché; el resto se pide al
// oráculo con un timeout acotado. Si el oráculo falla o tarda demasiado, los
// assets sin precio quedan como no disponibles.
func (c *Controller) livePrices(ctx context.Context, contestID string, assets []string) domain.PriceSnapshot {
	current, stale := c.quotes.lookup(assets, c.now())
	if len(stale) == 0 {
		return current
	}

	_, err, _ := c.group.Do("quotes:"+contestID, func() (any, error) {
		qctx, cancel := context.WithTimeout(ctx, c.cfg.QuoteTimeout)
		defer cancel()
		prices, err := c.oracle.CurrentPrices(qctx, stale)
		c.quotes.store(prices, c.now())
		return nil, err
	})

	current, stale = c.quotes.lookup(assets, c.now())
	if err != nil {
		slog.Warn("current prices incomplete, live scores are partial",
			"contest", contestID, "received", len(current), "requested", len(assets), "err", err)
	} else if len(stale) > 0 {
		slog.Debug("assets without current price", "contest", contestID, "missing", len(stale))
	}
	return current
}

// resultStandings lee el resultado persistido. Si falta (finalize falló tras
// el flip de estado) reintenta finalize una sola vez por lectura, salvo que
// esta misma lectura ya lo haya intentado al terminar el contest.
func (c *Controller) resultStandings(ctx context.Context, ct domain.Contest, attempted bool) (domain.Standings, error) {
	done, err := c.rankings.HasFinalRankings(ctx, ct.ID)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("contest.resultStandings: %w", err)
	}
	if !done && !attempted {
		slog.Info("finished contest without results, finalizing", "contest", ct.ID)
		if err := c.finalize(ctx, ct.ID); err != nil {
			slog.Warn("finalize on read failed", "contest", ct.ID, "err", err)
		}
		if done, err = c.rankings.HasFinalRankings(ctx, ct.ID); err != nil {
			return domain.Standings{}, fmt.Errorf("contest.resultStandings: %w", err)
		}
	}
	if !done {
		return domain.Standings{}, fmt.Errorf("contest.resultStandings %s: %w", ct.ID, domain.ErrResultsPending)
	}

	standings, err := c.finishedStandings(ctx, ct)
	if err != nil {
		return domain.Standings{}, err
	}
	c.results.Add(ct.ID, standings)
	return standings, nil
}

// finishedStandings combina las filas persistidas con el detalle por asset
// recalculado desde los snapshots locked y final. Rank, score, premio y
// empate salen siempre de las filas persistidas.
func (c *Controller) finishedStandings(ctx context.Context, ct domain.Contest) (domain.Standings, error) {
	rows, err := c.rankings.GetFinalRankings(ctx, ct.ID)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("contest.finishedStandings: %w", err)
	}
	entries, err := c.contests.ListEntries(ctx, ct.ID)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("contest.finishedStandings: %w", err)
	}
	locked, err := c.ledger.GetLocked(ctx, ct.ID)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("contest.finishedStandings: %w", err)
	}
	final, err := c.ledger.GetFinal(ctx, ct.ID)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("contest.finishedStandings: %w", err)
	}

	byTeam := make(map[string]domain.Team, len(entries))
	for _, e := range entries {
		byTeam[e.Team.ID] = e.Team
	}

	teams := make([]domain.RankedTeam, len(rows))
	for i, r := range rows {
		ts := domain.TeamScore{TeamID: r.TeamID}
		if team, ok := byTeam[r.TeamID]; ok {
			ts = domain.ScoreTeamFinal(team, locked, final)
		}
		ts.UserID = r.UserID
		ts.Total = r.FinalScore
		teams[i] = domain.RankedTeam{TeamScore: ts, Rank: r.FinalRank, IsTie: r.IsTie, Prize: r.PrizeAmount}
	}
	return domain.Standings{Contest: ct, Teams: teams, GeneratedAt: c.now().UTC()}, nil
}
