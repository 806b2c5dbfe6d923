package contest

// concurrent.go: worker pool para puntuar los teams de un contest en paralelo.

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// scoreEntriesConcurrent puntúa cada entry con score usando un worker pool.
// El resultado conserva el orden de entries (el orden de join desempata el
// ranking live de forma estable).
//
// Si workers <= 0 usa runtime.NumCPU().
func scoreEntriesConcurrent(
	entries []domain.Entry,
	score func(domain.Team) domain.TeamScore,
	workers int,
) []domain.TeamScore {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(entries) {
		workers = len(entries)
	}

	out := make([]domain.TeamScore, len(entries))
	workCh := make(chan int, len(entries))
	for i := range entries {
		workCh <- i
	}
	close(workCh)

	// Cada worker escribe solo en su índice: no hace falta lock sobre out.
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				e := entries[i]
				ts := score(e.Team)
				ts.UserID = e.Participation.UserID
				if missing := ts.MissingAssets(); len(missing) > 0 {
					slog.Debug("assets without observed price",
						"team", e.Team.ID,
						"missing", missing,
					)
				}
				out[i] = ts
			}
		}()
	}
	wg.Wait()

	slog.Debug("concurrent scoring complete",
		"teams", len(entries),
		"workers", workers,
	)
	return out
}
