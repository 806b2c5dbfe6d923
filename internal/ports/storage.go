package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// ContestStore persiste contests y participaciones.
// Las transiciones de estado son compare-and-set atómicos en la base de datos.
type ContestStore interface {
	CreateContest(ctx context.Context, c domain.Contest) error
	GetContest(ctx context.Context, id string) (domain.Contest, error)
	ListContests(ctx context.Context, status domain.Status) ([]domain.Contest, error)
	DeleteContest(ctx context.Context, id string) error

	// AddParticipation registra la participación e incrementa el contador del
	// contest en la misma transacción. Devuelve el contest actualizado.
	AddParticipation(ctx context.Context, p domain.Participation, maxTeamsPerUser int) (domain.Contest, error)

	// ListEntries devuelve las participaciones del contest con su team cargado.
	ListEntries(ctx context.Context, contestID string) ([]domain.Entry, error)

	// StartContest hace upcoming → ongoing solo si el estado actual es upcoming.
	// Devuelve false (sin error) si otro observador ya hizo la transición.
	StartContest(ctx context.Context, id string, startedAt time.Time) (bool, error)

	// FinishContest hace ongoing → finished solo si el estado actual es ongoing.
	FinishContest(ctx context.Context, id string, endedAt time.Time) (bool, error)
}

// TeamStore persiste teams.
type TeamStore interface {
	CreateTeam(ctx context.Context, t domain.Team) error
	GetTeam(ctx context.Context, id string) (domain.Team, error)
	ListTeams(ctx context.Context, userID string) ([]domain.Team, error)
}

// PriceLedgerStore persiste los snapshots de precios (write-once por (contest, asset, kind)).
type PriceLedgerStore interface {
	// InsertPrices inserta si no existe; las filas ya presentes no se tocan.
	// Devuelve cuántas filas se insertaron realmente.
	InsertPrices(ctx context.Context, contestID string, kind domain.SnapshotKind, prices domain.PriceSnapshot, capturedAt time.Time) (int, error)
	GetPrices(ctx context.Context, contestID string, kind domain.SnapshotKind) (domain.PriceSnapshot, error)
}

// RankingStore persiste el resultado final (write-once por contest).
type RankingStore interface {
	// SaveFinalRankings inserta todas las filas o ninguna. Si el contest ya
	// tiene resultado devuelve false y descarta las filas nuevas.
	SaveFinalRankings(ctx context.Context, contestID string, rows []domain.FinalRanking, finalizedAt time.Time) (bool, error)
	GetFinalRankings(ctx context.Context, contestID string) ([]domain.FinalRanking, error)
	// HasFinalRankings distingue "sin resultado" de "resultado vacío" (contest sin participantes).
	HasFinalRankings(ctx context.Context, contestID string) (bool, error)
	// ListUnrankedFinished devuelve contests finished sin resultado persistido.
	ListUnrankedFinished(ctx context.Context) ([]string, error)
}
