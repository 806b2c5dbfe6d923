package contest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/alejandrodnm/tokenpools/internal/application/ledger"
	"github.com/alejandrodnm/tokenpools/internal/domain"
	"github.com/alejandrodnm/tokenpools/internal/ports"
)

// Config contiene la configuración del controlador de contests.
type Config struct {
	MaxTeamsPerUser  int // teams distintos de un usuario por contest (0 = domain.MaxTeamsPerContest)
	ResultsCacheSize int // standings de contests finished en memoria
	ScoringWorkers   int // goroutines para puntuar teams (0 = NumCPU)

	QuoteTTL     time.Duration // reutilización de precios actuales en lecturas live (0 = 30s)
	QuoteTimeout time.Duration // tope de una consulta live al oráculo (0 = 5s)
}

const quoteCacheSize = 4096

// Controller es la máquina de estados de los contests: upcoming → ongoing → finished.
//
// No hay un único dueño del reloj: cualquier lector (leaderboard, sweeper,
// force-start, join) puede evaluar el predicado de transición e intentarla.
// La corrección descansa en los compare-and-set del storage; singleflight solo
// evita trabajo duplicado dentro del proceso.
type Controller struct {
	cfg      Config
	contests ports.ContestStore
	rankings ports.RankingStore
	teams    ports.TeamStore
	ledger   *ledger.Ledger
	oracle   ports.PriceOracle
	notifier ports.Notifier

	now     func() time.Time
	shuffle domain.Shuffler
	group   singleflight.Group
	results *lru.Cache // contestID → domain.Standings (finished, inmutable)
	quotes  *quoteCache
}

// New crea un Controller con todas las dependencias inyectadas.
func New(
	cfg Config,
	contests ports.ContestStore,
	rankings ports.RankingStore,
	teams ports.TeamStore,
	prices *ledger.Ledger,
	oracle ports.PriceOracle,
	notifier ports.Notifier,
) (*Controller, error) {
	if cfg.MaxTeamsPerUser <= 0 {
		cfg.MaxTeamsPerUser = domain.MaxTeamsPerContest
	}
	if cfg.ResultsCacheSize <= 0 {
		cfg.ResultsCacheSize = 256
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 30 * time.Second
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = 5 * time.Second
	}
	cache, err := lru.New(cfg.ResultsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("contest.New: results cache: %w", err)
	}
	quotes, err := newQuoteCache(quoteCacheSize, cfg.QuoteTTL)
	if err != nil {
		return nil, fmt.Errorf("contest.New: %w", err)
	}
	return &Controller{
		cfg:      cfg,
		contests: contests,
		rankings: rankings,
		teams:    teams,
		ledger:   prices,
		oracle:   oracle,
		notifier: notifier,
		now:      time.Now,
		results:  cache,
		quotes:   quotes,
	}, nil
}

// WithClock sustituye el reloj (tests).
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// WithShuffler sustituye el desempate aleatorio (tests).
func (c *Controller) WithShuffler(s domain.Shuffler) *Controller {
	c.shuffle = s
	return c
}

// Create valida la configuración y persiste un contest upcoming.
func (c *Controller) Create(ctx context.Context, cfg domain.ContestConfig) (domain.Contest, error) {
	if err := cfg.Validate(); err != nil {
		return domain.Contest{}, fmt.Errorf("contest.Create: %w", err)
	}
	ct := domain.Contest{
		ID:               uuid.NewString(),
		SerialNumber:     cfg.SerialNumber,
		Name:             cfg.Name,
		EntryFee:         cfg.EntryFee,
		MaxParticipants:  cfg.MaxParticipants,
		Duration:         cfg.Duration,
		PoolSize:         cfg.PoolSize,
		Distribution:     cfg.Distribution,
		RecipientAddress: cfg.RecipientAddress,
		Status:           domain.StatusUpcoming,
		CreatedAt:        c.now().UTC(),
	}
	if err := c.contests.CreateContest(ctx, ct); err != nil {
		return domain.Contest{}, fmt.Errorf("contest.Create: %w", err)
	}
	slog.Info("contest created",
		"contest", ct.ID,
		"serial", ct.SerialNumber,
		"capacity", ct.MaxParticipants,
		"duration", ct.Duration,
	)
	return ct, nil
}

// Get devuelve el contest. Si está ongoing y ya expiró, intenta terminarlo antes.
func (c *Controller) Get(ctx context.Context, id string) (domain.Contest, error) {
	ct, err := c.contests.GetContest(ctx, id)
	if err != nil {
		return domain.Contest{}, err
	}
	ct, _, err = c.observe(ctx, ct)
	return ct, err
}

// List devuelve los contests con el estado dado (todos si status es vacío).
func (c *Controller) List(ctx context.Context, status domain.Status) ([]domain.Contest, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("contest.List: %w: unknown status %q", domain.ErrInvalidContest, status)
	}
	return c.contests.ListContests(ctx, status)
}

// Delete borra un contest upcoming sin participantes.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.contests.DeleteContest(ctx, id); err != nil {
		return fmt.Errorf("contest.Delete: %w", err)
	}
	slog.Info("contest deleted", "contest", id)
	return nil
}

// Join registra la participación de un team ya pagado.
// Si con ella se llena el contest, dispara upcoming → ongoing.
func (c *Controller) Join(ctx context.Context, contestID, userID, teamID, paymentRef string) (domain.Contest, error) {
	team, err := c.teams.GetTeam(ctx, teamID)
	if err != nil {
		return domain.Contest{}, fmt.Errorf("contest.Join: %w", err)
	}
	if team.UserID != userID {
		return domain.Contest{}, fmt.Errorf("contest.Join: team %s: %w", teamID, domain.ErrTeamNotOwned)
	}

	p := domain.Participation{
		ID:         uuid.NewString(),
		ContestID:  contestID,
		TeamID:     teamID,
		UserID:     userID,
		PaymentRef: paymentRef,
		JoinedAt:   c.now().UTC(),
	}
	ct, err := c.contests.AddParticipation(ctx, p, c.cfg.MaxTeamsPerUser)
	if err != nil {
		return domain.Contest{}, fmt.Errorf("contest.Join: %w", err)
	}
	slog.Info("participant joined",
		"contest", contestID,
		"team", teamID,
		"user", userID,
		"participants", ct.CurrentParticipants,
		"capacity", ct.MaxParticipants,
	)

	if !ct.IsFull() {
		return ct, nil
	}
	if _, err := c.start(ctx, contestID); err != nil {
		// La participación ya es durable; el start se reintenta en la próxima observación.
		slog.Error("start after capacity fill failed", "contest", contestID, "err", err)
	}
	return c.contests.GetContest(ctx, contestID)
}

// ForceStart es el trigger administrativo de upcoming → ongoing.
// Sobre un contest que ya no está upcoming es un no-op.
func (c *Controller) ForceStart(ctx context.Context, id string) (domain.Contest, error) {
	if _, err := c.contests.GetContest(ctx, id); err != nil {
		return domain.Contest{}, fmt.Errorf("contest.ForceStart: %w", err)
	}
	if _, err := c.start(ctx, id); err != nil {
		return domain.Contest{}, fmt.Errorf("contest.ForceStart: %w", err)
	}
	return c.contests.GetContest(ctx, id)
}
