package teams

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/alejandrodnm/tokenpools/internal/domain"
	"github.com/alejandrodnm/tokenpools/internal/ports"
)

// Config contiene la configuración del servicio de teams.
type Config struct {
	ListingSize int           // assets seleccionables (top-N por market cap)
	ListingTTL  time.Duration // cuánto se reutiliza el listado antes de volver a pedirlo
}

// Service crea y lista teams. Los teams son globales por usuario y
// reutilizables entre contests; el nombre es único tras normalizarlo con slug.
type Service struct {
	cfg    Config
	store  ports.TeamStore
	market ports.MarketLister
	now    func() time.Time

	mu        sync.Mutex
	listing   []domain.MarketAsset
	fetchedAt time.Time
}

// New crea un Service.
func New(cfg Config, store ports.TeamStore, market ports.MarketLister) *Service {
	if cfg.ListingSize <= 0 {
		cfg.ListingSize = 100
	}
	if cfg.ListingTTL <= 0 {
		cfg.ListingTTL = 10 * time.Minute
	}
	return &Service{cfg: cfg, store: store, market: market, now: time.Now}
}

// WithClock sustituye el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// PricedAsset es un asset seleccionable con su coste y su precio de referencia.
type PricedAsset struct {
	domain.Asset
	MarketCapRank int     `json:"market_cap_rank"`
	Price         float64 `json:"price"`
}

// AvailableAssets devuelve el listado seleccionable en orden de market cap, con coste.
func (s *Service) AvailableAssets(ctx context.Context) ([]PricedAsset, error) {
	listing, err := s.marketListing(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PricedAsset, len(listing))
	for i, m := range listing {
		out[i] = PricedAsset{
			Asset:         domain.Asset{ID: m.ID, Symbol: m.Symbol, Name: m.Name, Cost: domain.AssetCost(i)},
			MarketCapRank: m.MarketCapRank,
			Price:         m.CurrentPrice,
		}
	}
	return out, nil
}

// Create valida y persiste un team nuevo.
// El coste de cada asset se fija ahora, con el listado vigente, y no cambia después.
func (s *Service) Create(ctx context.Context, userID, name string, assetIDs []string) (domain.Team, error) {
	name = strings.TrimSpace(name)
	if userID == "" {
		return domain.Team{}, fmt.Errorf("teams.Create: %w: user id is required", domain.ErrInvalidTeam)
	}
	key := slug.Make(name)
	if name == "" || key == "" {
		return domain.Team{}, fmt.Errorf("teams.Create: %w: name is required", domain.ErrInvalidTeam)
	}

	listing, err := s.marketListing(ctx)
	if err != nil {
		return domain.Team{}, fmt.Errorf("teams.Create: %w", err)
	}
	costs := domain.CostTable(listing)

	assets := make([]domain.Asset, 0, len(assetIDs))
	for _, id := range assetIDs {
		a, ok := costs[id]
		if !ok {
			return domain.Team{}, fmt.Errorf("teams.Create: %w: asset %q is not in the selectable listing", domain.ErrInvalidTeam, id)
		}
		assets = append(assets, a)
	}
	if err := domain.ValidateAssets(assets); err != nil {
		return domain.Team{}, fmt.Errorf("teams.Create: %w", err)
	}

	team := domain.Team{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Slug:      key,
		Assets:    assets,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateTeam(ctx, team); err != nil {
		return domain.Team{}, fmt.Errorf("teams.Create: %w", err)
	}

	slog.Info("team created",
		"team", team.ID,
		"user", userID,
		"slug", key,
		"cost", team.TotalCost(),
	)
	return team, nil
}

// List devuelve los teams del usuario, más recientes primero.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Team, error) {
	teams, err := s.store.ListTeams(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("teams.List: %w", err)
	}
	return teams, nil
}

// Get devuelve un team por id.
func (s *Service) Get(ctx context.Context, id string) (domain.Team, error) {
	team, err := s.store.GetTeam(ctx, id)
	if err != nil {
		return domain.Team{}, fmt.Errorf("teams.Get: %w", err)
	}
	return team, nil
}

// marketListing devuelve el listado cacheado o lo refresca si expiró.
// Si el refresco falla y hay un listado anterior, se sigue usando ese.
func (s *Service) marketListing(ctx context.Context) ([]domain.MarketAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listing != nil && s.now().Sub(s.fetchedAt) < s.cfg.ListingTTL {
		return s.listing, nil
	}

	listing, err := s.market.TopAssets(ctx, s.cfg.ListingSize)
	if err != nil {
		if s.listing != nil {
			slog.Warn("market listing refresh failed, using stale listing",
				"age", s.now().Sub(s.fetchedAt).Round(time.Second),
				"err", err,
			)
			return s.listing, nil
		}
		return nil, fmt.Errorf("teams.marketListing: %w", err)
	}
	s.listing = listing
	s.fetchedAt = s.now()
	return listing, nil
}
