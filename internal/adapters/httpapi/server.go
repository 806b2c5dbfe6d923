package httpapi

// server.go: API HTTP (fiber) sobre el controlador de contests y el servicio de teams.
//
// Es un adaptador más: no contiene reglas de negocio, solo traduce JSON ↔
// dominio y errores de dominio ↔ códigos HTTP.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/alejandrodnm/tokenpools/internal/application/teams"
	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// ContestService es lo que la API necesita del controlador de contests.
type ContestService interface {
	Create(ctx context.Context, cfg domain.ContestConfig) (domain.Contest, error)
	Get(ctx context.Context, id string) (domain.Contest, error)
	List(ctx context.Context, status domain.Status) ([]domain.Contest, error)
	Delete(ctx context.Context, id string) error
	Join(ctx context.Context, contestID, userID, teamID, paymentRef string) (domain.Contest, error)
	ForceStart(ctx context.Context, id string) (domain.Contest, error)
	Leaderboard(ctx context.Context, id string) (domain.Standings, error)
}

// TeamService es lo que la API necesita del servicio de teams.
type TeamService interface {
	Create(ctx context.Context, userID, name string, assetIDs []string) (domain.Team, error)
	Get(ctx context.Context, id string) (domain.Team, error)
	List(ctx context.Context, userID string) ([]domain.Team, error)
	AvailableAssets(ctx context.Context) ([]teams.PricedAsset, error)
}

// Config contiene la configuración del servidor HTTP.
type Config struct {
	AdminToken string // vacío = rutas de admin deshabilitadas
}

// Server expone la API.
type Server struct {
	app      *fiber.App
	cfg      Config
	contests ContestService
	teams    TeamService
}

// New crea el servidor y registra las rutas.
func New(cfg Config, contests ContestService, teamSvc TeamService) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "tokenpools",
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestLogger())

	s := &Server{app: app, cfg: cfg, contests: contests, teams: teamSvc}
	s.routes()
	return s
}

// App devuelve la app de fiber (tests con app.Test).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen bloquea sirviendo en addr hasta Shutdown.
func (s *Server) Listen(addr string) error {
	slog.Info("http server listening", "addr", addr)
	if err := s.app.Listen(addr); err != nil {
		return fmt.Errorf("httpapi.Listen %s: %w", addr, err)
	}
	return nil
}

// Shutdown cierra el servidor esperando a las peticiones en curso.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Get("/assets", s.listAssets)

	contests := s.app.Group("/contests")
	contests.Get("/", s.listContests)
	contests.Get("/:id", s.getContest)
	contests.Get("/:id/leaderboard", s.leaderboard)
	contests.Post("/:id/participants", s.join)

	admin := s.adminOnly()
	contests.Post("/", admin, s.createContest)
	contests.Post("/:id/start", admin, s.forceStart)
	contests.Delete("/:id", admin, s.deleteContest)

	s.app.Post("/teams", s.createTeam)
	s.app.Get("/teams/:id", s.getTeam)
	s.app.Get("/users/:uid/teams", s.listTeams)
}
