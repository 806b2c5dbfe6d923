package httpapi

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// AdminTokenHeader es la cabecera que autoriza las rutas de admin.
const AdminTokenHeader = "X-Admin-Token"

// adminOnly exige X-Admin-Token igual al token configurado.
func (s *Server) adminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.cfg.AdminToken == "" {
			return fiber.NewError(fiber.StatusForbidden, "admin routes are disabled")
		}
		got := c.Get(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AdminToken)) != 1 {
			slog.Warn("admin token rejected", "path", c.Path(), "ip", c.IP())
			return fiber.NewError(fiber.StatusUnauthorized, "invalid admin token")
		}
		return c.Next()
	}
}

// requestLogger registra cada petición con nivel según el status.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusFor(err)
		}
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start).Round(time.Microsecond),
		}
		if err != nil {
			attrs = append(attrs, "err", err)
		}
		slog.Log(c.UserContext(), level, "http request", attrs...)
		return err
	}
}

// errorHandler traduce errores de dominio a códigos HTTP con cuerpo JSON.
func errorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		msg = "internal server error"
	}
	return c.Status(code).JSON(errorResponse{Error: msg, Code: code})
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrContestNotFound),
		errors.Is(err, domain.ErrTeamNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrTeamNotOwned):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrContestFull),
		errors.Is(err, domain.ErrContestNotJoinable),
		errors.Is(err, domain.ErrContestNotDeletable),
		errors.Is(err, domain.ErrAlreadyJoined),
		errors.Is(err, domain.ErrTeamLimitReached),
		errors.Is(err, domain.ErrTeamNameTaken),
		errors.Is(err, domain.ErrSerialTaken):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidContest),
		errors.Is(err, domain.ErrInvalidTeam):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrOracleUnavailable),
		errors.Is(err, domain.ErrResultsPending):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}
