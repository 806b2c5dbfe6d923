package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

func (s *Server) createContest(c *fiber.Ctx) error {
	var req createContestRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	ct, err := s.contests.Create(c.UserContext(), req.config())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toContest(ct))
}

func (s *Server) listContests(c *fiber.Ctx) error {
	list, err := s.contests.List(c.UserContext(), domain.Status(c.Query("status")))
	if err != nil {
		return err
	}
	out := make([]contestResponse, len(list))
	for i, ct := range list {
		out[i] = toContest(ct)
	}
	return c.JSON(out)
}

func (s *Server) getContest(c *fiber.Ctx) error {
	ct, err := s.contests.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toContest(ct))
}

func (s *Server) deleteContest(c *fiber.Ctx) error {
	if err := s.contests.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) forceStart(c *fiber.Ctx) error {
	ct, err := s.contests.ForceStart(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toContest(ct))
}

func (s *Server) join(c *fiber.Ctx) error {
	var req joinRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if req.UserID == "" || req.TeamID == "" || req.PaymentRef == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user_id, team_id and payment_ref are required")
	}
	ct, err := s.contests.Join(c.UserContext(), c.Params("id"), req.UserID, req.TeamID, req.PaymentRef)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toContest(ct))
}

func (s *Server) leaderboard(c *fiber.Ctx) error {
	st, err := s.contests.Leaderboard(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toLeaderboard(st))
}

func (s *Server) createTeam(c *fiber.Ctx) error {
	var req createTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	team, err := s.teams.Create(c.UserContext(), req.UserID, req.Name, req.AssetIDs)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toTeam(team))
}

func (s *Server) getTeam(c *fiber.Ctx) error {
	team, err := s.teams.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toTeam(team))
}

func (s *Server) listTeams(c *fiber.Ctx) error {
	list, err := s.teams.List(c.UserContext(), c.Params("uid"))
	if err != nil {
		return err
	}
	out := make([]teamResponse, len(list))
	for i, t := range list {
		out[i] = toTeam(t)
	}
	return c.JSON(out)
}

func (s *Server) listAssets(c *fiber.Ctx) error {
	assets, err := s.teams.AvailableAssets(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(assets)
}
