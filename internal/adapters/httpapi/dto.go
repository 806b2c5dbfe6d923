package httpapi

import (
	"time"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

type createContestRequest struct {
	SerialNumber     string              `json:"serial_number"`
	Name             string              `json:"name"`
	EntryFee         float64             `json:"entry_fee"`
	MaxParticipants  int                 `json:"max_participants"`
	DurationSeconds  int64               `json:"duration_seconds"`
	PoolSize         float64             `json:"pool_size"`
	Distribution     domain.Distribution `json:"distribution"`
	RecipientAddress string              `json:"recipient_address"`
}

func (r createContestRequest) config() domain.ContestConfig {
	return domain.ContestConfig{
		SerialNumber:     r.SerialNumber,
		Name:             r.Name,
		EntryFee:         r.EntryFee,
		MaxParticipants:  r.MaxParticipants,
		Duration:         time.Duration(r.DurationSeconds) * time.Second,
		PoolSize:         r.PoolSize,
		Distribution:     r.Distribution,
		RecipientAddress: r.RecipientAddress,
	}
}

type joinRequest struct {
	UserID     string `json:"user_id"`
	TeamID     string `json:"team_id"`
	PaymentRef string `json:"payment_ref"`
}

type createTeamRequest struct {
	UserID   string   `json:"user_id"`
	Name     string   `json:"name"`
	AssetIDs []string `json:"asset_ids"`
}

type contestResponse struct {
	ID                  string              `json:"id"`
	SerialNumber        string              `json:"serial_number"`
	Name                string              `json:"name"`
	EntryFee            float64             `json:"entry_fee"`
	MaxParticipants     int                 `json:"max_participants"`
	CurrentParticipants int                 `json:"current_participants"`
	DurationSeconds     int64               `json:"duration_seconds"`
	PoolSize            float64             `json:"pool_size"`
	Distribution        domain.Distribution `json:"distribution"`
	RecipientAddress    string              `json:"recipient_address"`
	Status              domain.Status       `json:"status"`
	StartedAt           *time.Time          `json:"started_at,omitempty"`
	EndsAt              *time.Time          `json:"ends_at,omitempty"`
	EndedAt             *time.Time          `json:"ended_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

func toContest(c domain.Contest) contestResponse {
	r := contestResponse{
		ID:                  c.ID,
		SerialNumber:        c.SerialNumber,
		Name:                c.Name,
		EntryFee:            c.EntryFee,
		MaxParticipants:     c.MaxParticipants,
		CurrentParticipants: c.CurrentParticipants,
		DurationSeconds:     int64(c.Duration / time.Second),
		PoolSize:            c.PoolSize,
		Distribution:        c.Distribution,
		RecipientAddress:    c.RecipientAddress,
		Status:              c.Status,
		StartedAt:           c.StartedAt,
		EndedAt:             c.EndedAt,
		CreatedAt:           c.CreatedAt,
	}
	if c.StartedAt != nil {
		ends := c.EndsAt()
		r.EndsAt = &ends
	}
	return r
}

type teamResponse struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Name      string         `json:"name"`
	Assets    []domain.Asset `json:"assets"`
	TotalCost int            `json:"total_cost"`
	CreatedAt time.Time      `json:"created_at"`
}

func toTeam(t domain.Team) teamResponse {
	return teamResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		Name:      t.Name,
		Assets:    t.Assets,
		TotalCost: t.TotalCost(),
		CreatedAt: t.CreatedAt,
	}
}

type assetScoreResponse struct {
	AssetID       string   `json:"asset_id"`
	Symbol        string   `json:"symbol"`
	Cost          int      `json:"cost"`
	LockedPrice   float64  `json:"locked_price"`
	ObservedPrice *float64 `json:"observed_price"` // null si no hubo precio
	PercentChange float64  `json:"percent_change"`
	Score         float64  `json:"score"`
}

type standingResponse struct {
	Rank     int                  `json:"rank,omitempty"`
	TeamID   string               `json:"team_id"`
	TeamName string               `json:"team_name"`
	UserID   string               `json:"user_id"`
	Score    float64              `json:"score"`
	Prize    float64              `json:"prize"`
	IsTie    bool                 `json:"is_tie"`
	Assets   []assetScoreResponse `json:"assets"`
}

type leaderboardResponse struct {
	Contest     contestResponse    `json:"contest"`
	Provisional bool               `json:"provisional"`
	GeneratedAt time.Time          `json:"generated_at"`
	Teams       []standingResponse `json:"teams"`
}

func toLeaderboard(s domain.Standings) leaderboardResponse {
	out := leaderboardResponse{
		Contest:     toContest(s.Contest),
		Provisional: s.Provisional,
		GeneratedAt: s.GeneratedAt,
		Teams:       make([]standingResponse, len(s.Teams)),
	}
	for i, t := range s.Teams {
		st := standingResponse{
			Rank:     t.Rank,
			TeamID:   t.TeamID,
			TeamName: t.TeamName,
			UserID:   t.UserID,
			Score:    domain.RoundScore(t.Total),
			Prize:    t.Prize,
			IsTie:    t.IsTie,
			Assets:   make([]assetScoreResponse, len(t.Assets)),
		}
		for j, a := range t.Assets {
			ar := assetScoreResponse{
				AssetID:       a.AssetID,
				Symbol:        a.Symbol,
				Cost:          a.Cost,
				LockedPrice:   a.LockedPrice,
				PercentChange: a.PercentChange,
				Score:         a.Score,
			}
			if a.Available {
				p := a.ObservedPrice
				ar.ObservedPrice = &p
			}
			st.Assets[j] = ar
		}
		out.Teams[i] = st
	}
	return out
}
