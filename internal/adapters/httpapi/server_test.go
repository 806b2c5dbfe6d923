package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/tokenpools/internal/adapters/httpapi"
	"github.com/alejandrodnm/tokenpools/internal/application/teams"
	"github.com/alejandrodnm/tokenpools/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockContests struct {
	created    domain.ContestConfig
	joinErr    error
	standings  domain.Standings
	boardErr   error
	listStatus domain.Status
}

func (m *mockContests) Create(_ context.Context, cfg domain.ContestConfig) (domain.Contest, error) {
	if err := cfg.Validate(); err != nil {
		return domain.Contest{}, err
	}
	m.created = cfg
	return domain.Contest{ID: "c1", SerialNumber: cfg.SerialNumber, Duration: cfg.Duration, Status: domain.StatusUpcoming}, nil
}

func (m *mockContests) Get(_ context.Context, id string) (domain.Contest, error) {
	if id != "c1" {
		return domain.Contest{}, fmt.Errorf("storage.GetContest %s: %w", id, domain.ErrContestNotFound)
	}
	started := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return domain.Contest{ID: "c1", Status: domain.StatusOngoing, Duration: time.Hour, StartedAt: &started}, nil
}

func (m *mockContests) List(_ context.Context, status domain.Status) ([]domain.Contest, error) {
	m.listStatus = status
	return []domain.Contest{{ID: "c1", Status: domain.StatusUpcoming}}, nil
}

func (m *mockContests) Delete(_ context.Context, _ string) error {
	return domain.ErrContestNotDeletable
}

func (m *mockContests) Join(_ context.Context, contestID, _, _, _ string) (domain.Contest, error) {
	if m.joinErr != nil {
		return domain.Contest{}, m.joinErr
	}
	return domain.Contest{ID: contestID, CurrentParticipants: 1, MaxParticipants: 2, Status: domain.StatusUpcoming}, nil
}

func (m *mockContests) ForceStart(_ context.Context, id string) (domain.Contest, error) {
	return domain.Contest{ID: id, Status: domain.StatusOngoing}, nil
}

func (m *mockContests) Leaderboard(_ context.Context, _ string) (domain.Standings, error) {
	return m.standings, m.boardErr
}

type mockTeams struct{}

func (mockTeams) Create(_ context.Context, userID, name string, ids []string) (domain.Team, error) {
	if len(ids) != domain.TeamSize {
		return domain.Team{}, fmt.Errorf("teams.Create: %w", domain.ErrInvalidTeam)
	}
	return domain.Team{ID: "t1", UserID: userID, Name: name}, nil
}

func (mockTeams) Get(_ context.Context, id string) (domain.Team, error) {
	if id != "t1" {
		return domain.Team{}, fmt.Errorf("storage.GetTeam %s: %w", id, domain.ErrTeamNotFound)
	}
	return domain.Team{ID: "t1", UserID: "alice", Name: "Moon", Assets: []domain.Asset{{ID: "btc", Cost: 25}}}, nil
}

func (mockTeams) List(_ context.Context, userID string) ([]domain.Team, error) {
	return []domain.Team{{ID: "t1", UserID: userID, Assets: []domain.Asset{{ID: "btc", Cost: 25}}}}, nil
}

func (mockTeams) AvailableAssets(_ context.Context) ([]teams.PricedAsset, error) {
	return []teams.PricedAsset{{Asset: domain.Asset{ID: "bitcoin", Symbol: "BTC", Cost: 25}, MarketCapRank: 1, Price: 60000}}, nil
}

func newServer(m *mockContests) *httpapi.Server {
	return httpapi.New(httpapi.Config{AdminToken: "secret"}, m, mockTeams{})
}

func do(t *testing.T, s *httpapi.Server, method, path, body string, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

const contestBody = `{
	"serial_number": "7",
	"name": "Weekly",
	"entry_fee": 5,
	"max_participants": 10,
	"duration_seconds": 3600,
	"pool_size": 1000,
	"distribution": {"mode": "percentage", "distributions": [{"rankFrom": 1, "rankTo": 1, "percentage": 50}], "admin_cut": 10}
}`

// --- tests ---

func TestCreateContest_RequiresAdminToken(t *testing.T) {
	s := newServer(&mockContests{})

	resp, _ := do(t, s, http.MethodPost, "/contests", contestBody)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, s, http.MethodPost, "/contests", contestBody, httpapi.AdminTokenHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateContest(t *testing.T) {
	m := &mockContests{}
	s := newServer(m)

	resp, body := do(t, s, http.MethodPost, "/contests", contestBody, httpapi.AdminTokenHeader, "secret")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	assert.Equal(t, time.Hour, m.created.Duration)
	require.Len(t, m.created.Distribution.Tiers, 1)
	assert.InDelta(t, 10.0, m.created.Distribution.PlatformCut, 0.001)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "upcoming", got["status"])
	assert.EqualValues(t, 3600, got["duration_seconds"])
}

func TestCreateContest_InvalidSchedule(t *testing.T) {
	s := newServer(&mockContests{})
	bad := strings.Replace(contestBody, `"percentage": 50`, `"percentage": 95`, 1)

	resp, body := do(t, s, http.MethodPost, "/contests", bad, httpapi.AdminTokenHeader, "secret")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "exceeds 100%")
}

func TestCreateContest_BadJSON(t *testing.T) {
	s := newServer(&mockContests{})
	resp, _ := do(t, s, http.MethodPost, "/contests", `{`, httpapi.AdminTokenHeader, "secret")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetContest_NotFound(t *testing.T) {
	s := newServer(&mockContests{})
	resp, body := do(t, s, http.MethodGet, "/contests/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "contest not found")
}

func TestGetContest_IncludesEndsAt(t *testing.T) {
	s := newServer(&mockContests{})
	resp, body := do(t, s, http.MethodGet, "/contests/c1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"ends_at":"2026-05-01T13:00:00Z"`)
}

func TestListContests_PassesStatus(t *testing.T) {
	m := &mockContests{}
	s := newServer(m)
	resp, _ := do(t, s, http.MethodGet, "/contests?status=ongoing", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusOngoing, m.listStatus)
}

func TestJoin_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrContestFull, http.StatusConflict},
		{domain.ErrAlreadyJoined, http.StatusConflict},
		{domain.ErrTeamLimitReached, http.StatusConflict},
		{domain.ErrContestNotJoinable, http.StatusConflict},
		{domain.ErrTeamNotOwned, http.StatusForbidden},
		{domain.ErrTeamNotFound, http.StatusNotFound},
		{fmt.Errorf("storage: %w", context.DeadlineExceeded), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			s := newServer(&mockContests{joinErr: fmt.Errorf("contest.Join: %w", tt.err)})
			resp, _ := do(t, s, http.MethodPost, "/contests/c1/participants",
				`{"user_id":"alice","team_id":"t1","payment_ref":"tx"}`)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestJoin_RequiresFields(t *testing.T) {
	s := newServer(&mockContests{})
	resp, _ := do(t, s, http.MethodPost, "/contests/c1/participants", `{"user_id":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, s, http.MethodPost, "/contests/c1/participants",
		`{"user_id":"alice","team_id":"t1","payment_ref":"tx"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, string(body), `"current_participants":1`)
}

func TestLeaderboard(t *testing.T) {
	m := &mockContests{standings: domain.Standings{
		Contest:     domain.Contest{ID: "c1", Status: domain.StatusOngoing},
		Provisional: true,
		Teams: []domain.RankedTeam{{
			TeamScore: domain.TeamScore{
				TeamID: "t1", UserID: "alice", Total: 123.456,
				Assets: []domain.AssetScore{
					{AssetID: "btc", LockedPrice: 10, ObservedPrice: 11, Available: true, PercentChange: 10, Score: 1000},
					{AssetID: "dead", LockedPrice: 0},
				},
			},
			Rank: 1,
		}},
	}}
	s := newServer(m)

	resp, body := do(t, s, http.MethodGet, "/contests/c1/leaderboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Provisional bool `json:"provisional"`
		Teams       []struct {
			Rank   int     `json:"rank"`
			Score  float64 `json:"score"`
			Assets []struct {
				AssetID       string   `json:"asset_id"`
				ObservedPrice *float64 `json:"observed_price"`
			} `json:"assets"`
		} `json:"teams"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Provisional)
	require.Len(t, got.Teams, 1)
	assert.InDelta(t, 123.46, got.Teams[0].Score, 0.0001)
	require.Len(t, got.Teams[0].Assets, 2)
	require.NotNil(t, got.Teams[0].Assets[0].ObservedPrice)
	assert.Nil(t, got.Teams[0].Assets[1].ObservedPrice)
}

func TestLeaderboard_ResultsPending(t *testing.T) {
	s := newServer(&mockContests{boardErr: fmt.Errorf("x: %w", domain.ErrResultsPending)})
	resp, _ := do(t, s, http.MethodGet, "/contests/c1/leaderboard", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(&mockContests{})

	resp, _ := do(t, s, http.MethodPost, "/contests/c1/start", "", httpapi.AdminTokenHeader, "secret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, s, http.MethodDelete, "/contests/c1", "", httpapi.AdminTokenHeader, "secret")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, s, http.MethodDelete, "/contests/c1", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutes_DisabledWithoutToken(t *testing.T) {
	s := httpapi.New(httpapi.Config{}, &mockContests{}, mockTeams{})
	resp, _ := do(t, s, http.MethodPost, "/contests/c1/start", "", httpapi.AdminTokenHeader, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestTeams(t *testing.T) {
	s := newServer(&mockContests{})

	resp, _ := do(t, s, http.MethodPost, "/teams", `{"user_id":"alice","name":"x","asset_ids":["a"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ids := make([]string, domain.TeamSize)
	for i := range ids {
		ids[i] = fmt.Sprintf("%q", fmt.Sprintf("coin-%d", i))
	}
	body := fmt.Sprintf(`{"user_id":"alice","name":"Moon","asset_ids":[%s]}`, strings.Join(ids, ","))
	resp, _ = do(t, s, http.MethodPost, "/teams", body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, data := do(t, s, http.MethodGet, "/users/alice/teams", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"total_cost":25`)
}

func TestGetTeam(t *testing.T) {
	s := newServer(&mockContests{})

	resp, data := do(t, s, http.MethodGet, "/teams/t1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"name":"Moon"`)

	resp, _ = do(t, s, http.MethodGet, "/teams/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAssets(t *testing.T) {
	s := newServer(&mockContests{})
	resp, data := do(t, s, http.MethodGet, "/assets", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"points":25`)
	assert.Contains(t, string(data), `"market_cap_rank":1`)
}
