package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTeam(id string, assetIDs ...string) Team {
	assets := make([]Asset, len(assetIDs))
	for i, a := range assetIDs {
		assets[i] = Asset{ID: a, Symbol: a, Name: a, Cost: 20}
	}
	return Team{ID: id, UserID: "user-" + id, Name: "team " + id, Assets: assets}
}

// --- PercentChange ---

func TestPercentChange_Gain(t *testing.T) {
	assert.InDelta(t, 10.0, PercentChange(100, 110), 1e-9)
}

func TestPercentChange_Loss(t *testing.T) {
	assert.InDelta(t, -25.0, PercentChange(2, 1.5), 1e-9)
}

func TestPercentChange_ZeroBaseline(t *testing.T) {
	for _, observed := range []float64{0, 1, 1e9, -3} {
		pct := PercentChange(0, observed)
		assert.Equal(t, 0.0, pct)
		assert.False(t, math.IsNaN(pct))
		assert.False(t, math.IsInf(pct, 0))
	}
}

func TestPercentChange_NonFiniteInputs(t *testing.T) {
	assert.Equal(t, 0.0, PercentChange(math.NaN(), 10))
	assert.Equal(t, 0.0, PercentChange(10, math.Inf(1)))
}

func TestAssetPoints_ScalesBy100(t *testing.T) {
	// +1.5% → 150 puntos
	assert.InDelta(t, 150.0, AssetPoints(1.5), 1e-9)
}

// --- ScoreTeamLive / ScoreTeamFinal ---

func TestScoreTeamLive_SumsAssetScores(t *testing.T) {
	team := makeTeam("a", "btc", "eth")
	locked := PriceSnapshot{"btc": 100, "eth": 10}
	current := PriceSnapshot{"btc": 110, "eth": 9}

	ts := ScoreTeamLive(team, locked, current)

	require.Len(t, ts.Assets, 2)
	// btc +10% → 1000, eth -10% → -1000
	assert.InDelta(t, 1000.0, ts.Assets[0].Score, 1e-9)
	assert.InDelta(t, -1000.0, ts.Assets[1].Score, 1e-9)
	assert.InDelta(t, 0.0, ts.Total, 1e-9)
	assert.Equal(t, "user-a", ts.UserID)
}

func TestScoreTeamLive_MissingCurrentPriceContributesZero(t *testing.T) {
	team := makeTeam("a", "btc", "doge")
	locked := PriceSnapshot{"btc": 100, "doge": 0.1}
	current := PriceSnapshot{"btc": 101}

	ts := ScoreTeamLive(team, locked, current)

	assert.InDelta(t, 100.0, ts.Total, 1e-9)
	assert.False(t, ts.Assets[1].Available)
	assert.Equal(t, 0.0, ts.Assets[1].Score)
	assert.Equal(t, []string{"doge"}, ts.MissingAssets())
}

func TestScoreTeamLive_NilCurrentPrices(t *testing.T) {
	team := makeTeam("a", "btc")
	ts := ScoreTeamLive(team, PriceSnapshot{"btc": 100}, nil)
	assert.Equal(t, 0.0, ts.Total)
	assert.Len(t, ts.MissingAssets(), 1)
}

func TestScoreTeamFinal_ZeroBaselineRule(t *testing.T) {
	team := makeTeam("a", "new-coin", "btc")
	locked := PriceSnapshot{"new-coin": 0, "btc": 50}
	final := PriceSnapshot{"new-coin": 42, "btc": 55}

	ts := ScoreTeamFinal(team, locked, final)

	assert.Equal(t, 0.0, ts.Assets[0].PercentChange)
	assert.True(t, ts.Assets[0].Available)
	assert.InDelta(t, 1000.0, ts.Total, 1e-9)
	assert.False(t, math.IsNaN(ts.Total))
}

func TestScoreTeamFinal_MissingLockedTreatedAsZero(t *testing.T) {
	team := makeTeam("a", "btc")
	ts := ScoreTeamFinal(team, PriceSnapshot{}, PriceSnapshot{"btc": 70000})
	assert.Equal(t, 0.0, ts.Total)
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 10.0, RoundScore(10.004))
	assert.Equal(t, 10.01, RoundScore(10.0051))
	assert.Equal(t, RoundScore(0.1+0.2), RoundScore(0.3))
}
