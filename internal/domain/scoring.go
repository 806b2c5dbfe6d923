package domain

import "math"

// ScoreMultiplier escala el porcentaje de cambio de cada asset a puntos.
// Un +1.5% aporta 150 puntos.
const ScoreMultiplier = 100

// AssetScore es el aporte de un asset al score del team.
type AssetScore struct {
	AssetID       string
	Symbol        string
	Name          string
	Cost          int
	LockedPrice   float64
	ObservedPrice float64 // precio actual (live) o final
	Available     bool    // false si no había precio observado: aporte 0
	PercentChange float64
	Score         float64
}

// TeamScore es el score agregado de un team (suma simple de sus assets).
type TeamScore struct {
	TeamID   string
	TeamName string
	UserID   string
	Total    float64
	Assets   []AssetScore
}

// PercentChange calcula (observed - locked) / locked × 100.
//
// Regla de baseline cero: si locked ≤ 0 el cambio es 0, nunca Inf ni NaN.
func PercentChange(locked, observed float64) float64 {
	if locked <= 0 || math.IsNaN(locked) || math.IsInf(locked, 0) {
		return 0
	}
	if math.IsNaN(observed) || math.IsInf(observed, 0) {
		return 0
	}
	return (observed - locked) / locked * 100
}

// AssetPoints convierte un porcentaje de cambio en puntos (× ScoreMultiplier).
func AssetPoints(percentChange float64) float64 {
	return percentChange * ScoreMultiplier
}

// ScoreTeamLive puntúa un team contra los precios actuales.
// Un asset sin precio actual aporta 0 y queda marcado como no disponible;
// el score live puede estar incompleto pero nunca falla.
func ScoreTeamLive(team Team, locked, current PriceSnapshot) TeamScore {
	return scoreTeam(team, locked, current)
}

// ScoreTeamFinal puntúa un team contra el snapshot final.
// Aplica la misma regla de baseline cero; un precio final ausente aporta 0.
func ScoreTeamFinal(team Team, locked, final PriceSnapshot) TeamScore {
	return scoreTeam(team, locked, final)
}

func scoreTeam(team Team, locked, observed PriceSnapshot) TeamScore {
	ts := TeamScore{
		TeamID:   team.ID,
		TeamName: team.Name,
		UserID:   team.UserID,
		Assets:   make([]AssetScore, 0, len(team.Assets)),
	}

	for _, a := range team.Assets {
		as := AssetScore{
			AssetID:     a.ID,
			Symbol:      a.Symbol,
			Name:        a.Name,
			Cost:        a.Cost,
			LockedPrice: locked[a.ID],
		}
		price, ok := observed[a.ID]
		if ok && price > 0 {
			as.Available = true
			as.ObservedPrice = price
			as.PercentChange = PercentChange(as.LockedPrice, price)
			as.Score = AssetPoints(as.PercentChange)
		}
		ts.Total += as.Score
		ts.Assets = append(ts.Assets, as)
	}
	return ts
}

// MissingAssets devuelve los assets del team que no tienen precio observado.
func (ts TeamScore) MissingAssets() []string {
	var missing []string
	for _, a := range ts.Assets {
		if !a.Available {
			missing = append(missing, a.AssetID)
		}
	}
	return missing
}

// RoundScore redondea a 2 decimales para absorber ruido de coma flotante.
func RoundScore(score float64) float64 {
	return math.Round(score*100) / 100
}
