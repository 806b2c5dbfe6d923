package domain

import (
	"fmt"
	"time"
)

const (
	// TeamSize es la cantidad exacta de assets por team.
	TeamSize = 11
	// TeamBudget es el máximo de puntos que puede costar un team.
	TeamBudget = 250
	// MaxTeamsPerContest es el máximo de teams distintos de un usuario en un mismo contest.
	MaxTeamsPerContest = 5

	maxAssetCost  = 25
	minAssetCost  = 5
	costStepWidth = 8 // cada 8 posiciones del ranking el coste baja 1 punto
)

// Asset es un token seleccionable en un team.
type Asset struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Cost   int    `json:"points"`
}

// MarketAsset es un asset del listado de mercado, ordenado por market cap.
type MarketAsset struct {
	ID            string
	Symbol        string
	Name          string
	MarketCapRank int
	CurrentPrice  float64
}

// Team es una selección inmutable de assets de un usuario.
// Los teams son reutilizables entre contests; el nombre es único globalmente.
type Team struct {
	ID        string
	UserID    string
	Name      string
	Slug      string // nombre normalizado, clave de unicidad
	Assets    []Asset
	CreatedAt time.Time
}

// TotalCost suma el coste de todos los assets.
func (t Team) TotalCost() int {
	total := 0
	for _, a := range t.Assets {
		total += a.Cost
	}
	return total
}

// AssetIDs devuelve los ids en el orden del team.
func (t Team) AssetIDs() []string {
	ids := make([]string, len(t.Assets))
	for i, a := range t.Assets {
		ids[i] = a.ID
	}
	return ids
}

// AssetCost devuelve el coste (puntos) del asset en la posición pos (0-based)
// del listado por market cap: max(25 - pos/8, 5).
func AssetCost(pos int) int {
	cost := maxAssetCost - pos/costStepWidth
	if cost < minAssetCost {
		return minAssetCost
	}
	return cost
}

// CostTable asigna a cada asset del listado su coste según su posición.
func CostTable(listing []MarketAsset) map[string]Asset {
	table := make(map[string]Asset, len(listing))
	for i, m := range listing {
		table[m.ID] = Asset{ID: m.ID, Symbol: m.Symbol, Name: m.Name, Cost: AssetCost(i)}
	}
	return table
}

// ValidateAssets comprueba tamaño exacto, assets distintos y presupuesto.
func ValidateAssets(assets []Asset) error {
	if len(assets) != TeamSize {
		return fmt.Errorf("%w: must select exactly %d assets, got %d", ErrInvalidTeam, TeamSize, len(assets))
	}
	seen := make(map[string]bool, len(assets))
	total := 0
	for _, a := range assets {
		if a.ID == "" {
			return fmt.Errorf("%w: empty asset id", ErrInvalidTeam)
		}
		if seen[a.ID] {
			return fmt.Errorf("%w: duplicate asset %q", ErrInvalidTeam, a.ID)
		}
		seen[a.ID] = true
		total += a.Cost
	}
	if total > TeamBudget {
		return fmt.Errorf("%w: total cost %d exceeds budget %d", ErrInvalidTeam, total, TeamBudget)
	}
	return nil
}

// UnionAssetIDs devuelve la unión de assets de varios teams, sin duplicados
// y en orden de primera aparición.
func UnionAssetIDs(teams []Team) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range teams {
		for _, a := range t.Assets {
			if a.ID == "" || seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			ids = append(ids, a.ID)
		}
	}
	return ids
}
