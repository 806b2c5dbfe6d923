package domain

import "fmt"

// DistributionMode indica cómo se interpreta cada tramo del schedule.
type DistributionMode string

const (
	DistributionFixed      DistributionMode = "fixed"
	DistributionPercentage DistributionMode = "percentage"
)

// PrizeTier es un tramo del schedule: [RankFrom, RankTo] inclusivo.
// En modo fixed se usa Amount; en modo percentage, Percentage (0-100).
type PrizeTier struct {
	RankFrom   int     `json:"rankFrom"`
	RankTo     int     `json:"rankTo"`
	Amount     float64 `json:"amount,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
}

// Contains devuelve true si rank cae dentro del tramo.
func (t PrizeTier) Contains(rank int) bool {
	return rank >= t.RankFrom && rank <= t.RankTo
}

// Width es la cantidad de ranks que cubre el tramo.
func (t PrizeTier) Width() int {
	if t.RankTo < t.RankFrom {
		return 0
	}
	return t.RankTo - t.RankFrom + 1
}

// Distribution es el schedule de premios definido por el admin.
type Distribution struct {
	Mode        DistributionMode `json:"mode"`
	Tiers       []PrizeTier      `json:"distributions"`
	PlatformCut float64          `json:"admin_cut"` // porcentaje que retiene la plataforma
}

// PrizeFor devuelve el premio de un rank final.
//
//	fixed:      Amount del primer tramo que contiene el rank
//	percentage: poolSize × Percentage / 100 del primer tramo que contiene el rank
//
// Un rank sin tramo (o fuera del rango configurado) paga 0. No revalida el schedule.
func PrizeFor(rank int, d Distribution, poolSize float64) float64 {
	for _, t := range d.Tiers {
		if !t.Contains(rank) {
			continue
		}
		if d.Mode == DistributionFixed {
			return t.Amount
		}
		return poolSize * t.Percentage / 100
	}
	return 0
}

// TotalPayout devuelve la suma de premios que el schedule reparte si todos los
// ranks configurados están ocupados.
func (d Distribution) TotalPayout(poolSize float64) float64 {
	total := 0.0
	for _, t := range d.Tiers {
		w := float64(t.Width())
		if d.Mode == DistributionFixed {
			total += w * t.Amount
		} else {
			total += w * poolSize * t.Percentage / 100
		}
	}
	return total
}

// Validate aplica las reglas de creación: tramos bien formados y
// Σ premios + platform cut ≤ 100% (percentage) o ≤ pool size (fixed).
func (d Distribution) Validate(poolSize float64) error {
	if d.Mode != DistributionFixed && d.Mode != DistributionPercentage {
		return fmt.Errorf("%w: unknown distribution mode %q", ErrInvalidContest, d.Mode)
	}
	if d.PlatformCut < 0 || d.PlatformCut > 100 {
		return fmt.Errorf("%w: platform cut must be within 0-100", ErrInvalidContest)
	}
	for i, t := range d.Tiers {
		if t.RankFrom < 1 || t.RankTo < t.RankFrom {
			return fmt.Errorf("%w: tier %d has invalid rank range %d-%d", ErrInvalidContest, i, t.RankFrom, t.RankTo)
		}
		if t.Amount < 0 || t.Percentage < 0 {
			return fmt.Errorf("%w: tier %d has a negative payout", ErrInvalidContest, i)
		}
	}

	switch d.Mode {
	case DistributionPercentage:
		pct := 0.0
		for _, t := range d.Tiers {
			pct += float64(t.Width()) * t.Percentage
		}
		if pct+d.PlatformCut > 100+1e-9 {
			return fmt.Errorf("%w: distribution %.2f%% + platform cut %.2f%% exceeds 100%%", ErrInvalidContest, pct, d.PlatformCut)
		}
	case DistributionFixed:
		cut := poolSize * d.PlatformCut / 100
		if total := d.TotalPayout(poolSize); total+cut > poolSize+1e-9 {
			return fmt.Errorf("%w: fixed payouts %.2f + platform cut %.2f exceed pool size %.2f", ErrInvalidContest, total, cut, poolSize)
		}
	}
	return nil
}
