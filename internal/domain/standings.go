package domain

import "time"

// Standings es la vista de leaderboard de un contest.
//   - upcoming: participantes sin ranks
//   - ongoing:  ranks provisionales calculados en la lectura (Provisional = true)
//   - finished: ranks persistidos con premios
type Standings struct {
	Contest     Contest
	Teams       []RankedTeam
	Provisional bool
	GeneratedAt time.Time
}

// Winners devuelve los teams con premio > 0.
func (s Standings) Winners() []RankedTeam {
	var out []RankedTeam
	for _, t := range s.Teams {
		if t.Prize > 0 {
			out = append(out, t)
		}
	}
	return out
}
