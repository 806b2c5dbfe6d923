package domain

import (
	"math/rand/v2"
	"sort"
)

// RankedTeam es un TeamScore con su posición asignada.
type RankedTeam struct {
	TeamScore
	Rank  int
	IsTie bool
	Prize float64
}

// Shuffler permuta n elementos usando swap (misma firma que rand.Shuffle).
type Shuffler func(n int, swap func(i, j int))

// RankTeams ordena por score descendente y asigna ranks 1..N consecutivos.
//
// Los scores se redondean a 2 decimales antes de agrupar. Dentro de un grupo
// empatado el orden es una permutación uniforme al azar y todos quedan con
// IsTie = true. Cada team consume un rank: un triple empate arriba ocupa 1,2,3.
//
// El desempate NO es reproducible: cada llamada baraja de nuevo. Es la
// garantía de equidad entre empatados; la persistencia write-once asegura que
// solo se ejecute una vez por contest. Si shuffle es nil se usa rand.Shuffle.
func RankTeams(scores []TeamScore, shuffle Shuffler) []RankedTeam {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}

	groups := make(map[float64][]TeamScore)
	keys := make([]float64, 0, len(scores))
	for _, s := range scores {
		k := RoundScore(s.Total)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(keys)))

	ranked := make([]RankedTeam, 0, len(scores))
	rank := 1
	for _, k := range keys {
		group := groups[k]
		tie := len(group) > 1
		if tie {
			shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		}
		for _, s := range group {
			ranked = append(ranked, RankedTeam{TeamScore: s, Rank: rank, IsTie: tie})
			rank++
		}
	}
	return ranked
}

// RankLive ordena provisionalmente por score descendente sin desempate aleatorio.
// Los ranks live se recalculan en cada lectura y nunca se persisten.
func RankLive(scores []TeamScore) []RankedTeam {
	sorted := make([]TeamScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Total > sorted[j].Total
	})

	ranked := make([]RankedTeam, len(sorted))
	for i, s := range sorted {
		ranked[i] = RankedTeam{TeamScore: s, Rank: i + 1}
	}
	return ranked
}

// ApplyPrizes asigna el premio de cada team según su rank final.
func ApplyPrizes(ranked []RankedTeam, d Distribution, poolSize float64) {
	for i := range ranked {
		ranked[i].Prize = PrizeFor(ranked[i].Rank, d, poolSize)
	}
}

// ToFinalRankings convierte el resultado en las filas a persistir.
func ToFinalRankings(contestID string, ranked []RankedTeam) []FinalRanking {
	rows := make([]FinalRanking, len(ranked))
	for i, r := range ranked {
		rows[i] = FinalRanking{
			ContestID:   contestID,
			TeamID:      r.TeamID,
			UserID:      r.UserID,
			FinalRank:   r.Rank,
			FinalScore:  r.Total,
			PrizeAmount: r.Prize,
			IsTie:       r.IsTie,
		}
	}
	return rows
}
