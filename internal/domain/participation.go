package domain

import "time"

// Participation enlaza (contest, team, user) con la referencia del pago.
// Solo existe si el pago ya fue verificado por el colaborador externo.
type Participation struct {
	ID         string
	ContestID  string
	TeamID     string
	UserID     string
	PaymentRef string
	JoinedAt   time.Time
}

// Entry es un participante con su team cargado, tal como lo necesita el scoring.
type Entry struct {
	Participation Participation
	Team          Team
}

// SnapshotKind distingue los dos snapshots del Price Ledger.
type SnapshotKind string

const (
	SnapshotLocked SnapshotKind = "locked"
	SnapshotFinal  SnapshotKind = "final"
)

// PriceSnapshot es asset → precio. Una entrada ausente se trata como precio 0.
type PriceSnapshot map[string]float64

// FinalRanking es la fila persistida del resultado de un team. Write-once por contest.
type FinalRanking struct {
	ContestID   string
	TeamID      string
	UserID      string
	FinalRank   int
	FinalScore  float64
	PrizeAmount float64
	IsTie       bool
}
