package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// SaveFinalRankings escribe el resultado del contest una única vez.
// La fila de contest_results actúa de cerrojo: si ya existe, el INSERT no
// afecta filas, se hace rollback y se devuelve false.
func (s *SQLiteStorage) SaveFinalRankings(ctx context.Context, contestID string, rows []domain.FinalRanking, finalizedAt time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("storage.SaveFinalRankings: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO contest_results (contest_id, finalized_at) VALUES (?, ?)
		ON CONFLICT(contest_id) DO NOTHING`, contestID, formatTime(finalizedAt))
	if err != nil {
		return false, fmt.Errorf("storage.SaveFinalRankings: marker: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO final_rankings
			(contest_id, team_id, user_id, final_rank, final_score, prize_amount, is_tie)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return false, fmt.Errorf("storage.SaveFinalRankings: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, contestID, r.TeamID, r.UserID, r.FinalRank,
			r.FinalScore, r.PrizeAmount, boolToInt(r.IsTie)); err != nil {
			return false, fmt.Errorf("storage.SaveFinalRankings: team %s: %w", r.TeamID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("storage.SaveFinalRankings: commit: %w", err)
	}
	return true, nil
}

// GetFinalRankings devuelve el resultado ordenado por rank. Vacío si el
// contest aún no tiene resultado.
func (s *SQLiteStorage) GetFinalRankings(ctx context.Context, contestID string) ([]domain.FinalRanking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT contest_id, team_id, user_id, final_rank, final_score, prize_amount, is_tie
		FROM final_rankings WHERE contest_id = ?
		ORDER BY final_rank ASC`, contestID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetFinalRankings: query: %w", err)
	}
	defer rows.Close()

	var out []domain.FinalRanking
	for rows.Next() {
		var r domain.FinalRanking
		var tie int
		if err := rows.Scan(&r.ContestID, &r.TeamID, &r.UserID, &r.FinalRank,
			&r.FinalScore, &r.PrizeAmount, &tie); err != nil {
			return nil, fmt.Errorf("storage.GetFinalRankings: scan row: %w", err)
		}
		r.IsTie = tie == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// HasFinalRankings devuelve true si el contest ya tiene resultado persistido
// (aunque no tenga filas, p. ej. un contest sin participantes).
func (s *SQLiteStorage) HasFinalRankings(ctx context.Context, contestID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contest_results WHERE contest_id = ?`, contestID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage.HasFinalRankings: %w", err)
	}
	return n > 0, nil
}

// ListUnrankedFinished devuelve los contests finished que no tienen resultado.
func (s *SQLiteStorage) ListUnrankedFinished(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id FROM contests c
		LEFT JOIN contest_results r ON r.contest_id = c.id
		WHERE c.status = ? AND r.contest_id IS NULL
		ORDER BY c.ended_at ASC`, string(domain.StatusFinished))
	if err != nil {
		return nil, fmt.Errorf("storage.ListUnrankedFinished: query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage.ListUnrankedFinished: scan row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
