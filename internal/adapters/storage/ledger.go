package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// InsertPrices escribe el snapshot con ON CONFLICT DO NOTHING: un precio ya
// capturado para (contest, asset, kind) nunca se sobrescribe.
// Devuelve cuántas filas nuevas quedaron escritas.
func (s *SQLiteStorage) InsertPrices(ctx context.Context, contestID string, kind domain.SnapshotKind, prices domain.PriceSnapshot, capturedAt time.Time) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage.InsertPrices: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_snapshots (contest_id, asset_id, kind, price, captured_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(contest_id, asset_id, kind) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("storage.InsertPrices: prepare: %w", err)
	}
	defer stmt.Close()

	at := formatTime(capturedAt)
	inserted := 0
	for assetID, price := range prices {
		res, err := stmt.ExecContext(ctx, contestID, assetID, string(kind), price, at)
		if err != nil {
			return 0, fmt.Errorf("storage.InsertPrices %s/%s: %w", contestID, assetID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage.InsertPrices: commit: %w", err)
	}
	return inserted, nil
}

// GetPrices devuelve el snapshot del tipo dado (mapa vacío si no hay filas).
func (s *SQLiteStorage) GetPrices(ctx context.Context, contestID string, kind domain.SnapshotKind) (domain.PriceSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT asset_id, price FROM price_snapshots WHERE contest_id = ? AND kind = ?`,
		contestID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("storage.GetPrices: query: %w", err)
	}
	defer rows.Close()

	out := make(domain.PriceSnapshot)
	for rows.Next() {
		var id string
		var price float64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("storage.GetPrices: scan row: %w", err)
		}
		out[id] = price
	}
	return out, rows.Err()
}
