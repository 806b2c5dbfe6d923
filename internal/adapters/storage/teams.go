package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

// CreateTeam persiste un team. Un slug repetido devuelve domain.ErrTeamNameTaken.
func (s *SQLiteStorage) CreateTeam(ctx context.Context, t domain.Team) error {
	assets, err := json.Marshal(t.Assets)
	if err != nil {
		return fmt.Errorf("storage.CreateTeam: marshal assets: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO teams (id, user_id, name, slug, assets, total_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.Slug, string(assets), t.TotalCost(), formatTime(t.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("storage.CreateTeam %q: %w", t.Name, domain.ErrTeamNameTaken)
	}
	if err != nil {
		return fmt.Errorf("storage.CreateTeam: %w", err)
	}
	return nil
}

// GetTeam devuelve el team o domain.ErrTeamNotFound.
func (s *SQLiteStorage) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, slug, assets, created_at FROM teams WHERE id = ?`, id)
	var t domain.Team
	var assets, createdAt string
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Slug, &assets, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Team{}, fmt.Errorf("storage.GetTeam %s: %w", id, domain.ErrTeamNotFound)
	}
	if err != nil {
		return domain.Team{}, fmt.Errorf("storage.GetTeam %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(assets), &t.Assets); err != nil {
		return domain.Team{}, fmt.Errorf("storage.GetTeam %s: decode assets: %w", id, err)
	}
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

// ListTeams devuelve los teams del usuario, más recientes primero.
func (s *SQLiteStorage) ListTeams(ctx context.Context, userID string) ([]domain.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, slug, assets, created_at
		FROM teams WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("storage.ListTeams: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Team
	for rows.Next() {
		var t domain.Team
		var assets, createdAt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Slug, &assets, &createdAt); err != nil {
			return nil, fmt.Errorf("storage.ListTeams: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(assets), &t.Assets); err != nil {
			return nil, fmt.Errorf("storage.ListTeams: decode assets of %s: %w", t.ID, err)
		}
		t.CreatedAt = parseTime(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListEntries devuelve las participaciones del contest con su team, en orden de join.
// Una participación cuyo team ya no existe se omite con un warning: sin assets
// no hay nada que puntuar.
func (s *SQLiteStorage) ListEntries(ctx context.Context, contestID string) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.contest_id, p.team_id, p.user_id, p.payment_ref, p.joined_at,
		       t.name, t.slug, t.assets, t.created_at
		FROM participations p
		LEFT JOIN teams t ON t.id = p.team_id
		WHERE p.contest_id = ?
		ORDER BY p.joined_at ASC, p.id ASC`, contestID)
	if err != nil {
		return nil, fmt.Errorf("storage.ListEntries: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		var (
			p                          domain.Participation
			joinedAt                   string
			name, slugv, assets, tCrAt sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.ContestID, &p.TeamID, &p.UserID, &p.PaymentRef, &joinedAt,
			&name, &slugv, &assets, &tCrAt); err != nil {
			return nil, fmt.Errorf("storage.ListEntries: scan row: %w", err)
		}
		p.JoinedAt = parseTime(joinedAt)
		if !assets.Valid {
			slog.Warn("participation without team, skipping",
				"contest", contestID, "participation", p.ID, "team", p.TeamID)
			continue
		}
		team := domain.Team{ID: p.TeamID, UserID: p.UserID, Name: name.String, Slug: slugv.String}
		if tCrAt.Valid {
			team.CreatedAt = parseTime(tCrAt.String)
		}
		if err := json.Unmarshal([]byte(assets.String), &team.Assets); err != nil {
			slog.Warn("team assets unreadable, scoring as empty",
				"contest", contestID, "team", p.TeamID, "err", err)
			team.Assets = nil
		}
		out = append(out, domain.Entry{Participation: p, Team: team})
	}
	return out, rows.Err()
}
