package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/tokenpools/internal/domain"
)

const contestColumns = `id, serial_number, name, entry_fee, max_participants, duration_seconds,
	pool_size, distribution, recipient_address, status, current_participants,
	started_at, ended_at, created_at`

// rowScanner abstrae *sql.Row y *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateContest inserta un contest nuevo. Un serial repetido devuelve domain.ErrSerialTaken.
func (s *SQLiteStorage) CreateContest(ctx context.Context, c domain.Contest) error {
	dist, err := json.Marshal(c.Distribution)
	if err != nil {
		return fmt.Errorf("storage.CreateContest: marshal distribution: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contests (`+contestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SerialNumber, c.Name, c.EntryFee, c.MaxParticipants,
		int64(c.Duration/time.Second), c.PoolSize, string(dist), c.RecipientAddress,
		string(c.Status), c.CurrentParticipants, nil, nil, formatTime(c.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("storage.CreateContest: %w", domain.ErrSerialTaken)
	}
	if err != nil {
		return fmt.Errorf("storage.CreateContest: %w", err)
	}
	return nil
}

// GetContest devuelve el contest o domain.ErrContestNotFound.
func (s *SQLiteStorage) GetContest(ctx context.Context, id string) (domain.Contest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE id = ?`, id)
	c, err := scanContest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Contest{}, fmt.Errorf("storage.GetContest %s: %w", id, domain.ErrContestNotFound)
	}
	if err != nil {
		return domain.Contest{}, fmt.Errorf("storage.GetContest %s: %w", id, err)
	}
	return c, nil
}

// ListContests devuelve los contests con el estado dado (todos si status es vacío),
// más recientes primero.
func (s *SQLiteStorage) ListContests(ctx context.Context, status domain.Status) ([]domain.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.ListContests: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Contest
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListContests: scan row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteContest borra un contest upcoming sin participantes.
func (s *SQLiteStorage) DeleteContest(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM contests WHERE id = ? AND status = ? AND current_participants = 0`,
		id, string(domain.StatusUpcoming),
	)
	if err != nil {
		return fmt.Errorf("storage.DeleteContest %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := s.GetContest(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("storage.DeleteContest %s: %w", id, domain.ErrContestNotDeletable)
}

// AddParticipation registra la participación e incrementa current_participants
// en una sola transacción. El incremento es condicional (status = upcoming y
// current < max), así dos joins concurrentes nunca pasan de la capacidad.
func (s *SQLiteStorage) AddParticipation(ctx context.Context, p domain.Participation, maxTeamsPerUser int) (domain.Contest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: begin tx: %w", err)
	}
	defer tx.Rollback()

	var status string
	var current, capacity int
	err = tx.QueryRowContext(ctx,
		`SELECT status, current_participants, max_participants FROM contests WHERE id = ?`, p.ContestID,
	).Scan(&status, &current, &capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: %w", domain.ErrContestNotFound)
	}
	if err != nil {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: load contest: %w", err)
	}
	if domain.Status(status) != domain.StatusUpcoming {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: status %s: %w", status, domain.ErrContestNotJoinable)
	}
	if current >= capacity {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: %w", domain.ErrContestFull)
	}

	var sameTeam, userTeams int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participations WHERE contest_id = ? AND team_id = ?`, p.ContestID, p.TeamID,
	).Scan(&sameTeam); err != nil {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: count team: %w", err)
	}
	if sameTeam > 0 {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: %w", domain.ErrAlreadyJoined)
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participations WHERE contest_id = ? AND user_id = ?`, p.ContestID, p.UserID,
	).Scan(&userTeams); err != nil {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: count user teams: %w", err)
	}
	if maxTeamsPerUser > 0 && userTeams >= maxTeamsPerUser {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: %w", domain.ErrTeamLimitReached)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE contests SET current_participants = current_participants + 1
		WHERE id = ? AND status = ? AND current_participants < max_participants`,
		p.ContestID, string(domain.StatusUpcoming),
	)
	if err != nil {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: increment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: %w", domain.ErrContestFull)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO participations (id, contest_id, team_id, user_id, payment_ref, joined_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.ContestID, p.TeamID, p.UserID, p.PaymentRef, formatTime(p.JoinedAt),
	)
	if isUniqueViolation(err) {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: %w", domain.ErrAlreadyJoined)
	}
	if err != nil {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: insert: %w", err)
	}

	c, err := scanContest(tx.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE id = ?`, p.ContestID))
	if err != nil {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: reload contest: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Contest{}, fmt.Errorf("storage.AddParticipation: commit: %w", err)
	}
	return c, nil
}

// StartContest: upcoming → ongoing como compare-and-set. started_at se fija
// en la misma sentencia, así que solo se escribe una vez.
func (s *SQLiteStorage) StartContest(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	return s.transition(ctx, id, domain.StatusUpcoming, domain.StatusOngoing, "started_at", startedAt)
}

// FinishContest: ongoing → finished como compare-and-set.
func (s *SQLiteStorage) FinishContest(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	return s.transition(ctx, id, domain.StatusOngoing, domain.StatusFinished, "ended_at", endedAt)
}

func (s *SQLiteStorage) transition(ctx context.Context, id string, from, to domain.Status, column string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contests SET status = ?, `+column+` = ? WHERE id = ? AND status = ?`,
		string(to), formatTime(at), id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("storage.transition %s %s→%s: %w", id, from, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.transition %s: rows affected: %w", id, err)
	}
	return n == 1, nil
}

func scanContest(row rowScanner) (domain.Contest, error) {
	var (
		c                  domain.Contest
		status, dist       string
		durationSecs       int64
		createdAt          string
		startedAt, endedAt sql.NullString
	)
	if err := row.Scan(
		&c.ID, &c.SerialNumber, &c.Name, &c.EntryFee, &c.MaxParticipants, &durationSecs,
		&c.PoolSize, &dist, &c.RecipientAddress, &status, &c.CurrentParticipants,
		&startedAt, &endedAt, &createdAt,
	); err != nil {
		return domain.Contest{}, err
	}
	if err := json.Unmarshal([]byte(dist), &c.Distribution); err != nil {
		return domain.Contest{}, fmt.Errorf("decode distribution: %w", err)
	}
	c.Status = domain.Status(status)
	c.Duration = time.Duration(durationSecs) * time.Second
	c.StartedAt = parseNullTime(startedAt)
	c.EndedAt = parseNullTime(endedAt)
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}
