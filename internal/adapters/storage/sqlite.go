package storage

// sqlite.go: persistencia del core de contests.
//
// Garantías de concurrencia que dependen de la base de datos, no del código:
//   - transiciones de estado: UPDATE ... WHERE status = <esperado> (compare-and-set)
//   - price snapshots: INSERT ... ON CONFLICT DO NOTHING por (contest, asset, kind)
//   - resultados: fila marcador en contest_results; el primero que la inserta
//     escribe los rankings, los demás descartan lo que calcularon
//   - join: incremento condicional del contador en la misma transacción que la participación

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS contests (
    id                   TEXT PRIMARY KEY,
    serial_number        TEXT    NOT NULL UNIQUE,
    name                 TEXT    NOT NULL DEFAULT '',
    entry_fee            REAL    NOT NULL DEFAULT 0,
    max_participants     INTEGER NOT NULL,
    duration_seconds     INTEGER NOT NULL,
    pool_size            REAL    NOT NULL DEFAULT 0,
    distribution         TEXT    NOT NULL,
    recipient_address    TEXT    NOT NULL DEFAULT '',
    status               TEXT    NOT NULL DEFAULT 'upcoming',
    current_participants INTEGER NOT NULL DEFAULT 0,
    started_at           TEXT,
    ended_at             TEXT,
    created_at           TEXT    NOT NULL,
    CHECK (current_participants <= max_participants)
);

CREATE TABLE IF NOT EXISTS teams (
    id         TEXT PRIMARY KEY,
    user_id    TEXT    NOT NULL,
    name       TEXT    NOT NULL,
    slug       TEXT    NOT NULL UNIQUE,
    assets     TEXT    NOT NULL,
    total_cost INTEGER NOT NULL DEFAULT 0,
    created_at TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS participations (
    id          TEXT PRIMARY KEY,
    contest_id  TEXT NOT NULL,
    team_id     TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    payment_ref TEXT NOT NULL DEFAULT '',
    joined_at   TEXT NOT NULL,
    UNIQUE (contest_id, team_id)
);

-- Locked y final prices: write-once por (contest, asset, kind)
CREATE TABLE IF NOT EXISTS price_snapshots (
    contest_id  TEXT NOT NULL,
    asset_id    TEXT NOT NULL,
    kind        TEXT NOT NULL,
    price       REAL NOT NULL DEFAULT 0,
    captured_at TEXT NOT NULL,
    PRIMARY KEY (contest_id, asset_id, kind)
);

-- Marcador de resultado: existe si y solo si final_rankings está completo
CREATE TABLE IF NOT EXISTS contest_results (
    contest_id   TEXT PRIMARY KEY,
    finalized_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS final_rankings (
    contest_id   TEXT    NOT NULL,
    team_id      TEXT    NOT NULL,
    user_id      TEXT    NOT NULL,
    final_rank   INTEGER NOT NULL,
    final_score  REAL    NOT NULL,
    prize_amount REAL    NOT NULL DEFAULT 0,
    is_tie       INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (contest_id, team_id)
);

CREATE INDEX IF NOT EXISTS idx_contests_status     ON contests(status);
CREATE INDEX IF NOT EXISTS idx_teams_user          ON teams(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_part_contest        ON participations(contest_id);
CREATE INDEX IF NOT EXISTS idx_part_contest_user   ON participations(contest_id, user_id);
CREATE INDEX IF NOT EXISTS idx_rankings_contest    ON final_rankings(contest_id, final_rank);
`

// SQLiteStorage implementa los puertos de persistencia usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping comprueba que la base de datos responde.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- helpers internos ---

// timeLayout tiene ancho fijo para que ORDER BY sobre TEXT respete el orden temporal.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t := parseTime(v.String)
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation detecta choques de UNIQUE / PRIMARY KEY.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
