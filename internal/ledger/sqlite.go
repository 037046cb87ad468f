package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            TEXT PRIMARY KEY,
    display_name  TEXT NOT NULL DEFAULT '',
    total_chips   INTEGER NOT NULL DEFAULT 0 CHECK (total_chips >= 0),
    games_played  INTEGER NOT NULL DEFAULT 0,
    games_won     INTEGER NOT NULL DEFAULT 0,
    created_at_ms INTEGER NOT NULL,
    updated_at_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS game_actions (
    id            TEXT PRIMARY KEY,
    room_id       TEXT NOT NULL,
    player_id     TEXT NOT NULL,
    action_type   TEXT NOT NULL,
    amount        INTEGER NOT NULL,
    round_number  INTEGER NOT NULL,
    created_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_actions_room ON game_actions (room_id, round_number);
CREATE TABLE IF NOT EXISTS coin_transfers (
    id             TEXT PRIMARY KEY,
    room_id        TEXT NOT NULL,
    from_player_id TEXT NOT NULL,
    to_player_id   TEXT NOT NULL,
    amount         INTEGER NOT NULL CHECK (amount > 0),
    created_at_ms  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coin_transfers_room ON coin_transfers (room_id);
`

// NewSQLiteStore 本地模式，dbPath 可为 ":memory:"
func NewSQLiteStore(dbPath string) (Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite ledger schema: %w", err)
	}
	return &sqlStore{db: db}, nil
}
