package ledger

import (
	"context"
	"fmt"
	"time"

	"ChipTracker/internal/storage"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            TEXT PRIMARY KEY,
    display_name  TEXT NOT NULL DEFAULT '',
    total_chips   BIGINT NOT NULL DEFAULT 0 CHECK (total_chips >= 0),
    games_played  INTEGER NOT NULL DEFAULT 0,
    games_won     INTEGER NOT NULL DEFAULT 0,
    created_at_ms BIGINT NOT NULL,
    updated_at_ms BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS game_actions (
    id            TEXT PRIMARY KEY,
    room_id       TEXT NOT NULL,
    player_id     TEXT NOT NULL,
    action_type   TEXT NOT NULL,
    amount        BIGINT NOT NULL,
    round_number  INTEGER NOT NULL,
    created_at_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_actions_room ON game_actions (room_id, round_number);
CREATE TABLE IF NOT EXISTS coin_transfers (
    id             TEXT PRIMARY KEY,
    room_id        TEXT NOT NULL,
    from_player_id TEXT NOT NULL,
    to_player_id   TEXT NOT NULL,
    amount         BIGINT NOT NULL CHECK (amount > 0),
    created_at_ms  BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coin_transfers_room ON coin_transfers (room_id);
`

func NewPostgresStore(dsn string) (Store, error) {
	db, err := storage.OpenPostgres(dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init postgres ledger schema: %w", err)
	}
	return &sqlStore{db: db, dollar: true}, nil
}
