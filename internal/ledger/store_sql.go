package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/table"
)

const queryTimeout = 3 * time.Second

// sqlStore SQLite 与 Postgres 共用的实现，查询统一用 ? 占位，Postgres 下改写为 $N
type sqlStore struct {
	db     *sql.DB
	dollar bool
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) q(query string) string {
	if !s.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) EnsureAccount(ctx context.Context, id, displayName string, startingChips int64) (*Account, error) {
	id = NormalizeID(id)
	if id == "" {
		return nil, errs.Validation("account id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	nowMs := time.Now().UTC().UnixMilli()
	_, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO accounts (id, display_name, total_chips, games_played, games_won, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, 0, 0, ?, ?)
ON CONFLICT (id) DO NOTHING
`), id, displayName, startingChips, nowMs, nowMs)
	if err != nil {
		return nil, errs.Persistence(err, "ensure account")
	}
	return s.GetAccount(ctx, id)
}

func (s *sqlStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		a                    Account
		createdMs, updatedMs int64
	)
	err := s.db.QueryRowContext(ctx, s.q(`
SELECT id, display_name, total_chips, games_played, games_won, created_at_ms, updated_at_ms
FROM accounts
WHERE id = ?
`), NormalizeID(id)).Scan(&a.ID, &a.DisplayName, &a.TotalChips, &a.GamesPlayed, &a.GamesWon, &createdMs, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("account %s not found", id)
	}
	if err != nil {
		return nil, errs.Persistence(err, "get account")
	}
	a.CreatedAt = time.UnixMilli(createdMs).UTC()
	a.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return &a, nil
}

func (s *sqlStore) SetBalances(ctx context.Context, balances map[string]int64) error {
	if len(balances) == 0 {
		return nil
	}
	for id, chips := range balances {
		if chips < 0 {
			return errs.Validation("negative balance for %s", id)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Persistence(err, "begin set balances")
	}
	defer tx.Rollback()

	nowMs := time.Now().UTC().UnixMilli()
	stmt := s.q(`
INSERT INTO accounts (id, display_name, total_chips, games_played, games_won, created_at_ms, updated_at_ms)
VALUES (?, '', ?, 0, 0, ?, ?)
ON CONFLICT (id) DO UPDATE
SET total_chips = excluded.total_chips,
    updated_at_ms = excluded.updated_at_ms
`)
	for id, chips := range balances {
		if _, err := tx.ExecContext(ctx, stmt, NormalizeID(id), chips, nowMs, nowMs); err != nil {
			return errs.Persistence(err, "set balance for %s", id)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.Persistence(err, "commit set balances")
	}
	return nil
}

func (s *sqlStore) AdjustChips(ctx context.Context, id string, delta int64) (int64, error) {
	id = NormalizeID(id)
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errs.Persistence(err, "begin adjust chips")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q(`
UPDATE accounts
SET total_chips = CASE WHEN total_chips + ? < 0 THEN 0 ELSE total_chips + ? END,
    updated_at_ms = ?
WHERE id = ?
`), delta, delta, time.Now().UTC().UnixMilli(), id)
	if err != nil {
		return 0, errs.Persistence(err, "adjust chips")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, errs.NotFound("account %s not found", id)
	}
	var chips int64
	if err := tx.QueryRowContext(ctx, s.q(`SELECT total_chips FROM accounts WHERE id = ?`), id).Scan(&chips); err != nil {
		return 0, errs.Persistence(err, "read adjusted chips")
	}
	if err := tx.Commit(); err != nil {
		return 0, errs.Persistence(err, "commit adjust chips")
	}
	return chips, nil
}

func (s *sqlStore) RecordGame(ctx context.Context, id string, won bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	wonInc := 0
	if won {
		wonInc = 1
	}
	res, err := s.db.ExecContext(ctx, s.q(`
UPDATE accounts
SET games_played = games_played + 1,
    games_won = games_won + ?,
    updated_at_ms = ?
WHERE id = ?
`), wonInc, time.Now().UTC().UnixMilli(), NormalizeID(id))
	if err != nil {
		return errs.Persistence(err, "record game")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.NotFound("account %s not found", id)
	}
	return nil
}

func (s *sqlStore) RecordAction(ctx context.Context, a table.Action) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO game_actions (id, room_id, player_id, action_type, amount, round_number, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`), a.ID, a.RoomID, a.PlayerID, string(a.Type), a.Amount, a.RoundNumber, a.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return errs.Persistence(err, "record action")
	}
	return nil
}

func (s *sqlStore) ListActions(ctx context.Context, roomID string, round int) ([]table.Action, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT id, room_id, player_id, action_type, amount, round_number, created_at_ms
FROM game_actions
WHERE room_id = ?
  AND (? = 0 OR round_number = ?)
ORDER BY created_at_ms DESC, id DESC
`), roomID, round, round)
	if err != nil {
		return nil, errs.Persistence(err, "list actions")
	}
	defer rows.Close()

	out := make([]table.Action, 0)
	for rows.Next() {
		var (
			a         table.Action
			typ       string
			createdMs int64
		)
		if err := rows.Scan(&a.ID, &a.RoomID, &a.PlayerID, &typ, &a.Amount, &a.RoundNumber, &createdMs); err != nil {
			return nil, errs.Persistence(err, "scan action")
		}
		a.Type = table.ActionType(typ)
		a.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistence(err, "iterate actions")
	}
	return out, nil
}

func (s *sqlStore) RecordTransfer(ctx context.Context, t table.Transfer) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO coin_transfers (id, room_id, from_player_id, to_player_id, amount, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`), t.ID, t.RoomID, t.FromPlayerID, t.ToPlayerID, t.Amount, t.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return errs.Persistence(err, "record transfer")
	}
	return nil
}

func (s *sqlStore) ListTransfers(ctx context.Context, roomID string) ([]table.Transfer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.q(`
SELECT id, room_id, from_player_id, to_player_id, amount, created_at_ms
FROM coin_transfers
WHERE room_id = ?
ORDER BY created_at_ms DESC, id DESC
`), roomID)
	if err != nil {
		return nil, errs.Persistence(err, "list transfers")
	}
	defer rows.Close()

	out := make([]table.Transfer, 0)
	for rows.Next() {
		var (
			t         table.Transfer
			createdMs int64
		)
		if err := rows.Scan(&t.ID, &t.RoomID, &t.FromPlayerID, &t.ToPlayerID, &t.Amount, &createdMs); err != nil {
			return nil, errs.Persistence(err, "scan transfer")
		}
		t.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistence(err, "iterate transfers")
	}
	return out, nil
}
