package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/table"
)

func repos(t *testing.T) map[string]Repo {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return map[string]Repo{
		"memory": NewMemoryRepo(),
		"redis":  NewRedisRepo(rdb),
	}
}

func newRoom(id, code string) *table.Room {
	return &table.Room{
		RoundState: table.RoundState{RoundNumber: 1},
		ID:         id,
		Code:       code,
		Status:     table.RoomWaiting,
		SmallBlind: 10,
		BigBlind:   20,
		MaxPlayers: 6,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func newPlayer(roomID, id string, seat int, chips int64) *table.Player {
	return &table.Player{
		PlayerStake: table.PlayerStake{PlayerID: id, ChipStack: chips, Status: table.StatusActive},
		RoomID:      roomID,
		Nickname:    id,
		Position:    seat,
	}
}

func TestRepo_RoomsAndPlayers(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.CreateRoom(ctx, newRoom("r1", "ABC123")))
			err := repo.CreateRoom(ctx, newRoom("r2", "ABC123"))
			assert.True(t, errors.Is(err, errs.ErrRuleViolation), "duplicate code")

			got, err := repo.GetRoomByCode(ctx, "ABC123")
			require.NoError(t, err)
			assert.Equal(t, "r1", got.ID)
			assert.Equal(t, int64(0), got.Version)

			_, err = repo.GetRoom(ctx, "nope")
			assert.True(t, errors.Is(err, errs.ErrNotFound))

			require.NoError(t, repo.AddPlayer(ctx, newPlayer("r1", "p2", 2, 500)))
			require.NoError(t, repo.AddPlayer(ctx, newPlayer("r1", "p0", 0, 1000)))
			err = repo.AddPlayer(ctx, newPlayer("r1", "p9", 2, 1))
			assert.True(t, errors.Is(err, errs.ErrRuleViolation), "seat taken")

			players, err := repo.GetPlayers(ctx, "r1")
			require.NoError(t, err)
			require.Len(t, players, 2)
			assert.Equal(t, "p0", players[0].PlayerID)
			assert.Equal(t, "p2", players[1].PlayerID)

			got, err = repo.GetRoom(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, int64(2), got.Version, "each seat bumps the version")
		})
	}
}

func TestRepo_CommitCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.CreateRoom(ctx, newRoom("r1", "CAS001")))
			require.NoError(t, repo.AddPlayer(ctx, newPlayer("r1", "p0", 0, 100)))
			require.NoError(t, repo.CreateSidePots(ctx, "r1", 1, 1, []table.Pot{{Index: 0, Amount: 40, EligiblePlayerIDs: []string{"p0"}}}))

			r, err := repo.GetRoom(ctx, "r1")
			require.NoError(t, err)
			players, err := repo.GetPlayers(ctx, "r1")
			require.NoError(t, err)

			stale := r.Clone()

			r.Pot = 40
			players[0].CurrentBet = 40
			players[0].ChipStack = 60
			v, err := repo.Commit(ctx, Change{Room: *r, Players: players, ClearSidePotsRound: 1})
			require.NoError(t, err)
			assert.Equal(t, r.Version+1, v)

			// 基于旧版本的写入必须失败且不改变任何状态
			stale.Pot = 999
			_, err = repo.Commit(ctx, Change{Room: stale})
			assert.True(t, errors.Is(err, ErrVersionConflict))
			assert.True(t, errors.Is(err, errs.ErrPersistence))

			after, err := repo.GetRoom(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, int64(40), after.Pot)
			assert.Equal(t, v, after.Version)

			ps, err := repo.GetPlayers(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, int64(60), ps[0].ChipStack)

			pots, err := repo.GetSidePots(ctx, "r1", 1)
			require.NoError(t, err)
			assert.Empty(t, pots)

			ghost := newPlayer("r1", "ghost", 4, 1)
			_, err = repo.Commit(ctx, Change{Room: *after, Players: []table.Player{*ghost}})
			assert.True(t, errors.Is(err, errs.ErrNotFound))
		})
	}
}

func TestRepo_SidePots(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repos(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.CreateRoom(ctx, newRoom("r1", "POTS01")))
			pots := []table.Pot{
				{Index: 0, Amount: 300, EligiblePlayerIDs: []string{"a", "b", "c"}},
				{Index: 1, Amount: 400, EligiblePlayerIDs: []string{"b", "c"}},
			}
			require.NoError(t, repo.CreateSidePots(ctx, "r1", 0, 3, pots))
			got, err := repo.GetSidePots(ctx, "r1", 3)
			require.NoError(t, err)
			assert.Equal(t, pots, got)

			// 房间已变化时不覆盖
			err = repo.CreateSidePots(ctx, "r1", 7, 3, []table.Pot{{Index: 0, Amount: 1}})
			assert.True(t, errors.Is(err, ErrVersionConflict))
			got, err = repo.GetSidePots(ctx, "r1", 3)
			require.NoError(t, err)
			assert.Equal(t, pots, got)

			err = repo.CreateSidePots(ctx, "missing", 0, 1, pots)
			assert.True(t, errors.Is(err, errs.ErrNotFound))

			other, err := repo.GetSidePots(ctx, "r1", 2)
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestRedisRepo_MalformedRecord(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	repo := NewRedisRepo(rdb)

	require.NoError(t, mr.Set(roomKey("bad"), "{not json"))
	_, err := repo.GetRoom(context.Background(), "bad")
	assert.True(t, errors.Is(err, errs.ErrPersistence))
}
