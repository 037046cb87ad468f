package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/table"

	"github.com/redis/go-redis/v9"
)

type redisRepo struct {
	rdb *redis.Client
}

func NewRedisRepo(rdb *redis.Client) Repo {
	return &redisRepo{rdb: rdb}
}

// key 约定：
//
//	str : room:{id}                    -> Room JSON（含 version）
//	str : room:code:{code}             -> roomID
//	hash: room:{id}:players            -> playerID -> Player JSON
//	hash: room:{id}:seats              -> seat -> playerID
//	str : room:{id}:sidepots:{round}   -> []Pot JSON
func roomKey(id string) string    { return fmt.Sprintf("room:%s", id) }
func codeKey(code string) string  { return fmt.Sprintf("room:code:%s", code) }
func playersKey(id string) string { return fmt.Sprintf("room:%s:players", id) }
func seatsKey(id string) string   { return fmt.Sprintf("room:%s:seats", id) }
func sidePotKey(id string, round int) string {
	return fmt.Sprintf("room:%s:sidepots:%d", id, round)
}

func (r *redisRepo) CreateRoom(ctx context.Context, rm *table.Room) error {
	data, err := json.Marshal(rm)
	if err != nil {
		return errs.Validation("encode room: %v", err)
	}
	ok, err := r.rdb.SetNX(ctx, codeKey(rm.Code), rm.ID, 0).Result()
	if err != nil {
		return errs.Persistence(err, "reserve room code")
	}
	if !ok {
		return errs.Rule("room code %s already in use", rm.Code)
	}
	created, err := r.rdb.SetNX(ctx, roomKey(rm.ID), data, 0).Result()
	if err != nil {
		_ = r.rdb.Del(ctx, codeKey(rm.Code)).Err()
		return errs.Persistence(err, "create room")
	}
	if !created {
		_ = r.rdb.Del(ctx, codeKey(rm.Code)).Err()
		return errs.Rule("room %s already exists", rm.ID)
	}
	return nil
}

func (r *redisRepo) GetRoom(ctx context.Context, roomID string) (*table.Room, error) {
	return loadRoom(ctx, r.rdb, roomID)
}

func (r *redisRepo) GetRoomByCode(ctx context.Context, code string) (*table.Room, error) {
	id, err := r.rdb.Get(ctx, codeKey(code)).Result()
	if err == redis.Nil {
		return nil, errs.NotFound("room %s not found", code)
	}
	if err != nil {
		return nil, errs.Persistence(err, "lookup room code")
	}
	return r.GetRoom(ctx, id)
}

// loadRoom 同时用于普通读取和 WATCH 事务内读取
func loadRoom(ctx context.Context, c redis.Cmdable, roomID string) (*table.Room, error) {
	raw, err := c.Get(ctx, roomKey(roomID)).Bytes()
	if err == redis.Nil {
		return nil, errs.NotFound("room %s not found", roomID)
	}
	if err != nil {
		return nil, errs.Persistence(err, "load room")
	}
	var rm table.Room
	if err := json.Unmarshal(raw, &rm); err != nil {
		return nil, errs.Persistence(err, "decode room %s", roomID)
	}
	if rm.ID == "" || rm.MaxPlayers <= 0 {
		return nil, errs.Persistence(nil, "room %s record is malformed", roomID)
	}
	return &rm, nil
}

func (r *redisRepo) AddPlayer(ctx context.Context, p *table.Player) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errs.Validation("encode player: %v", err)
	}
	seat := strconv.Itoa(p.Position)

	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		rm, err := loadRoom(ctx, tx, p.RoomID)
		if err != nil {
			return err
		}
		taken, err := tx.HExists(ctx, seatsKey(p.RoomID), seat).Result()
		if err != nil {
			return errs.Persistence(err, "check seat")
		}
		if taken {
			return errs.Rule("seat %d is taken", p.Position)
		}
		rm.Version++
		rm.UpdatedAt = time.Now()
		roomData, err := json.Marshal(rm)
		if err != nil {
			return errs.Validation("encode room: %v", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roomKey(rm.ID), roomData, 0)
			pipe.HSet(ctx, playersKey(rm.ID), p.PlayerID, data)
			pipe.HSet(ctx, seatsKey(rm.ID), seat, p.PlayerID)
			return nil
		})
		return err
	}, roomKey(p.RoomID), seatsKey(p.RoomID))
	return txError(err)
}

func (r *redisRepo) GetPlayers(ctx context.Context, roomID string) ([]table.Player, error) {
	exists, err := r.rdb.Exists(ctx, roomKey(roomID)).Result()
	if err != nil {
		return nil, errs.Persistence(err, "check room")
	}
	if exists == 0 {
		return nil, errs.NotFound("room %s not found", roomID)
	}
	return loadPlayers(ctx, r.rdb, roomID)
}

func loadPlayers(ctx context.Context, c redis.Cmdable, roomID string) ([]table.Player, error) {
	raw, err := c.HGetAll(ctx, playersKey(roomID)).Result()
	if err != nil {
		return nil, errs.Persistence(err, "load players")
	}
	out := make([]table.Player, 0, len(raw))
	for id, v := range raw {
		var p table.Player
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			return nil, errs.Persistence(err, "decode player %s", id)
		}
		if p.PlayerID != id || p.ChipStack < 0 || p.CurrentBet < 0 {
			return nil, errs.Persistence(nil, "player %s record is malformed", id)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *redisRepo) GetSidePots(ctx context.Context, roomID string, round int) ([]table.Pot, error) {
	raw, err := r.rdb.Get(ctx, sidePotKey(roomID, round)).Bytes()
	if err == redis.Nil {
		return []table.Pot{}, nil
	}
	if err != nil {
		return nil, errs.Persistence(err, "load side pots")
	}
	var pots []table.Pot
	if err := json.Unmarshal(raw, &pots); err != nil {
		return nil, errs.Persistence(err, "decode side pots")
	}
	return pots, nil
}

func (r *redisRepo) CreateSidePots(ctx context.Context, roomID string, version int64, round int, pots []table.Pot) error {
	data, err := json.Marshal(pots)
	if err != nil {
		return errs.Validation("encode side pots: %v", err)
	}
	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if cur.Version != version {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sidePotKey(roomID, round), data, 0)
			return nil
		})
		return err
	}, roomKey(roomID))
	if err != nil {
		return txError(err)
	}
	return nil
}

// Commit WATCH room key，版本一致才在 MULTI/EXEC 中整体写入
func (r *redisRepo) Commit(ctx context.Context, c Change) (int64, error) {
	var version int64
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadRoom(ctx, tx, c.Room.ID)
		if err != nil {
			return err
		}
		if cur.Version != c.Room.Version {
			return ErrVersionConflict
		}
		for _, p := range c.Players {
			ok, err := tx.HExists(ctx, playersKey(c.Room.ID), p.PlayerID).Result()
			if err != nil {
				return errs.Persistence(err, "check player")
			}
			if !ok {
				return errs.NotFound("player %s not found", p.PlayerID)
			}
		}

		next := c.Room.Clone()
		next.Version = cur.Version + 1
		next.UpdatedAt = time.Now()
		roomData, err := json.Marshal(next)
		if err != nil {
			return errs.Validation("encode room: %v", err)
		}
		playerData := make([]any, 0, len(c.Players)*2)
		for _, p := range c.Players {
			data, err := json.Marshal(p)
			if err != nil {
				return errs.Validation("encode player: %v", err)
			}
			playerData = append(playerData, p.PlayerID, data)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roomKey(next.ID), roomData, 0)
			if len(playerData) > 0 {
				pipe.HSet(ctx, playersKey(next.ID), playerData...)
			}
			if c.ClearSidePotsRound > 0 {
				pipe.Del(ctx, sidePotKey(next.ID, c.ClearSidePotsRound))
			}
			return nil
		})
		if err != nil {
			return err
		}
		version = next.Version
		return nil
	}, roomKey(c.Room.ID))
	if err != nil {
		return 0, txError(err)
	}
	return version, nil
}

// txError 把 redis 事务错误归类
func txError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	var e *errs.Error
	if errors.As(err, &e) || errors.Is(err, ErrVersionConflict) {
		return err
	}
	return errs.Persistence(err, "redis transaction")
}
