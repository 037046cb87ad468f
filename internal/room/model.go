package room

import "ChipTracker/internal/game/table"

// CreateRoomRequest 创建房间，创建者作为房主坐 0 号位
type CreateRoomRequest struct {
	Nickname   string `json:"nickname" binding:"required,max=32"`
	SmallBlind int64  `json:"small_blind" binding:"omitempty,gt=0"`
	BigBlind   int64  `json:"big_blind" binding:"omitempty,gtfield=SmallBlind"`
	MaxPlayers int    `json:"max_players" binding:"omitempty,min=2,max=10"`
	AccountID  string `json:"-"`
}

// JoinRequest 通过房间码加入
type JoinRequest struct {
	Code      string `json:"room_code" binding:"required,len=6,alphanum"`
	Nickname  string `json:"nickname" binding:"required,max=32"`
	AccountID string `json:"-"`
}

type RoomResponse struct {
	Success bool           `json:"success"`
	Room    *table.Room    `json:"room,omitempty"`
	Player  *table.Player  `json:"player,omitempty"`
	Players []table.Player `json:"players,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type PotsResponse struct {
	Success bool        `json:"success"`
	Round   int         `json:"round_number"`
	Pots    []table.Pot `json:"pots"`
}

// Change 一次原子提交：房间整体状态 + 变更的玩家。
// Room.Version 必须等于存储中的版本，否则返回 ErrVersionConflict。
type Change struct {
	Room    table.Room
	Players []table.Player
	// ClearSidePotsRound > 0 时删除该轮的边池记录
	ClearSidePotsRound int
}
