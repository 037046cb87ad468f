package table

import "time"

type Status string

const (
	StatusActive Status = "active"
	StatusFolded Status = "folded"
	StatusAllIn  Status = "all_in"
)

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// PlayerStake 一名玩家在本轮的筹码状态
type PlayerStake struct {
	PlayerID   string `json:"player_id"`
	CurrentBet int64  `json:"current_bet"`
	ChipStack  int64  `json:"chips"`
	Status     Status `json:"status"`
}

// Player 桌上的玩家（stake + 元数据）
type Player struct {
	PlayerStake
	RoomID      string    `json:"room_id"`
	Nickname    string    `json:"nickname"`
	Position    int       `json:"position"`
	AccountID   string    `json:"account_id,omitempty"` // 绑定的钱包地址，可为空
	IsConnected bool      `json:"is_connected"`
	JoinedAt    time.Time `json:"joined_at"`
}

func (p Player) Folded() bool { return p.Status == StatusFolded }
func (p Player) AllIn() bool  { return p.Status == StatusAllIn }

// Pot index 0 为主池，其余为边池
type Pot struct {
	Index             int      `json:"pot_index"`
	Amount            int64    `json:"amount"`
	EligiblePlayerIDs []string `json:"eligible_player_ids"`
}

func (p Pot) Eligible(playerID string) bool {
	for _, id := range p.EligiblePlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

type WinnerSelection struct {
	PotIndex  int      `json:"pot_index"`
	WinnerIDs []string `json:"winner_ids" binding:"required,min=1"`
}

// RoundState 一局的公共状态，SB/BB 为 nil 表示未设置
type RoundState struct {
	Pot            int64 `json:"current_pot"`
	RoundNumber    int   `json:"current_round"`
	DealerPosition int   `json:"dealer_position"`
	SBPosition     *int  `json:"sb_position"`
	BBPosition     *int  `json:"bb_position"`
}

type Room struct {
	RoundState
	ID         string     `json:"id"`
	Code       string     `json:"room_code"`
	Status     RoomStatus `json:"status"`
	HostID     string     `json:"host_id,omitempty"`
	SmallBlind int64      `json:"small_blind"`
	BigBlind   int64      `json:"big_blind"`
	MaxPlayers int        `json:"max_players"`
	Version    int64      `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Clone 深拷贝，SB/BB 指针不共享
func (r Room) Clone() Room {
	out := r
	out.SBPosition = clonePos(r.SBPosition)
	out.BBPosition = clonePos(r.BBPosition)
	return out
}

func clonePos(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Seat 返回 int 指针，便于构造 SB/BB
func Seat(i int) *int { return &i }

type ActionType string

const (
	ActionBet   ActionType = "bet"
	ActionRaise ActionType = "raise"
	ActionCall  ActionType = "call"
	ActionCheck ActionType = "check"
	ActionFold  ActionType = "fold"
	ActionAllIn ActionType = "all_in"
	ActionBlind ActionType = "blind"
	ActionWin   ActionType = "win"
)

// Action 动作日志记录，只追加
type Action struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"room_id"`
	PlayerID    string     `json:"player_id"`
	Type        ActionType `json:"action_type"`
	Amount      int64      `json:"amount"`
	RoundNumber int        `json:"round_number"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Transfer struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"room_id"`
	FromPlayerID string    `json:"from_player_id"`
	ToPlayerID   string    `json:"to_player_id"`
	Amount       int64     `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stakes 取出 stake 部分
func Stakes(players []Player) []PlayerStake {
	out := make([]PlayerStake, len(players))
	for i, p := range players {
		out[i] = p.PlayerStake
	}
	return out
}

// TotalChips 桌面筹码总量：所有 stack + 所有下注
func TotalChips(players []Player) int64 {
	var total int64
	for _, p := range players {
		total += p.ChipStack + p.CurrentBet
	}
	return total
}

// MaxBet 当前最高下注
func MaxBet(players []Player) int64 {
	var m int64
	for _, p := range players {
		if p.CurrentBet > m {
			m = p.CurrentBet
		}
	}
	return m
}

func ClonePlayers(players []Player) []Player {
	out := make([]Player, len(players))
	copy(out, players)
	return out
}
