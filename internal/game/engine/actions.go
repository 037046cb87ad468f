package engine

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/dealer"
	"ChipTracker/internal/game/table"
)

var validate = validator.New()

// ActionCommand 一名玩家的下注动作
type ActionCommand struct {
	PlayerID string           `json:"player_id" validate:"required" binding:"required"`
	Type     table.ActionType `json:"type" validate:"required,oneof=bet raise call check fold all_in" binding:"required,oneof=bet raise call check fold all_in"`
	Amount   int64            `json:"amount" validate:"gte=0" binding:"gte=0"`
}

type TransferCommand struct {
	FromPlayerID string `json:"from_player_id" validate:"required" binding:"required"`
	ToPlayerID   string `json:"to_player_id" validate:"required" binding:"required"`
	Amount       int64  `json:"amount" validate:"gt=0" binding:"gt=0"`
}

type BlindsCommand struct {
	SBPosition int `json:"sb_position" validate:"gte=0" binding:"gte=0"`
	BBPosition int `json:"bb_position" validate:"gte=0" binding:"gte=0"`
}

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		return errs.Validation("%v", err)
	}
	return nil
}

// Apply 执行一个下注动作，返回更新后的房间、该玩家和动作记录
func Apply(room table.Room, players []table.Player, cmd ActionCommand) (table.Room, table.Player, table.Action, error) {
	var none table.Action
	if err := check(cmd); err != nil {
		return room, table.Player{}, none, err
	}
	if room.Status != table.RoomPlaying {
		return room, table.Player{}, none, errs.Rule("room is not playing")
	}
	i := indexOf(players, cmd.PlayerID)
	if i < 0 {
		return room, table.Player{}, none, errs.NotFound("player %s not found", cmd.PlayerID)
	}
	p := players[i]
	if p.Folded() || p.AllIn() {
		return room, p, none, errs.Rule("player %s cannot act (%s)", p.PlayerID, p.Status)
	}

	maxBet := table.MaxBet(players)
	next := room.Clone()
	typ := cmd.Type
	var amount int64

	switch cmd.Type {
	case table.ActionBet:
		if cmd.Amount <= 0 {
			return room, p, none, errs.Validation("bet amount must be positive")
		}
		amount = cmd.Amount
	case table.ActionRaise:
		if cmd.Amount <= 0 {
			return room, p, none, errs.Validation("raise amount must be positive")
		}
		amount = cmd.Amount
		total := p.CurrentBet + amount
		if total <= maxBet {
			return room, p, none, errs.Rule("raise must exceed the current max bet %d", maxBet)
		}
		if total < 2*maxBet && amount < p.ChipStack {
			return room, p, none, errs.Rule("minimum raise is to %d", 2*maxBet)
		}
	case table.ActionCall:
		toCall := maxBet - p.CurrentBet
		if toCall <= 0 {
			return room, p, none, errs.Rule("nothing to call")
		}
		amount = min(toCall, p.ChipStack)
	case table.ActionCheck:
		if p.CurrentBet != maxBet {
			return room, p, none, errs.Rule("cannot check facing a bet of %d", maxBet)
		}
	case table.ActionFold:
		p.Status = table.StatusFolded
	case table.ActionAllIn:
		if p.ChipStack == 0 {
			return room, p, none, errs.Rule("player %s has no chips", p.PlayerID)
		}
		amount = p.ChipStack
	}

	if amount > p.ChipStack {
		return room, p, none, errs.Rule("insufficient chips: have %d, need %d", p.ChipStack, amount)
	}
	if amount > 0 {
		p.ChipStack -= amount
		p.CurrentBet += amount
		next.Pot += amount
		if p.ChipStack == 0 {
			p.Status = table.StatusAllIn
			typ = table.ActionAllIn
		}
	}

	return next, p, table.Action{
		RoomID:      room.ID,
		PlayerID:    p.PlayerID,
		Type:        typ,
		Amount:      amount,
		RoundNumber: room.RoundNumber,
	}, nil
}

// Transfer 玩家之间直接转筹码
func Transfer(room table.Room, players []table.Player, cmd TransferCommand) (table.Player, table.Player, error) {
	if err := check(cmd); err != nil {
		return table.Player{}, table.Player{}, err
	}
	if cmd.FromPlayerID == cmd.ToPlayerID {
		return table.Player{}, table.Player{}, errs.Validation("cannot transfer to yourself")
	}
	fi, ti := indexOf(players, cmd.FromPlayerID), indexOf(players, cmd.ToPlayerID)
	if fi < 0 {
		return table.Player{}, table.Player{}, errs.NotFound("player %s not found", cmd.FromPlayerID)
	}
	if ti < 0 {
		return table.Player{}, table.Player{}, errs.NotFound("player %s not found", cmd.ToPlayerID)
	}
	from, to := players[fi], players[ti]
	if from.ChipStack < cmd.Amount {
		return table.Player{}, table.Player{}, errs.Rule("insufficient chips: have %d, need %d", from.ChipStack, cmd.Amount)
	}
	from.ChipStack -= cmd.Amount
	to.ChipStack += cmd.Amount
	return from, to, nil
}

// SetBlinds 开局前由房主指定 SB/BB 座位
func SetBlinds(room table.Room, players []table.Player, cmd BlindsCommand) (table.Room, error) {
	if err := check(cmd); err != nil {
		return room, err
	}
	if room.Status != table.RoomWaiting {
		return room, errs.Rule("blinds can only be set while waiting")
	}
	if cmd.SBPosition == cmd.BBPosition {
		return room, errs.Rule("SB and BB must differ")
	}
	for _, seat := range []int{cmd.SBPosition, cmd.BBPosition} {
		if seat >= room.MaxPlayers || indexBySeat(players, seat) < 0 {
			return room, errs.Validation("seat %d is empty", seat)
		}
	}
	next := room.Clone()
	next.SBPosition = table.Seat(cmd.SBPosition)
	next.BBPosition = table.Seat(cmd.BBPosition)
	return next, nil
}

// CollectBlinds 按已设定的 SB/BB 收盲注并开始游戏
func CollectBlinds(room table.Room, players []table.Player) (table.Room, []table.Player, []table.Action, error) {
	if room.Status != table.RoomWaiting {
		return room, nil, nil, errs.Rule("blinds can only be collected while waiting")
	}
	if room.SBPosition == nil || room.BBPosition == nil {
		return room, nil, nil, errs.Rule("blinds are not set")
	}
	for _, seat := range []int{*room.SBPosition, *room.BBPosition} {
		i := indexBySeat(players, seat)
		if i < 0 {
			return room, nil, nil, errs.Validation("seat %d is empty", seat)
		}
		if players[i].ChipStack == 0 {
			return room, nil, nil, errs.Rule("player at seat %d has no chips", seat)
		}
	}
	next := room.Clone()
	out := table.ClonePlayers(players)
	total, actions := dealer.NewDealer(room).PostBlinds(out, *room.SBPosition, *room.BBPosition)
	next.Pot += total
	next.Status = table.RoomPlaying
	for i := range actions {
		actions[i].RoomID = room.ID
		actions[i].RoundNumber = room.RoundNumber
	}
	return next, out, actions, nil
}

func indexOf(players []table.Player, id string) int {
	for i, p := range players {
		if p.PlayerID == id {
			return i
		}
	}
	return -1
}

func indexBySeat(players []table.Player, seat int) int {
	for i, p := range players {
		if p.Position == seat {
			return i
		}
	}
	return -1
}

func describe(cmd ActionCommand) string {
	if cmd.Amount > 0 {
		return fmt.Sprintf("%s %d", cmd.Type, cmd.Amount)
	}
	return string(cmd.Type)
}
