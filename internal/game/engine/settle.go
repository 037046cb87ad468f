package engine

import (
	"fmt"

	"github.com/samber/lo"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/dealer"
	"ChipTracker/internal/game/pot"
	"ChipTracker/internal/game/table"
)

// ErrInvalidWinnerSelection 赢家选择不合法，整次结算被拒绝
var ErrInvalidWinnerSelection = fmt.Errorf("invalid winner selection: %w", errs.ErrRuleViolation)

// Outcome 一次结算的结果，Room/Players 是结算后的新状态
type Outcome struct {
	Room     table.Room
	Players  []table.Player
	Pots     []table.Pot // 实际派发的池（已合并无人可赢的池）
	Winnings map[string]int64
	// Refunded 所有下注者都已弃牌，下注原样退回
	Refunded bool
	// PotMismatch 房间记录的底池与下注总和不一致，以下注为准
	PotMismatch  bool
	Wins         []table.Action
	Blinds       []table.Action
	SettledRound int
}

// Settle 按当前下注切分底池、派奖、轮转庄位并自动下盲注。
// 纯函数：不修改入参，任何校验失败都不产生结果。
func Settle(room table.Room, players []table.Player, selections []table.WinnerSelection) (*Outcome, error) {
	if room.Status == table.RoomFinished {
		return nil, errs.Rule("room %s is finished", room.ID)
	}
	if room.MaxPlayers <= 0 {
		return nil, errs.Validation("room %s has no table size", room.ID)
	}

	raw := pot.Partition(table.Stakes(players))
	chosen, err := validateSelections(raw, selections)
	if err != nil {
		return nil, err
	}

	next := room.Clone()
	out := &Outcome{
		Players:      table.ClonePlayers(players),
		Winnings:     make(map[string]int64),
		SettledRound: room.RoundNumber,
		PotMismatch:  pot.Total(raw) != room.Pot,
	}

	pots, contested := pot.Consolidate(raw)
	if contested {
		// 被合并进来的池沿用目标池的赢家
		seats := make(map[string]int, len(players))
		for _, p := range players {
			seats[p.PlayerID] = p.Position
		}
		seatOf := func(id string) (int, bool) {
			s, ok := seats[id]
			return s, ok
		}
		for _, p := range pots {
			if p.Amount == 0 || len(p.EligiblePlayerIDs) == 0 {
				continue
			}
			winners, ok := chosen[p.Index]
			if !ok {
				if len(p.EligiblePlayerIDs) > 1 {
					return nil, fmt.Errorf("%w: pot %d has no winner", ErrInvalidWinnerSelection, p.Index)
				}
				winners = p.EligiblePlayerIDs
			}
			shares, err := pot.Allocate(p.Amount, winners, room.DealerPosition, room.MaxPlayers, seatOf)
			if err != nil {
				return nil, fmt.Errorf("%w: pot %d: %v", ErrInvalidWinnerSelection, p.Index, err)
			}
			for id, amount := range shares {
				out.Winnings[id] += amount
			}
		}
		out.Pots = lo.Filter(pots, func(p table.Pot, _ int) bool { return p.Amount > 0 })
	} else {
		out.Refunded = true
		for _, p := range players {
			if p.CurrentBet > 0 {
				out.Winnings[p.PlayerID] += p.CurrentBet
			}
		}
	}

	for i := range out.Players {
		p := &out.Players[i]
		p.ChipStack += out.Winnings[p.PlayerID]
		p.CurrentBet = 0
		p.Status = table.StatusActive
		if won := out.Winnings[p.PlayerID]; won > 0 && !out.Refunded {
			out.Wins = append(out.Wins, table.Action{
				PlayerID:    p.PlayerID,
				Type:        table.ActionWin,
				Amount:      won,
				RoundNumber: room.RoundNumber,
			})
		}
	}

	d := dealer.NewDealer(room)
	next.DealerPosition = d.NextDealer(room.DealerPosition)
	next.SBPosition, next.BBPosition = d.FindBlinds(out.Players, next.DealerPosition)
	next.Pot = 0
	next.RoundNumber = room.RoundNumber + 1
	if next.SBPosition != nil && next.BBPosition != nil {
		total, blinds := d.PostBlinds(out.Players, *next.SBPosition, *next.BBPosition)
		next.Pot = total
		next.Status = table.RoomPlaying
		for _, b := range blinds {
			b.RoundNumber = next.RoundNumber
			out.Blinds = append(out.Blinds, b)
		}
	} else {
		next.Status = table.RoomFinished
	}

	out.Room = next
	return out, nil
}

// validateSelections 校验每个选择并返回 pot index -> 赢家
func validateSelections(pots []table.Pot, selections []table.WinnerSelection) (map[int][]string, error) {
	byIndex := lo.KeyBy(pots, func(p table.Pot) int { return p.Index })
	chosen := make(map[int][]string, len(selections))
	for _, sel := range selections {
		p, ok := byIndex[sel.PotIndex]
		if !ok {
			return nil, fmt.Errorf("%w: pot %d does not exist", ErrInvalidWinnerSelection, sel.PotIndex)
		}
		if _, dup := chosen[sel.PotIndex]; dup {
			return nil, fmt.Errorf("%w: pot %d selected twice", ErrInvalidWinnerSelection, sel.PotIndex)
		}
		if len(sel.WinnerIDs) == 0 {
			return nil, fmt.Errorf("%w: pot %d has no winner", ErrInvalidWinnerSelection, sel.PotIndex)
		}
		if dups := lo.FindDuplicates(sel.WinnerIDs); len(dups) > 0 {
			return nil, fmt.Errorf("%w: player %s selected twice for pot %d", ErrInvalidWinnerSelection, dups[0], sel.PotIndex)
		}
		for _, id := range sel.WinnerIDs {
			if !p.Eligible(id) {
				return nil, fmt.Errorf("%w: player %s is not eligible for pot %d", ErrInvalidWinnerSelection, id, sel.PotIndex)
			}
		}
		chosen[sel.PotIndex] = sel.WinnerIDs
	}
	return chosen, nil
}
