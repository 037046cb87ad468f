package dealer

import "ChipTracker/internal/game/table"

// Dealer 负责庄位轮转与盲注（不涉及下注规则）
type Dealer struct {
	TableSize  int
	SmallBlind int64
	BigBlind   int64
}

func NewDealer(r table.Room) *Dealer {
	return &Dealer{
		TableSize:  r.MaxPlayers,
		SmallBlind: r.SmallBlind,
		BigBlind:   r.BigBlind,
	}
}

// NextDealer 庄位顺时针前进一格，不跳过空位
func (d *Dealer) NextDealer(current int) int {
	return (current + 1) % d.TableSize
}

// FindBlinds 从 anchor 的下一个座位开始顺时针找两个还有筹码的玩家作为 SB/BB。
// 不足两人时返回 nil, nil。
func (d *Dealer) FindBlinds(players []table.Player, anchor int) (sb, bb *int) {
	bySeat := make(map[int]table.Player, len(players))
	for _, p := range players {
		bySeat[p.Position] = p
	}

	found := make([]int, 0, 2)
	for i := 1; i <= d.TableSize && len(found) < 2; i++ {
		seat := (anchor + i) % d.TableSize
		if p, ok := bySeat[seat]; ok && p.ChipStack > 0 {
			found = append(found, seat)
		}
	}
	if len(found) < 2 {
		return nil, nil
	}
	return table.Seat(found[0]), table.Seat(found[1])
}

// PostBlinds 在 players 上直接扣盲注，筹码不够时全下。
// 返回进入底池的总额和对应的动作记录（ID/时间由调用方补全）。
func (d *Dealer) PostBlinds(players []table.Player, sb, bb int) (int64, []table.Action) {
	var total int64
	actions := make([]table.Action, 0, 2)
	for _, blind := range []struct {
		seat   int
		amount int64
	}{{sb, d.SmallBlind}, {bb, d.BigBlind}} {
		i := indexBySeat(players, blind.seat)
		if i < 0 {
			continue
		}
		paid := min(players[i].ChipStack, blind.amount)
		players[i].ChipStack -= paid
		players[i].CurrentBet += paid
		if players[i].ChipStack == 0 {
			players[i].Status = table.StatusAllIn
		}
		total += paid
		actions = append(actions, table.Action{
			PlayerID: players[i].PlayerID,
			Type:     table.ActionBlind,
			Amount:   paid,
		})
	}
	return total, actions
}

func indexBySeat(players []table.Player, seat int) int {
	for i, p := range players {
		if p.Position == seat {
			return i
		}
	}
	return -1
}
