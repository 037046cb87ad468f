package pot

import (
	"sort"

	"ChipTracker/internal/game/table"

	"github.com/samber/lo"
)

// Partition 按下注层级切分主池与边池。
// 每一层的金额 = 本层增量 × 仍在层内的下注人数，参与者为其中未弃牌的玩家；
// 全部弃牌的层也会保留（参与者为空），金额不会丢失。
func Partition(stakes []table.PlayerStake) []table.Pot {
	remaining := lo.Filter(stakes, func(s table.PlayerStake, _ int) bool {
		return s.CurrentBet > 0
	})
	if len(remaining) == 0 {
		return []table.Pot{}
	}

	sort.SliceStable(remaining, func(i, j int) bool {
		if remaining[i].CurrentBet != remaining[j].CurrentBet {
			return remaining[i].CurrentBet < remaining[j].CurrentBet
		}
		return remaining[i].PlayerID < remaining[j].PlayerID
	})

	pots := make([]table.Pot, 0, len(remaining))
	var previous int64
	for len(remaining) > 0 {
		level := remaining[0].CurrentBet
		increment := level - previous

		eligible := lo.FilterMap(remaining, func(s table.PlayerStake, _ int) (string, bool) {
			return s.PlayerID, s.Status != table.StatusFolded
		})
		pots = append(pots, table.Pot{
			Index:             len(pots),
			Amount:            increment * int64(len(remaining)),
			EligiblePlayerIDs: eligible,
		})

		remaining = lo.Filter(remaining, func(s table.PlayerStake, _ int) bool {
			return s.CurrentBet > level
		})
		previous = level
	}
	return pots
}

// Total 所有池的金额和
func Total(pots []table.Pot) int64 {
	return lo.SumBy(pots, func(p table.Pot) int64 { return p.Amount })
}
