package pot

import "ChipTracker/internal/game/table"

// Consolidate 处理无人可赢的池（贡献者全部弃牌）：
// 金额并入前面最近的有参与者的池；没有则并入后面最近的一个。
// 返回的切片与输入等长、index 不变，被并走的池金额置 0。
// 所有池都无人可赢时 ok 为 false，由调用方退还各自下注。
func Consolidate(pots []table.Pot) (out []table.Pot, ok bool) {
	out = make([]table.Pot, len(pots))
	for i, p := range pots {
		out[i] = table.Pot{
			Index:             p.Index,
			Amount:            p.Amount,
			EligiblePlayerIDs: append([]string(nil), p.EligiblePlayerIDs...),
		}
	}

	for i := range out {
		if len(out[i].EligiblePlayerIDs) > 0 || out[i].Amount == 0 {
			continue
		}
		target := nearestContested(out, i)
		if target < 0 {
			return out, false
		}
		out[target].Amount += out[i].Amount
		out[i].Amount = 0
	}
	return out, true
}

func nearestContested(pots []table.Pot, from int) int {
	for j := from - 1; j >= 0; j-- {
		if len(pots[j].EligiblePlayerIDs) > 0 {
			return j
		}
	}
	for j := from + 1; j < len(pots); j++ {
		if len(pots[j].EligiblePlayerIDs) > 0 {
			return j
		}
	}
	return -1
}
