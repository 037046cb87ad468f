package pot

import (
	"fmt"
	"sort"

	"ChipTracker/internal/errs"
)

// ErrInvalidAllocation 分配参数非法
var ErrInvalidAllocation = fmt.Errorf("invalid allocation: %w", errs.ErrValidation)

// Allocate 把 amount 平分给 winners，余下的零头从庄家左手边开始逐个补 1。
// 顺时针距离 = (seat - dealer + tableSize) % tableSize，座位唯一所以不会并列。
func Allocate(amount int64, winners []string, dealerPosition, tableSize int, seatOf func(string) (int, bool)) (map[string]int64, error) {
	if len(winners) == 0 {
		return nil, fmt.Errorf("%w: no winners", ErrInvalidAllocation)
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative amount %d", ErrInvalidAllocation, amount)
	}
	if tableSize <= 0 {
		return nil, fmt.Errorf("%w: table size %d", ErrInvalidAllocation, tableSize)
	}

	type seated struct {
		id       string
		distance int
	}
	ordered := make([]seated, 0, len(winners))
	seen := make(map[string]bool, len(winners))
	for _, id := range winners {
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate winner %s", ErrInvalidAllocation, id)
		}
		seen[id] = true
		seat, ok := seatOf(id)
		if !ok {
			return nil, fmt.Errorf("%w: winner %s has no seat", ErrInvalidAllocation, id)
		}
		ordered = append(ordered, seated{id: id, distance: distance(seat, dealerPosition, tableSize)})
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].distance < ordered[j].distance })

	n := int64(len(ordered))
	base, remainder := amount/n, amount%n

	out := make(map[string]int64, len(ordered))
	for i, w := range ordered {
		share := base
		if int64(i) < remainder {
			share++
		}
		out[w.id] = share
	}
	return out, nil
}

func distance(seat, dealer, tableSize int) int {
	return ((seat-dealer)%tableSize + tableSize) % tableSize
}
