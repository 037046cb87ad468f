package pot

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"ChipTracker/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seats(m map[string]int) func(string) (int, bool) {
	return func(id string) (int, bool) {
		s, ok := m[id]
		return s, ok
	}
}

// 100 分给三人：离庄家最近的 X 拿到零头
func TestAllocate_OddRemainderGoesLeftOfDealer(t *testing.T) {
	got, err := Allocate(100, []string{"Z", "Y", "X"}, 0, 6, seats(map[string]int{"X": 1, "Y": 2, "Z": 3}))

	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"X": 34, "Y": 33, "Z": 33}, got)
}

func TestAllocate_WrapsAroundTable(t *testing.T) {
	// 庄家在 4 号位，5 号最近，其次 0 号，再次 2 号
	got, err := Allocate(11, []string{"a", "b", "c"}, 4, 6, seats(map[string]int{"a": 2, "b": 0, "c": 5}))

	require.NoError(t, err)
	assert.Equal(t, int64(4), got["c"])
	assert.Equal(t, int64(4), got["b"])
	assert.Equal(t, int64(3), got["a"])
}

func TestAllocate_SingleWinnerAndZeroPot(t *testing.T) {
	got, err := Allocate(300, []string{"A"}, 0, 6, seats(map[string]int{"A": 3}))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 300}, got)

	got, err = Allocate(0, []string{"A", "B"}, 0, 6, seats(map[string]int{"A": 1, "B": 2}))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 0, "B": 0}, got)
}

func TestAllocate_Invalid(t *testing.T) {
	s := seats(map[string]int{"A": 1, "B": 2})
	cases := map[string]func() error{
		"no winners": func() error { _, err := Allocate(10, nil, 0, 6, s); return err },
		"negative":   func() error { _, err := Allocate(-1, []string{"A"}, 0, 6, s); return err },
		"duplicate":  func() error { _, err := Allocate(10, []string{"A", "A"}, 0, 6, s); return err },
		"no seat":    func() error { _, err := Allocate(10, []string{"Q"}, 0, 6, s); return err },
		"table size": func() error { _, err := Allocate(10, []string{"A"}, 0, 0, s); return err },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			err := fn()
			assert.True(t, errors.Is(err, ErrInvalidAllocation), "got %v", err)
			assert.True(t, errors.Is(err, errs.ErrValidation))
		})
	}
}

func TestAllocate_CompletenessProperty(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for round := 0; round < 500; round++ {
		tableSize := 2 + rnd.Intn(9)
		n := 1 + rnd.Intn(tableSize)
		perm := rnd.Perm(tableSize)[:n]
		seatMap := map[string]int{}
		winners := make([]string, n)
		for i, seat := range perm {
			id := fmt.Sprintf("w%d", i)
			winners[i] = id
			seatMap[id] = seat
		}
		amount := int64(rnd.Intn(10_000))

		got, err := Allocate(amount, winners, rnd.Intn(tableSize), tableSize, seats(seatMap))
		require.NoError(t, err)

		var sum, lo, hi int64
		lo = amount + 1
		for _, v := range got {
			sum += v
			lo = min(lo, v)
			hi = max(hi, v)
		}
		if sum != amount {
			t.Fatalf("round %d: allocated %d of %d", round, sum, amount)
		}
		if hi-lo > 1 {
			t.Fatalf("round %d: spread %d..%d", round, lo, hi)
		}
		if lo < amount/int64(n) {
			t.Fatalf("round %d: share %d below base %d", round, lo, amount/int64(n))
		}
	}
}
