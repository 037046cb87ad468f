package pot

import (
	"testing"

	"ChipTracker/internal/game/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsolidate_MergesIntoEarlierPot(t *testing.T) {
	in := []table.Pot{
		{Index: 0, Amount: 150, EligiblePlayerIDs: []string{"A"}},
		{Index: 1, Amount: 300},
	}
	out, ok := Consolidate(in)

	require.True(t, ok)
	assert.Equal(t, int64(450), out[0].Amount)
	assert.Equal(t, int64(0), out[1].Amount)
	// 输入不被修改
	assert.Equal(t, int64(150), in[0].Amount)
}

func TestConsolidate_CarriesForwardWhenNoEarlierPot(t *testing.T) {
	in := []table.Pot{
		{Index: 0, Amount: 90},
		{Index: 1, Amount: 40, EligiblePlayerIDs: []string{"B", "C"}},
	}
	out, ok := Consolidate(in)

	require.True(t, ok)
	assert.Equal(t, int64(0), out[0].Amount)
	assert.Equal(t, int64(130), out[1].Amount)
	assert.Equal(t, Total(in), Total(out))
}

func TestConsolidate_NobodyEligible(t *testing.T) {
	_, ok := Consolidate([]table.Pot{{Index: 0, Amount: 20}, {Index: 1, Amount: 10}})
	assert.False(t, ok)
}
