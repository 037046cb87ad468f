package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChipTracker/internal/errs"
	"ChipTracker/internal/game/table"
)

func bettingTable() (table.Room, []table.Player) {
	room := playingRoom(6, 30)
	return room, []table.Player{
		player("A", 0, 0, 1000, ""),
		player("B", 1, 10, 990, ""),
		player("C", 2, 20, 980, ""),
		player("D", 3, 0, 50, ""),
	}
}

func TestApply_Bet(t *testing.T) {
	room, players := bettingTable()
	next, p, action, err := Apply(room, players, ActionCommand{PlayerID: "A", Type: table.ActionBet, Amount: 40})
	require.NoError(t, err)
	assert.Equal(t, int64(960), p.ChipStack)
	assert.Equal(t, int64(40), p.CurrentBet)
	assert.Equal(t, int64(70), next.Pot)
	assert.Equal(t, table.ActionBet, action.Type)
	assert.Equal(t, int64(40), action.Amount)
	assert.Equal(t, 1, action.RoundNumber)
	assert.Equal(t, int64(30), room.Pot, "input room untouched")

	_, _, _, err = Apply(room, players, ActionCommand{PlayerID: "A", Type: table.ActionBet, Amount: 5000})
	assert.True(t, errors.Is(err, errs.ErrRuleViolation))

	_, _, _, err = Apply(room, players, ActionCommand{PlayerID: "A", Type: table.ActionBet})
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestApply_BetAllChipsBecomesAllIn(t *testing.T) {
	room, players := bettingTable()
	_, p, action, err := Apply(room, players, ActionCommand{PlayerID: "D", Type: table.ActionBet, Amount: 50})
	require.NoError(t, err)
	assert.Equal(t, table.StatusAllIn, p.Status)
	assert.Equal(t, table.ActionAllIn, action.Type)
}

func TestApply_Raise(t *testing.T) {
	room, players := bettingTable()

	_, _, _, err := Apply(room, players, ActionCommand{PlayerID: "A", Type: table.ActionRaise, Amount: 20})
	assert.True(t, errors.Is(err, errs.ErrRuleViolation), "must exceed max bet")

	_, _, _, err = Apply(room, players, ActionCommand{PlayerID: "A", Type: table.ActionRaise, Amount: 30})
	assert.True(t, errors.Is(err, errs.ErrRuleViolation), "below 2x max bet")

	_, p, action, err := Apply(room, players, ActionCommand{PlayerID: "A", Type: table.ActionRaise, Amount: 40})
	require.NoError(t, err)
	assert.Equal(t, int64(40), p.CurrentBet)
	assert.Equal(t, table.ActionRaise, action.Type)

	// 短码全下可以低于最小加注
	players[3].ChipStack = 25
	_, p, action, err = Apply(room, players, ActionCommand{PlayerID: "D", Type: table.ActionRaise, Amount: 25})
	require.NoError(t, err)
	assert.Equal(t, table.StatusAllIn, p.Status)
	assert.Equal(t, table.ActionAllIn, action.Type)
}

func TestApply_CallCheckFold(t *testing.T) {
	room, players := bettingTable()

	_, p, action, err := Apply(room, players, ActionCommand{PlayerID: "B", Type: table.ActionCall})
	require.NoError(t, err)
	assert.Equal(t, int64(20), p.CurrentBet)
	assert.Equal(t, int64(10), action.Amount)

	_, _, _, err = Apply(room, players, ActionCommand{PlayerID: "C", Type: table.ActionCall})
	assert.True(t, errors.Is(err, errs.ErrRuleViolation), "nothing to call")

	_, _, _, err = Apply(room, players, ActionCommand{PlayerID: "A", Type: table.ActionCheck})
	assert.True(t, errors.Is(err, errs.ErrRuleViolation), "facing a bet")

	next, p, action, err := Apply(room, players, ActionCommand{PlayerID: "C", Type: table.ActionCheck})
	require.NoError(t, err)
	assert.Equal(t, int64(0), action.Amount)
	assert.Equal(t, room.Pot, next.Pot)

	_, p, _, err = Apply(room, players, ActionCommand{PlayerID: "A", Type: table.ActionFold})
	require.NoError(t, err)
	assert.Equal(t, table.StatusFolded, p.Status)
	assert.Equal(t, int64(1000), p.ChipStack)

	// 短码跟注只付剩余筹码
	players[3].ChipStack = 5
	_, p, _, err = Apply(room, players, ActionCommand{PlayerID: "D", Type: table.ActionCall})
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.CurrentBet)
	assert.Equal(t, table.StatusAllIn, p.Status)
}

func TestApply_AllIn(t *testing.T) {
	room, players := bettingTable()
	next, p, action, err := Apply(room, players, ActionCommand{PlayerID: "D", Type: table.ActionAllIn})
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.ChipStack)
	assert.Equal(t, int64(50), action.Amount)
	assert.Equal(t, int64(80), next.Pot)
}

func TestApply_Rejections(t *testing.T) {
	room, players := bettingTable()
	players[0].Status = table.StatusFolded
	players[1].Status = table.StatusAllIn

	_, _, _, err := Apply(room, players, ActionCommand{PlayerID: "A", Type: table.ActionCheck})
	assert.True(t, errors.Is(err, errs.ErrRuleViolation), "folded cannot act")
	_, _, _, err = Apply(room, players, ActionCommand{PlayerID: "B", Type: table.ActionFold})
	assert.True(t, errors.Is(err, errs.ErrRuleViolation), "all-in cannot act")
	_, _, _, err = Apply(room, players, ActionCommand{PlayerID: "ghost", Type: table.ActionFold})
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	_, _, _, err = Apply(room, players, ActionCommand{PlayerID: "C", Type: "shove"})
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, _, _, err = Apply(room, players, ActionCommand{PlayerID: "C", Type: table.ActionBet, Amount: -1})
	assert.True(t, errors.Is(err, errs.ErrValidation))

	room.Status = table.RoomWaiting
	_, _, _, err = Apply(room, players, ActionCommand{PlayerID: "C", Type: table.ActionFold})
	assert.True(t, errors.Is(err, errs.ErrRuleViolation))
}

func TestTransfer(t *testing.T) {
	room, players := bettingTable()
	from, to, err := Transfer(room, players, TransferCommand{FromPlayerID: "A", ToPlayerID: "D", Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(900), from.ChipStack)
	assert.Equal(t, int64(150), to.ChipStack)

	_, _, err = Transfer(room, players, TransferCommand{FromPlayerID: "A", ToPlayerID: "A", Amount: 1})
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, _, err = Transfer(room, players, TransferCommand{FromPlayerID: "A", ToPlayerID: "D", Amount: 0})
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, _, err = Transfer(room, players, TransferCommand{FromPlayerID: "D", ToPlayerID: "A", Amount: 51})
	assert.True(t, errors.Is(err, errs.ErrRuleViolation))
	_, _, err = Transfer(room, players, TransferCommand{FromPlayerID: "A", ToPlayerID: "ghost", Amount: 1})
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestSetAndCollectBlinds(t *testing.T) {
	room := playingRoom(6, 0)
	room.Status = table.RoomWaiting
	players := []table.Player{
		player("A", 0, 0, 1000, ""),
		player("B", 2, 0, 15, ""),
	}

	_, err := SetBlinds(room, players, BlindsCommand{SBPosition: 0, BBPosition: 0})
	assert.True(t, errors.Is(err, errs.ErrRuleViolation), "SB == BB")
	_, err = SetBlinds(room, players, BlindsCommand{SBPosition: 0, BBPosition: 1})
	assert.True(t, errors.Is(err, errs.ErrValidation), "empty seat")

	_, _, _, err = CollectBlinds(room, players)
	assert.True(t, errors.Is(err, errs.ErrRuleViolation), "blinds not set")

	room, err = SetBlinds(room, players, BlindsCommand{SBPosition: 0, BBPosition: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, *room.BBPosition)

	next, ps, actions, err := CollectBlinds(room, players)
	require.NoError(t, err)
	assert.Equal(t, table.RoomPlaying, next.Status)
	assert.Equal(t, int64(25), next.Pot)
	assert.Equal(t, int64(990), ps[0].ChipStack)
	assert.Equal(t, int64(15), ps[1].CurrentBet)
	assert.Equal(t, table.StatusAllIn, ps[1].Status)
	require.Len(t, actions, 2)
	assert.Equal(t, "r1", actions[0].RoomID)
	assert.Equal(t, int64(1000), players[0].ChipStack, "input untouched")

	_, err = SetBlinds(next, ps, BlindsCommand{SBPosition: 0, BBPosition: 2})
	assert.True(t, errors.Is(err, errs.ErrRuleViolation), "only while waiting")
}
