package dealer

import (
	"testing"

	"ChipTracker/internal/game/table"
)

func seated(id string, seat int, chips int64) table.Player {
	return table.Player{
		PlayerStake: table.PlayerStake{PlayerID: id, ChipStack: chips, Status: table.StatusActive},
		Position:    seat,
	}
}

func newTestDealer(size int) *Dealer {
	return NewDealer(table.Room{MaxPlayers: size, SmallBlind: 10, BigBlind: 20})
}

func TestNextDealerWraps(t *testing.T) {
	d := newTestDealer(4)
	if got := d.NextDealer(2); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := d.NextDealer(3); got != 0 {
		t.Fatalf("expected wrap to 0, got %d", got)
	}
}

// 4 个座位，2 号位已出局：SB/BB 跳过 2 号
func TestFindBlindsSkipsEliminated(t *testing.T) {
	d := newTestDealer(4)
	players := []table.Player{
		seated("A", 0, 500),
		seated("B", 1, 500),
		seated("C", 2, 0),
		seated("D", 3, 500),
	}

	sb, bb := d.FindBlinds(players, 1)
	if sb == nil || bb == nil {
		t.Fatalf("expected blinds to be assigned")
	}
	if *sb != 3 || *bb != 0 {
		t.Fatalf("expected SB=3 BB=0, got SB=%d BB=%d", *sb, *bb)
	}
}

func TestFindBlindsSkipsEmptySeats(t *testing.T) {
	d := newTestDealer(6)
	players := []table.Player{seated("A", 1, 100), seated("B", 4, 100)}

	sb, bb := d.FindBlinds(players, 4)
	if sb == nil || *sb != 1 || *bb != 4 {
		t.Fatalf("expected SB=1 BB=4, got %v %v", sb, bb)
	}
}

func TestFindBlindsNeedsTwoPlayers(t *testing.T) {
	d := newTestDealer(4)
	players := []table.Player{seated("A", 0, 100), seated("B", 1, 0), seated("C", 2, 0)}

	sb, bb := d.FindBlinds(players, 0)
	if sb != nil || bb != nil {
		t.Fatalf("expected no blinds with one funded player")
	}
}

func TestPostBlinds(t *testing.T) {
	d := newTestDealer(4)
	players := []table.Player{seated("A", 0, 500), seated("B", 1, 15), seated("C", 2, 500)}

	total, actions := d.PostBlinds(players, 0, 1)

	if total != 25 {
		t.Fatalf("expected pot 25, got %d", total)
	}
	if players[0].ChipStack != 490 || players[0].CurrentBet != 10 {
		t.Fatalf("unexpected SB state %+v", players[0].PlayerStake)
	}
	// BB 只有 15，全下
	if players[1].ChipStack != 0 || players[1].CurrentBet != 15 || players[1].Status != table.StatusAllIn {
		t.Fatalf("unexpected BB state %+v", players[1].PlayerStake)
	}
	if len(actions) != 2 || actions[1].Amount != 15 || actions[1].Type != table.ActionBlind {
		t.Fatalf("unexpected actions %+v", actions)
	}
}
