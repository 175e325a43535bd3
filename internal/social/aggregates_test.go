package social

import (
	"testing"

	"aetheria.game/internal/protocol"
)

func TestAggregatesQueries(t *testing.T) {
	a := Aggregates{
		Graph: protocol.SocialState{
			Friends:          []protocol.Friend{{Username: "Beryl", Online: true}, {Username: "Cael"}},
			IncomingRequests: []string{"Dara"},
			OutgoingRequests: []string{"Eli"},
		},
		Stats: protocol.DuelStats{Wins: 3, Losses: 1},
		Leaderboard: []protocol.DuelRank{
			{Username: "Beryl", Wins: 5, Total: 5},
			{Username: "Arin", Wins: 3, Losses: 1, Total: 4},
		},
	}

	if !a.IsFriend("beryl") || a.IsFriend("Dara") {
		t.Fatalf("IsFriend mismatch")
	}
	if !a.HasIncoming("Dara") || a.HasIncoming("Eli") {
		t.Fatalf("HasIncoming mismatch")
	}
	if !a.HasOutgoing("Eli") {
		t.Fatalf("HasOutgoing mismatch")
	}
	if on := a.OnlineFriends(); len(on) != 1 || on[0].Username != "Beryl" {
		t.Fatalf("OnlineFriends = %+v", on)
	}
	if r := a.Rank("Arin"); r != 2 {
		t.Fatalf("Rank(Arin) = %d", r)
	}
	if r := a.Rank("Zed"); r != 0 {
		t.Fatalf("Rank(Zed) = %d", r)
	}
	if wr := a.WinRate(); wr != 75 {
		t.Fatalf("WinRate = %d", wr)
	}
	if wr := (Aggregates{}).WinRate(); wr != 0 {
		t.Fatalf("empty WinRate = %d", wr)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := Aggregates{
		Graph:       protocol.SocialState{Friends: []protocol.Friend{{Username: "Beryl"}}},
		Leaderboard: []protocol.DuelRank{{Username: "Beryl"}},
	}
	b := a.Clone()
	b.Graph.Friends[0].Username = "changed"
	b.Leaderboard[0].Username = "changed"
	if a.Graph.Friends[0].Username != "Beryl" || a.Leaderboard[0].Username != "Beryl" {
		t.Fatalf("clone shares backing arrays with the original")
	}
}
