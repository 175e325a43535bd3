package social

import (
	"strings"

	"aetheria.game/internal/protocol"
)

// Aggregates is the player's social slice: friend graph, pending requests and
// duel record. Every field is replaced wholesale by responses and pushes.
type Aggregates struct {
	Graph       protocol.SocialState
	Stats       protocol.DuelStats
	Leaderboard []protocol.DuelRank
}

func (a Aggregates) Clone() Aggregates {
	out := Aggregates{
		Stats:       a.Stats,
		Leaderboard: append([]protocol.DuelRank(nil), a.Leaderboard...),
	}
	out.Graph = CloneGraph(a.Graph)
	return out
}

func CloneGraph(g protocol.SocialState) protocol.SocialState {
	return protocol.SocialState{
		Friends:          append([]protocol.Friend(nil), g.Friends...),
		IncomingRequests: append([]string(nil), g.IncomingRequests...),
		OutgoingRequests: append([]string(nil), g.OutgoingRequests...),
	}
}

func (a Aggregates) IsFriend(username string) bool {
	for _, f := range a.Graph.Friends {
		if strings.EqualFold(f.Username, username) {
			return true
		}
	}
	return false
}

func (a Aggregates) HasIncoming(username string) bool {
	return containsFold(a.Graph.IncomingRequests, username)
}

func (a Aggregates) HasOutgoing(username string) bool {
	return containsFold(a.Graph.OutgoingRequests, username)
}

// OnlineFriends returns the friends the authority reported as connected.
func (a Aggregates) OnlineFriends() []protocol.Friend {
	var out []protocol.Friend
	for _, f := range a.Graph.Friends {
		if f.Online {
			out = append(out, f)
		}
	}
	return out
}

// Rank is the 1-based leaderboard position of username, or 0 when unranked.
func (a Aggregates) Rank(username string) int {
	for i, r := range a.Leaderboard {
		if r.Username == username {
			return i + 1
		}
	}
	return 0
}

// WinRate is wins/(wins+losses) in percent, 0 with no duels fought.
func (a Aggregates) WinRate() int {
	total := a.Stats.Wins + a.Stats.Losses
	if total == 0 {
		return 0
	}
	return a.Stats.Wins * 100 / total
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
