package session

import (
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/social"
)

// Slice names one category of cached state. A slice is always replaced
// wholesale.
type Slice string

const (
	SliceBundle       Slice = "bundle"
	SliceActionPoints Slice = "action_points"
	SliceHero         Slice = "hero"
	SlicePosition     Slice = "position"
	SliceGuild        Slice = "guild"
	SliceGlobalChat   Slice = "global_chat"
	SliceGuildRanking Slice = "guilds"
	SliceRaid         Slice = "raid"
	SliceContract     Slice = "contract"
	SliceDuelStats    Slice = "duel_stats"
	SliceLeaderboard  Slice = "duel_leaderboard"
	SliceSocial       Slice = "social"
	SliceBoard        Slice = "party_board"
	SliceEvents       Slice = "events"
	SlicePlayers      Slice = "players"
	SlicePresence     Slice = "presence"
	SliceCatalog      Slice = "catalog"

	SliceDaily         Slice = "daily"
	SlicePoll          Slice = "poll"
	SliceCommendations Slice = "commendations"
	SliceModeration    Slice = "moderation"
)

// Source records which event source produced a write.
type Source string

const (
	SourceLogin    Source = "login"
	SourceResponse Source = "response"
	SourcePush     Source = "push"
	SourceRefresh  Source = "refresh"
	SourceLocal    Source = "local"
)

type Origin struct {
	Source    Source
	RequestID string
}

func Local() Origin { return Origin{Source: SourceLocal} }
func Push() Origin  { return Origin{Source: SourcePush} }

// Hero is the authoritative hero plus the display-local fields the client
// owns: position, location name and the quest list.
type Hero struct {
	protocol.Hero
	X        int
	Y        int
	Location string
	Quests   []string
}

func (h Hero) Clone() Hero {
	out := h
	out.Hero = cloneHero(h.Hero)
	out.Quests = append([]string(nil), h.Quests...)
	return out
}

func cloneHero(h protocol.Hero) protocol.Hero {
	out := h
	out.Inventory = append([]string(nil), h.Inventory...)
	if h.Equipment != nil {
		out.Equipment = make(map[string]string, len(h.Equipment))
		for k, v := range h.Equipment {
			out.Equipment[k] = v
		}
	}
	return out
}

var defaultQuests = []string{
	"Explore 3 neighbouring villages",
	"Defeat 2 enemies on a battlefield",
	"Find a rare merchant",
}

// State is a detached copy of everything a session caches.
type State struct {
	Identity        string
	Active          bool
	Token           Token
	ActionPoints    int
	MaxActionPoints int
	RechargePerHour int

	Hero     Hero
	Profile  protocol.Profile
	Presence protocol.Presence

	Guild        string
	GuildChat    []protocol.ChatMessage
	GlobalChat   []protocol.ChatMessage
	GuildRanking []protocol.GuildRank

	Raid     *protocol.RaidState
	Contract *protocol.ContractState

	Social  social.Aggregates
	Board   []protocol.PartyEntry
	Events  []protocol.CommunityEvent
	Players map[string]protocol.PlayerPresence
	Catalog *protocol.Options

	Daily         *protocol.DailyChallenge
	Poll          *protocol.Poll
	Commendations *protocol.Commendations
	Moderation    *protocol.Moderation

	Status   string
	Activity []string
}

func (st State) Clone() State {
	out := st
	out.Hero = st.Hero.Clone()
	out.GuildChat = append([]protocol.ChatMessage(nil), st.GuildChat...)
	out.GlobalChat = append([]protocol.ChatMessage(nil), st.GlobalChat...)
	out.GuildRanking = append([]protocol.GuildRank(nil), st.GuildRanking...)
	if st.Raid != nil {
		r := cloneRaid(*st.Raid)
		out.Raid = &r
	}
	if st.Contract != nil {
		c := cloneContract(*st.Contract)
		out.Contract = &c
	}
	out.Social = st.Social.Clone()
	out.Board = cloneBoard(st.Board)
	out.Events = append([]protocol.CommunityEvent(nil), st.Events...)
	out.Players = clonePlayers(st.Players)
	if st.Catalog != nil {
		c := cloneCatalog(*st.Catalog)
		out.Catalog = &c
	}
	out.Daily = cloneDaily(st.Daily)
	out.Poll = clonePoll(st.Poll)
	out.Commendations = cloneCommendations(st.Commendations)
	out.Moderation = cloneModeration(st.Moderation)
	out.Activity = append([]string(nil), st.Activity...)
	return out
}

func cloneRaid(r protocol.RaidState) protocol.RaidState {
	r.Ranking = append([]protocol.RaidRank(nil), r.Ranking...)
	return r
}

func cloneContract(c protocol.ContractState) protocol.ContractState {
	c.Contributors = append([]protocol.Contributor(nil), c.Contributors...)
	return c
}

func cloneBoard(entries []protocol.PartyEntry) []protocol.PartyEntry {
	if entries == nil {
		return nil
	}
	out := make([]protocol.PartyEntry, len(entries))
	for i, e := range entries {
		e.InterestedPlayers = append([]string(nil), e.InterestedPlayers...)
		e.ReadyPlayers = append([]string(nil), e.ReadyPlayers...)
		out[i] = e
	}
	return out
}

func clonePlayers(in map[string]protocol.PlayerPresence) map[string]protocol.PlayerPresence {
	if in == nil {
		return nil
	}
	out := make(map[string]protocol.PlayerPresence, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneCatalog(c protocol.Options) protocol.Options {
	out := protocol.Options{
		StartingVillages: append([]protocol.Point(nil), c.StartingVillages...),
		Items:            append([]protocol.ItemDef(nil), c.Items...),
	}
	if c.Character != nil {
		out.Character = make(map[string][]string, len(c.Character))
		for k, v := range c.Character {
			out.Character[k] = append([]string(nil), v...)
		}
	}
	return out
}
