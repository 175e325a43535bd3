// Package view projects a session snapshot into what the player sees. Project
// is pure: the same state, index and clock always give the same View.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"aetheria.game/internal/economy"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
	"aetheria.game/internal/world"
)

// MapRadius gives a 21x21 local map.
const MapRadius = 10

type View struct {
	SignedIn bool
	Identity string
	PA       economy.Status
	PABar    string

	Hero     HeroLine
	Quests   []string
	Tile     world.Tile
	TileText string
	Context  []string
	Moves    []world.Move
	Map      [][]world.TileKind

	Players      []PlayerLine
	Guild        string
	GuildChat    []ChatLine
	GlobalChat   []ChatLine
	GuildRanking []protocol.GuildRank
	Raid         *RaidLine
	Contract     *ContractLine
	Duel         DuelLine
	Friends      []FriendLine
	Incoming     []string
	Outgoing     []string
	Board        []BoardLine
	Events       []EventLine

	Daily   *DailyLine
	Poll    *PollLine
	Commend *CommendLine
	Muted   string

	Menu     []MenuItem
	Status   string
	Activity []string
}

type HeroLine struct {
	Level     int
	XP        int
	Gold      string
	HP        int
	MaxHP     int
	X, Y      int
	Location  string
	Stats     protocol.Stats
	Inventory []string
	Equipment []string
}

type PlayerLine struct {
	Name         string
	ActionPoints int
	Status       string
	Note         string
	Self         bool
}

type ChatLine struct {
	Author  string
	Message string
	Ago     string
}

type RaidLine struct {
	Name    string
	Level   int
	HP      string
	Percent int
	Ranking []protocol.RaidRank
	ResetAt string
}

type ContractLine struct {
	Title        string
	Description  string
	Season       int
	Progress     int
	Goal         int
	Percent      int
	Contributors []protocol.Contributor
}

type DuelLine struct {
	Wins        int
	Losses      int
	WinRate     int
	Rank        int
	Leaderboard []protocol.DuelRank
}

type FriendLine struct {
	Name   string
	Online bool
	Status string
	Note   string
}

type BoardLine struct {
	ID         int
	Author     string
	Activity   string
	Message    string
	Roles      string
	Levels     string
	Members    string
	Interested bool
	Ready      bool
	Full       bool
	Launched   bool
	Mine       bool
	Ago        string
}

type EventLine struct {
	Category string
	Message  string
	Actor    string
	Ago      string
}

type MenuItem struct {
	Key     string
	Label   string
	Enabled bool
}

// Project builds the view. ix may be nil before the first world refresh.
func Project(st session.State, ix *world.Index, now time.Time) View {
	v := View{
		SignedIn: st.Active,
		Identity: st.Identity,
		PA:       economy.StatusOf(st),
		Status:   st.Status,
		Activity: append([]string(nil), st.Activity...),
	}
	v.PABar = paBar(v.PA)
	if !st.Active {
		v.Menu = menu(v.PA, false)
		return v
	}

	h := st.Hero
	v.Hero = HeroLine{
		Level:     h.Level,
		XP:        h.XP,
		Gold:      humanize.Comma(int64(h.Gold)),
		HP:        h.HP,
		MaxHP:     h.MaxHP,
		X:         h.X,
		Y:         h.Y,
		Location:  h.Location,
		Stats:     h.Stats,
		Inventory: append([]string(nil), h.Inventory...),
		Equipment: equipment(h.Equipment),
	}
	v.Quests = append([]string(nil), h.Quests...)

	v.Tile = ix.Lookup(h.X, h.Y)
	v.TileText = world.Describe(v.Tile.Kind)
	v.Context = world.ContextActions(v.Tile.Kind)
	if ix != nil {
		v.Moves = ix.Moves(h.X, h.Y)
		v.Map = ix.Neighbourhood(h.X, h.Y, MapRadius)
	}

	v.Players = players(st)
	v.Guild = st.Guild
	v.GuildChat = chat(st.GuildChat, now)
	v.GlobalChat = chat(st.GlobalChat, now)
	v.GuildRanking = append([]protocol.GuildRank(nil), st.GuildRanking...)
	if r := st.Raid; r != nil {
		v.Raid = &RaidLine{
			Name:    r.Name,
			Level:   r.Level,
			HP:      fmt.Sprintf("%s/%s", humanize.Comma(int64(r.HP)), humanize.Comma(int64(r.MaxHP))),
			Percent: percent(r.HP, r.MaxHP),
			Ranking: append([]protocol.RaidRank(nil), r.Ranking...),
			ResetAt: ago(r.LastResetAt, now),
		}
	}
	if c := st.Contract; c != nil {
		v.Contract = &ContractLine{
			Title:        c.Title,
			Description:  c.Description,
			Season:       c.Season,
			Progress:     c.Progress,
			Goal:         c.Goal,
			Percent:      percent(c.Progress, c.Goal),
			Contributors: append([]protocol.Contributor(nil), c.Contributors...),
		}
	}
	v.Duel = DuelLine{
		Wins:        st.Social.Stats.Wins,
		Losses:      st.Social.Stats.Losses,
		WinRate:     st.Social.WinRate(),
		Rank:        st.Social.Rank(st.Identity),
		Leaderboard: append([]protocol.DuelRank(nil), st.Social.Leaderboard...),
	}
	for _, f := range st.Social.Graph.Friends {
		v.Friends = append(v.Friends, FriendLine{Name: f.Username, Online: f.Online, Status: f.Presence.Status, Note: f.Presence.Note})
	}
	v.Incoming = append([]string(nil), st.Social.Graph.IncomingRequests...)
	v.Outgoing = append([]string(nil), st.Social.Graph.OutgoingRequests...)
	v.Board = board(st.Board, st.Identity, now)
	for _, e := range st.Events {
		v.Events = append(v.Events, EventLine{Category: e.Category, Message: e.Message, Actor: e.Actor, Ago: ago(e.CreatedAt, now)})
	}
	community(&v, st, now)
	v.Menu = menu(v.PA, true)
	v.Menu = append(v.Menu, communityMenu(v)...)
	return v
}

func paBar(s economy.Status) string {
	const width = 20
	filled := 0
	if s.Max > 0 {
		filled = s.Current * width / s.Max
	}
	return fmt.Sprintf("[%s%s] %d/%d PA", strings.Repeat("#", filled), strings.Repeat("-", width-filled), s.Current, s.Max)
}

var slotOrder = []string{"head", "chest", "weapon", "back", "hands", "feet", "trinket"}

func equipment(eq map[string]string) []string {
	out := make([]string, 0, len(slotOrder))
	for _, slot := range slotOrder {
		item := eq[slot]
		if item == "" {
			item = "-"
		}
		out = append(out, slot+": "+item)
	}
	return out
}

func players(st session.State) []PlayerLine {
	out := make([]PlayerLine, 0, len(st.Players))
	for name, p := range st.Players {
		out = append(out, PlayerLine{
			Name:         name,
			ActionPoints: p.ActionPoints,
			Status:       p.Presence.Status,
			Note:         p.Presence.Note,
			Self:         name == st.Identity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func chat(msgs []protocol.ChatMessage, now time.Time) []ChatLine {
	out := make([]ChatLine, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatLine{Author: m.Author, Message: m.Message, Ago: ago(m.CreatedAt, now)})
	}
	return out
}

func board(entries []protocol.PartyEntry, me string, now time.Time) []BoardLine {
	out := make([]BoardLine, 0, len(entries))
	for _, e := range entries {
		maxMembers := e.MaxMembers
		if maxMembers <= 0 {
			maxMembers = 4
		}
		minLevel := e.MinLevel
		if minLevel <= 0 {
			minLevel = 1
		}
		out = append(out, BoardLine{
			ID:         e.ID,
			Author:     e.Author,
			Activity:   e.Activity,
			Message:    e.Message,
			Roles:      e.Roles,
			Levels:     fmt.Sprintf("lvl %d+", minLevel),
			Members:    fmt.Sprintf("%d/%d", len(e.InterestedPlayers), maxMembers),
			Interested: contains(e.InterestedPlayers, me),
			Ready:      contains(e.ReadyPlayers, me),
			Full:       e.IsFull,
			Launched:   e.IsLaunched,
			Mine:       e.Author == me,
			Ago:        ago(e.CreatedAt, now),
		})
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func percent(v, max int) int {
	if max <= 0 {
		return 0
	}
	p := v * 100 / max
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

var stampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"}

// ago renders a wire timestamp relative to now. Unparseable stamps are shown
// as received.
func ago(stamp string, now time.Time) string {
	if stamp == "" {
		return ""
	}
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, stamp); err == nil {
			return humanize.RelTime(t, now, "ago", "from now")
		}
	}
	return stamp
}

func menu(pa economy.Status, signedIn bool) []MenuItem {
	paid := signedIn && pa.Enabled
	return []MenuItem{
		{Key: "move", Label: "Move (1 PA)", Enabled: paid},
		{Key: "explore", Label: "Explore tile", Enabled: paid},
		{Key: "battle", Label: "Quick battle (1 PA)", Enabled: paid},
		{Key: "raid", Label: "Attack raid boss", Enabled: paid},
		{Key: "contract", Label: "Contribute to contract", Enabled: paid},
		{Key: "duel", Label: "Duel a player", Enabled: paid},
		{Key: "equip", Label: "Equip item", Enabled: signedIn},
		{Key: "guild", Label: "Guild", Enabled: signedIn},
		{Key: "friend", Label: "Friends", Enabled: signedIn},
		{Key: "board", Label: "Party board", Enabled: signedIn},
		{Key: "say", Label: "Global chat", Enabled: signedIn},
		{Key: "status", Label: "Presence", Enabled: signedIn},
		{Key: "login", Label: "Sign in", Enabled: !signedIn},
		{Key: "logout", Label: "Sign out", Enabled: signedIn},
	}
}

func communityMenu(v View) []MenuItem {
	return []MenuItem{
		{Key: "daily", Label: "Claim daily reward", Enabled: v.Daily != nil && v.Daily.Claimable},
		{Key: "vote", Label: "Vote in the poll", Enabled: v.Poll != nil && !v.Poll.Voted},
		{Key: "commend", Label: "Commend a player", Enabled: v.Commend == nil || v.Commend.Remaining > 0},
		{Key: "report", Label: "Report a player", Enabled: true},
	}
}

// Enabled reports whether the menu entry key is available.
func (v View) Enabled(key string) bool {
	for _, m := range v.Menu {
		if m.Key == key {
			return m.Enabled
		}
	}
	return false
}
