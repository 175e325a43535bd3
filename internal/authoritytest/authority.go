// Package authoritytest runs a small in-memory game authority over httptest.
// It implements the request endpoints and the /ws snapshot push closely enough
// to drive the client end to end. It is not a model of the real authority's
// formulas: rewards and damage are fixed numbers.
package authoritytest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"aetheria.game/internal/protocol"
)

const (
	DefaultMaxPA    = 20
	RechargePerHour = 5
	maxGuildChat    = 25
	maxGlobalChat   = 40
	maxEvents       = 25
)

// Account seeds one registered player.
type Account struct {
	Username string
	Password string
	PA       int
	Hero     protocol.Hero
	Profile  protocol.Profile
	Token    string
}

// Request is one recorded call, in arrival order.
type Request struct {
	Method    string
	Path      string
	Form      url.Values
	RequestID string
	Bearer    string
}

type player struct {
	acct     Account
	pa       int
	online   bool
	presence protocol.Presence
	duel     protocol.DuelStats
}

type boardEntry struct {
	protocol.PartyEntry
	interested map[string]bool
	ready      map[string]bool
}

type Server struct {
	*httptest.Server

	mu    sync.Mutex
	maxPA int
	world protocol.World
	items []protocol.ItemDef

	players    map[string]*player
	guildOf    map[string]string
	guilds     map[string]map[string]bool
	guildChat  map[string][]protocol.ChatMessage
	globalChat []protocol.ChatMessage
	events     []protocol.CommunityEvent

	raid       protocol.RaidState
	raidDamage map[string]int

	contract      protocol.ContractState
	contributions map[string]int

	friends map[string]map[string]bool
	pending map[string]map[string]bool // target -> requesters

	board     []*boardEntry
	nextEntry int

	comm community

	requests []Request
	failures map[string]failure
	hub      *hub
	now      func() time.Time
}

type failure struct {
	status int
	msg    string
}

// New starts an authority serving w. Close it with Server.Close.
func New(w protocol.World) *Server {
	s := &Server{
		maxPA:         DefaultMaxPA,
		world:         w,
		items:         DefaultItems(),
		players:       map[string]*player{},
		guildOf:       map[string]string{},
		guilds:        map[string]map[string]bool{},
		guildChat:     map[string][]protocol.ChatMessage{},
		raidDamage:    map[string]int{},
		contributions: map[string]int{},
		friends:       map[string]map[string]bool{},
		pending:       map[string]map[string]bool{},
		failures:      map[string]failure{},
		comm:          newCommunity(),
		hub:           newHub(),
		now:           func() time.Time { return time.Now().UTC() },
	}
	s.raid = protocol.RaidState{Name: "Hydre Astrale", Level: 1, MaxHP: 600, HP: 600, Ranking: []protocol.RaidRank{}}
	s.contract = protocol.ContractState{
		Season:       1,
		Goal:         240,
		Title:        "Reconstruire la Tour de Vigie",
		Description:  "Rassemblez des matériaux pour la tour.",
		Contributors: []protocol.Contributor{},
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// DefaultItems is a small catalog with one item per slot kind.
func DefaultItems() []protocol.ItemDef {
	return []protocol.ItemDef{
		{Name: "Épée courte", Slot: "weapon", Rarity: "common"},
		{Name: "Casque de cuir", Slot: "head", Rarity: "common"},
		{Name: "Potion de soin", Slot: "consumable", Rarity: "common"},
		{Name: "Rune ancienne", Slot: "trinket", Rarity: "rare"},
	}
}

// Close shuts the push hub before the HTTP server so blocked readers return.
func (s *Server) Close() {
	s.hub.closeAll()
	s.Server.Close()
}

// WSURL is the push endpoint address.
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

func (s *Server) SetMaxPA(max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxPA = max
}

func (s *Server) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Hero.MaxHP == 0 {
		a.Hero = protocol.Hero{Level: 1, HP: 100, MaxHP: 100, Inventory: []string{}, Equipment: map[string]string{}}
	}
	s.players[a.Username] = &player{acct: a, pa: a.PA}
}

// Connect marks a player as online without a login round trip.
func (s *Server) Connect(username string) {
	s.mu.Lock()
	if p, ok := s.players[username]; ok {
		p.online = true
		p.presence = protocol.Presence{Status: "online"}
	}
	s.mu.Unlock()
	s.Broadcast()
}

func (s *Server) SetPA(username string, pa int) {
	s.mu.Lock()
	if p, ok := s.players[username]; ok {
		p.pa = pa
	}
	s.mu.Unlock()
}

func (s *Server) PA(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[username]; ok {
		return p.pa
	}
	return 0
}

func (s *Server) SetWorld(w protocol.World) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.world = w
}

func (s *Server) SetRaid(r protocol.RaidState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raid = r
}

// GiveItem appends an item to a player's inventory.
func (s *Server) GiveItem(username, item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[username]; ok {
		p.acct.Hero.Inventory = append(p.acct.Hero.Inventory, item)
	}
}

// Fail makes the next request to path answer status with msg, without
// touching any state.
func (s *Server) Fail(path string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, msg: msg}
}

// takeFailure consumes the failure armed for path, if any.
func (s *Server) takeFailure(path string) (failure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.failures[path]
	delete(s.failures, path)
	return f, ok
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo filters the log by path.
func (s *Server) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(r *http.Request) {
	_ = r.ParseForm()
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		Form:      cloneValues(r.Form),
		RequestID: r.Header.Get("X-Request-ID"),
		Bearer:    bearer,
	})
	s.mu.Unlock()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// snapshotLocked builds the full push message. Callers hold s.mu.
func (s *Server) snapshotLocked() protocol.SnapshotMsg {
	players := map[string]protocol.PlayerPresence{}
	for name, p := range s.players {
		if p.online {
			players[name] = protocol.PlayerPresence{ActionPoints: p.pa, Presence: p.presence}
		}
	}
	raid := s.raidLocked()
	contract := s.contractLocked()
	msg := protocol.SnapshotMsg{
		Type:       protocol.TypeSnapshot,
		Players:    players,
		Guilds:     s.guildRankingLocked(),
		Raid:       &raid,
		Contracts:  &contract,
		Duels:      s.leaderboardLocked(),
		GlobalChat: append([]protocol.ChatMessage{}, s.globalChat...),
		PartyBoard: s.boardLocked(),
		Events:     append([]protocol.CommunityEvent{}, s.events...),
	}
	daily := s.dailyLocked("")
	poll := s.pollLocked("")
	commendations := s.commendationsLocked("")
	moderation := s.moderationLocked("")
	msg.Daily, msg.Poll, msg.Commendations, msg.Moderation = &daily, &poll, &commendations, &moderation
	return msg
}

func (s *Server) guildRankingLocked() []protocol.GuildRank {
	out := make([]protocol.GuildRank, 0, len(s.guilds))
	for name, members := range s.guilds {
		out = append(out, protocol.GuildRank{Name: name, MemberCount: len(members)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MemberCount != out[j].MemberCount {
			return out[i].MemberCount > out[j].MemberCount
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func (s *Server) raidLocked() protocol.RaidState {
	r := s.raid
	r.Ranking = make([]protocol.RaidRank, 0, len(s.raidDamage))
	for g, d := range s.raidDamage {
		r.Ranking = append(r.Ranking, protocol.RaidRank{Guild: g, Damage: d})
	}
	sort.Slice(r.Ranking, func(i, j int) bool {
		if r.Ranking[i].Damage != r.Ranking[j].Damage {
			return r.Ranking[i].Damage > r.Ranking[j].Damage
		}
		return r.Ranking[i].Guild < r.Ranking[j].Guild
	})
	return r
}

func (s *Server) contractLocked() protocol.ContractState {
	c := s.contract
	c.Contributors = make([]protocol.Contributor, 0, len(s.contributions))
	for u, pts := range s.contributions {
		c.Contributors = append(c.Contributors, protocol.Contributor{Username: u, Points: pts})
	}
	sort.Slice(c.Contributors, func(i, j int) bool {
		if c.Contributors[i].Points != c.Contributors[j].Points {
			return c.Contributors[i].Points > c.Contributors[j].Points
		}
		return c.Contributors[i].Username < c.Contributors[j].Username
	})
	return c
}

func (s *Server) leaderboardLocked() []protocol.DuelRank {
	out := []protocol.DuelRank{}
	for name, p := range s.players {
		if p.duel.Wins+p.duel.Losses == 0 {
			continue
		}
		out = append(out, protocol.DuelRank{Username: name, Wins: p.duel.Wins, Losses: p.duel.Losses, Total: p.duel.Wins + p.duel.Losses})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].Username < out[j].Username
	})
	return out
}

func (s *Server) boardLocked() []protocol.PartyEntry {
	out := make([]protocol.PartyEntry, 0, len(s.board))
	for _, e := range s.board {
		pe := e.PartyEntry
		pe.InterestedPlayers = sortedKeys(e.interested)
		pe.ReadyPlayers = sortedKeys(e.ready)
		pe.IsFull = len(e.interested) >= e.MaxMembers
		out = append(out, pe)
	}
	return out
}

func (s *Server) socialLocked(username string) protocol.SocialState {
	st := protocol.SocialState{Friends: []protocol.Friend{}, IncomingRequests: []string{}, OutgoingRequests: []string{}}
	for _, f := range sortedKeys(s.friends[username]) {
		fr := protocol.Friend{Username: f, Presence: protocol.Presence{Status: "offline"}}
		if p, ok := s.players[f]; ok && p.online {
			fr.Online = true
			fr.Presence = p.presence
		}
		st.Friends = append(st.Friends, fr)
	}
	st.IncomingRequests = append(st.IncomingRequests, sortedKeys(s.pending[username])...)
	for target, reqs := range s.pending {
		if reqs[username] {
			st.OutgoingRequests = append(st.OutgoingRequests, target)
		}
	}
	sort.Strings(st.OutgoingRequests)
	return st
}

func (s *Server) pushEventLocked(category, message, actor string) {
	ev := protocol.CommunityEvent{Category: category, Message: message, Actor: actor, CreatedAt: s.stamp()}
	s.events = append([]protocol.CommunityEvent{ev}, s.events...)
	if len(s.events) > maxEvents {
		s.events = s.events[:maxEvents]
	}
}

func (s *Server) stamp() string {
	return s.now().Format(time.RFC3339)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func link(m map[string]map[string]bool, a, b string) {
	if m[a] == nil {
		m[a] = map[string]bool{}
	}
	m[a][b] = true
}
