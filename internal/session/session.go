package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/social"
)

// MaxActivity bounds the activity log; the newest entry comes first.
const MaxActivity = 8

var ErrInvalidBundle = errors.New("invalid login bundle")

// Observer is told about every slice replacement after the lock is released.
// value is the new slice content as handed to the session.
type Observer interface {
	SliceReplaced(identity string, slice Slice, origin Origin, value any)
}

type ObserverFunc func(identity string, slice Slice, origin Origin, value any)

func (f ObserverFunc) SliceReplaced(identity string, slice Slice, origin Origin, value any) {
	f(identity, slice, origin, value)
}

// Observers fans one notification out to each non-nil member in order.
type Observers []Observer

func (obs Observers) SliceReplaced(identity string, slice Slice, origin Origin, value any) {
	for _, o := range obs {
		if o != nil {
			o.SliceReplaced(identity, slice, origin, value)
		}
	}
}

// Session is the single owner of one signed-in player's cached state.
// Responses, pushes and local computations all write through it; readers get
// detached copies. After Close every write is dropped, so late responses for
// a signed-out identity never leak into a later session.
type Session struct {
	mu       sync.RWMutex
	st       State
	closed   bool
	observer Observer
}

// New seeds a session from a login bundle. obs may be nil.
func New(bundle protocol.LoginResponse, obs Observer) (*Session, error) {
	if bundle.Username == "" {
		return nil, fmt.Errorf("%w: missing username", ErrInvalidBundle)
	}
	if bundle.MaxActionPoints <= 0 {
		return nil, fmt.Errorf("%w: max_action_points=%d", ErrInvalidBundle, bundle.MaxActionPoints)
	}
	var tok Token
	if bundle.SessionToken != "" {
		t, err := ParseToken(bundle.SessionToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
		}
		if t.Subject != "" && t.Subject != bundle.Username {
			return nil, fmt.Errorf("%w: token subject %q does not match %q", ErrInvalidBundle, t.Subject, bundle.Username)
		}
		tok = t
	}

	st := State{
		Identity:        bundle.Username,
		Active:          true,
		Token:           tok,
		ActionPoints:    bundle.ActionPoints,
		MaxActionPoints: bundle.MaxActionPoints,
		RechargePerHour: bundle.RechargePerHour,
		Hero: Hero{
			Hero:   cloneHero(bundle.Hero),
			Quests: append([]string(nil), defaultQuests...),
		},
		Profile:    bundle.Profile,
		Presence:   bundle.Presence,
		Guild:      bundle.Guild,
		GuildChat:  append([]protocol.ChatMessage(nil), bundle.GuildChat...),
		GlobalChat: append([]protocol.ChatMessage(nil), bundle.GlobalChat...),
		Social: social.Aggregates{
			Graph:       social.CloneGraph(bundle.Social),
			Stats:       bundle.DuelStats,
			Leaderboard: append([]protocol.DuelRank(nil), bundle.DuelLeaderboard...),
		},
		Board:  cloneBoard(bundle.PartyBoard),
		Events: append([]protocol.CommunityEvent(nil), bundle.Events...),

		Daily:         cloneDaily(bundle.Daily),
		Poll:          clonePoll(bundle.Poll),
		Commendations: cloneCommendations(bundle.Commendations),
		Moderation:    cloneModeration(bundle.Moderation),
	}
	if bundle.StartPosition != nil {
		st.Hero.X, st.Hero.Y = bundle.StartPosition.X, bundle.StartPosition.Y
	}

	s := &Session{st: st, observer: obs}
	s.notify(st.Identity, SliceBundle, Origin{Source: SourceLogin}, bundle)
	return s, nil
}

func (s *Session) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Identity
}

// Active reports whether the session still accepts writes.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

// State returns a deep copy of the cached state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Clone()
}

// ActionPoints returns the last authoritative value, unclamped.
func (s *Session) ActionPoints() (current, max int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ActionPoints, s.st.MaxActionPoints
}

func (s *Session) Token() Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Token
}

func (s *Session) Hero() Hero {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Hero.Clone()
}

func (s *Session) Guild() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Guild
}

func (s *Session) Catalog() *protocol.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.st.Catalog == nil {
		return nil
	}
	c := cloneCatalog(*s.st.Catalog)
	return &c
}

func (s *Session) Players() map[string]protocol.PlayerPresence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePlayers(s.st.Players)
}

// Close discards the session on sign-out. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	identity := s.st.Identity
	s.st = State{Identity: identity}
	s.closed = true
}

// SetActionPoints stores the authority's latest PA figure. A non-positive max
// keeps the previous maximum.
func (s *Session) SetActionPoints(current, max int, o Origin) {
	s.write(SliceActionPoints, o, current, func(st *State) {
		st.ActionPoints = current
		if max > 0 {
			st.MaxActionPoints = max
		}
	})
}

// ReplaceHero overwrites the authoritative hero record. Position, location
// and quests are client-owned and survive the replacement.
func (s *Session) ReplaceHero(h protocol.Hero, o Origin) {
	h = cloneHero(h)
	s.write(SliceHero, o, h, func(st *State) {
		st.Hero.Hero = h
	})
}

// SetPosition moves the display-local hero marker.
func (s *Session) SetPosition(x, y int, location string, o Origin) {
	s.write(SlicePosition, o, protocol.Position{X: x, Y: y}, func(st *State) {
		st.Hero.X, st.Hero.Y = x, y
		st.Hero.Location = location
	})
}

// ApplyLocalHero stores a hero computed entirely on the client. It replaces
// both the stats and the position in one step.
func (s *Session) ApplyLocalHero(h Hero) {
	h = h.Clone()
	s.write(SliceHero, Local(), h, func(st *State) {
		if h.Quests == nil {
			h.Quests = st.Hero.Quests
		}
		st.Hero = h
	})
}

// ReplaceGuild stores the membership and its chat together; an empty name
// means the player has no guild.
func (s *Session) ReplaceGuild(name string, chat []protocol.ChatMessage, o Origin) {
	chat = append([]protocol.ChatMessage(nil), chat...)
	s.write(SliceGuild, o, name, func(st *State) {
		st.Guild = name
		st.GuildChat = chat
	})
}

func (s *Session) ReplaceGlobalChat(chat []protocol.ChatMessage, o Origin) {
	chat = append([]protocol.ChatMessage(nil), chat...)
	s.write(SliceGlobalChat, o, chat, func(st *State) { st.GlobalChat = chat })
}

func (s *Session) ReplaceGuildRanking(guilds []protocol.GuildRank, o Origin) {
	guilds = append([]protocol.GuildRank(nil), guilds...)
	s.write(SliceGuildRanking, o, guilds, func(st *State) { st.GuildRanking = guilds })
}

func (s *Session) ReplaceRaid(r protocol.RaidState, o Origin) {
	r = cloneRaid(r)
	s.write(SliceRaid, o, r, func(st *State) { st.Raid = &r })
}

func (s *Session) ReplaceContract(c protocol.ContractState, o Origin) {
	c = cloneContract(c)
	s.write(SliceContract, o, c, func(st *State) { st.Contract = &c })
}

func (s *Session) ReplaceDuelStats(d protocol.DuelStats, o Origin) {
	s.write(SliceDuelStats, o, d, func(st *State) { st.Social.Stats = d })
}

func (s *Session) ReplaceLeaderboard(l []protocol.DuelRank, o Origin) {
	l = append([]protocol.DuelRank(nil), l...)
	s.write(SliceLeaderboard, o, l, func(st *State) { st.Social.Leaderboard = l })
}

func (s *Session) ReplaceSocial(g protocol.SocialState, o Origin) {
	g = social.CloneGraph(g)
	s.write(SliceSocial, o, g, func(st *State) { st.Social.Graph = g })
}

func (s *Session) ReplaceBoard(entries []protocol.PartyEntry, o Origin) {
	entries = cloneBoard(entries)
	s.write(SliceBoard, o, entries, func(st *State) { st.Board = entries })
}

func (s *Session) ReplaceEvents(events []protocol.CommunityEvent, o Origin) {
	events = append([]protocol.CommunityEvent(nil), events...)
	s.write(SliceEvents, o, events, func(st *State) { st.Events = events })
}

// ReplacePlayers stores the connected-player list. If it carries this
// identity, the reported PA and presence are adopted as well, and observers
// also see those as writes to the action_points and presence slices.
func (s *Session) ReplacePlayers(players map[string]protocol.PlayerPresence, o Origin) {
	players = clonePlayers(players)
	var (
		me    protocol.PlayerPresence
		found bool
	)
	identity, ok := s.write(SlicePlayers, o, players, func(st *State) {
		st.Players = players
		if me, found = players[st.Identity]; found {
			st.ActionPoints = me.ActionPoints
			st.Presence = me.Presence
		}
	})
	if ok && found {
		s.notify(identity, SliceActionPoints, o, me.ActionPoints)
		s.notify(identity, SlicePresence, o, me.Presence)
	}
}

func (s *Session) ReplacePresence(p protocol.Presence, o Origin) {
	s.write(SlicePresence, o, p, func(st *State) { st.Presence = p })
}

func (s *Session) ReplaceCatalog(c protocol.Options, o Origin) {
	c = cloneCatalog(c)
	s.write(SliceCatalog, o, c, func(st *State) { st.Catalog = &c })
}

// SetStatus replaces the one-line status message.
func (s *Session) SetStatus(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.st.Status = msg
	}
}

// LogActivity prepends a timestamped entry and keeps the newest MaxActivity.
func (s *Session) LogActivity(now time.Time, msg string) {
	entry := fmt.Sprintf("[%s] %s", now.Format("15:04:05"), msg)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	entries := make([]string, 0, MaxActivity)
	entries = append(entries, entry)
	entries = append(entries, s.st.Activity...)
	if len(entries) > MaxActivity {
		entries = entries[:MaxActivity]
	}
	s.st.Activity = entries
}

// write applies one slice replacement and notifies the observer. ok is false
// when the session was already closed and nothing changed.
func (s *Session) write(slice Slice, o Origin, value any, apply func(st *State)) (identity string, ok bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", false
	}
	apply(&s.st)
	identity = s.st.Identity
	s.mu.Unlock()
	s.notify(identity, slice, o, value)
	return identity, true
}

func (s *Session) notify(identity string, slice Slice, o Origin, value any) {
	if s.observer != nil {
		s.observer.SliceReplaced(identity, slice, o, value)
	}
}
