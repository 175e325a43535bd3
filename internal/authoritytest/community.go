package authoritytest

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"aetheria.game/internal/protocol"
)

const (
	pollGoal          = 8
	commendLimit      = 3
	reportThreshold   = 3
	muteDuration      = 30 * time.Minute
	maxDailyRanking   = 10
	maxCommendRanking = 10
	moderatorName     = "Modération"
)

var (
	dailyTargets = protocol.DailyTargets{Explore: 3, Social: 2, Combat: 2}
	dailyReward  = protocol.Reward{Gold: 35, XP: 20, ActionPoints: 2}
	pollReward   = protocol.Reward{Gold: 5}
	pollLabels   = []string{"Marais brumeux", "Pics gelés", "Forêt ancienne"}
)

// Progress kinds counted by the daily challenge.
const (
	progressExplore = "explore"
	progressSocial  = "social"
	progressCombat  = "combat"
)

// community holds the daily challenge, the poll, commendations and chat
// moderation. Every field is guarded by Server.mu.
type community struct {
	date        string
	lastReset   string
	progress    map[string]*protocol.DailyProgress
	completions map[string]int

	pollSeason   int
	pollVotes    map[int]int
	pollVoters   map[string]int
	pollRotation string

	commended map[string]map[string]bool // giver -> targets today
	received  map[string]int

	reports    map[string]map[string]bool // target -> reporters
	mutedUntil map[string]time.Time
}

func newCommunity() community {
	return community{
		progress:    map[string]*protocol.DailyProgress{},
		completions: map[string]int{},
		pollSeason:  1,
		pollVotes:   map[int]int{},
		pollVoters:  map[string]int{},
		commended:   map[string]map[string]bool{},
		received:    map[string]int{},
		reports:     map[string]map[string]bool{},
		mutedUntil:  map[string]time.Time{},
	}
}

// SetNow replaces the authority clock.
func (s *Server) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// rolloverLocked starts a new day when the clock has passed midnight. The
// daily progress and the commendations given reset together.
func (s *Server) rolloverLocked() {
	today := s.now().Format("2006-01-02")
	if s.comm.date == today {
		return
	}
	s.comm.date = today
	s.comm.lastReset = s.stamp()
	s.comm.progress = map[string]*protocol.DailyProgress{}
	s.comm.commended = map[string]map[string]bool{}
}

// progressLocked counts one action of kind toward name's daily challenge.
func (s *Server) progressLocked(name, kind string) {
	s.rolloverLocked()
	p := s.comm.progress[name]
	if p == nil {
		p = &protocol.DailyProgress{}
		s.comm.progress[name] = p
	}
	switch kind {
	case progressExplore:
		p.Explore = min(p.Explore+1, dailyTargets.Explore)
	case progressSocial:
		p.Social = min(p.Social+1, dailyTargets.Social)
	case progressCombat:
		p.Combat = min(p.Combat+1, dailyTargets.Combat)
	}
	p.Completed = p.Explore >= dailyTargets.Explore && p.Social >= dailyTargets.Social && p.Combat >= dailyTargets.Combat
}

// dailyLocked builds the daily board; personal is included when name is set.
func (s *Server) dailyLocked(name string) protocol.DailyChallenge {
	s.rolloverLocked()
	d := protocol.DailyChallenge{
		Date:        s.comm.date,
		Targets:     dailyTargets,
		Ranking:     []protocol.DailyRank{},
		LastResetAt: s.comm.lastReset,
	}
	for u, n := range s.comm.completions {
		d.Ranking = append(d.Ranking, protocol.DailyRank{Username: u, Completions: n})
	}
	sort.Slice(d.Ranking, func(i, j int) bool {
		if d.Ranking[i].Completions != d.Ranking[j].Completions {
			return d.Ranking[i].Completions > d.Ranking[j].Completions
		}
		return d.Ranking[i].Username < d.Ranking[j].Username
	})
	if len(d.Ranking) > maxDailyRanking {
		d.Ranking = d.Ranking[:maxDailyRanking]
	}
	if name != "" {
		p := protocol.DailyProgress{}
		if cur := s.comm.progress[name]; cur != nil {
			p = *cur
		}
		d.Personal = &p
	}
	return d
}

func (s *Server) pollLocked(name string) protocol.Poll {
	p := protocol.Poll{
		Season:         s.comm.pollSeason,
		Question:       "Quelle zone explorer cette saison ?",
		Goal:           pollGoal,
		Options:        make([]protocol.PollOption, 0, len(pollLabels)),
		LastRotationAt: s.comm.pollRotation,
	}
	for _, n := range s.comm.pollVotes {
		p.TotalVotes += n
	}
	for id, label := range pollLabels {
		o := protocol.PollOption{OptionID: id, Label: label, Votes: s.comm.pollVotes[id]}
		if p.TotalVotes > 0 {
			o.Percent = math.Round(float64(o.Votes)*1000/float64(p.TotalVotes)) / 10
		}
		p.Options = append(p.Options, o)
	}
	sort.SliceStable(p.Options, func(i, j int) bool { return p.Options[i].Votes > p.Options[j].Votes })
	if name != "" {
		if v, ok := s.comm.pollVoters[name]; ok {
			p.PersonalVote = &v
		}
	}
	return p
}

func (s *Server) commendationsLocked(name string) protocol.Commendations {
	s.rolloverLocked()
	c := protocol.Commendations{DailyLimit: commendLimit, Leaderboard: []protocol.CommendRank{}}
	for u, n := range s.comm.received {
		c.Leaderboard = append(c.Leaderboard, protocol.CommendRank{Username: u, Received: n})
	}
	sort.Slice(c.Leaderboard, func(i, j int) bool {
		if c.Leaderboard[i].Received != c.Leaderboard[j].Received {
			return c.Leaderboard[i].Received > c.Leaderboard[j].Received
		}
		return c.Leaderboard[i].Username < c.Leaderboard[j].Username
	})
	if len(c.Leaderboard) > maxCommendRanking {
		c.Leaderboard = c.Leaderboard[:maxCommendRanking]
	}
	if name != "" {
		given := sortedKeys(s.comm.commended[name])
		c.Personal = &protocol.CommendationPersonal{
			Remaining:        max(commendLimit-len(given), 0),
			AlreadyCommended: given,
			Received:         s.comm.received[name],
		}
	}
	return c
}

func (s *Server) moderationLocked(name string) protocol.Moderation {
	m := protocol.Moderation{ReportThreshold: reportThreshold, MuteDurationMinutes: int(muteDuration / time.Minute)}
	if name != "" {
		m.Personal = &protocol.ModerationPersonal{}
		if until, muted := s.mutedLocked(name); muted {
			m.Personal.IsMuted = true
			m.Personal.MutedUntil = until.Format(time.RFC3339)
		}
	}
	return m
}

// mutedLocked reports an active mute and clears an expired one.
func (s *Server) mutedLocked(name string) (time.Time, bool) {
	until, ok := s.comm.mutedUntil[name]
	if !ok {
		return time.Time{}, false
	}
	if !s.now().Before(until) {
		delete(s.comm.mutedUntil, name)
		return time.Time{}, false
	}
	return until, true
}

// grantLocked pays a reward, levelling the hero up as XP allows.
func (s *Server) grantLocked(p *player, rw protocol.Reward) {
	h := &p.acct.Hero
	h.Gold += rw.Gold
	h.XP += rw.XP
	for h.XP >= 100 {
		h.XP -= 100
		h.Level++
		h.MaxHP += 10
		h.HP = h.MaxHP
	}
	p.pa = min(p.pa+rw.ActionPoints, s.maxPA)
}

func (s *Server) dailyGet(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	d := s.dailyLocked(s.knownLocked(field(r, "username")))
	s.mu.Unlock()
	writeJSON(rw, http.StatusOK, d)
}

func (s *Server) dailyClaim(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.rolloverLocked()
	prog := s.comm.progress[name]
	if prog == nil || !prog.Completed {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Défi quotidien incomplet")
		return
	}
	if prog.Claimed {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Récompense déjà récupérée")
		return
	}
	prog.Claimed = true
	s.comm.completions[name]++
	s.grantLocked(p, dailyReward)
	s.pushEventLocked("daily", fmt.Sprintf("%s termine le défi quotidien.", name), name)
	resp := protocol.DailyClaimResponse{Reward: dailyReward, Hero: s.heroOf(p), ActionPoints: p.pa, Daily: s.dailyLocked(name)}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) pollGet(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.pollLocked(s.knownLocked(field(r, "username")))
	s.mu.Unlock()
	writeJSON(rw, http.StatusOK, p)
}

// pollVote rotates to a new season once the goal is reached.
func (s *Server) pollVote(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	id, err := strconv.Atoi(field(r, "option_id"))
	if err != nil || id < 0 || id >= len(pollLabels) {
		s.mu.Unlock()
		fail(rw, http.StatusUnprocessableEntity, "Option de vote invalide")
		return
	}
	if _, voted := s.comm.pollVoters[name]; voted {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Vous avez déjà voté pour cette saison")
		return
	}
	s.comm.pollVoters[name] = id
	s.comm.pollVotes[id]++
	s.grantLocked(p, pollReward)
	s.progressLocked(name, progressSocial)

	resp := protocol.PollVoteResponse{Reward: pollReward}
	if cur := s.pollLocked(""); cur.TotalVotes >= pollGoal {
		win := cur.Options[0]
		resp.Rotated = true
		resp.WinningOption = &win
		s.pushEventLocked("poll", fmt.Sprintf("La communauté a choisi : %s.", win.Label), "")
		s.comm.pollSeason++
		s.comm.pollVotes = map[int]int{}
		s.comm.pollVoters = map[string]int{}
		s.comm.pollRotation = s.stamp()
	}
	resp.Hero = s.heroOf(p)
	resp.Poll = s.pollLocked(name)
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) commendationsGet(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c := s.commendationsLocked(s.knownLocked(field(r, "username")))
	s.mu.Unlock()
	writeJSON(rw, http.StatusOK, c)
}

func (s *Server) commend(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	target := field(r, "target_username")
	if target == name || len([]rune(field(r, "reason"))) > 80 {
		s.mu.Unlock()
		fail(rw, http.StatusUnprocessableEntity, "Recommandation invalide")
		return
	}
	if _, known := s.players[target]; !known {
		s.mu.Unlock()
		fail(rw, http.StatusNotFound, "Joueur cible introuvable")
		return
	}
	s.rolloverLocked()
	given := s.comm.commended[name]
	if given[target] {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Vous avez déjà recommandé ce joueur aujourd'hui")
		return
	}
	if len(given) >= commendLimit {
		s.mu.Unlock()
		fail(rw, http.StatusTooManyRequests, "Limite quotidienne de recommandations atteinte")
		return
	}
	link(s.comm.commended, name, target)
	s.comm.received[target]++
	s.progressLocked(name, progressSocial)
	resp := protocol.CommendResponse{Target: target, Received: s.comm.received[target], Commendations: s.commendationsLocked(name)}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

// chatReport mutes the target once enough distinct players reported them.
func (s *Server) chatReport(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	target := field(r, "target_username")
	if n := len([]rune(field(r, "reason"))); target == name || n < 8 || n > 160 {
		s.mu.Unlock()
		fail(rw, http.StatusUnprocessableEntity, "Signalement invalide")
		return
	}
	if _, known := s.players[target]; !known {
		s.mu.Unlock()
		fail(rw, http.StatusNotFound, "Joueur cible introuvable")
		return
	}
	if s.comm.reports[target][name] {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Vous avez déjà signalé ce joueur récemment")
		return
	}
	link(s.comm.reports, target, name)
	resp := protocol.ReportResponse{Target: target, Reports: len(s.comm.reports[target]), Threshold: reportThreshold}
	if resp.Reports >= reportThreshold {
		resp.Muted = true
		s.comm.mutedUntil[target] = s.now().Add(muteDuration)
		delete(s.comm.reports, target)
		msg := fmt.Sprintf("%s est réduit au silence pour %d minutes.", target, int(muteDuration/time.Minute))
		s.appendGlobalChatLocked(protocol.ChatMessage{Author: moderatorName, Message: msg, CreatedAt: s.stamp()})
		s.pushEventLocked("moderation", msg, "")
	}
	resp.Moderation = s.moderationLocked(name)
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

// knownLocked returns name when it belongs to a registered player.
func (s *Server) knownLocked(name string) string {
	if _, ok := s.players[name]; ok {
		return name
	}
	return ""
}
