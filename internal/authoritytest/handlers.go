package authoritytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aetheria.game/internal/protocol"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h func(http.ResponseWriter, *http.Request)) {
		mux.HandleFunc(pattern, func(rw http.ResponseWriter, r *http.Request) {
			s.record(r)
			if f, ok := s.takeFailure(r.URL.Path); ok {
				fail(rw, f.status, f.msg)
				return
			}
			h(rw, r)
		})
	}
	handle("POST /api/login", s.login)
	handle("POST /api/action", s.spendAction)
	handle("POST /api/adventure", s.adventure)
	handle("POST /api/equipment/equip", s.equip)
	handle("POST /api/guilds/create", s.createGuild)
	handle("POST /api/guilds/join", s.joinGuild)
	handle("POST /api/guilds/leave", s.leaveGuild)
	handle("POST /api/guilds/chat", s.guildChatPost)
	handle("POST /api/raids/attack", s.raidAttack)
	handle("POST /api/contracts/contribute", s.contribute)
	handle("POST /api/combat/duel", s.duel)
	handle("POST /api/friends/request", s.friendRequest)
	handle("POST /api/friends/respond", s.friendRespond)
	handle("DELETE /api/friends", s.friendRemove)
	handle("GET /api/friends", s.friendsGet)
	handle("POST /api/party-board", s.boardPost)
	handle("DELETE /api/party-board", s.boardWithdraw)
	handle("POST /api/party-board/interest", s.boardInterest)
	handle("POST /api/party-board/ready", s.boardReady)
	handle("POST /api/party-board/launch", s.boardLaunch)
	handle("POST /api/chat/global", s.globalChatPost)
	handle("POST /api/presence", s.presence)
	handle("POST /api/chat/report", s.chatReport)
	handle("POST /api/daily/claim", s.dailyClaim)
	handle("POST /api/community/poll/vote", s.pollVote)
	handle("POST /api/social/commend", s.commend)
	handle("GET /api/world", s.worldGet)
	handle("GET /api/guilds", s.guildsGet)
	handle("GET /api/raids/current", s.raidGet)
	handle("GET /api/contracts/current", s.contractGet)
	handle("GET /api/options", s.optionsGet)
	handle("GET /api/duels/leaderboard", s.leaderboardGet)
	handle("GET /api/events", s.eventsGet)
	handle("GET /api/daily", s.dailyGet)
	handle("GET /api/community/poll", s.pollGet)
	handle("GET /api/social/commendations", s.commendationsGet)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func fail(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, protocol.ErrorBody{Error: msg})
}

func field(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

// online resolves the acting player. Callers hold s.mu.
func (s *Server) online(rw http.ResponseWriter, r *http.Request) (*player, string, bool) {
	name := field(r, "username")
	p, ok := s.players[name]
	if !ok || !p.online {
		fail(rw, http.StatusNotFound, "Joueur inconnu")
		return nil, "", false
	}
	return p, name, true
}

// debit takes one PA or writes the shortfall rejection. Callers hold s.mu.
func (s *Server) debit(rw http.ResponseWriter, p *player) bool {
	if p.pa <= 0 {
		fail(rw, http.StatusBadRequest, "PA insuffisants")
		return false
	}
	p.pa--
	return true
}

func (s *Server) heroOf(p *player) protocol.Hero {
	h := p.acct.Hero
	h.Inventory = append([]string{}, h.Inventory...)
	eq := make(map[string]string, len(h.Equipment))
	for k, v := range h.Equipment {
		eq[k] = v
	}
	h.Equipment = eq
	return h
}

func (s *Server) login(rw http.ResponseWriter, r *http.Request) {
	name := field(r, "username")
	s.mu.Lock()
	p, ok := s.players[name]
	if !ok || p.acct.Password != r.FormValue("password") {
		s.mu.Unlock()
		fail(rw, http.StatusUnauthorized, "Identifiants invalides")
		return
	}
	p.online = true
	p.presence = protocol.Presence{Status: "online"}
	guild := s.guildOf[name]
	resp := protocol.LoginResponse{
		Username:        name,
		ActionPoints:    p.pa,
		MaxActionPoints: s.maxPA,
		RechargePerHour: RechargePerHour,
		Hero:            s.heroOf(p),
		Profile:         p.acct.Profile,
		Guild:           guild,
		GuildChat:       append([]protocol.ChatMessage{}, s.guildChat[guild]...),
		GlobalChat:      append([]protocol.ChatMessage{}, s.globalChat...),
		DuelStats:       p.duel,
		DuelLeaderboard: s.leaderboardLocked(),
		PartyBoard:      s.boardLocked(),
		Events:          append([]protocol.CommunityEvent{}, s.events...),
		Social:          s.socialLocked(name),
		Presence:        p.presence,
		SessionToken:    p.acct.Token,
	}
	daily := s.dailyLocked(name)
	poll := s.pollLocked(name)
	commendations := s.commendationsLocked(name)
	moderation := s.moderationLocked(name)
	resp.Daily, resp.Poll, resp.Commendations, resp.Moderation = &daily, &poll, &commendations, &moderation
	for _, v := range s.world.StartingVillages {
		if v.Name == p.acct.Profile.StartingVillage {
			resp.StartPosition = &protocol.Position{X: v.X, Y: v.Y}
		}
	}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) spendAction(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, name, ok := s.online(rw, r)
	if !ok || !s.debit(rw, p) {
		s.mu.Unlock()
		return
	}
	resp := protocol.ActionResponse{Username: name, ActionPoints: p.pa, MaxActionPoints: s.maxPA}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

// adventure pays fixed rewards by tile kind.
func (s *Server) adventure(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, name, ok := s.online(rw, r)
	if !ok || !s.debit(rw, p) {
		s.mu.Unlock()
		return
	}
	kind := field(r, "tile_kind")
	out := protocol.AdventureOutcome{Summary: "Exploration calme", XPGain: 5, GoldGain: 2}
	switch kind {
	case "battlefield":
		out = protocol.AdventureOutcome{Summary: "Escarmouche", XPGain: 20, GoldGain: 10, HPDelta: -10}
	case "merchant":
		out = protocol.AdventureOutcome{Summary: "Marchandage", XPGain: 2, GoldGain: 15, ItemFound: "Potion de soin"}
	case "village", "starting_village":
		out = protocol.AdventureOutcome{Summary: "Repos au village", XPGain: 3, HPDelta: 10}
	}
	h := &p.acct.Hero
	h.XP += out.XPGain
	h.Gold += out.GoldGain
	h.HP = clampInt(h.HP+out.HPDelta, 0, h.MaxHP)
	if out.ItemFound != "" {
		h.Inventory = append(h.Inventory, out.ItemFound)
	}
	for h.XP >= 100 {
		h.XP -= 100
		h.Level++
		h.MaxHP += 10
		h.HP = h.MaxHP
		out.LevelUps++
	}
	s.progressLocked(name, progressExplore)
	resp := protocol.AdventureResponse{Username: name, ActionPoints: p.pa, MaxActionPoints: s.maxPA, Hero: s.heroOf(p), Outcome: out}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) equip(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, _, ok := s.online(rw, r)
	if !ok {
		return
	}
	item := field(r, "item_name")
	held := false
	for _, it := range p.acct.Hero.Inventory {
		held = held || it == item
	}
	if !held {
		fail(rw, http.StatusNotFound, "Objet absent de l'inventaire")
		return
	}
	var slot string
	for _, def := range s.items {
		if def.Name == item {
			slot = def.Slot
		}
	}
	if slot == "" || slot == "consumable" {
		fail(rw, http.StatusUnprocessableEntity, "Cet objet n'est pas équipable")
		return
	}
	if p.acct.Hero.Equipment == nil {
		p.acct.Hero.Equipment = map[string]string{}
	}
	p.acct.Hero.Equipment[slot] = item
	writeJSON(rw, http.StatusOK, protocol.EquipResponse{Hero: s.heroOf(p)})
}

func (s *Server) createGuild(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	guild := field(r, "guild_name")
	switch {
	case len([]rune(guild)) < 3:
		s.mu.Unlock()
		fail(rw, http.StatusUnprocessableEntity, "Le nom de guilde doit contenir au moins 3 caractères")
		return
	case s.guilds[guild] != nil:
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Cette guilde existe déjà")
		return
	case s.guildOf[name] != "":
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Quittez votre guilde actuelle avant d'en créer une")
		return
	}
	s.guilds[guild] = map[string]bool{name: true}
	s.guildOf[name] = guild
	s.guildChat[guild] = []protocol.ChatMessage{{Author: "Système", Message: fmt.Sprintf("%s a fondé la guilde %s.", name, guild), CreatedAt: s.stamp()}}
	s.pushEventLocked("guild", fmt.Sprintf("%s fonde la guilde %s.", name, guild), name)
	resp := protocol.GuildResponse{Guild: guild, MemberCount: 1, Chat: append([]protocol.ChatMessage{}, s.guildChat[guild]...)}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) joinGuild(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	guild := field(r, "guild_name")
	if s.guilds[guild] == nil {
		s.mu.Unlock()
		fail(rw, http.StatusNotFound, "Guilde introuvable")
		return
	}
	if s.guildOf[name] != "" {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Vous êtes déjà dans une guilde")
		return
	}
	s.guilds[guild][name] = true
	s.guildOf[name] = guild
	s.appendGuildChatLocked(guild, protocol.ChatMessage{Author: "Système", Message: name + " rejoint la guilde.", CreatedAt: s.stamp()})
	resp := protocol.GuildResponse{Guild: guild, MemberCount: len(s.guilds[guild]), Chat: append([]protocol.ChatMessage{}, s.guildChat[guild]...)}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) leaveGuild(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	guild := s.guildOf[name]
	if guild == "" {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Vous n'appartenez à aucune guilde")
		return
	}
	delete(s.guilds[guild], name)
	delete(s.guildOf, name)
	resp := protocol.GuildResponse{Chat: []protocol.ChatMessage{}}
	if len(s.guilds[guild]) == 0 {
		delete(s.guilds, guild)
		delete(s.guildChat, guild)
	} else {
		s.appendGuildChatLocked(guild, protocol.ChatMessage{Author: "Système", Message: name + " quitte la guilde.", CreatedAt: s.stamp()})
		resp.MemberCount = len(s.guilds[guild])
		resp.Chat = append(resp.Chat, s.guildChat[guild]...)
	}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) guildChatPost(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	guild := s.guildOf[name]
	if guild == "" {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Vous devez rejoindre une guilde")
		return
	}
	msg := field(r, "message")
	if len([]rune(msg)) < 2 {
		s.mu.Unlock()
		fail(rw, http.StatusUnprocessableEntity, "Message trop court")
		return
	}
	s.appendGuildChatLocked(guild, protocol.ChatMessage{Author: name, Message: msg, CreatedAt: s.stamp()})
	resp := protocol.GuildResponse{Guild: guild, Chat: append([]protocol.ChatMessage{}, s.guildChat[guild]...)}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) appendGuildChatLocked(guild string, m protocol.ChatMessage) {
	chat := append(s.guildChat[guild], m)
	if len(chat) > maxGuildChat {
		chat = chat[len(chat)-maxGuildChat:]
	}
	s.guildChat[guild] = chat
}

// raidAttack deals 10 + 2*level damage.
func (s *Server) raidAttack(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	guild := s.guildOf[name]
	if guild == "" {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Rejoignez une guilde pour attaquer le boss de raid")
		return
	}
	if !s.debit(rw, p) {
		s.mu.Unlock()
		return
	}
	s.progressLocked(name, progressCombat)
	dmg := 10 + 2*p.acct.Hero.Level
	s.raid.HP = clampInt(s.raid.HP-dmg, 0, s.raid.MaxHP)
	s.raidDamage[guild] += dmg
	resp := protocol.RaidAttackResponse{Damage: dmg, ActionPoints: p.pa}
	if s.raid.HP == 0 {
		resp.Defeated = true
		resp.DefeatedBoss = &protocol.BossRef{Name: s.raid.Name, Level: s.raid.Level}
		s.pushEventLocked("raid", fmt.Sprintf("%s et la guilde %s terrassent %s.", name, guild, s.raid.Name), name)
		s.raid.Level++
		s.raid.MaxHP += 150
		s.raid.HP = s.raid.MaxHP
		s.raid.LastResetAt = s.stamp()
		s.raidDamage = map[string]int{}
	}
	resp.Raid = s.raidLocked()
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

// contribute adds 8 + level points.
func (s *Server) contribute(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, name, ok := s.online(rw, r)
	if !ok || !s.debit(rw, p) {
		s.mu.Unlock()
		return
	}
	pts := 8 + p.acct.Hero.Level
	s.contract.Progress += pts
	s.contributions[name] += pts
	resp := protocol.ContributeResponse{ActionPoints: p.pa, Contribution: pts}
	if s.contract.Progress >= s.contract.Goal {
		resp.Completed = true
		resp.Reward = &protocol.ContractReward{Gold: 40 + 5*s.contract.Season, XP: 25 + 4*s.contract.Season, Contract: s.contract.Title}
		p.acct.Hero.Gold += resp.Reward.Gold
		p.acct.Hero.XP += resp.Reward.XP
		s.contract.Season++
		s.contract.Progress = 0
		s.contract.LastRotationAt = s.stamp()
		s.contributions = map[string]int{}
	}
	resp.Contract = s.contractLocked()
	resp.Hero = s.heroOf(p)
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

// duel: the higher level wins, ties go to the challenger.
func (s *Server) duel(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	opp := field(r, "opponent")
	o, found := s.players[opp]
	if !found || !o.online {
		s.mu.Unlock()
		fail(rw, http.StatusNotFound, "Les deux joueurs doivent être connectés")
		return
	}
	if opp == name {
		s.mu.Unlock()
		fail(rw, http.StatusUnprocessableEntity, "Impossible de se battre contre soi-même")
		return
	}
	if !s.debit(rw, p) {
		s.mu.Unlock()
		return
	}
	winner, loser, side := name, opp, "attacker"
	if o.acct.Hero.Level > p.acct.Hero.Level {
		winner, loser, side = opp, name, "defender"
	}
	s.players[winner].duel.Wins++
	s.players[loser].duel.Losses++
	s.pushEventLocked("duel", fmt.Sprintf("%s remporte un duel contre %s.", winner, loser), winner)
	s.progressLocked(name, progressCombat)
	resp := protocol.DuelResponse{
		ActionPoints:    p.pa,
		Summary:         fmt.Sprintf("%s vs %s: vainqueur %s.", name, opp, winner),
		Winner:          winner,
		Combat:          protocol.DuelCombat{Winner: side, Log: []string{}},
		DuelStats:       p.duel,
		DuelLeaderboard: s.leaderboardLocked(),
	}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) friendRequest(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	target := field(r, "target_username")
	if _, known := s.players[target]; !known {
		s.mu.Unlock()
		fail(rw, http.StatusNotFound, "Joueur cible introuvable")
		return
	}
	if s.friends[name][target] {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Ce joueur est déjà dans votre liste d'amis")
		return
	}
	if s.pending[target][name] {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Demande déjà envoyée")
		return
	}
	s.progressLocked(name, progressSocial)
	status := "sent"
	if s.pending[name][target] {
		delete(s.pending[name], target)
		link(s.friends, name, target)
		link(s.friends, target, name)
		status = "accepted"
	} else {
		link(s.pending, target, name)
	}
	resp := protocol.FriendResponse{Status: status, Social: s.socialLocked(name)}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) friendRespond(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	requester := field(r, "requester_username")
	action := strings.ToLower(field(r, "action"))
	if action != "accept" && action != "reject" {
		s.mu.Unlock()
		fail(rw, http.StatusUnprocessableEntity, "Action invalide")
		return
	}
	if !s.pending[name][requester] {
		s.mu.Unlock()
		fail(rw, http.StatusNotFound, "Demande introuvable")
		return
	}
	delete(s.pending[name], requester)
	if action == "accept" {
		link(s.friends, name, requester)
		link(s.friends, requester, name)
	}
	resp := protocol.FriendResponse{Status: action, Social: s.socialLocked(name)}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) friendRemove(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	target := field(r, "target_username")
	if !s.friends[name][target] {
		s.mu.Unlock()
		fail(rw, http.StatusNotFound, "Ce joueur ne fait pas partie de vos alliés")
		return
	}
	delete(s.friends[name], target)
	delete(s.friends[target], name)
	resp := protocol.FriendResponse{Social: s.socialLocked(name)}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) friendsGet(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, name, ok := s.online(rw, r); ok {
		writeJSON(rw, http.StatusOK, s.socialLocked(name))
	}
}

func (s *Server) boardPost(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	minLevel, _ := strconv.Atoi(field(r, "min_level"))
	maxMembers, _ := strconv.Atoi(field(r, "max_members"))
	activity, message := field(r, "activity"), field(r, "message")
	if len([]rune(activity)) < 3 || len([]rune(message)) < 6 || maxMembers < 2 || maxMembers > 8 {
		s.mu.Unlock()
		fail(rw, http.StatusUnprocessableEntity, "Annonce invalide")
		return
	}
	s.nextEntry++
	e := &boardEntry{
		PartyEntry: protocol.PartyEntry{
			ID:         s.nextEntry,
			Author:     name,
			Activity:   activity,
			Message:    message,
			Roles:      field(r, "roles"),
			MinLevel:   minLevel,
			MaxMembers: maxMembers,
			CreatedAt:  s.stamp(),
		},
		interested: map[string]bool{name: true},
		ready:      map[string]bool{name: true},
	}
	s.board = append([]*boardEntry{e}, s.board...)
	s.pushEventLocked("party", fmt.Sprintf("%s ouvre un groupe: %s.", name, activity), name)
	resp := protocol.BoardResponse{Entries: s.boardLocked()}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) boardWithdraw(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	kept := s.board[:0:0]
	for _, e := range s.board {
		if e.Author != name {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(s.board) {
		s.mu.Unlock()
		fail(rw, http.StatusNotFound, "Aucune annonce à supprimer")
		return
	}
	s.board = kept
	resp := protocol.BoardResponse{Entries: s.boardLocked()}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) entryLocked(rw http.ResponseWriter, r *http.Request) *boardEntry {
	id, _ := strconv.Atoi(field(r, "entry_id"))
	for _, e := range s.board {
		if e.ID == id {
			return e
		}
	}
	fail(rw, http.StatusNotFound, "Annonce introuvable")
	return nil
}

func (s *Server) boardInterest(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	e := s.entryLocked(rw, r)
	if e == nil {
		s.mu.Unlock()
		return
	}
	action := "added"
	switch {
	case e.interested[name]:
		delete(e.interested, name)
		delete(e.ready, name)
		action = "removed"
	case e.IsLaunched:
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Ce groupe est déjà verrouillé et lancé")
		return
	case len(e.interested) >= e.MaxMembers:
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Ce groupe est déjà complet")
		return
	default:
		e.interested[name] = true
	}
	resp := protocol.BoardResponse{Action: action, Entries: s.boardLocked()}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) boardReady(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	e := s.entryLocked(rw, r)
	if e == nil {
		s.mu.Unlock()
		return
	}
	if e.IsLaunched || !e.interested[name] {
		s.mu.Unlock()
		fail(rw, http.StatusConflict, "Rejoignez d'abord ce groupe pour vous déclarer prêt")
		return
	}
	action := "ready"
	if e.ready[name] {
		delete(e.ready, name)
		action = "unready"
	} else {
		e.ready[name] = true
	}
	resp := protocol.BoardResponse{Action: action, Entries: s.boardLocked()}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) boardLaunch(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	e := s.entryLocked(rw, r)
	if e == nil {
		s.mu.Unlock()
		return
	}
	if e.Author != name {
		s.mu.Unlock()
		fail(rw, http.StatusForbidden, "Seul le leader peut lancer ce groupe")
		return
	}
	if len(e.interested) < 2 {
		s.mu.Unlock()
		fail(rw, http.StatusUnprocessableEntity, "Il faut au moins 2 joueurs pour lancer un groupe")
		return
	}
	var missing []string
	for _, u := range sortedKeys(e.interested) {
		if !e.ready[u] {
			missing = append(missing, u)
		}
	}
	if len(missing) > 0 {
		s.mu.Unlock()
		writeJSON(rw, http.StatusConflict, protocol.ErrorBody{Error: "Tous les joueurs doivent être prêts avant le lancement", MissingReady: missing})
		return
	}
	e.IsLaunched = true
	e.LaunchedAt = s.stamp()
	resp := protocol.BoardResponse{Entries: s.boardLocked()}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) globalChatPost(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	msg := field(r, "message")
	if n := len([]rune(msg)); n < 2 || n > 180 {
		s.mu.Unlock()
		fail(rw, http.StatusUnprocessableEntity, "Message invalide")
		return
	}
	if until, muted := s.mutedLocked(name); muted {
		s.mu.Unlock()
		writeJSON(rw, http.StatusForbidden, protocol.ErrorBody{Error: "Vous êtes réduit au silence", MutedUntil: until.Format(time.RFC3339)})
		return
	}
	s.appendGlobalChatLocked(protocol.ChatMessage{Author: name, Message: msg, CreatedAt: s.stamp()})
	s.progressLocked(name, progressSocial)
	resp := protocol.ChatResponse{Chat: append([]protocol.ChatMessage{}, s.globalChat...)}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) appendGlobalChatLocked(m protocol.ChatMessage) {
	s.globalChat = append(s.globalChat, m)
	if len(s.globalChat) > maxGlobalChat {
		s.globalChat = s.globalChat[len(s.globalChat)-maxGlobalChat:]
	}
}

func (s *Server) presence(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, name, ok := s.online(rw, r)
	if !ok {
		s.mu.Unlock()
		return
	}
	p.presence = protocol.Presence{Status: strings.ToLower(field(r, "status")), Note: field(r, "note")}
	resp := protocol.PresenceResponse{Username: name, Presence: p.presence, Social: s.socialLocked(name)}
	s.mu.Unlock()
	s.Broadcast()
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) worldGet(rw http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(rw, http.StatusOK, s.world)
}

func (s *Server) guildsGet(rw http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(rw, http.StatusOK, protocol.GuildListResponse{Guilds: s.guildRankingLocked()})
}

func (s *Server) raidGet(rw http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(rw, http.StatusOK, s.raidLocked())
}

func (s *Server) contractGet(rw http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(rw, http.StatusOK, s.contractLocked())
}

func (s *Server) optionsGet(rw http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(rw, http.StatusOK, protocol.Options{
		Character:        map[string][]string{"hair": {"court", "long"}},
		StartingVillages: append([]protocol.Point{}, s.world.StartingVillages...),
		Items:            append([]protocol.ItemDef{}, s.items...),
	})
}

func (s *Server) leaderboardGet(rw http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(rw, http.StatusOK, protocol.LeaderboardResponse{Leaderboard: s.leaderboardLocked()})
}

func (s *Server) eventsGet(rw http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(rw, http.StatusOK, protocol.EventsResponse{Events: append([]protocol.CommunityEvent{}, s.events...)})
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
