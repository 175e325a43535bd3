package view

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"aetheria.game/internal/world"
)

var glyphs = map[world.TileKind]byte{
	world.KindPlain:           '.',
	world.KindStartingVillage: 'S',
	world.KindVillage:         'V',
	world.KindBattlefield:     'X',
	world.KindMerchant:        '$',
	world.KindVoid:            ' ',
}

// MapLines draws the local map with the hero as '@' at the centre.
func (v View) MapLines() []string {
	out := make([]string, 0, len(v.Map))
	for row, cells := range v.Map {
		var b strings.Builder
		for col, k := range cells {
			if row == MapRadius && col == MapRadius {
				b.WriteByte('@')
				continue
			}
			g, ok := glyphs[k]
			if !ok {
				g = '?'
			}
			b.WriteByte(g)
		}
		out = append(out, b.String())
	}
	return out
}

// Render writes a plain-text screen.
func (v View) Render(w io.Writer) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) { fmt.Fprintf(bw, format+"\n", args...) }

	if !v.SignedIn {
		p("Not signed in.")
		if v.Status != "" {
			p("%s", v.Status)
		}
		return bw.Flush()
	}

	p("== %s  %s  (+%d/h)", v.Identity, v.PABar, v.PA.RechargePerHour)
	h := v.Hero
	p("Lvl %d  XP %d/100  Gold %s  HP %d/%d  ATK %d DEF %d VIT %d INT %d",
		h.Level, h.XP, h.Gold, h.HP, h.MaxHP, h.Stats.Atk, h.Stats.Def, h.Stats.Vit, h.Stats.Int)
	p("At (%d,%d) %s: %s", h.X, h.Y, v.Tile.Name, v.TileText)
	if len(v.Context) > 0 {
		p("Here: %s", strings.Join(v.Context, " | "))
	}
	if len(v.Moves) > 0 {
		labels := make([]string, 0, len(v.Moves))
		for _, m := range v.Moves {
			labels = append(labels, fmt.Sprintf("%s (%d,%d)", m.Dir, m.X, m.Y))
		}
		p("Moves: %s", strings.Join(labels, ", "))
	}
	for _, line := range v.MapLines() {
		p("  %s", line)
	}
	if len(h.Inventory) > 0 {
		p("Bag: %s", strings.Join(h.Inventory, ", "))
	}
	p("Gear: %s", strings.Join(h.Equipment, ", "))
	for _, q := range v.Quests {
		p("Quest: %s", q)
	}

	if len(v.Players) > 0 {
		p("-- Online")
		for _, pl := range v.Players {
			mark := ""
			if pl.Self {
				mark = " (you)"
			}
			p("  %s%s  %d PA  %s %s", pl.Name, mark, pl.ActionPoints, pl.Status, pl.Note)
		}
	}
	if v.Guild != "" {
		p("-- Guild %s", v.Guild)
		for _, c := range v.GuildChat {
			p("  <%s> %s  %s", c.Author, c.Message, c.Ago)
		}
	}
	if len(v.GuildRanking) > 0 {
		p("-- Guilds")
		for i, g := range v.GuildRanking {
			p("  %d. %s (%d)", i+1, g.Name, g.MemberCount)
		}
	}
	if r := v.Raid; r != nil {
		p("-- Raid: %s lvl %d  %s HP (%d%%)", r.Name, r.Level, r.HP, r.Percent)
		for i, rk := range r.Ranking {
			p("  %d. %s %d", i+1, rk.Guild, rk.Damage)
		}
	}
	if c := v.Contract; c != nil {
		p("-- Contract S%d: %s  %d/%d (%d%%)", c.Season, c.Title, c.Progress, c.Goal, c.Percent)
		for _, ct := range c.Contributors {
			p("  %s %d", ct.Username, ct.Points)
		}
	}
	d := v.Duel
	p("-- Duels %dW/%dL (%d%%) rank %d", d.Wins, d.Losses, d.WinRate, d.Rank)
	if len(v.Friends) > 0 || len(v.Incoming) > 0 || len(v.Outgoing) > 0 {
		p("-- Friends")
		for _, f := range v.Friends {
			state := "offline"
			if f.Online {
				state = f.Status
			}
			p("  %s [%s] %s", f.Name, state, f.Note)
		}
		if len(v.Incoming) > 0 {
			p("  requests from: %s", strings.Join(v.Incoming, ", "))
		}
		if len(v.Outgoing) > 0 {
			p("  waiting on: %s", strings.Join(v.Outgoing, ", "))
		}
	}
	if len(v.Board) > 0 {
		p("-- Party board")
		for _, e := range v.Board {
			flags := ""
			if e.Launched {
				flags += " launched"
			} else if e.Full {
				flags += " full"
			}
			if e.Interested {
				flags += " joined"
			}
			if e.Ready {
				flags += " ready"
			}
			p("  #%d %s: %s (%s, %s, %s)%s  %s", e.ID, e.Author, e.Activity, e.Roles, e.Levels, e.Members, flags, e.Ago)
		}
	}
	if d := v.Daily; d != nil {
		state := ""
		if d.Claimed {
			state = " claimed"
		} else if d.Claimable {
			state = " ready to claim"
		}
		p("-- Daily %s: explore %s, social %s, combat %s%s", d.Date, d.Explore, d.Social, d.Combat, state)
	}
	if pl := v.Poll; pl != nil {
		p("-- Poll S%d: %s (%s votes)", pl.Season, pl.Question, pl.Votes)
		for _, o := range pl.Options {
			mark := ""
			if o.Mine {
				mark = " *"
			}
			p("  [%d] %s %d (%s)%s", o.ID, o.Label, o.Votes, o.Percent, mark)
		}
	}
	if c := v.Commend; c != nil {
		p("-- Commendations %d/%d left, %d received", c.Remaining, c.Limit, c.Received)
		for i, r := range c.Leaderboard {
			p("  %d. %s %d", i+1, r.Username, r.Received)
		}
	}
	if v.Muted != "" {
		p("-- Muted, ends %s", v.Muted)
	}
	if len(v.GlobalChat) > 0 {
		p("-- Chat")
		for _, c := range v.GlobalChat {
			p("  <%s> %s  %s", c.Author, c.Message, c.Ago)
		}
	}
	if len(v.Events) > 0 {
		p("-- Events")
		for _, e := range v.Events {
			p("  [%s] %s  %s", e.Category, e.Message, e.Ago)
		}
	}
	if v.Status != "" {
		p("> %s", v.Status)
	}
	for _, a := range v.Activity {
		p("  %s", a)
	}
	return bw.Flush()
}
