package quickbattle

import (
	"testing"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

type fixedRNG struct {
	roll float64
	pick int
}

func (r fixedRNG) Float64() float64 { return r.roll }
func (r fixedRNG) Intn(n int) int   { return r.pick % n }

func hero(xp, hp int) session.Hero {
	return session.Hero{
		Hero: protocol.Hero{Level: 2, XP: xp, Gold: 10, HP: hp, MaxHP: 100, Inventory: []string{"Épée courte"}},
		X:    1, Y: 1, Location: "Village",
	}
}

func TestResolve(t *testing.T) {
	battlefields := protocol.World{
		Width: 10, Height: 10,
		Battlefields: []protocol.Point{{Name: "Plaine rouge", X: 3, Y: 4}, {Name: "Gouffre", X: 7, Y: 8}},
	}
	cases := []struct {
		name      string
		in        session.Hero
		world     protocol.World
		rng       fixedRNG
		wantWin   bool
		wantXP    int
		wantGold  int
		wantHP    int
		wantLevel int
		wantMax   int
		wantX     int
		wantLoc   string
	}{
		{"win", hero(10, 50), protocol.World{}, fixedRNG{roll: 0.9}, true, 40, 35, 42, 2, 100, 1, "Village"},
		{"loss", hero(10, 50), protocol.World{}, fixedRNG{roll: 0.2}, false, 22, 16, 32, 2, 100, 1, "Village"},
		{"threshold is a loss", hero(10, 50), protocol.World{}, fixedRNG{roll: 0.45}, false, 22, 16, 32, 2, 100, 1, "Village"},
		{"hp floored at zero", hero(10, 5), protocol.World{}, fixedRNG{roll: 0.1}, false, 22, 16, 0, 2, 100, 1, "Village"},
		{"level up restores hp", hero(80, 20), protocol.World{}, fixedRNG{roll: 0.99}, true, 10, 35, 115, 3, 115, 1, "Village"},
		{"relocates to battlefield", hero(0, 50), battlefields, fixedRNG{roll: 0.9, pick: 1}, true, 30, 35, 42, 2, 100, 7, "Gouffre"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.in.Clone()
			h, o := Resolve(tc.in, tc.world, tc.rng)
			if o.Win != tc.wantWin {
				t.Fatalf("win = %v", o.Win)
			}
			if h.XP != tc.wantXP || h.Gold != tc.wantGold || h.HP != tc.wantHP {
				t.Fatalf("xp/gold/hp = %d/%d/%d, want %d/%d/%d", h.XP, h.Gold, h.HP, tc.wantXP, tc.wantGold, tc.wantHP)
			}
			if h.Level != tc.wantLevel || h.MaxHP != tc.wantMax {
				t.Fatalf("level/max = %d/%d", h.Level, h.MaxHP)
			}
			if h.X != tc.wantX || h.Location != tc.wantLoc {
				t.Fatalf("position = %d,%d %q", h.X, h.Y, h.Location)
			}
			if tc.in.XP != before.XP || len(tc.in.Inventory) != len(before.Inventory) {
				t.Fatalf("Resolve modified its input")
			}
		})
	}
}

func TestResolve_LevelUpGrantsRune(t *testing.T) {
	h, o := Resolve(hero(95, 50), protocol.World{}, fixedRNG{roll: 0.1})
	if o.LevelUps != 1 {
		t.Fatalf("level ups = %d", o.LevelUps)
	}
	if last := h.Inventory[len(h.Inventory)-1]; last != LevelUpBonus {
		t.Fatalf("inventory = %v", h.Inventory)
	}
}

func TestRun_NeverTouchesPA(t *testing.T) {
	sess, err := session.New(protocol.LoginResponse{
		Username:        "Arin",
		ActionPoints:    7,
		MaxActionPoints: 20,
		Hero:            protocol.Hero{Level: 1, HP: 100, MaxHP: 100},
	}, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	var slices []session.Slice
	sess2, _ := session.New(protocol.LoginResponse{Username: "Arin", ActionPoints: 7, MaxActionPoints: 20}, session.ObserverFunc(
		func(_ string, s session.Slice, _ session.Origin, _ any) { slices = append(slices, s) }))

	h, _ := Run(sess, protocol.World{}, fixedRNG{roll: 0.9})
	if cur, _ := sess.ActionPoints(); cur != 7 {
		t.Fatalf("PA changed to %d", cur)
	}
	if got := sess.Hero(); got.XP != h.XP || got.Gold != 25 || got.HP != 92 {
		t.Fatalf("hero = %+v", got)
	}

	Run(sess2, protocol.World{}, fixedRNG{roll: 0.9})
	if len(slices) != 2 || slices[1] != session.SliceHero {
		t.Fatalf("writes = %v", slices)
	}
}

func TestSummary(t *testing.T) {
	h := hero(0, 42)
	if got := (Outcome{Win: true, XPGain: 30, GoldGain: 25}).Summary(h); got != "Victoire ! +30 XP, +25 or. 42/100 PV." {
		t.Fatalf("summary = %q", got)
	}
}
