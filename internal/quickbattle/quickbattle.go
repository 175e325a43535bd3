// Package quickbattle is the client-only battle minigame. It changes the
// display-local hero and nothing else: no request is sent and the PA figure
// is never written. Callers debit one PA before running it.
package quickbattle

import (
	"fmt"
	"math/rand"
	"time"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

const (
	// A roll strictly above LossThreshold wins, so the win chance is 55%.
	LossThreshold = 0.45

	WinXP    = 30
	WinGold  = 25
	WinHPCut = 8

	LossXP    = 12
	LossGold  = 6
	LossHPCut = 18

	LevelXP      = 100
	LevelMaxHP   = 15
	LevelUpBonus = "Rune ancienne"
)

// RNG is the random source. *rand.Rand satisfies it.
type RNG interface {
	Float64() float64
	Intn(n int) int
}

// NewRNG returns a time-seeded source for interactive play.
func NewRNG() RNG {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

type Outcome struct {
	Win      bool
	XPGain   int
	GoldGain int
	HPLoss   int
	LevelUps int
	// Zone is the battlefield the hero was moved to, if the world has any.
	Zone *protocol.Point
}

func (o Outcome) Summary(h session.Hero) string {
	var s string
	if o.Win {
		s = fmt.Sprintf("Victoire ! +%d XP, +%d or.", o.XPGain, o.GoldGain)
	} else {
		s = fmt.Sprintf("Défaite courageuse. +%d XP, +%d or.", o.XPGain, o.GoldGain)
	}
	return fmt.Sprintf("%s %d/%d PV.", s, h.HP, h.MaxHP)
}

// Resolve computes one battle from h. It does not modify h.
func Resolve(h session.Hero, w protocol.World, rng RNG) (session.Hero, Outcome) {
	h = h.Clone()
	o := Outcome{Win: rng.Float64() > LossThreshold}
	if o.Win {
		o.XPGain, o.GoldGain, o.HPLoss = WinXP, WinGold, WinHPCut
	} else {
		o.XPGain, o.GoldGain, o.HPLoss = LossXP, LossGold, LossHPCut
	}

	h.XP += o.XPGain
	h.Gold += o.GoldGain
	h.HP -= o.HPLoss
	if h.HP < 0 {
		h.HP = 0
	}

	for h.XP >= LevelXP {
		h.Level++
		h.XP -= LevelXP
		h.MaxHP += LevelMaxHP
		h.HP = h.MaxHP
		h.Inventory = append(h.Inventory, LevelUpBonus)
		o.LevelUps++
	}

	if n := len(w.Battlefields); n > 0 {
		zone := w.Battlefields[rng.Intn(n)]
		h.X, h.Y, h.Location = zone.X, zone.Y, zone.Name
		o.Zone = &zone
	}
	return h, o
}

// Run resolves a battle for the session's hero and stores the result as a
// local write.
func Run(sess *session.Session, w protocol.World, rng RNG) (session.Hero, Outcome) {
	h, o := Resolve(sess.Hero(), w, rng)
	sess.ApplyLocalHero(h)
	return h, o
}
