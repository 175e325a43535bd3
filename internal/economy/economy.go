// Package economy gates every action-point consuming intent and owns the
// rule for what PA figure the player is shown.
package economy

import (
	"context"
	"errors"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

// ErrNoActionPoints is returned when the cached PA already shows zero; no
// debit request is sent in that case.
var ErrNoActionPoints = errors.New("no action points left")

// ErrSignedOut is returned for intents against a closed or missing session.
var ErrSignedOut = errors.New("not signed in")

// Spender performs the single-PA debit round trip. On success it has already
// stored the new authoritative PA in the session.
type Spender interface {
	SpendAction(ctx context.Context, sess *session.Session) (protocol.ActionResponse, error)
}

// Displayed clamps an authoritative PA value into [0, max].
func Displayed(v, max int) int {
	if max < 0 {
		max = 0
	}
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// CanAct reports whether PA-consuming actions are enabled.
func CanAct(identity string, displayed int) bool {
	return identity != "" && displayed > 0
}

// Status is the PA bar as the player sees it.
type Status struct {
	Current         int
	Max             int
	RechargePerHour int
	Enabled         bool
}

func StatusOf(st session.State) Status {
	cur := Displayed(st.ActionPoints, st.MaxActionPoints)
	return Status{
		Current:         cur,
		Max:             st.MaxActionPoints,
		RechargePerHour: st.RechargePerHour,
		Enabled:         st.Active && CanAct(st.Identity, cur),
	}
}

// Grant proves a debit succeeded. It is the only way to obtain the right to
// apply a paid effect such as a move.
type Grant struct {
	Identity     string
	ActionPoints int
}

type Economy struct {
	spender Spender
}

func New(spender Spender) *Economy {
	return &Economy{spender: spender}
}

// Authorize debits one PA. On any failure the caller must abort without side
// effects; the session is left as it was.
func (e *Economy) Authorize(ctx context.Context, sess *session.Session) (Grant, error) {
	if err := Precheck(sess); err != nil {
		return Grant{}, err
	}
	resp, err := e.spender.SpendAction(ctx, sess)
	if err != nil {
		return Grant{}, err
	}
	return Grant{Identity: sess.Identity(), ActionPoints: resp.ActionPoints}, nil
}

// Precheck rejects intents that cannot succeed from the cached state alone.
// Endpoints that debit on their own (explore, raid, contract, duel) run it
// before sending.
func Precheck(sess *session.Session) error {
	if sess == nil || !sess.Active() {
		return ErrSignedOut
	}
	cur, max := sess.ActionPoints()
	if !CanAct(sess.Identity(), Displayed(cur, max)) {
		return ErrNoActionPoints
	}
	return nil
}
