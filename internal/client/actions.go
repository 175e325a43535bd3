package client

import (
	"context"
	"strconv"

	"aetheria.game/internal/economy"
	"aetheria.game/internal/gateway"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/quickbattle"
	"aetheria.game/internal/session"
	"aetheria.game/internal/world"
)

// Spend debits one PA with no other effect.
func (c *Client) Spend(ctx context.Context) error {
	sess, err := c.active()
	if err != nil {
		return err
	}
	g, err := c.econ.Authorize(ctx, sess)
	if err != nil {
		return c.fail(sess, "spend", err)
	}
	c.activity(sess, "Spent 1 PA, %d left", g.ActionPoints)
	return nil
}

// Move walks one tile in direction d. The destination must be an offered
// move; the PA is debited before the position changes and the destination
// itself is never sent to the authority.
func (c *Client) Move(ctx context.Context, d world.Direction) (world.Move, error) {
	sess, err := c.active()
	if err != nil {
		return world.Move{}, err
	}
	ix := c.mirror.Index()
	if ix == nil {
		return world.Move{}, c.fail(sess, "move", ErrNoWorld)
	}
	h := sess.Hero()
	mv, ok := ix.MoveFor(h.X, h.Y, d)
	if !ok {
		return world.Move{}, c.fail(sess, "move", &gateway.ValidationError{Op: "move", Field: "direction", Reason: "no road that way"})
	}
	g, err := c.econ.Authorize(ctx, sess)
	if err != nil {
		return world.Move{}, c.fail(sess, "move", err)
	}
	tile := c.applyMove(sess, g, mv, ix)
	sess.SetStatus(tile.Name + ": " + world.Describe(tile.Kind))
	c.activity(sess, "Moved to %s (%d,%d)", tile.Name, mv.X, mv.Y)
	return mv, nil
}

// applyMove is the second phase of a move. It needs a grant, which only a
// successful debit produces.
func (c *Client) applyMove(sess *session.Session, _ economy.Grant, mv world.Move, ix *world.Index) world.Tile {
	tile := ix.Lookup(mv.X, mv.Y)
	sess.SetPosition(mv.X, mv.Y, tile.Name, session.Local())
	return tile
}

// Explore resolves an adventure on the hero's current tile kind.
func (c *Client) Explore(ctx context.Context) (protocol.AdventureResponse, error) {
	sess, err := c.active()
	if err != nil {
		return protocol.AdventureResponse{}, err
	}
	h := sess.Hero()
	kind := c.mirror.Index().Lookup(h.X, h.Y).Kind
	resp, err := c.gw.Explore(ctx, sess, string(kind))
	if err != nil {
		return resp, c.fail(sess, "explore", err)
	}
	msg := formatAdventure(resp.Outcome)
	sess.SetStatus(msg)
	c.activity(sess, "%s", msg)
	return resp, nil
}

// QuickBattle debits one PA, then runs the local battle. Nothing about the
// battle reaches the authority.
func (c *Client) QuickBattle(ctx context.Context) (quickbattle.Outcome, error) {
	sess, err := c.active()
	if err != nil {
		return quickbattle.Outcome{}, err
	}
	if _, err := c.econ.Authorize(ctx, sess); err != nil {
		return quickbattle.Outcome{}, c.fail(sess, "battle", err)
	}
	w, _ := c.mirror.World()
	h, o := quickbattle.Run(sess, w, c.rng)
	summary := o.Summary(h)
	sess.SetStatus(summary)
	if o.LevelUps > 0 {
		c.activity(sess, "Level up! %s added to the bag.", quickbattle.LevelUpBonus)
	}
	c.activity(sess, "%s", summary)
	return o, nil
}

func (c *Client) AttackRaid(ctx context.Context) (protocol.RaidAttackResponse, error) {
	sess, err := c.active()
	if err != nil {
		return protocol.RaidAttackResponse{}, err
	}
	resp, err := c.gw.AttackRaid(ctx, sess)
	if err != nil {
		return resp, c.fail(sess, "raid", err)
	}
	if resp.Defeated && resp.DefeatedBoss != nil {
		c.activity(sess, "%d damage. %s (lvl %d) is down!", resp.Damage, resp.DefeatedBoss.Name, resp.DefeatedBoss.Level)
	} else {
		c.activity(sess, "%d damage to %s", resp.Damage, resp.Raid.Name)
	}
	sess.SetStatus("Raid attack landed.")
	return resp, nil
}

func (c *Client) Contribute(ctx context.Context) (protocol.ContributeResponse, error) {
	sess, err := c.active()
	if err != nil {
		return protocol.ContributeResponse{}, err
	}
	resp, err := c.gw.Contribute(ctx, sess)
	if err != nil {
		return resp, c.fail(sess, "contract", err)
	}
	c.activity(sess, "Contributed %d to %s", resp.Contribution, resp.Contract.Title)
	if resp.Completed && resp.Reward != nil {
		c.activity(sess, "Contract %s complete: +%d gold, +%d XP", resp.Reward.Contract, resp.Reward.Gold, resp.Reward.XP)
	}
	sess.SetStatus("Contribution recorded.")
	return resp, nil
}

func (c *Client) Duel(ctx context.Context, opponent string) (protocol.DuelResponse, error) {
	sess, err := c.active()
	if err != nil {
		return protocol.DuelResponse{}, err
	}
	resp, err := c.gw.Duel(ctx, sess, opponent)
	if err != nil {
		return resp, c.fail(sess, "duel", err)
	}
	sess.SetStatus(resp.Summary)
	c.activity(sess, "Duel vs %s: %s wins", opponent, resp.Winner)
	return resp, nil
}

func (c *Client) Equip(ctx context.Context, item string) error {
	sess, err := c.active()
	if err != nil {
		return err
	}
	if _, err := c.gw.Equip(ctx, sess, item); err != nil {
		return c.fail(sess, "equip", err)
	}
	c.activity(sess, "Equipped %s", item)
	return nil
}

func formatAdventure(o protocol.AdventureOutcome) string {
	msg := o.Summary
	if msg == "" {
		msg = "Exploration"
	}
	msg += ": " + signed(o.XPGain) + " XP, " + signed(o.GoldGain) + " gold, HP " + signed(o.HPDelta) + "."
	if o.ItemFound != "" {
		msg += " Found " + o.ItemFound + "."
	}
	if o.LevelUps > 0 {
		msg += " Level up!"
	}
	return msg
}

func signed(n int) string {
	if n >= 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
