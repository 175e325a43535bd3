package gateway

import (
	"context"
	"net/url"
	"strings"

	"aetheria.game/internal/economy"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

// Login authenticates and returns the bundle that seeds a new session.
func (c *Client) Login(ctx context.Context, username, password string) (protocol.LoginResponse, error) {
	const op = "login"
	username = strings.TrimSpace(username)
	if username == "" {
		return protocol.LoginResponse{}, &ValidationError{Op: op, Field: "username", Reason: "required"}
	}
	if password == "" {
		return protocol.LoginResponse{}, &ValidationError{Op: op, Field: "password", Reason: "required"}
	}
	var resp protocol.LoginResponse
	_, err := c.send(ctx, nil, post(op, "/api/login", url.Values{
		"username": {username},
		"password": {password},
	}), &resp)
	return resp, err
}

// SpendAction debits a single PA.
func (c *Client) SpendAction(ctx context.Context, sess *session.Session) (protocol.ActionResponse, error) {
	if err := requireSession(sess); err != nil {
		return protocol.ActionResponse{}, err
	}
	var resp protocol.ActionResponse
	o, err := c.send(ctx, sess, post("action", "/api/action", identityForm(sess)), &resp)
	if err != nil {
		return resp, err
	}
	sess.SetActionPoints(resp.ActionPoints, resp.MaxActionPoints, o)
	return resp, nil
}

// Explore resolves an adventure on a tile kind; the authority debits the PA.
func (c *Client) Explore(ctx context.Context, sess *session.Session, tileKind string) (protocol.AdventureResponse, error) {
	if err := economy.Precheck(sess); err != nil {
		return protocol.AdventureResponse{}, err
	}
	if tileKind == "" {
		tileKind = "plain"
	}
	form := identityForm(sess)
	form.Set("tile_kind", tileKind)
	var resp protocol.AdventureResponse
	o, err := c.send(ctx, sess, post("explore", "/api/adventure", form), &resp)
	if err != nil {
		return resp, err
	}
	sess.SetActionPoints(resp.ActionPoints, resp.MaxActionPoints, o)
	sess.ReplaceHero(resp.Hero, o)
	return resp, nil
}

// Equip moves an inventory item into its slot. When the catalog is known,
// consumables and unknown items are refused locally.
func (c *Client) Equip(ctx context.Context, sess *session.Session, item string) (protocol.EquipResponse, error) {
	const op = "equip"
	if err := requireSession(sess); err != nil {
		return protocol.EquipResponse{}, err
	}
	item = strings.TrimSpace(item)
	if item == "" {
		return protocol.EquipResponse{}, &ValidationError{Op: op, Field: "item_name", Reason: "required"}
	}
	if !holds(sess.Hero().Inventory, item) {
		return protocol.EquipResponse{}, &ValidationError{Op: op, Field: "item_name", Reason: "not in inventory"}
	}
	if cat := sess.Catalog(); cat != nil {
		def, ok := lookupItem(cat.Items, item)
		if !ok || def.Slot == consumableSlot {
			return protocol.EquipResponse{}, &ValidationError{Op: op, Field: "item_name", Reason: "not equippable"}
		}
	}

	form := identityForm(sess)
	form.Set("item_name", item)
	var resp protocol.EquipResponse
	o, err := c.send(ctx, sess, post(op, "/api/equipment/equip", form), &resp)
	if err != nil {
		return resp, err
	}
	sess.ReplaceHero(resp.Hero, o)
	return resp, nil
}

// AttackRaid strikes the world boss for the player's guild.
func (c *Client) AttackRaid(ctx context.Context, sess *session.Session) (protocol.RaidAttackResponse, error) {
	if err := economy.Precheck(sess); err != nil {
		return protocol.RaidAttackResponse{}, err
	}
	var resp protocol.RaidAttackResponse
	o, err := c.send(ctx, sess, post("raid_attack", "/api/raids/attack", identityForm(sess)), &resp)
	if err != nil {
		return resp, err
	}
	sess.SetActionPoints(resp.ActionPoints, 0, o)
	sess.ReplaceRaid(resp.Raid, o)
	return resp, nil
}

// Contribute adds the player's share to the seasonal contract.
func (c *Client) Contribute(ctx context.Context, sess *session.Session) (protocol.ContributeResponse, error) {
	if err := economy.Precheck(sess); err != nil {
		return protocol.ContributeResponse{}, err
	}
	var resp protocol.ContributeResponse
	o, err := c.send(ctx, sess, post("contract_contribute", "/api/contracts/contribute", identityForm(sess)), &resp)
	if err != nil {
		return resp, err
	}
	sess.SetActionPoints(resp.ActionPoints, 0, o)
	sess.ReplaceHero(resp.Hero, o)
	sess.ReplaceContract(resp.Contract, o)
	return resp, nil
}

func holds(inventory []string, item string) bool {
	for _, v := range inventory {
		if v == item {
			return true
		}
	}
	return false
}

func lookupItem(items []protocol.ItemDef, name string) (protocol.ItemDef, bool) {
	for _, it := range items {
		if it.Name == name {
			return it, true
		}
	}
	return protocol.ItemDef{}, false
}
