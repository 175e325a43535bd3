package gateway

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"aetheria.game/internal/economy"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

// Duel challenges a connected player. The opponent must appear in the latest
// presence list.
func (c *Client) Duel(ctx context.Context, sess *session.Session, opponent string) (protocol.DuelResponse, error) {
	const op = "duel"
	if err := economy.Precheck(sess); err != nil {
		return protocol.DuelResponse{}, err
	}
	opponent, err := otherPlayer(op, "opponent", opponent, sess.Identity())
	if err != nil {
		return protocol.DuelResponse{}, err
	}
	if _, online := sess.Players()[opponent]; !online {
		return protocol.DuelResponse{}, &ValidationError{Op: op, Field: "opponent", Reason: "not connected"}
	}

	form := identityForm(sess)
	form.Set("opponent", opponent)
	var resp protocol.DuelResponse
	o, err := c.send(ctx, sess, post(op, "/api/combat/duel", form), &resp)
	if err != nil {
		return resp, err
	}
	sess.SetActionPoints(resp.ActionPoints, 0, o)
	sess.ReplaceDuelStats(resp.DuelStats, o)
	sess.ReplaceLeaderboard(resp.DuelLeaderboard, o)
	if resp.Social != nil {
		sess.ReplaceSocial(*resp.Social, o)
	}
	return resp, nil
}

func (c *Client) RequestFriend(ctx context.Context, sess *session.Session, target string) (protocol.FriendResponse, error) {
	const op = "friend_request"
	if err := requireSession(sess); err != nil {
		return protocol.FriendResponse{}, err
	}
	target, err := otherPlayer(op, "target_username", target, sess.Identity())
	if err != nil {
		return protocol.FriendResponse{}, err
	}
	form := identityForm(sess)
	form.Set("target_username", target)
	return c.friendCall(ctx, sess, post(op, "/api/friends/request", form))
}

// RespondFriend accepts or rejects a pending request.
func (c *Client) RespondFriend(ctx context.Context, sess *session.Session, requester, action string) (protocol.FriendResponse, error) {
	const op = "friend_respond"
	if err := requireSession(sess); err != nil {
		return protocol.FriendResponse{}, err
	}
	requester, err := otherPlayer(op, "requester_username", requester, sess.Identity())
	if err != nil {
		return protocol.FriendResponse{}, err
	}
	action = strings.ToLower(strings.TrimSpace(action))
	if action != "accept" && action != "reject" {
		return protocol.FriendResponse{}, &ValidationError{Op: op, Field: "action", Reason: "must be accept or reject"}
	}
	form := identityForm(sess)
	form.Set("requester_username", requester)
	form.Set("action", action)
	return c.friendCall(ctx, sess, post(op, "/api/friends/respond", form))
}

func (c *Client) RemoveFriend(ctx context.Context, sess *session.Session, target string) (protocol.FriendResponse, error) {
	const op = "friend_remove"
	if err := requireSession(sess); err != nil {
		return protocol.FriendResponse{}, err
	}
	target, err := otherPlayer(op, "target_username", target, sess.Identity())
	if err != nil {
		return protocol.FriendResponse{}, err
	}
	q := url.Values{"username": {sess.Identity()}, "target_username": {target}}
	return c.friendCall(ctx, sess, del(op, "/api/friends", q))
}

func (c *Client) friendCall(ctx context.Context, sess *session.Session, k call) (protocol.FriendResponse, error) {
	var resp protocol.FriendResponse
	o, err := c.send(ctx, sess, k, &resp)
	if err != nil {
		return resp, err
	}
	sess.ReplaceSocial(resp.Social, o)
	return resp, nil
}

func (c *Client) SendGlobalChat(ctx context.Context, sess *session.Session, message string) (protocol.ChatResponse, error) {
	const op = "global_chat"
	if err := requireSession(sess); err != nil {
		return protocol.ChatResponse{}, err
	}
	message, err := textLen(op, "message", message, ChatMin, ChatMax)
	if err != nil {
		return protocol.ChatResponse{}, err
	}
	if until, muted := c.mutedUntil(sess); muted {
		return protocol.ChatResponse{}, &ValidationError{Op: op, Field: "message", Reason: "muted until " + until}
	}
	form := identityForm(sess)
	form.Set("message", message)
	var resp protocol.ChatResponse
	o, err := c.send(ctx, sess, post(op, "/api/chat/global", form), &resp)
	var ae *AuthorityError
	if errors.As(err, &ae) && ae.MutedUntil != "" {
		recordMute(sess, ae.MutedUntil, o)
	}
	if err != nil {
		return resp, err
	}
	sess.ReplaceGlobalChat(resp.Chat, o)
	return resp, nil
}

// UpdatePresence publishes the player's status and note.
func (c *Client) UpdatePresence(ctx context.Context, sess *session.Session, status, note string) (protocol.PresenceResponse, error) {
	const op = "presence"
	if err := requireSession(sess); err != nil {
		return protocol.PresenceResponse{}, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !ValidPresenceStatus(status) {
		return protocol.PresenceResponse{}, &ValidationError{Op: op, Field: "status", Reason: "unknown status " + status}
	}
	note, err := textLen(op, "note", note, 0, PresenceNoteMax)
	if err != nil {
		return protocol.PresenceResponse{}, err
	}
	form := identityForm(sess)
	form.Set("status", status)
	form.Set("note", note)
	var resp protocol.PresenceResponse
	o, err := c.send(ctx, sess, post(op, "/api/presence", form), &resp)
	if err != nil {
		return resp, err
	}
	sess.ReplacePresence(resp.Presence, o)
	sess.ReplaceSocial(resp.Social, o)
	return resp, nil
}
