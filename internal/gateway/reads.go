package gateway

import (
	"context"
	"net/url"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

// The read operations below need no identity except FetchFriends. When sess
// is non-nil the result also replaces the matching slice.

func (c *Client) FetchWorld(ctx context.Context) (protocol.World, error) {
	var w protocol.World
	_, err := c.send(ctx, nil, get("world", "/api/world", nil), &w)
	return w, err
}

func (c *Client) FetchGuilds(ctx context.Context, sess *session.Session) ([]protocol.GuildRank, error) {
	var resp protocol.GuildListResponse
	o, err := c.send(ctx, sess, get("guilds", "/api/guilds", nil), &resp)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		sess.ReplaceGuildRanking(resp.Guilds, o)
	}
	return resp.Guilds, nil
}

func (c *Client) FetchRaid(ctx context.Context, sess *session.Session) (protocol.RaidState, error) {
	var r protocol.RaidState
	o, err := c.send(ctx, sess, get("raid", "/api/raids/current", nil), &r)
	if err != nil {
		return r, err
	}
	if sess != nil {
		sess.ReplaceRaid(r, o)
	}
	return r, nil
}

func (c *Client) FetchContract(ctx context.Context, sess *session.Session) (protocol.ContractState, error) {
	var ct protocol.ContractState
	o, err := c.send(ctx, sess, get("contract", "/api/contracts/current", nil), &ct)
	if err != nil {
		return ct, err
	}
	if sess != nil {
		sess.ReplaceContract(ct, o)
	}
	return ct, nil
}

// FetchOptions reads the item and character catalog.
func (c *Client) FetchOptions(ctx context.Context, sess *session.Session) (protocol.Options, error) {
	var opts protocol.Options
	o, err := c.send(ctx, sess, get("options", "/api/options", nil), &opts)
	if err != nil {
		return opts, err
	}
	if sess != nil {
		sess.ReplaceCatalog(opts, o)
	}
	return opts, nil
}

func (c *Client) FetchLeaderboard(ctx context.Context, sess *session.Session) ([]protocol.DuelRank, error) {
	var resp protocol.LeaderboardResponse
	o, err := c.send(ctx, sess, get("leaderboard", "/api/duels/leaderboard", nil), &resp)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		sess.ReplaceLeaderboard(resp.Leaderboard, o)
	}
	return resp.Leaderboard, nil
}

func (c *Client) FetchEvents(ctx context.Context, sess *session.Session) ([]protocol.CommunityEvent, error) {
	var resp protocol.EventsResponse
	o, err := c.send(ctx, sess, get("events", "/api/events", nil), &resp)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		sess.ReplaceEvents(resp.Events, o)
	}
	return resp.Events, nil
}

func (c *Client) FetchFriends(ctx context.Context, sess *session.Session) (protocol.SocialState, error) {
	if err := requireSession(sess); err != nil {
		return protocol.SocialState{}, err
	}
	var g protocol.SocialState
	o, err := c.send(ctx, sess, get("friends", "/api/friends", url.Values{"username": {sess.Identity()}}), &g)
	if err != nil {
		return g, err
	}
	sess.ReplaceSocial(g, o)
	return g, nil
}
