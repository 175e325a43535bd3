package client

import (
	"context"

	"aetheria.game/internal/gateway"
	"aetheria.game/internal/session"
)

func (c *Client) CreateGuild(ctx context.Context, name string) error {
	return c.run("guild_create", func(sess *session.Session) error {
		resp, err := c.gw.CreateGuild(ctx, sess, name)
		if err == nil {
			c.activity(sess, "Founded guild %s", resp.Guild)
		}
		return err
	})
}

func (c *Client) JoinGuild(ctx context.Context, name string) error {
	return c.run("guild_join", func(sess *session.Session) error {
		resp, err := c.gw.JoinGuild(ctx, sess, name)
		if err == nil {
			c.activity(sess, "Joined guild %s (%d members)", resp.Guild, resp.MemberCount)
		}
		return err
	})
}

func (c *Client) LeaveGuild(ctx context.Context) error {
	return c.run("guild_leave", func(sess *session.Session) error {
		prev := sess.Guild()
		_, err := c.gw.LeaveGuild(ctx, sess)
		if err == nil {
			c.activity(sess, "Left guild %s", prev)
		}
		return err
	})
}

func (c *Client) SayGuild(ctx context.Context, msg string) error {
	return c.run("guild_chat", func(sess *session.Session) error {
		_, err := c.gw.SendGuildChat(ctx, sess, msg)
		return err
	})
}

// run calls fn with the active session and records a failure.
func (c *Client) run(op string, fn func(*session.Session) error) error {
	sess, err := c.active()
	if err != nil {
		return err
	}
	if err := fn(sess); err != nil {
		return c.fail(sess, op, err)
	}
	return nil
}

// Friend actions: add sends a request, accept and reject answer one,
// remove drops an existing friend.
func (c *Client) AddFriend(ctx context.Context, target string) error {
	return c.run("friend_request", func(sess *session.Session) error {
		_, err := c.gw.RequestFriend(ctx, sess, target)
		if err == nil {
			c.activity(sess, "Friend request sent to %s", target)
		}
		return err
	})
}

func (c *Client) AcceptFriend(ctx context.Context, requester string) error {
	return c.respondFriend(ctx, requester, "accept")
}

func (c *Client) RejectFriend(ctx context.Context, requester string) error {
	return c.respondFriend(ctx, requester, "reject")
}

func (c *Client) respondFriend(ctx context.Context, requester, action string) error {
	return c.run("friend_respond", func(sess *session.Session) error {
		_, err := c.gw.RespondFriend(ctx, sess, requester, action)
		if err == nil {
			c.activity(sess, "Friend request from %s: %s", requester, action)
		}
		return err
	})
}

func (c *Client) RemoveFriend(ctx context.Context, target string) error {
	return c.run("friend_remove", func(sess *session.Session) error {
		_, err := c.gw.RemoveFriend(ctx, sess, target)
		if err == nil {
			c.activity(sess, "Removed %s from friends", target)
		}
		return err
	})
}

func (c *Client) Say(ctx context.Context, msg string) error {
	return c.run("global_chat", func(sess *session.Session) error {
		_, err := c.gw.SendGlobalChat(ctx, sess, msg)
		return err
	})
}

func (c *Client) SetPresence(ctx context.Context, status, note string) error {
	return c.run("presence", func(sess *session.Session) error {
		resp, err := c.gw.UpdatePresence(ctx, sess, status, note)
		if err == nil {
			c.activity(sess, "Presence set to %s", resp.Presence.Status)
		}
		return err
	})
}

func (c *Client) PostBoard(ctx context.Context, p gateway.BoardPost) error {
	return c.run("board_post", func(sess *session.Session) error {
		_, err := c.gw.PostBoard(ctx, sess, p)
		if err == nil {
			c.activity(sess, "Posted on the party board: %s", p.Activity)
		}
		return err
	})
}

func (c *Client) WithdrawBoard(ctx context.Context) error {
	return c.run("board_withdraw", func(sess *session.Session) error {
		_, err := c.gw.WithdrawBoard(ctx, sess)
		if err == nil {
			c.activity(sess, "Withdrew the party board post")
		}
		return err
	})
}

func (c *Client) ToggleInterest(ctx context.Context, id int) error {
	return c.run("board_interest", func(sess *session.Session) error {
		_, err := c.gw.ToggleInterest(ctx, sess, id)
		return err
	})
}

func (c *Client) ToggleReady(ctx context.Context, id int) error {
	return c.run("board_ready", func(sess *session.Session) error {
		_, err := c.gw.ToggleReady(ctx, sess, id)
		return err
	})
}

func (c *Client) LaunchBoard(ctx context.Context, id int) error {
	return c.run("board_launch", func(sess *session.Session) error {
		_, err := c.gw.LaunchBoard(ctx, sess, id)
		if err == nil {
			c.activity(sess, "Launched party #%d", id)
		}
		return err
	})
}

// Refresh re-reads every per-session shared slice. Failures are logged and
// the first one is returned.
func (c *Client) Refresh(ctx context.Context) error {
	sess, err := c.active()
	if err != nil {
		return err
	}
	var first error
	note := func(op string, err error) {
		if err == nil {
			return
		}
		c.log.WithError(err).WithField("op", op).Debug("refresh failed")
		if first == nil {
			first = err
		}
	}
	_, err = c.gw.FetchGuilds(ctx, sess)
	note("guilds", err)
	_, err = c.gw.FetchRaid(ctx, sess)
	note("raid", err)
	_, err = c.gw.FetchContract(ctx, sess)
	note("contract", err)
	_, err = c.gw.FetchLeaderboard(ctx, sess)
	note("leaderboard", err)
	_, err = c.gw.FetchEvents(ctx, sess)
	note("events", err)
	_, err = c.gw.FetchFriends(ctx, sess)
	note("friends", err)
	_, err = c.gw.FetchDaily(ctx, sess)
	note("daily", err)
	_, err = c.gw.FetchPoll(ctx, sess)
	note("poll", err)
	_, err = c.gw.FetchCommendations(ctx, sess)
	note("commendations", err)
	return first
}
