package client

import (
	"context"

	"aetheria.game/internal/session"
)

func (c *Client) ClaimDaily(ctx context.Context) error {
	return c.run("daily_claim", func(sess *session.Session) error {
		resp, err := c.gw.ClaimDaily(ctx, sess)
		if err == nil {
			c.activity(sess, "Daily challenge claimed: +%d gold, +%d XP, +%d PA", resp.Reward.Gold, resp.Reward.XP, resp.Reward.ActionPoints)
		}
		return err
	})
}

func (c *Client) VotePoll(ctx context.Context, optionID int) error {
	return c.run("poll_vote", func(sess *session.Session) error {
		resp, err := c.gw.VotePoll(ctx, sess, optionID)
		if err != nil {
			return err
		}
		c.activity(sess, "Voted for option %d (+%d gold)", optionID, resp.Reward.Gold)
		if resp.Rotated && resp.WinningOption != nil {
			c.activity(sess, "Poll closed: %s wins", resp.WinningOption.Label)
		}
		return nil
	})
}

func (c *Client) Commend(ctx context.Context, target, reason string) error {
	return c.run("commend", func(sess *session.Session) error {
		resp, err := c.gw.Commend(ctx, sess, target, reason)
		if err == nil {
			c.activity(sess, "Commended %s (%d received)", resp.Target, resp.Received)
		}
		return err
	})
}

func (c *Client) ReportChat(ctx context.Context, target, reason string) error {
	return c.run("chat_report", func(sess *session.Session) error {
		resp, err := c.gw.ReportChat(ctx, sess, target, reason)
		if err != nil {
			return err
		}
		if resp.Muted {
			c.activity(sess, "Reported %s: muted", resp.Target)
		} else {
			c.activity(sess, "Reported %s (%d/%d)", resp.Target, resp.Reports, resp.Threshold)
		}
		return nil
	})
}
