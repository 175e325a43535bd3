package gateway

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

// The community boards are free: none of these calls spends PA. Reads pass
// the identity so the authority includes the personal part.

func (c *Client) FetchDaily(ctx context.Context, sess *session.Session) (protocol.DailyChallenge, error) {
	var d protocol.DailyChallenge
	o, err := c.send(ctx, sess, get("daily", "/api/daily", personalQuery(sess)), &d)
	if err != nil {
		return d, err
	}
	if sess != nil {
		sess.ReplaceDaily(d, o)
	}
	return d, nil
}

// ClaimDaily collects the reward of a completed daily challenge. Completion
// is judged by the authority, since any action may have advanced it.
func (c *Client) ClaimDaily(ctx context.Context, sess *session.Session) (protocol.DailyClaimResponse, error) {
	const op = "daily_claim"
	if err := requireSession(sess); err != nil {
		return protocol.DailyClaimResponse{}, err
	}
	var resp protocol.DailyClaimResponse
	o, err := c.send(ctx, sess, post(op, "/api/daily/claim", identityForm(sess)), &resp)
	if err != nil {
		return resp, err
	}
	sess.SetActionPoints(resp.ActionPoints, 0, o)
	sess.ReplaceHero(resp.Hero, o)
	sess.ReplaceDaily(resp.Daily, o)
	return resp, nil
}

func (c *Client) FetchPoll(ctx context.Context, sess *session.Session) (protocol.Poll, error) {
	var p protocol.Poll
	o, err := c.send(ctx, sess, get("poll", "/api/community/poll", personalQuery(sess)), &p)
	if err != nil {
		return p, err
	}
	if sess != nil {
		sess.ReplacePoll(p, o)
	}
	return p, nil
}

// VotePoll casts the player's one vote of the season. When a poll is cached
// the option must be one of its choices and no vote may be recorded yet.
func (c *Client) VotePoll(ctx context.Context, sess *session.Session, optionID int) (protocol.PollVoteResponse, error) {
	const op = "poll_vote"
	if err := requireSession(sess); err != nil {
		return protocol.PollVoteResponse{}, err
	}
	if optionID < 0 {
		return protocol.PollVoteResponse{}, &ValidationError{Op: op, Field: "option_id", Reason: "must not be negative"}
	}
	if p := sess.Poll(); p != nil {
		if p.PersonalVote != nil {
			return protocol.PollVoteResponse{}, &ValidationError{Op: op, Field: "option_id", Reason: "already voted this season"}
		}
		if !hasOption(p.Options, optionID) {
			return protocol.PollVoteResponse{}, &ValidationError{Op: op, Field: "option_id", Reason: "unknown option " + strconv.Itoa(optionID)}
		}
	}
	form := identityForm(sess)
	form.Set("option_id", strconv.Itoa(optionID))
	var resp protocol.PollVoteResponse
	o, err := c.send(ctx, sess, post(op, "/api/community/poll/vote", form), &resp)
	if err != nil {
		return resp, err
	}
	sess.ReplaceHero(resp.Hero, o)
	sess.ReplacePoll(resp.Poll, o)
	return resp, nil
}

func (c *Client) FetchCommendations(ctx context.Context, sess *session.Session) (protocol.Commendations, error) {
	var cm protocol.Commendations
	o, err := c.send(ctx, sess, get("commendations", "/api/social/commendations", personalQuery(sess)), &cm)
	if err != nil {
		return cm, err
	}
	if sess != nil {
		sess.ReplaceCommendations(cm, o)
	}
	return cm, nil
}

// Commend recommends another player. The reason is optional.
func (c *Client) Commend(ctx context.Context, sess *session.Session, target, reason string) (protocol.CommendResponse, error) {
	const op = "commend"
	if err := requireSession(sess); err != nil {
		return protocol.CommendResponse{}, err
	}
	target, err := otherPlayer(op, "target_username", target, sess.Identity())
	if err != nil {
		return protocol.CommendResponse{}, err
	}
	reason, err = textLen(op, "reason", reason, 0, CommendReasonMax)
	if err != nil {
		return protocol.CommendResponse{}, err
	}
	form := identityForm(sess)
	form.Set("target_username", target)
	form.Set("reason", reason)
	var resp protocol.CommendResponse
	o, err := c.send(ctx, sess, post(op, "/api/social/commend", form), &resp)
	if err != nil {
		return resp, err
	}
	sess.ReplaceCommendations(resp.Commendations, o)
	return resp, nil
}

// ReportChat flags another player's chat behaviour. Enough reports mute the
// target for a while.
func (c *Client) ReportChat(ctx context.Context, sess *session.Session, target, reason string) (protocol.ReportResponse, error) {
	const op = "chat_report"
	if err := requireSession(sess); err != nil {
		return protocol.ReportResponse{}, err
	}
	target, err := otherPlayer(op, "target_username", target, sess.Identity())
	if err != nil {
		return protocol.ReportResponse{}, err
	}
	reason, err = textLen(op, "reason", reason, ReportReasonMin, ReportReasonMax)
	if err != nil {
		return protocol.ReportResponse{}, err
	}
	form := identityForm(sess)
	form.Set("target_username", target)
	form.Set("reason", reason)
	var resp protocol.ReportResponse
	o, err := c.send(ctx, sess, post(op, "/api/chat/report", form), &resp)
	if err != nil {
		return resp, err
	}
	sess.ReplaceModeration(resp.Moderation, o)
	return resp, nil
}

// mutedUntil reports a cached mute that has not yet run out.
func (c *Client) mutedUntil(sess *session.Session) (string, bool) {
	m := sess.Moderation()
	if m == nil || m.Personal == nil || !m.Personal.IsMuted {
		return "", false
	}
	until, err := time.Parse(time.RFC3339Nano, m.Personal.MutedUntil)
	if err != nil {
		return "", false
	}
	return m.Personal.MutedUntil, c.now().Before(until)
}

// recordMute stores a mute the authority reported while refusing a message.
func recordMute(sess *session.Session, until string, o session.Origin) {
	m := sess.Moderation()
	if m == nil {
		m = &protocol.Moderation{}
	}
	m.Personal = &protocol.ModerationPersonal{IsMuted: true, MutedUntil: until}
	sess.ReplaceModeration(*m, o)
}

func personalQuery(sess *session.Session) url.Values {
	if sess == nil {
		return nil
	}
	return url.Values{"username": {sess.Identity()}}
}

func hasOption(opts []protocol.PollOption, id int) bool {
	for _, o := range opts {
		if o.OptionID == id {
			return true
		}
	}
	return false
}
