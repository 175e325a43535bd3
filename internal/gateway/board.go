package gateway

import (
	"context"
	"net/url"
	"strconv"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

// BoardPost is a recruitment announcement. Zero Roles, MinLevel and
// MaxMembers take the board defaults.
type BoardPost struct {
	Activity   string
	Message    string
	Roles      string
	MinLevel   int
	MaxMembers int
}

func (p BoardPost) form(op string) (url.Values, error) {
	activity, err := textLen(op, "activity", p.Activity, BoardActivityMin, BoardActivityMax)
	if err != nil {
		return nil, err
	}
	message, err := textLen(op, "message", p.Message, BoardMessageMin, BoardMessageMax)
	if err != nil {
		return nil, err
	}
	roles := p.Roles
	if roles == "" {
		roles = DefaultBoardRoles
	}
	if roles, err = textLen(op, "roles", roles, BoardRolesMin, BoardRolesMax); err != nil {
		return nil, err
	}
	minLevel, maxMembers := p.MinLevel, p.MaxMembers
	if minLevel == 0 {
		minLevel = DefaultBoardMinLevel
	}
	if maxMembers == 0 {
		maxMembers = DefaultBoardMaxMembers
	}
	if err := intRange(op, "min_level", minLevel, BoardLevelMin, BoardLevelMax); err != nil {
		return nil, err
	}
	if err := intRange(op, "max_members", maxMembers, BoardMembersMin, BoardMembersMax); err != nil {
		return nil, err
	}
	return url.Values{
		"activity":    {activity},
		"message":     {message},
		"roles":       {roles},
		"min_level":   {strconv.Itoa(minLevel)},
		"max_members": {strconv.Itoa(maxMembers)},
	}, nil
}

func (c *Client) PostBoard(ctx context.Context, sess *session.Session, p BoardPost) (protocol.BoardResponse, error) {
	const op = "board_post"
	if err := requireSession(sess); err != nil {
		return protocol.BoardResponse{}, err
	}
	form, err := p.form(op)
	if err != nil {
		return protocol.BoardResponse{}, err
	}
	form.Set("username", sess.Identity())
	return c.boardCall(ctx, sess, post(op, "/api/party-board", form))
}

// WithdrawBoard removes every announcement the player authored.
func (c *Client) WithdrawBoard(ctx context.Context, sess *session.Session) (protocol.BoardResponse, error) {
	if err := requireSession(sess); err != nil {
		return protocol.BoardResponse{}, err
	}
	return c.boardCall(ctx, sess, del("board_withdraw", "/api/party-board", identityForm(sess)))
}

func (c *Client) ToggleInterest(ctx context.Context, sess *session.Session, entryID int) (protocol.BoardResponse, error) {
	return c.boardEntry(ctx, sess, "board_interest", "/api/party-board/interest", entryID)
}

func (c *Client) ToggleReady(ctx context.Context, sess *session.Session, entryID int) (protocol.BoardResponse, error) {
	return c.boardEntry(ctx, sess, "board_ready", "/api/party-board/ready", entryID)
}

// LaunchBoard locks a group. A 409 rejection lists the players not yet ready
// in AuthorityError.MissingReady.
func (c *Client) LaunchBoard(ctx context.Context, sess *session.Session, entryID int) (protocol.BoardResponse, error) {
	return c.boardEntry(ctx, sess, "board_launch", "/api/party-board/launch", entryID)
}

func (c *Client) boardEntry(ctx context.Context, sess *session.Session, op, path string, entryID int) (protocol.BoardResponse, error) {
	if err := requireSession(sess); err != nil {
		return protocol.BoardResponse{}, err
	}
	if entryID <= 0 {
		return protocol.BoardResponse{}, &ValidationError{Op: op, Field: "entry_id", Reason: "required"}
	}
	form := identityForm(sess)
	form.Set("entry_id", strconv.Itoa(entryID))
	return c.boardCall(ctx, sess, post(op, path, form))
}

func (c *Client) boardCall(ctx context.Context, sess *session.Session, k call) (protocol.BoardResponse, error) {
	var resp protocol.BoardResponse
	o, err := c.send(ctx, sess, k, &resp)
	if err != nil {
		return resp, err
	}
	sess.ReplaceBoard(resp.Entries, o)
	return resp, nil
}
