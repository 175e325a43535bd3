package gateway

import (
	"context"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

func (c *Client) CreateGuild(ctx context.Context, sess *session.Session, name string) (protocol.GuildResponse, error) {
	return c.guildByName(ctx, sess, "guild_create", "/api/guilds/create", name)
}

func (c *Client) JoinGuild(ctx context.Context, sess *session.Session, name string) (protocol.GuildResponse, error) {
	return c.guildByName(ctx, sess, "guild_join", "/api/guilds/join", name)
}

func (c *Client) guildByName(ctx context.Context, sess *session.Session, op, path, name string) (protocol.GuildResponse, error) {
	if err := requireSession(sess); err != nil {
		return protocol.GuildResponse{}, err
	}
	name, err := textLen(op, "guild_name", name, GuildNameMin, 0)
	if err != nil {
		return protocol.GuildResponse{}, err
	}
	form := identityForm(sess)
	form.Set("guild_name", name)
	return c.guildCall(ctx, sess, post(op, path, form))
}

// LeaveGuild clears the membership. The guild chat slice is emptied with it.
func (c *Client) LeaveGuild(ctx context.Context, sess *session.Session) (protocol.GuildResponse, error) {
	if err := requireSession(sess); err != nil {
		return protocol.GuildResponse{}, err
	}
	var resp protocol.GuildResponse
	o, err := c.send(ctx, sess, post("guild_leave", "/api/guilds/leave", identityForm(sess)), &resp)
	if err != nil {
		return resp, err
	}
	sess.ReplaceGuild("", nil, o)
	return resp, nil
}

// SendGuildChat posts to the guild channel. Membership is checked by the
// authority.
func (c *Client) SendGuildChat(ctx context.Context, sess *session.Session, message string) (protocol.GuildResponse, error) {
	const op = "guild_chat"
	if err := requireSession(sess); err != nil {
		return protocol.GuildResponse{}, err
	}
	message, err := textLen(op, "message", message, ChatMin, ChatMax)
	if err != nil {
		return protocol.GuildResponse{}, err
	}
	form := identityForm(sess)
	form.Set("message", message)
	return c.guildCall(ctx, sess, post(op, "/api/guilds/chat", form))
}

func (c *Client) guildCall(ctx context.Context, sess *session.Session, k call) (protocol.GuildResponse, error) {
	var resp protocol.GuildResponse
	o, err := c.send(ctx, sess, k, &resp)
	if err != nil {
		return resp, err
	}
	sess.ReplaceGuild(resp.Guild, resp.Chat, o)
	return resp, nil
}
