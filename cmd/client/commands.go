package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"aetheria.game/internal/client"
	"aetheria.game/internal/gateway"
	"aetheria.game/internal/world"
)

// game is the intent surface the command loop drives.
type game interface {
	Login(ctx context.Context, username, password string) error
	Logout()
	Spend(ctx context.Context) error
	Move(ctx context.Context, d world.Direction) error
	Explore(ctx context.Context) error
	QuickBattle(ctx context.Context) error
	Equip(ctx context.Context, item string) error
	AttackRaid(ctx context.Context) error
	Contribute(ctx context.Context) error
	Duel(ctx context.Context, opponent string) error
	CreateGuild(ctx context.Context, name string) error
	JoinGuild(ctx context.Context, name string) error
	LeaveGuild(ctx context.Context) error
	SayGuild(ctx context.Context, msg string) error
	AddFriend(ctx context.Context, target string) error
	AcceptFriend(ctx context.Context, requester string) error
	RejectFriend(ctx context.Context, requester string) error
	RemoveFriend(ctx context.Context, target string) error
	PostBoard(ctx context.Context, p gateway.BoardPost) error
	WithdrawBoard(ctx context.Context) error
	ToggleInterest(ctx context.Context, id int) error
	ToggleReady(ctx context.Context, id int) error
	LaunchBoard(ctx context.Context, id int) error
	Say(ctx context.Context, msg string) error
	SetPresence(ctx context.Context, status, note string) error
	ClaimDaily(ctx context.Context) error
	VotePoll(ctx context.Context, optionID int) error
	Commend(ctx context.Context, target, reason string) error
	ReportChat(ctx context.Context, target, reason string) error
	Refresh(ctx context.Context) error
}

// clientGame drops the results the command loop does not print; the view
// shows them instead.
type clientGame struct{ *client.Client }

func (g clientGame) Login(ctx context.Context, username, password string) error {
	_, err := g.Client.Login(ctx, username, password)
	return err
}

func (g clientGame) Move(ctx context.Context, d world.Direction) error {
	_, err := g.Client.Move(ctx, d)
	return err
}

func (g clientGame) Explore(ctx context.Context) error {
	_, err := g.Client.Explore(ctx)
	return err
}

func (g clientGame) QuickBattle(ctx context.Context) error {
	_, err := g.Client.QuickBattle(ctx)
	return err
}

func (g clientGame) AttackRaid(ctx context.Context) error {
	_, err := g.Client.AttackRaid(ctx)
	return err
}

func (g clientGame) Contribute(ctx context.Context) error {
	_, err := g.Client.Contribute(ctx)
	return err
}

func (g clientGame) Duel(ctx context.Context, opponent string) error {
	_, err := g.Client.Duel(ctx, opponent)
	return err
}

var errUsage = errors.New("usage")

type usageError struct{ hint string }

func (e *usageError) Error() string { return "usage: " + e.hint }
func (e *usageError) Unwrap() error { return errUsage }

func usage(hint string) error { return &usageError{hint: hint} }

// dispatch runs one command line. quit is true for "quit".
func dispatch(ctx context.Context, g game, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(verb) {
	case "quit", "exit":
		return true, nil
	case "view", "look":
		return false, nil
	case "login":
		user, pass, ok := strings.Cut(rest, " ")
		if !ok || user == "" {
			return false, usage("login <user> <password>")
		}
		return false, g.Login(ctx, user, strings.TrimSpace(pass))
	case "logout":
		g.Logout()
		return false, nil
	case "move", "go":
		d, ok := world.ParseDirection(rest)
		if !ok {
			return false, usage("move n|s|e|w")
		}
		return false, g.Move(ctx, d)
	case "n", "s", "e", "w":
		d, _ := world.ParseDirection(verb)
		return false, g.Move(ctx, d)
	case "explore":
		return false, g.Explore(ctx)
	case "battle":
		return false, g.QuickBattle(ctx)
	case "spend":
		return false, g.Spend(ctx)
	case "equip":
		if rest == "" {
			return false, usage("equip <item>")
		}
		return false, g.Equip(ctx, rest)
	case "raid":
		return false, g.AttackRaid(ctx)
	case "contract":
		return false, g.Contribute(ctx)
	case "duel":
		if rest == "" {
			return false, usage("duel <name>")
		}
		return false, g.Duel(ctx, rest)
	case "guild":
		return false, guildCmd(ctx, g, rest)
	case "friend":
		return false, friendCmd(ctx, g, rest)
	case "board":
		return false, boardCmd(ctx, g, rest)
	case "say":
		return false, g.Say(ctx, rest)
	case "status":
		status, note, _ := strings.Cut(rest, " ")
		if status == "" {
			return false, usage("status <online|looking_for_group|raiding|dueling|afk> [note]")
		}
		return false, g.SetPresence(ctx, status, strings.TrimSpace(note))
	case "daily":
		if rest != "claim" {
			return false, usage("daily claim")
		}
		return false, g.ClaimDaily(ctx)
	case "vote":
		id, err := strconv.Atoi(rest)
		if err != nil {
			return false, usage("vote <option>")
		}
		return false, g.VotePoll(ctx, id)
	case "commend":
		name, reason, _ := strings.Cut(rest, " ")
		if name == "" {
			return false, usage("commend <name> [reason]")
		}
		return false, g.Commend(ctx, name, strings.TrimSpace(reason))
	case "report":
		name, reason, _ := strings.Cut(rest, " ")
		if name == "" || strings.TrimSpace(reason) == "" {
			return false, usage("report <name> <reason>")
		}
		return false, g.ReportChat(ctx, name, strings.TrimSpace(reason))
	case "refresh":
		return false, g.Refresh(ctx)
	}
	return false, fmt.Errorf("unknown command %q", verb)
}

func guildCmd(ctx context.Context, g game, args string) error {
	sub, rest, _ := strings.Cut(args, " ")
	rest = strings.TrimSpace(rest)
	switch sub {
	case "create":
		return g.CreateGuild(ctx, rest)
	case "join":
		return g.JoinGuild(ctx, rest)
	case "leave":
		return g.LeaveGuild(ctx)
	case "say":
		return g.SayGuild(ctx, rest)
	}
	return usage("guild create|join <name> | guild leave | guild say <msg>")
}

func friendCmd(ctx context.Context, g game, args string) error {
	sub, name, _ := strings.Cut(args, " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return usage("friend add|accept|reject|remove <name>")
	}
	switch sub {
	case "add":
		return g.AddFriend(ctx, name)
	case "accept":
		return g.AcceptFriend(ctx, name)
	case "reject":
		return g.RejectFriend(ctx, name)
	case "remove":
		return g.RemoveFriend(ctx, name)
	}
	return usage("friend add|accept|reject|remove <name>")
}

func boardCmd(ctx context.Context, g game, args string) error {
	sub, rest, _ := strings.Cut(args, " ")
	rest = strings.TrimSpace(rest)
	switch sub {
	case "post":
		activity, message, ok := strings.Cut(rest, "|")
		if !ok {
			return usage("board post <activity>|<message>")
		}
		return g.PostBoard(ctx, gateway.BoardPost{
			Activity: strings.TrimSpace(activity),
			Message:  strings.TrimSpace(message),
		})
	case "withdraw":
		return g.WithdrawBoard(ctx)
	case "interest", "ready", "launch":
		id, err := strconv.Atoi(rest)
		if err != nil || id <= 0 {
			return usage("board " + sub + " <id>")
		}
		switch sub {
		case "interest":
			return g.ToggleInterest(ctx, id)
		case "ready":
			return g.ToggleReady(ctx, id)
		}
		return g.LaunchBoard(ctx, id)
	}
	return usage("board post|withdraw|interest|ready|launch")
}
