package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

func TestProject_CommunityBoards(t *testing.T) {
	vote := 1
	sess, err := session.New(protocol.LoginResponse{
		Username:        "Arin",
		ActionPoints:    4,
		MaxActionPoints: 20,
		Daily: &protocol.DailyChallenge{
			Date:     "2026-03-01",
			Targets:  protocol.DailyTargets{Explore: 3, Social: 2, Combat: 2},
			Personal: &protocol.DailyProgress{Explore: 3, Social: 2, Combat: 2, Completed: true},
		},
		Poll: &protocol.Poll{
			Season: 2, Question: "Quelle zone explorer ?", Goal: 8, TotalVotes: 3,
			Options: []protocol.PollOption{
				{OptionID: 1, Label: "Pics gelés", Votes: 2, Percent: 66.7},
				{OptionID: 0, Label: "Marais brumeux", Votes: 1, Percent: 33.3},
			},
			PersonalVote: &vote,
		},
		Commendations: &protocol.Commendations{
			DailyLimit: 3,
			Personal:   &protocol.CommendationPersonal{Remaining: 0, AlreadyCommended: []string{"Beryl", "Cael", "Dora"}, Received: 4},
		},
		Moderation: &protocol.Moderation{
			ReportThreshold: 3, MuteDurationMinutes: 30,
			Personal: &protocol.ModerationPersonal{IsMuted: true, MutedUntil: now.Add(20 * time.Minute).Format(time.RFC3339)},
		},
	}, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	v := Project(sess.State(), testIndex(), now)

	if d := v.Daily; d == nil || !d.Claimable || d.Explore != "3/3" || d.Combat != "2/2" {
		t.Fatalf("daily = %+v", v.Daily)
	}
	if p := v.Poll; p == nil || !p.Voted || p.Votes != "3/8" || !p.Options[0].Mine || p.Options[0].Percent != "66.7%" {
		t.Fatalf("poll = %+v", v.Poll)
	}
	if c := v.Commend; c == nil || c.Remaining != 0 || c.Received != 4 || len(c.Given) != 3 {
		t.Fatalf("commend = %+v", v.Commend)
	}
	if v.Muted != "20 minutes from now" {
		t.Fatalf("muted = %q", v.Muted)
	}
	if !v.Enabled("daily") || v.Enabled("vote") || v.Enabled("commend") || !v.Enabled("report") {
		t.Fatalf("menu = %+v", v.Menu)
	}

	var buf bytes.Buffer
	if err := v.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"-- Daily 2026-03-01", "ready to claim", "[1] Pics gelés 2 (66.7%) *", "0/3 left", "-- Muted"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("render missing %q:\n%s", want, buf.String())
		}
	}

	// A mute that already ran out is not shown.
	if got := Project(sess.State(), testIndex(), now.Add(time.Hour)).Muted; got != "" {
		t.Fatalf("expired mute = %q", got)
	}
}
