package snapshot

import (
	"reflect"
	"testing"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

func TestApply_CommunityBoards(t *testing.T) {
	sess := newSession(t)
	vote := 2
	sess.ReplacePoll(protocol.Poll{Season: 1, PersonalVote: &vote}, session.Origin{Source: session.SourceResponse})

	msg, err := protocol.DecodeSnapshot([]byte(`{"type":"snapshot",
	  "daily":{"date":"2026-10-18","targets":{"explore":3,"social":2,"combat":2},"ranking":[{"username":"Beryl","completions":1}]},
	  "poll":{"season":1,"question":"Quelle zone explorer ?","goal":8,"total_votes":3,"options":[{"option_id":2,"label":"Marais","votes":3,"percent":100}]},
	  "commendations":{"daily_limit":3,"leaderboard":[{"username":"Beryl","received":2}]},
	  "moderation":{"report_threshold":3,"mute_duration_minutes":30}}`))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	got := Apply(sess, msg)
	want := []session.Slice{session.SliceDaily, session.SlicePoll, session.SliceCommendations, session.SliceModeration}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Apply = %v, want %v", got, want)
	}

	st := sess.State()
	if st.Daily == nil || st.Daily.Targets.Explore != 3 || len(st.Daily.Ranking) != 1 {
		t.Fatalf("daily = %+v", st.Daily)
	}
	if st.Poll.TotalVotes != 3 || st.Poll.PersonalVote == nil || *st.Poll.PersonalVote != 2 {
		t.Fatalf("poll = %+v", st.Poll)
	}
	if st.Commendations == nil || st.Commendations.Leaderboard[0].Received != 2 {
		t.Fatalf("commendations = %+v", st.Commendations)
	}
	if st.Moderation == nil || st.Moderation.MuteDurationMinutes != 30 {
		t.Fatalf("moderation = %+v", st.Moderation)
	}
	if len(st.GlobalChat) != 1 || len(st.Board) != 1 {
		t.Fatalf("unrelated slices touched: %+v", st)
	}

	// Absent categories leave the boards alone.
	if got := Apply(sess, protocol.SnapshotMsg{Type: protocol.TypeSnapshot}); len(got) != 0 {
		t.Fatalf("empty snapshot replaced %v", got)
	}
	if sess.State().Daily == nil {
		t.Fatalf("empty snapshot cleared the daily board")
	}
}
