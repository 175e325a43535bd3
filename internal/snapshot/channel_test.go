package snapshot

import (
	"errors"
	"testing"
	"time"

	"aetheria.game/internal/authoritytest"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New(protocol.LoginResponse{
		Username:        "Arin",
		ActionPoints:    14,
		MaxActionPoints: 20,
		GlobalChat:      []protocol.ChatMessage{{Author: "Beryl", Message: "salut"}},
		PartyBoard:      []protocol.PartyEntry{{ID: 1, Author: "Beryl", Activity: "Donjon"}},
	}, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return s
}

func TestHandle_PartialSnapshotLeavesOtherCategories(t *testing.T) {
	sess := newSession(t)
	sess.ReplaceRaid(protocol.RaidState{Name: "Hydre", HP: 500, MaxHP: 600}, session.Local())
	ch := New(Config{})
	ch.SetSession(sess)

	applied, err := ch.Handle([]byte(`{"type":"snapshot","guilds":[{"name":"Aube","member_count":3}]}`))
	if err != nil || !applied {
		t.Fatalf("Handle = %v, %v", applied, err)
	}
	st := sess.State()
	if len(st.GuildRanking) != 1 || st.GuildRanking[0].Name != "Aube" {
		t.Fatalf("guild ranking = %+v", st.GuildRanking)
	}
	if st.Raid == nil || st.Raid.HP != 500 {
		t.Fatalf("raid touched by snapshot without raid: %+v", st.Raid)
	}
	if len(st.GlobalChat) != 1 || len(st.Board) != 1 || st.ActionPoints != 14 {
		t.Fatalf("unrelated slices touched: %+v", st)
	}
}

func TestHandle_NullCategoryIsNoChange(t *testing.T) {
	sess := newSession(t)
	ch := New(Config{})
	ch.SetSession(sess)

	if _, err := ch.Handle([]byte(`{"type":"snapshot","global_chat":null,"party_board":[]}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	st := sess.State()
	if len(st.GlobalChat) != 1 {
		t.Fatalf("null global_chat cleared the slice")
	}
	if len(st.Board) != 0 {
		t.Fatalf("empty party_board must replace the slice, got %+v", st.Board)
	}
}

func TestHandle_OwnPresenceRefreshesPA(t *testing.T) {
	sess := newSession(t)
	ch := New(Config{})
	ch.SetSession(sess)

	if _, err := ch.Handle([]byte(`{"type":"snapshot","players":{"Beryl":{"action_points":3,"presence":{"status":"afk","note":""}}}}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if cur, _ := sess.ActionPoints(); cur != 14 {
		t.Fatalf("another player's entry changed PA: %d", cur)
	}
	if _, err := ch.Handle([]byte(`{"type":"snapshot","players":{"Arin":{"action_points":9,"presence":{"status":"online","note":""}}}}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if cur, _ := sess.ActionPoints(); cur != 9 {
		t.Fatalf("own presence did not refresh PA: %d", cur)
	}
}

func TestHandle_IgnoresOtherTypesAndRejectsGarbage(t *testing.T) {
	sess := newSession(t)
	ch := New(Config{})
	ch.SetSession(sess)

	applied, err := ch.Handle([]byte(`{"type":"welcome","players":{"Arin":{"action_points":0}}}`))
	if applied || err != nil {
		t.Fatalf("non-snapshot message: applied=%v err=%v", applied, err)
	}
	if cur, _ := sess.ActionPoints(); cur != 14 {
		t.Fatalf("ignored message changed PA")
	}
	if _, err := ch.Handle([]byte(`not json`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	st := ch.Status()
	if st.Received != 2 || st.Ignored != 1 || st.Rejected != 1 || st.Applied != 0 {
		t.Fatalf("status = %+v", st)
	}
}

func TestHandle_ValidatorRejectsBadShape(t *testing.T) {
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	sess := newSession(t)
	ch := New(Config{Validator: v})
	ch.SetSession(sess)

	if _, err := ch.Handle([]byte(`{"type":"snapshot","raid":{"name":"x"}}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected schema rejection, got %v", err)
	}
	if sess.State().Raid != nil {
		t.Fatalf("rejected snapshot was applied")
	}
}

func TestHandle_DetachedOrClosedSessionDropsPush(t *testing.T) {
	ch := New(Config{})
	if applied, err := ch.Handle([]byte(`{"type":"snapshot","guilds":[]}`)); applied || err != nil {
		t.Fatalf("detached: applied=%v err=%v", applied, err)
	}
	sess := newSession(t)
	ch.SetSession(sess)
	sess.Close()
	if applied, _ := ch.Handle([]byte(`{"type":"snapshot","guilds":[]}`)); applied {
		t.Fatalf("push applied to a closed session")
	}
}

func TestChannel_EndToEndOverWebsocket(t *testing.T) {
	auth := authoritytest.New(protocol.World{Width: 10, Height: 10})
	defer auth.Close()
	auth.AddAccount(authoritytest.Account{Username: "Arin", Password: "x", PA: 14})

	sess := newSession(t)
	ch := New(Config{URL: auth.WSURL(), ReconnectDelay: 20 * time.Millisecond})
	ch.SetSession(sess)
	ch.Start()
	defer ch.Close()

	// The authority greets each connection with a full snapshot.
	waitApplied(t, ch)

	auth.Connect("Arin")
	auth.SetPA("Arin", 4)
	auth.Broadcast()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if cur, _ := sess.ActionPoints(); cur == 4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("PA never refreshed from push; status %+v", ch.Status())
		}
		waitApplied(t, ch)
	}

	// A dropped socket is re-dialled after the fixed delay.
	ch.Disconnect()
	auth.PushRaw([]byte(`{"type":"snapshot","guilds":[{"name":"Aube","member_count":1}]}`))
	deadline = time.Now().Add(2 * time.Second)
	for len(sess.State().GuildRanking) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no snapshot after reconnect; status %+v", ch.Status())
		}
		auth.PushRaw([]byte(`{"type":"snapshot","guilds":[{"name":"Aube","member_count":1}]}`))
		time.Sleep(20 * time.Millisecond)
	}
}

func waitApplied(t *testing.T, ch *Channel) {
	t.Helper()
	select {
	case <-ch.Applied():
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a snapshot; status %+v", ch.Status())
	}
}
