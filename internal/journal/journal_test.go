package journal

import (
	"encoding/json"
	"testing"
	"time"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

func TestJournal_RecordsSessionWrites(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sess, err := session.New(protocol.LoginResponse{Username: "Arin", ActionPoints: 14, MaxActionPoints: 20}, j)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	sess.SetActionPoints(13, 20, session.Origin{Source: session.SourceResponse, RequestID: "req-1"})
	sess.ReplaceGuildRanking([]protocol.GuildRank{{Name: "Aube", MemberCount: 2}}, session.Push())
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %v", files)
	}
	var got []Entry
	if err := ReadFile(files[0], func(e Entry) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	if got[0].Slice != session.SliceBundle || got[0].Source != session.SourceLogin {
		t.Fatalf("first entry = %+v", got[0])
	}
	if got[1].Slice != session.SliceActionPoints || got[1].RequestID != "req-1" {
		t.Fatalf("second entry = %+v", got[1])
	}
	var pa int
	if err := json.Unmarshal(got[1].Value, &pa); err != nil || pa != 13 {
		t.Fatalf("PA value = %s (%v)", got[1].Value, err)
	}
	if got[2].Identity != "Arin" || got[2].Source != session.SourcePush {
		t.Fatalf("third entry = %+v", got[2])
	}
}

func TestJournal_SegmentPolicy(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 10, 58, 0, 0, time.UTC)
	j, err := Open(dir, Options{MaxEntries: 3, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	resp := session.Origin{Source: session.SourceResponse}
	sess, err := session.New(protocol.LoginResponse{Username: "Arin", ActionPoints: 14, MaxActionPoints: 20}, j)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	sess.SetActionPoints(13, 0, resp)
	sess.SetActionPoints(12, 0, resp)
	// Full segment.
	sess.SetActionPoints(11, 0, resp)
	// New hour.
	now = now.Add(3 * time.Minute)
	sess.SetActionPoints(10, 0, resp)
	// New login, even with room left.
	if _, err := session.New(protocol.LoginResponse{Username: "Beryl", ActionPoints: 5, MaxActionPoints: 20}, j); err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("files = %v", files)
	}
	want := []int{3, 1, 1, 1}
	for i, path := range files {
		var n int
		var first Entry
		if err := ReadFile(path, func(e Entry) error {
			if n == 0 {
				first = e
			}
			n++
			return nil
		}); err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if n != want[i] {
			t.Fatalf("%s holds %d entries, want %d", path, n, want[i])
		}
		if i == 3 && (first.Identity != "Beryl" || first.Slice != session.SliceBundle) {
			t.Fatalf("last segment starts with %+v", first)
		}
	}
}

func TestOverwrites_FlagsResponseOverPushedPA(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sess, err := session.New(protocol.LoginResponse{Username: "Arin", ActionPoints: 14, MaxActionPoints: 20}, j)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	sess.ReplacePlayers(map[string]protocol.PlayerPresence{"Arin": {ActionPoints: 10}}, session.Push())
	sess.SetActionPoints(13, 0, session.Origin{Source: session.SourceResponse, RequestID: "r1"})
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	var entries []Entry
	for _, path := range files {
		if err := ReadFile(path, func(e Entry) error {
			entries = append(entries, e)
			return nil
		}); err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
	}
	got := Overwrites(entries, time.Minute)
	if len(got) != 1 {
		t.Fatalf("overwrites = %+v", got)
	}
	if got[0].Slice != session.SliceActionPoints || got[0].Write.RequestID != "r1" {
		t.Fatalf("overwrite = %+v", got[0])
	}
}

func TestOverwrites_FlagsResponseAfterPush(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []Entry{
		{At: t0, Slice: session.SliceRaid, Source: session.SourceResponse, RequestID: "a"},
		{At: t0.Add(100 * time.Millisecond), Slice: session.SliceRaid, Source: session.SourcePush},
		{At: t0.Add(150 * time.Millisecond), Slice: session.SliceBoard, Source: session.SourceResponse, RequestID: "b"},
		{At: t0.Add(300 * time.Millisecond), Slice: session.SliceRaid, Source: session.SourceResponse, RequestID: "c"},
		{At: t0.Add(5 * time.Second), Slice: session.SliceRaid, Source: session.SourceRefresh},
	}
	got := Overwrites(entries, time.Second)
	if len(got) != 1 {
		t.Fatalf("overwrites = %+v", got)
	}
	if got[0].Write.RequestID != "c" || got[0].Elapsed != 200*time.Millisecond {
		t.Fatalf("overwrite = %+v", got[0])
	}
}
