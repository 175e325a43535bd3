package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"aetheria.game/internal/journal"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

func TestRun_CountsAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	j, err := journal.Open(dir, journal.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sess, err := session.New(protocol.LoginResponse{Username: "Arin", ActionPoints: 14, MaxActionPoints: 20}, j)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	raid := protocol.RaidState{Name: "Hydre Astrale", Level: 1, HP: 500, MaxHP: 600}
	sess.ReplaceRaid(raid, session.Push())
	raid.HP = 550
	sess.ReplaceRaid(raid, session.Origin{Source: session.SourceResponse, RequestID: "req-7"})
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	files, err := journal.ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}

	var out bytes.Buffer
	if err := run(&out, files, options{window: time.Minute, dump: true}); err != nil {
		t.Fatalf("run: %v", err)
	}
	s := out.String()
	for _, want := range []string{
		"entries=3",
		"raid           login=0 response=1 push=1",
		"overwrites within 1m0s: 1",
		"Arin raid by response req-7",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("output lacks %q:\n%s", want, s)
		}
	}

	out.Reset()
	if err := run(&out, files, options{window: time.Minute, slice: "bundle"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "entries=1") || !strings.Contains(out.String(), "overwrites within 1m0s: 0") {
		t.Fatalf("slice filter output:\n%s", out.String())
	}
}

func TestCompact_CutsOnRunes(t *testing.T) {
	long := []byte(`"` + strings.Repeat("é", 100) + `"`)
	got := compact(long)
	if !utf8.ValidString(got) {
		t.Fatalf("compact split a character: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 80 || !strings.HasSuffix(got, "...") {
		t.Fatalf("compact = %q (%d runes)", got, n)
	}
	if got := compact([]byte(" 12 ")); got != "12" {
		t.Fatalf("short value = %q", got)
	}
}
