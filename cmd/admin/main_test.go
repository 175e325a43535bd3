package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"aetheria.game/internal/journal/cachedb"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

func TestQuery(t *testing.T) {
	db, err := cachedb.OpenSQLite(filepath.Join(t.TempDir(), "cache.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	var out bytes.Buffer
	if err := query(&out, db, "world", "", 10); err == nil {
		t.Fatalf("empty cache should report no world")
	}

	if err := db.SaveWorld(protocol.World{Width: 20, Height: 20, Battlefields: []protocol.Point{{Name: "Champ", X: 5, Y: 5}}}); err != nil {
		t.Fatalf("SaveWorld: %v", err)
	}
	sess, err := session.New(protocol.LoginResponse{Username: "Arin", ActionPoints: 14, MaxActionPoints: 20}, db)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	sess.SetActionPoints(13, 20, session.Origin{Source: session.SourceResponse, RequestID: "req-1"})
	if err := db.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	out.Reset()
	if err := query(&out, db, "world", "", 10); err != nil {
		t.Fatalf("world: %v", err)
	}
	if !strings.Contains(out.String(), `"battlefields":1`) {
		t.Fatalf("world output = %s", out.String())
	}

	out.Reset()
	if err := query(&out, db, "writes", "Arin", 10); err != nil {
		t.Fatalf("writes: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "action_points") || !strings.Contains(lines[0], "req-1") {
		t.Fatalf("writes output = %q", out.String())
	}

	if err := query(&out, db, "writes", "", 10); err == nil {
		t.Fatalf("writes without identity should fail")
	}
	if err := query(&out, db, "agents", "", 10); err == nil {
		t.Fatalf("unknown query should fail")
	}
}
