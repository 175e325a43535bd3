package world

import (
	"testing"

	"aetheria.game/internal/protocol"
)

func sampleWorld() protocol.World {
	return protocol.World{
		Width:            10,
		Height:           8,
		StartingVillages: []protocol.Point{{Name: "Village départ 1", X: 1, Y: 1}},
		Villages:         []protocol.Point{{Name: "Village 1", X: 2, Y: 3}, {Name: "Village 2", X: 4, Y: 4}},
		Battlefields:     []protocol.Point{{Name: "Champ de bataille 1", X: 5, Y: 5}, {Name: "Champ de bataille 2", X: 4, Y: 4}},
		Merchants:        []protocol.Point{{Name: "Marchand ambulant 1", X: 1, Y: 1}},
	}
}

func TestBuildIndex_LookupAndDefault(t *testing.T) {
	ix := BuildIndex(sampleWorld())

	if got := ix.Lookup(5, 5); got.Kind != KindBattlefield || got.Name != "Champ de bataille 1" {
		t.Fatalf("lookup (5,5) = %+v", got)
	}
	if got := ix.Lookup(2, 3); got.Kind != KindVillage {
		t.Fatalf("lookup (2,3) = %+v", got)
	}
	if got := ix.Lookup(0, 0); got != Plain {
		t.Fatalf("expected plain default, got %+v", got)
	}
	// Off-grid lookups are not specially tiled.
	if got := ix.Lookup(-3, 99); got != Plain {
		t.Fatalf("expected plain for off-grid lookup, got %+v", got)
	}
}

func TestBuildIndex_LaterCategoryWins(t *testing.T) {
	ix := BuildIndex(sampleWorld())

	// battlefield inserted after village at (4,4)
	if got := ix.Lookup(4, 4); got.Kind != KindBattlefield || got.Name != "Champ de bataille 2" {
		t.Fatalf("collision (4,4) = %+v", got)
	}
	// merchant inserted after starting village at (1,1)
	if got := ix.Lookup(1, 1); got.Kind != KindMerchant {
		t.Fatalf("collision (1,1) = %+v", got)
	}
	if ix.Len() != 4 {
		t.Fatalf("expected 4 distinct fixed points, got %d", ix.Len())
	}
}

func TestLookup_Deterministic(t *testing.T) {
	w := sampleWorld()
	a := BuildIndex(w)
	b := BuildIndex(w)
	for x := 0; x < w.Width; x++ {
		for y := 0; y < w.Height; y++ {
			first := a.Lookup(x, y)
			if again := a.Lookup(x, y); again != first {
				t.Fatalf("lookup (%d,%d) not idempotent: %+v vs %+v", x, y, first, again)
			}
			if other := b.Lookup(x, y); other != first {
				t.Fatalf("lookup (%d,%d) differs across builds: %+v vs %+v", x, y, first, other)
			}
		}
	}
}

func TestInBounds(t *testing.T) {
	ix := BuildIndex(sampleWorld())
	cases := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{9, 7, true},
		{10, 7, false},
		{9, 8, false},
		{-1, 0, false},
		{0, -1, false},
	}
	for _, c := range cases {
		if got := ix.InBounds(c.x, c.y); got != c.want {
			t.Fatalf("InBounds(%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}

	var nilIndex *Index
	if nilIndex.InBounds(0, 0) {
		t.Fatalf("nil index must reject every destination")
	}
}

func TestMoves_NeverOffersIllegalDestinations(t *testing.T) {
	ix := BuildIndex(sampleWorld())
	for x := -1; x <= ix.Width(); x++ {
		for y := -1; y <= ix.Height(); y++ {
			for _, m := range ix.Moves(x, y) {
				if !ix.InBounds(m.X, m.Y) {
					t.Fatalf("move %+v from (%d,%d) is off-grid", m, x, y)
				}
			}
		}
	}

	corner := ix.Moves(0, 0)
	if len(corner) != 2 {
		t.Fatalf("expected 2 moves from the corner, got %+v", corner)
	}
	if _, ok := ix.MoveFor(0, 0, North); ok {
		t.Fatalf("north from (0,0) must not be offered")
	}
	if m, ok := ix.MoveFor(0, 0, East); !ok || m.X != 1 || m.Y != 0 {
		t.Fatalf("east from (0,0) = %+v, %v", m, ok)
	}
}

func TestClamp(t *testing.T) {
	ix := BuildIndex(sampleWorld())
	if x, y := ix.Clamp(-4, 20); x != 0 || y != 7 {
		t.Fatalf("clamp = (%d,%d)", x, y)
	}
	if x, y := ix.Clamp(3, 3); x != 3 || y != 3 {
		t.Fatalf("clamp in-bounds = (%d,%d)", x, y)
	}
}

func TestNeighbourhood(t *testing.T) {
	ix := BuildIndex(sampleWorld())
	grid := ix.Neighbourhood(0, 0, 1)
	if len(grid) != 3 || len(grid[0]) != 3 {
		t.Fatalf("unexpected grid size %dx%d", len(grid), len(grid[0]))
	}
	if grid[0][0] != KindVoid || grid[1][0] != KindVoid {
		t.Fatalf("expected void for off-grid cells: %+v", grid)
	}
	if grid[2][2] != KindMerchant {
		t.Fatalf("expected merchant at (1,1), got %s", grid[2][2])
	}
	if grid[1][1] != KindPlain {
		t.Fatalf("expected plain at centre, got %s", grid[1][1])
	}
}
