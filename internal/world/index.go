package world

import "aetheria.game/internal/protocol"

type TileKind string

const (
	KindPlain           TileKind = "plain"
	KindStartingVillage TileKind = "starting_village"
	KindVillage         TileKind = "village"
	KindBattlefield     TileKind = "battlefield"
	KindMerchant        TileKind = "merchant"

	// KindVoid marks off-grid cells in local map projections. It never
	// appears in an Index.
	KindVoid TileKind = "void"
)

type Tile struct {
	Kind TileKind `json:"kind"`
	Name string   `json:"name"`
}

// Plain is the descriptor for every coordinate without a fixed point.
var Plain = Tile{Kind: KindPlain, Name: "Plaine sauvage"}

type Coord struct {
	X, Y int
}

// Index maps fixed world coordinates to tile descriptors. It is built once
// per world refresh and never mutated afterwards, so it is safe to share.
type Index struct {
	width  int
	height int
	tiles  map[Coord]Tile
}

// BuildIndex inserts starting villages, villages, battlefields then merchants.
// On a coordinate collision the later category wins.
func BuildIndex(w protocol.World) *Index {
	ix := &Index{
		width:  w.Width,
		height: w.Height,
		tiles:  make(map[Coord]Tile, len(w.StartingVillages)+len(w.Villages)+len(w.Battlefields)+len(w.Merchants)),
	}
	ix.insert(w.StartingVillages, KindStartingVillage)
	ix.insert(w.Villages, KindVillage)
	ix.insert(w.Battlefields, KindBattlefield)
	ix.insert(w.Merchants, KindMerchant)
	return ix
}

func (ix *Index) insert(points []protocol.Point, kind TileKind) {
	for _, p := range points {
		ix.tiles[Coord{X: p.X, Y: p.Y}] = Tile{Kind: kind, Name: p.Name}
	}
}

func (ix *Index) Width() int  { return ix.width }
func (ix *Index) Height() int { return ix.height }
func (ix *Index) Len() int    { return len(ix.tiles) }

// Lookup returns the fixed descriptor at (x,y), or Plain.
func (ix *Index) Lookup(x, y int) Tile {
	if ix == nil {
		return Plain
	}
	if t, ok := ix.tiles[Coord{X: x, Y: y}]; ok {
		return t
	}
	return Plain
}

// InBounds reports travel legality. It does not consult the tile map.
func (ix *Index) InBounds(x, y int) bool {
	if ix == nil {
		return false
	}
	return x >= 0 && y >= 0 && x < ix.width && y < ix.height
}

// Clamp pulls (x,y) inside the world rectangle.
func (ix *Index) Clamp(x, y int) (int, int) {
	if ix == nil || ix.width <= 0 || ix.height <= 0 {
		return x, y
	}
	return clamp(x, 0, ix.width-1), clamp(y, 0, ix.height-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
