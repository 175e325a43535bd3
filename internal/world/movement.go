package world

type Direction string

const (
	North Direction = "n"
	South Direction = "s"
	West  Direction = "w"
	East  Direction = "e"
)

var directionOrder = []Direction{North, South, West, East}

var directionLabels = map[Direction]string{
	North: "Go north",
	South: "Go south",
	West:  "Go west",
	East:  "Go east",
}

// Move is a one-step destination offered to the player.
type Move struct {
	Dir   Direction
	Label string
	X, Y  int
}

func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "n", "north", "N":
		return North, true
	case "s", "south", "S":
		return South, true
	case "w", "west", "W":
		return West, true
	case "e", "east", "E":
		return East, true
	}
	return "", false
}

func (d Direction) Step(x, y int) (int, int) {
	switch d {
	case North:
		return x, y - 1
	case South:
		return x, y + 1
	case West:
		return x - 1, y
	case East:
		return x + 1, y
	}
	return x, y
}

// Moves lists the cardinal neighbours of (x,y) that are inside the world.
// Off-grid destinations are never offered.
func (ix *Index) Moves(x, y int) []Move {
	out := make([]Move, 0, len(directionOrder))
	for _, d := range directionOrder {
		nx, ny := d.Step(x, y)
		if !ix.InBounds(nx, ny) {
			continue
		}
		out = append(out, Move{Dir: d, Label: directionLabels[d], X: nx, Y: ny})
	}
	return out
}

// MoveFor returns the offered move in direction d, if any.
func (ix *Index) MoveFor(x, y int, d Direction) (Move, bool) {
	for _, m := range ix.Moves(x, y) {
		if m.Dir == d {
			return m, true
		}
	}
	return Move{}, false
}

// Neighbourhood returns a (2r+1)x(2r+1) grid of tile kinds centred on (x,y),
// row-major from the north-west corner. Off-grid cells are KindVoid.
func (ix *Index) Neighbourhood(x, y, r int) [][]TileKind {
	size := 2*r + 1
	rows := make([][]TileKind, size)
	for row := 0; row < size; row++ {
		rows[row] = make([]TileKind, size)
		for col := 0; col < size; col++ {
			wx, wy := x-r+col, y-r+row
			if !ix.InBounds(wx, wy) {
				rows[row][col] = KindVoid
				continue
			}
			rows[row][col] = ix.Lookup(wx, wy).Kind
		}
	}
	return rows
}
