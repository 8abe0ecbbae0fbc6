package model

// TileType classifies a single level tile for movement and projectiles.
type TileType byte

const (
	Floor TileType = 0 // walkable ground
	Water TileType = 1 // swimmers and flyers only
	Wall  TileType = 2 // blocks movement and projectiles, destructible
	Rock  TileType = 3 // blocks movement and projectiles, not destructible
	Chasm TileType = 4 // flyers only
	Door  TileType = 5 // walkable, blocks projectiles
)

func (t TileType) String() string {
	switch t {
	case Floor:
		return "floor"
	case Water:
		return "water"
	case Wall:
		return "wall"
	case Rock:
		return "rock"
	case Chasm:
		return "chasm"
	case Door:
		return "door"
	}
	return "unknown"
}

// Walkable reports whether a ground creature may stand on the tile.
func (t TileType) Walkable() bool { return t == Floor || t == Door }

// Flyable reports whether a flying creature may stand on the tile.
func (t TileType) Flyable() bool { return t == Floor || t == Door || t == Water || t == Chasm }

// BlocksProjectiles is true for tiles thrown items and bolts cannot cross.
func (t TileType) BlocksProjectiles() bool { return t == Wall || t == Rock || t == Door }

// Destructible tiles can be cleared by a destroy action.
func (t TileType) Destructible() bool { return t == Wall || t == Door }

// TileGrid is the row-major tile layout of one level.
type TileGrid struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Tiles  []TileType `json:"tiles"`
}

// NewTileGrid returns a grid filled with t.
func NewTileGrid(w, h int, t TileType) *TileGrid {
	g := &TileGrid{Width: w, Height: h, Tiles: make([]TileType, w*h)}
	for i := range g.Tiles {
		g.Tiles[i] = t
	}
	return g
}

func (g *TileGrid) InBounds(v Vec2) bool {
	return v.X >= 0 && v.X < g.Width && v.Y >= 0 && v.Y < g.Height
}

// At returns the tile at v. Out-of-bounds tiles read as Rock so the level
// edge is never enterable.
func (g *TileGrid) At(v Vec2) TileType {
	if !g.InBounds(v) || len(g.Tiles) != g.Width*g.Height {
		return Rock
	}
	return g.Tiles[v.Y*g.Width+v.X]
}

// Set writes a tile; out-of-bounds writes are ignored.
func (g *TileGrid) Set(v Vec2, t TileType) {
	if g.InBounds(v) && len(g.Tiles) == g.Width*g.Height {
		g.Tiles[v.Y*g.Width+v.X] = t
	}
}

// Bounds returns the whole grid as a rectangle.
func (g *TileGrid) Bounds() Rect {
	return Rect{Max: Vec2{g.Width, g.Height}}
}

// HasWater returns true if any tile is water.
func (g *TileGrid) HasWater() bool {
	for _, t := range g.Tiles {
		if t == Water {
			return true
		}
	}
	return false
}

// Count returns how many tiles have type t.
func (g *TileGrid) Count(t TileType) int {
	n := 0
	for _, tile := range g.Tiles {
		if tile == t {
			n++
		}
	}
	return n
}
