package model

// Vec2 is a tile offset or coordinate on a single level.
type Vec2 struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (v Vec2) Plus(o Vec2) Vec2  { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Minus(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Mult(k int) Vec2   { return Vec2{v.X * k, v.Y * k} }

// Length8 is the king-move (Chebyshev) length.
func (v Vec2) Length8() int {
	return max(abs(v.X), abs(v.Y))
}

// Length4 is the Manhattan length.
func (v Vec2) Length4() int {
	return abs(v.X) + abs(v.Y)
}

func (v Vec2) Dist8(o Vec2) int { return o.Minus(v).Length8() }

// Directions8 lists the eight king-move offsets in a fixed clockwise order
// starting north. Callers that want random order shuffle a copy.
func Directions8() []Vec2 {
	return []Vec2{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}
}

// Directions4 lists the orthogonal offsets.
func Directions4() []Vec2 {
	return []Vec2{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
}

// Position is a tile on a named level. Distances between positions on
// different levels are undefined.
type Position struct {
	Level string `json:"level"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

func At(level string, v Vec2) Position { return Position{Level: level, X: v.X, Y: v.Y} }

func (p Position) Coord() Vec2 { return Vec2{p.X, p.Y} }

func (p Position) Plus(v Vec2) Position { return Position{p.Level, p.X + v.X, p.Y + v.Y} }

func (p Position) Minus(v Vec2) Position { return Position{p.Level, p.X - v.X, p.Y - v.Y} }

// WithCoord keeps the level and replaces the coordinate.
func (p Position) WithCoord(v Vec2) Position { return Position{p.Level, v.X, v.Y} }

func (p Position) SameLevel(o Position) bool { return p.Level == o.Level }

// Dist8 returns the king-move distance; ok is false across levels.
func (p Position) Dist8(o Position) (dist int, ok bool) {
	if p.Level != o.Level {
		return 0, false
	}
	return p.Coord().Dist8(o.Coord()), true
}

// DistOr is Dist8 with a fallback for positions on different levels.
func (p Position) DistOr(o Position, fallback int) int {
	if d, ok := p.Dist8(o); ok {
		return d
	}
	return fallback
}

// Dir is the offset from p to o, ignoring levels.
func (p Position) Dir(o Position) Vec2 { return o.Coord().Minus(p.Coord()) }

func (p Position) Neighbors8() []Position {
	return p.around(Directions8())
}

func (p Position) Neighbors4() []Position {
	return p.around(Directions4())
}

func (p Position) around(dirs []Vec2) []Position {
	out := make([]Position, len(dirs))
	for i, d := range dirs {
		out[i] = p.Plus(d)
	}
	return out
}

// Rect is a half-open tile rectangle [Min, Max).
type Rect struct {
	Min Vec2 `json:"min" yaml:"min"`
	Max Vec2 `json:"max" yaml:"max"`
}

// Centered returns the square of the given radius around c.
func Centered(c Vec2, radius int) Rect {
	return Rect{
		Min: Vec2{c.X - radius, c.Y - radius},
		Max: Vec2{c.X + radius + 1, c.Y + radius + 1},
	}
}

func (r Rect) Contains(v Vec2) bool {
	return v.X >= r.Min.X && v.X < r.Max.X && v.Y >= r.Min.Y && v.Y < r.Max.Y
}

func (r Rect) Width() int  { return r.Max.X - r.Min.X }
func (r Rect) Height() int { return r.Max.Y - r.Min.Y }

func (r Rect) Middle() Vec2 {
	return Vec2{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2}
}

// Tiles enumerates the rectangle row by row.
func (r Rect) Tiles() []Vec2 {
	if r.Width() <= 0 || r.Height() <= 0 {
		return nil
	}
	out := make([]Vec2, 0, r.Width()*r.Height())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			out = append(out, Vec2{x, y})
		}
	}
	return out
}

// Line returns the Bresenham line from a to b, both ends included.
func Line(a, b Vec2) []Vec2 {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	out := []Vec2{a}
	for cur := a; cur != b; {
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			cur.X += sx
		}
		if e2 <= dx {
			e += dx
			cur.Y += sy
		}
		out = append(out, cur)
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
