package ai_test

import (
	"math/rand/v2"
	"testing"

	"github.com/nstehr/warren/warren-core/model"
	"github.com/nstehr/warren/warren-core/world"
)

type sent struct {
	Type string
	Data any
}

type recorder struct {
	cmds []sent
}

func (r *recorder) Send(msgType string, data any) error {
	r.cmds = append(r.cmds, sent{msgType, data})
	return nil
}

func (r *recorder) types() []string {
	var out []string
	for _, c := range r.cmds {
		out = append(out, c.Type)
	}
	return out
}

const lvl = "cave"

func pos(x, y int) model.Position { return model.Position{Level: lvl, X: x, Y: y} }

// arena is a 10x10 floor split by a wall at x=5 with a gap at the bottom row.
func arena(tick int, creatures ...model.Creature) model.GameState {
	grid := model.NewTileGrid(10, 10, model.Floor)
	for y := 0; y < 9; y++ {
		grid.Set(model.Vec2{X: 5, Y: y}, model.Wall)
	}
	return model.GameState{
		Tick:      tick,
		Level:     model.Level{Name: lvl, Grid: *grid},
		Creatures: creatures,
	}
}

func orc(id, x, y int) model.Creature {
	return model.Creature{ID: id, Name: "orc", Tribe: "orcs", Pos: pos(x, y), Health: 1, Damage: 3}
}

func elf(id, x, y int) model.Creature {
	return model.Creature{ID: id, Name: "elf", Tribe: "elves", Pos: pos(x, y), Health: 1, Damage: 2}
}

func agentIn(t *testing.T, gs model.GameState, id int) (*world.World, *world.Agent, *recorder) {
	t.Helper()
	rec := &recorder{}
	w := world.New(gs, rec)
	a, ok := w.Agent(id)
	if !ok {
		t.Fatalf("creature %d not on level", id)
	}
	return w, a, rec
}

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func leader(id int) *int { return &id }
