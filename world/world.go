// Package world serves the decision core's perception and action needs
// from one tick's game state. Actions are sent to the host as commands and
// applied to the local copy so later agents in the same tick see them.
package world

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/model"
)

// CommandSink receives commands for the host. *ipc.Connection satisfies it.
type CommandSink interface {
	Send(msgType string, data any) error
}

// DefaultVision is used for creatures that report no vision range.
const DefaultVision = 12

// World is one tick of one level. It is not safe for concurrent use; the
// tick loop owns it.
type World struct {
	state     model.GameState
	sink      CommandSink
	creatures map[int]*model.Creature
	occupant  map[model.Vec2]int
	burning   map[model.Vec2]bool
	furniture map[model.Vec2]model.Furniture
	items     map[model.Vec2][]model.Item
	gone      map[int]bool
	sent      int
	logger    *slog.Logger
}

// New indexes gs. The world keeps its own copy; gs is not modified.
func New(gs model.GameState, sink CommandSink) *World {
	w := &World{
		state:     gs,
		sink:      sink,
		creatures: make(map[int]*model.Creature, len(gs.Creatures)),
		occupant:  make(map[model.Vec2]int, len(gs.Creatures)),
		burning:   make(map[model.Vec2]bool, len(gs.Level.Burning)),
		furniture: make(map[model.Vec2]model.Furniture, len(gs.Level.Furniture)),
		items:     make(map[model.Vec2][]model.Item),
		gone:      make(map[int]bool),
		logger:    slog.Default(),
	}
	w.state.Creatures = slices.Clone(gs.Creatures)
	w.state.Level.Grid.Tiles = slices.Clone(gs.Level.Grid.Tiles)
	for i := range w.state.Creatures {
		c := &w.state.Creatures[i]
		c.Items = slices.Clone(c.Items)
		c.Spells = slices.Clone(c.Spells)
		w.creatures[c.ID] = c
		if c.Pos.Level == gs.Level.Name && c.Health > 0 {
			w.occupant[c.Pos.Coord()] = c.ID
		}
	}
	for _, v := range gs.Level.Burning {
		w.burning[v] = true
	}
	for _, f := range gs.Level.Furniture {
		w.furniture[f.Pos] = f
	}
	for _, gi := range gs.Level.Items {
		w.items[gi.Pos] = append(w.items[gi.Pos], gi.Item)
	}
	return w
}

func (w *World) Tick() int { return w.state.Tick }

// Sent counts commands delivered to the sink.
func (w *World) Sent() int { return w.sent }

// State returns the world as it stands after the actions performed so far.
func (w *World) State() model.GameState {
	gs := w.state
	gs.Creatures = nil
	for _, c := range w.state.Creatures {
		if !w.gone[c.ID] {
			gs.Creatures = append(gs.Creatures, c)
		}
	}
	gs.Level.Items = nil
	for _, v := range w.state.Level.Grid.Bounds().Tiles() {
		for _, it := range w.items[v] {
			gs.Level.Items = append(gs.Level.Items, model.GroundItem{Pos: v, Item: it})
		}
	}
	return gs
}

// Agent returns the decision-making view of a creature on this level.
func (w *World) Agent(id int) (*Agent, bool) {
	c := w.lookup(id)
	if c == nil {
		return nil, false
	}
	return &Agent{Creature: c}, true
}

// Level returns the spatial query view of the current level.
func (w *World) Level() *Level { return &Level{w: w} }

func (w *World) lookup(id int) *Creature {
	c, ok := w.creatures[id]
	if !ok || w.gone[id] || c.Health <= 0 || c.Pos.Level != w.state.Level.Name {
		return nil
	}
	return &Creature{w: w, c: c}
}

func (w *World) grid() *model.TileGrid { return &w.state.Level.Grid }

func (w *World) onLevel(pos model.Position) bool { return pos.Level == w.state.Level.Name }

func (w *World) send(msgType string, cmd any) error {
	if err := w.sink.Send(msgType, cmd); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	w.sent++
	return nil
}

func (w *World) relocate(c *model.Creature, to model.Position) {
	if w.occupant[c.Pos.Coord()] == c.ID {
		delete(w.occupant, c.Pos.Coord())
	}
	c.Pos = to
	w.occupant[to.Coord()] = c.ID
}

func (w *World) remove(c *model.Creature) {
	if w.occupant[c.Pos.Coord()] == c.ID {
		delete(w.occupant, c.Pos.Coord())
	}
	w.gone[c.ID] = true
}

// Level implements ai.Level over the world.
type Level struct {
	w *World
}

func (l *Level) Name() string { return l.w.state.Level.Name }

func (l *Level) Creature(id int) ai.Creature {
	if c := l.w.lookup(id); c != nil {
		return c
	}
	return nil
}

func (l *Level) CreatureAt(pos model.Position) ai.Creature {
	if !l.w.onLevel(pos) {
		return nil
	}
	id, ok := l.w.occupant[pos.Coord()]
	if !ok {
		return nil
	}
	return l.Creature(id)
}

// Creatures lists living creatures on the level in snapshot order.
func (l *Level) Creatures() []ai.Creature {
	var out []ai.Creature
	for i := range l.w.state.Creatures {
		if c := l.w.lookup(l.w.state.Creatures[i].ID); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (l *Level) Players() []ai.Creature {
	var out []ai.Creature
	for _, c := range l.Creatures() {
		if c.Has(model.FlagPlayer) {
			out = append(out, c)
		}
	}
	return out
}

func (l *Level) IsBurning(pos model.Position) bool {
	return l.w.onLevel(pos) && l.w.burning[pos.Coord()]
}

func (l *Level) IsWater(pos model.Position) bool {
	if !l.w.onLevel(pos) {
		return false
	}
	if f, ok := l.w.furniture[pos.Coord()]; ok && f.Water {
		return true
	}
	return l.w.grid().At(pos.Coord()) == model.Water
}

func (l *Level) Furniture(pos model.Position) (model.Furniture, bool) {
	if !l.w.onLevel(pos) {
		return model.Furniture{}, false
	}
	f, ok := l.w.furniture[pos.Coord()]
	return f, ok
}

func (l *Level) StopsProjectiles(pos model.Position) bool {
	if !l.w.onLevel(pos) {
		return true
	}
	if f, ok := l.w.furniture[pos.Coord()]; ok && f.Blocker {
		return true
	}
	return l.w.grid().At(pos.Coord()).BlocksProjectiles()
}

func (l *Level) ItemsAt(pos model.Position) []model.Item {
	if !l.w.onLevel(pos) {
		return nil
	}
	return slices.Clone(l.w.items[pos.Coord()])
}

func (l *Level) Bounds() model.Rect { return l.w.grid().Bounds() }
