package world

import (
	"slices"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/ipc"
	"github.com/nstehr/warren/warren-core/model"
)

const (
	// fleeHealth is the health fraction below which a creature stops
	// picking fights.
	fleeHealth = 0.25
)

// Creature implements ai.Creature for a creature in the snapshot.
type Creature struct {
	w *World
	c *model.Creature
}

func (c *Creature) ID() int                            { return c.c.ID }
func (c *Creature) Name() string                       { return c.c.Name }
func (c *Creature) Position() model.Position           { return c.c.Pos }
func (c *Creature) Health() float64                    { return c.c.Health }
func (c *Creature) Damage() int                        { return c.c.Damage }
func (c *Creature) RangedDamage() int                  { return c.c.RangedDamage }
func (c *Creature) Has(f model.Flag) bool              { return c.c.Has(f) }
func (c *Creature) Affected(cond model.Condition) bool { return c.c.Affected(cond) }
func (c *Creature) Items() []model.Item                { return slices.Clone(c.c.Items) }
func (c *Creature) Spells() []model.Spell              { return slices.Clone(c.c.Spells) }
func (c *Creature) WillMoveThisTurn() bool             { return c.c.WillMove }

func (c *Creature) Dead() bool { return c.c.Health <= 0 || c.w.gone[c.c.ID] }

func (c *Creature) tribe(o ai.Creature) string {
	if m, ok := c.w.creatures[o.ID()]; ok {
		return m.Tribe
	}
	return ""
}

// IsEnemy: different tribes are hostile unless either side is peaceful.
func (c *Creature) IsEnemy(o ai.Creature) bool {
	if o == nil || o.ID() == c.ID() {
		return false
	}
	if c.Has(model.FlagPeaceful) || o.Has(model.FlagPeaceful) {
		return false
	}
	return c.c.Tribe != c.tribe(o)
}

func (c *Creature) IsFriend(o ai.Creature) bool {
	return o != nil && c.c.Tribe != "" && c.c.Tribe == c.tribe(o)
}

func (c *Creature) vision() int {
	if c.c.Vision > 0 {
		return c.c.Vision
	}
	return DefaultVision
}

// CanSee checks range and that no tile between the two blocks sight.
func (c *Creature) CanSee(o ai.Creature) bool {
	if o == nil || c.Affected(model.Blind) {
		return false
	}
	if o.ID() == c.ID() {
		return true
	}
	d, ok := c.c.Pos.Dist8(o.Position())
	if !ok || d > c.vision() {
		return false
	}
	line := model.Line(c.c.Pos.Coord(), o.Position().Coord())
	grid := c.w.grid()
	for _, v := range line[1 : len(line)-1] {
		if grid.At(v).BlocksProjectiles() {
			return false
		}
	}
	return true
}

func (c *Creature) ShouldAIAttack(o ai.Creature) bool {
	return c.IsEnemy(o) && !c.Has(model.FlagCoward) && c.c.Health >= fleeHealth
}

func (c *Creature) ShouldAIChase(o ai.Creature) bool {
	return !o.Has(model.FlagBoulder) && !c.Affected(model.Immobile)
}

// ClosestEnemy returns the nearest visible enemy; ties go to snapshot order.
func (c *Creature) ClosestEnemy() ai.Creature {
	var best ai.Creature
	bestDist := 0
	for _, o := range c.w.Level().Creatures() {
		if !c.IsEnemy(o) || !c.CanSee(o) {
			continue
		}
		d, _ := c.c.Pos.Dist8(o.Position())
		if best == nil || d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

// CanEnter reports whether the creature could stand on pos right now.
func (c *Creature) CanEnter(pos model.Position) bool {
	if !c.canEnterTerrain(pos) {
		return false
	}
	_, taken := c.w.occupant[pos.Coord()]
	return !taken
}

func (c *Creature) canEnterTerrain(pos model.Position) bool {
	if !c.w.onLevel(pos) || pos.Level != c.c.Pos.Level {
		return false
	}
	if f, ok := c.w.furniture[pos.Coord()]; ok && f.Blocker {
		return false
	}
	tile := c.w.grid().At(pos.Coord())
	if c.Has(model.FlagFlying) {
		return tile.Flyable()
	}
	return tile.Walkable()
}

// AddCombatIntent reports the intent to the host. Delivery failures are
// logged; the decision already made stands.
func (c *Creature) AddCombatIntent(o ai.Creature, kind ai.Intent) {
	err := c.w.send(ipc.TypeCombatIntent, ipc.CombatIntentCommand{
		CreatureID: c.ID(),
		TargetID:   o.ID(),
		Intent:     kind.String(),
	})
	if err != nil {
		c.w.logger.Warn("combat intent not delivered", "creature", c.ID(), "target", o.ID(), "intent", kind, "error", err)
	}
}
