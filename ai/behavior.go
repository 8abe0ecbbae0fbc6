package ai

import (
	"encoding/json"
	"math/rand/v2"

	"github.com/nstehr/warren/warren-core/model"
)

// Behavior is one independent decision policy. Move may be skipped on
// ticks where arbitration prunes it, so behaviors must not rely on being
// asked every tick.
type Behavior interface {
	Name() string
	Move() Move
	OnAttacked(attacker Creature)
	ItemValue(item model.Item) float64
}

// Memorizer is implemented by behaviors whose private memory should
// survive a sidecar restart.
type Memorizer interface {
	SnapshotMemory() (json.RawMessage, error)
	RestoreMemory(raw json.RawMessage) error
}

// Base carries the non-owning agent reference and default hooks.
type Base struct {
	agent Agent
	rand  *rand.Rand
}

func newBase(a Agent, r *rand.Rand) Base {
	return Base{agent: a, rand: r}
}

func (Base) OnAttacked(Creature) {}

func (Base) ItemValue(model.Item) float64 { return 0 }

// roll is true with probability 1/n.
func (b Base) roll(n int) bool {
	if n <= 1 {
		return true
	}
	return b.rand.IntN(n) == 0
}

func (b Base) shuffle(ps []model.Position) []model.Position {
	b.rand.Shuffle(len(ps), func(i, j int) { ps[i], ps[j] = ps[j], ps[i] })
	return ps
}

// randomNeighbors returns the agent's eight neighbors in random order.
func (b Base) randomNeighbors() []model.Position {
	return b.shuffle(b.agent.Position().Neighbors8())
}

func (b Base) closestCreature() Creature {
	var best Creature
	bestDist := 1 << 30
	me := b.agent.Position()
	for _, o := range b.agent.VisibleCreatures() {
		if o.ID() == b.agent.ID() {
			continue
		}
		if d, ok := me.Dist8(o.Position()); ok && d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

// bestWeapon picks the carried melee weapon with the highest damage.
func (b Base) bestWeapon() (model.Item, bool) {
	var best model.Item
	found := false
	for _, it := range b.agent.Items() {
		if it.Class != model.ClassWeapon {
			continue
		}
		if !found || it.Damage > best.Damage {
			best, found = it, true
		}
	}
	return best, found
}

// tryEffect casts a spell or applies an item producing effect.
func (b Base) tryEffect(effect model.EffectKind, maxTurns int) Move {
	me := b.agent.Position()
	for _, s := range b.agent.Spells() {
		if s.Effect == effect {
			if act := b.agent.CastSpell(s, me); act.Possible() {
				return Do(act)
			}
		}
	}
	for _, it := range b.agent.Items() {
		if it.Effect == effect && it.ApplyTime <= maxTurns {
			if act := b.agent.ApplyItem(it); act.Possible() {
				return Do(act)
			}
		}
	}
	return NoMove
}

// addCombatIntent records kind on the agent and, if it notices, the target.
func (b Base) addCombatIntent(o Creature, kind Intent) {
	if o.CanSee(b.agent) {
		o.AddCombatIntent(b.agent, kind)
	}
	b.agent.AddCombatIntent(o, kind)
}

func isObstructed(level Level, line []model.Position) bool {
	for i := 1; i < len(line); i++ {
		pos := line[i]
		if level.StopsProjectiles(pos) {
			return true
		}
		if level.CreatureAt(pos) != nil && i != len(line)-1 {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
