package rules

import (
	"slices"
	"strings"

	"github.com/nstehr/warren/warren-core/model"
)

// RuleEnv wraps one creature and its surroundings and exposes helper
// methods callable from expr conditions.
type RuleEnv struct {
	Name      string
	Tribe     string
	Role      string
	Health    float64
	Leader    int
	HasLeader bool
	Tick      int
	Level     string
	Member    bool // belongs to the managed collective
	Fighter   bool
	Worker    bool
	Showcase  bool // a set-piece session is running

	creature model.Creature
	state    model.GameState
}

// NewEnv builds the environment for creature c of gs.
func NewEnv(gs model.GameState, c model.Creature, showcase bool) RuleEnv {
	env := RuleEnv{
		Name:     c.Name,
		Tribe:    c.Tribe,
		Role:     c.Role,
		Health:   c.Health,
		Tick:     gs.Tick,
		Level:    gs.Level.Name,
		Showcase: showcase,
		creature: c,
		state:    gs,
	}
	if c.Leader != nil {
		env.Leader, env.HasLeader = *c.Leader, true
	}
	if col := gs.Collective; col != nil {
		env.Member = slices.Contains(col.Members, c.ID)
		env.Fighter = slices.Contains(col.Fighters, c.ID)
		env.Worker = slices.Contains(col.Workers, c.ID)
	}
	return env
}

func (e RuleEnv) Has(flag string) bool {
	return slices.ContainsFunc(e.creature.Flags, func(f model.Flag) bool {
		return strings.EqualFold(string(f), flag)
	})
}

func (e RuleEnv) Affected(cond string) bool {
	return slices.ContainsFunc(e.creature.Conditions, func(c model.Condition) bool {
		return strings.EqualFold(string(c), cond)
	})
}

func (e RuleEnv) Carries(class string) bool {
	return slices.ContainsFunc(e.creature.Items, func(it model.Item) bool {
		return strings.EqualFold(string(it.Class), class)
	})
}

func (e RuleEnv) HasSpell(name string) bool {
	return slices.ContainsFunc(e.creature.Spells, func(s model.Spell) bool {
		return strings.EqualFold(s.Name, name)
	})
}

// OnFurniture reports whether the creature stands on furniture of kind.
func (e RuleEnv) OnFurniture(kind string) bool {
	for _, f := range e.state.Level.Furniture {
		if f.Pos == e.creature.Pos.Coord() && strings.EqualFold(f.Kind, kind) {
			return true
		}
	}
	return false
}

// TribeCount counts living creatures of tribe on the level.
func (e RuleEnv) TribeCount(tribe string) int {
	n := 0
	for _, c := range e.state.Creatures {
		if c.Health > 0 && strings.EqualFold(c.Tribe, tribe) {
			n++
		}
	}
	return n
}

// LeaderAlive is false for creatures without a leader.
func (e RuleEnv) LeaderAlive() bool {
	if !e.HasLeader {
		return false
	}
	l, ok := e.state.Creature(e.Leader)
	return ok && l.Health > 0
}

// InTeam reports whether the creature is listed in any collective team.
func (e RuleEnv) InTeam() bool {
	if e.state.Collective == nil {
		return false
	}
	for _, t := range e.state.Collective.Teams {
		if slices.Contains(t.Members, e.creature.ID) {
			return true
		}
	}
	return false
}
