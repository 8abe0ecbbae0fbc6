package rules

import (
	"github.com/expr-lang/expr/vm"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/model"
)

// Rule assigns a behavior preset to the creatures its condition matches.
// ConditionSrc is an expr expression over RuleEnv. The engine tries rules
// by priority and the first match decides the role.
type Rule struct {
	Name         string    `yaml:"name" json:"name" jsonschema:"required"`
	Priority     int       `yaml:"priority" json:"priority"`
	ConditionSrc string    `yaml:"when" json:"when" jsonschema:"required"`
	Preset       ai.Preset `yaml:"preset" json:"preset" jsonschema:"required"`
	Params       ParamSpec `yaml:"params,omitempty" json:"params,omitempty"`
	program      *vm.Program
}

// ParamSpec is the file form of ai.Params. Values that only exist at run
// time (collective, showcase session, war band) are filled in by the agent.
type ParamSpec struct {
	Area         []model.Vec2 `yaml:"area,omitempty" json:"area,omitempty"`
	AreaRadius   int          `yaml:"areaRadius,omitempty" json:"areaRadius,omitempty"` // square around the spawn point
	MoveRandomly bool         `yaml:"moveRandomly,omitempty" json:"moveRandomly,omitempty"`
	MinDist      float64      `yaml:"minDist,omitempty" json:"minDist,omitempty"`
	MaxDist      float64      `yaml:"maxDist,omitempty" json:"maxDist,omitempty"`
	ChaseEnemies bool         `yaml:"chaseEnemies,omitempty" json:"chaseEnemies,omitempty"`
	Furniture    string       `yaml:"furniture,omitempty" json:"furniture,omitempty"`
	FlyAwayDist  int          `yaml:"flyAwayDist,omitempty" json:"flyAwayDist,omitempty"`
	FreezeDelay  int          `yaml:"freezeDelay,omitempty" json:"freezeDelay,omitempty"`
	FreezeLength int          `yaml:"freezeLength,omitempty" json:"freezeLength,omitempty"`
	Task         *TaskSpec    `yaml:"task,omitempty" json:"task,omitempty"`
}

// TaskSpec describes the fixed job of a single_task creature.
type TaskSpec struct {
	Label string     `yaml:"label" json:"label" jsonschema:"required"`
	Pos   model.Vec2 `yaml:"pos" json:"pos"`
	Turns int        `yaml:"turns,omitempty" json:"turns,omitempty"`
}

const defaultTaskTurns = 10

// Params resolves the file values for creature c. Each call returns fresh values so
// creatures never share a task.
func (s ParamSpec) Params(c model.Creature) ai.Params {
	p := ai.Params{
		Area:         s.Area,
		MoveRandomly: s.MoveRandomly,
		MinDist:      s.MinDist,
		MaxDist:      s.MaxDist,
		ChaseEnemies: s.ChaseEnemies,
		Furniture:    s.Furniture,
		FlyAwayDist:  s.FlyAwayDist,
		FreezeDelay:  s.FreezeDelay,
		FreezeLength: s.FreezeLength,
	}
	if c.Leader != nil {
		id := *c.Leader
		p.Leader = &id
	}
	if len(s.Area) == 0 && s.AreaRadius > 0 {
		p.Area = model.Centered(c.Pos.Coord(), s.AreaRadius).Tiles()
	}
	if s.Task != nil {
		turns := s.Task.Turns
		if turns <= 0 {
			turns = defaultTaskTurns
		}
		p.Task = ai.NewWorkAt(s.Task.Label, model.At(c.Pos.Level, s.Task.Pos), turns)
	}
	return p
}
