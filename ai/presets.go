package ai

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/nstehr/warren/warren-core/model"
)

var (
	ErrUnknownPreset = errors.New("unknown preset")
	ErrMissingParam  = errors.New("missing preset parameter")
)

// Preset names a fixed role stack.
type Preset string

const (
	PresetGuard              Preset = "guard"
	PresetMonster            Preset = "monster"
	PresetCollective         Preset = "collective"
	PresetStayInLocation     Preset = "stay_in_location"
	PresetSingleTask         Preset = "single_task"
	PresetWildlifeNonPred    Preset = "wildlife_non_predator"
	PresetMoveRandomly       Preset = "move_randomly"
	PresetStayOnFurniture    Preset = "stay_on_furniture"
	PresetIdle               Preset = "idle"
	PresetScavengerBird      Preset = "scavenger_bird"
	PresetSummoned           Preset = "summoned"
	PresetWarlord            Preset = "warlord"
	PresetShowcaseHeroes     Preset = "showcase_heroes"
	PresetShowcaseHeroLeader Preset = "showcase_hero_leader"
	PresetShowcaseMonsters   Preset = "showcase_monsters"
	PresetShowcaseImps       Preset = "showcase_imps"
)

// Presets lists every preset Build understands.
func Presets() []Preset {
	return []Preset{
		PresetGuard, PresetMonster, PresetCollective, PresetStayInLocation,
		PresetSingleTask, PresetWildlifeNonPred, PresetMoveRandomly, PresetStayOnFurniture,
		PresetIdle, PresetScavengerBird, PresetSummoned, PresetWarlord,
		PresetShowcaseHeroes, PresetShowcaseHeroLeader, PresetShowcaseMonsters, PresetShowcaseImps,
	}
}

// Params carries the per-instance inputs a preset may need. Only the
// fields a preset reads are checked.
type Params struct {
	Area         []model.Vec2
	MoveRandomly bool
	Leader       *int
	MinDist      float64
	MaxDist      float64
	Collective   Collective
	Task         Task
	ChaseEnemies bool
	Furniture    string
	FlyAwayDist  int
	Team         *WarlordTeam
	Showcase     *ShowcaseSession

	// Rand defaults to a source seeded from the agent id.
	Rand *rand.Rand

	FreezeDelay  int
	FreezeLength int
}

// Build assembles the behavior stack for preset and wraps it in an
// Arbiter. Weights are listed highest first.
func Build(agent Agent, preset Preset, p Params, opts ...Option) (*Arbiter, error) {
	if agent == nil {
		return nil, ErrNoAgent
	}
	r := p.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(uint64(agent.ID()), 0x5eed))
	}
	b := builder{agent: agent, rand: r, params: p}
	stack, pickup, err := b.stack(preset)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", preset, err)
	}
	opts = append([]Option{WithPickup(pickup)}, opts...)
	arb, err := NewArbiter(agent, stack, opts...)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", preset, err)
	}
	return arb, nil
}

type builder struct {
	agent  Agent
	rand   *rand.Rand
	params Params
}

func (b builder) fighter() *Fighter {
	f := NewFighter(b.agent, b.rand)
	if b.params.FreezeDelay > 0 || b.params.FreezeLength > 0 {
		f.cooldown = NewChaseCooldown(b.params.FreezeDelay, b.params.FreezeLength)
	}
	return f
}

func (b builder) standGround() *StandGround {
	return &StandGround{fighter: b.fighter()}
}

func (b builder) restOrWander() (*ChooseRandom, error) {
	return NewChooseRandom(b.agent, b.rand,
		[]Behavior{NewRest(b.agent, b.rand), NewMoveRandomly(b.agent, b.rand)},
		[]float64{3, 1})
}

func w(beh Behavior, weight int) Weighted { return Weighted{Behavior: beh, Weight: weight} }

func missing(name string) error { return fmt.Errorf("%w: %s", ErrMissingParam, name) }

func (b builder) stack(preset Preset) ([]Weighted, bool, error) {
	a, r, p := b.agent, b.rand, b.params
	switch preset {
	case PresetGuard:
		return []Weighted{
			w(NewAvoidFire(a, r), 10),
			w(NewEffects(a, r), 5),
			w(b.standGround(), 4),
			w(NewWait(a, r), 1),
		}, true, nil

	case PresetMonster:
		return []Weighted{
			w(NewAvoidFire(a, r), 10),
			w(NewEffects(a, r), 5),
			w(b.fighter(), 3),
			w(NewGoldLust(a, r), 1),
			w(NewMoveRandomly(a, r), 1),
		}, true, nil

	case PresetCollective:
		if p.Collective == nil {
			return nil, false, missing("collective")
		}
		idle, err := b.restOrWander()
		if err != nil {
			return nil, false, err
		}
		return []Weighted{
			w(NewAvoidFire(a, r), 10),
			w(NewSacrifice(a, r), 9),
			w(NewEffects(a, r), 6),
			w(NewDelegate(a, r, p.Collective, b.fighter()), 2),
			w(idle, 1),
		}, false, nil

	case PresetStayInLocation:
		if len(p.Area) == 0 {
			return nil, false, missing("area")
		}
		var last Behavior = NewWait(a, r)
		if p.MoveRandomly {
			last = NewMoveRandomly(a, r)
		}
		return []Weighted{
			w(NewAvoidFire(a, r), 10),
			w(NewEffects(a, r), 5),
			w(b.fighter(), 3),
			w(NewGoldLust(a, r), 1),
			w(NewGuardArea(a, r, p.Area), 1),
			w(last, 1),
		}, true, nil

	case PresetSingleTask:
		if p.Task == nil {
			return nil, false, missing("task")
		}
		var combat Behavior = b.standGround()
		if p.ChaseEnemies {
			combat = b.fighter()
		}
		idle, err := b.restOrWander()
		if err != nil {
			return nil, false, err
		}
		return []Weighted{
			w(NewEffects(a, r), 6),
			w(combat, 5),
			w(NewSingleTask(a, r, p.Task), 2),
			w(idle, 1),
		}, true, nil

	case PresetWildlifeNonPred:
		return []Weighted{
			w(NewWildlife(a, r), 6),
			w(b.standGround(), 5),
			w(NewMoveRandomly(a, r), 1),
		}, true, nil

	case PresetMoveRandomly:
		return []Weighted{w(NewMoveRandomly(a, r), 1)}, true, nil

	case PresetStayOnFurniture:
		if p.Furniture == "" {
			return nil, false, missing("furniture")
		}
		return []Weighted{
			w(NewAvoidFire(a, r), 5),
			w(b.fighter(), 2),
			w(NewStayOnFurniture(a, r, p.Furniture), 1),
		}, true, nil

	case PresetIdle:
		return []Weighted{w(NewRest(a, r), 1)}, true, nil

	case PresetScavengerBird:
		dist := p.FlyAwayDist
		if dist == 0 {
			dist = 3
		}
		return []Weighted{
			w(NewBirdFlyAway(a, r, dist), 2),
			w(NewMoveRandomly(a, r), 1),
		}, true, nil

	case PresetSummoned:
		if p.Leader == nil {
			return nil, false, missing("leader")
		}
		lo, hi := p.MinDist, p.MaxDist
		if hi == 0 {
			lo, hi = 1, 3
		}
		return []Weighted{
			w(NewSummoned(a, r, *p.Leader, lo, hi), 6),
			w(NewAvoidFire(a, r), 5),
			w(NewEffects(a, r), 4),
			w(b.fighter(), 3),
			w(NewMoveRandomly(a, r), 1),
			w(NewGoldLust(a, r), 1),
		}, true, nil

	case PresetWarlord:
		if p.Team == nil || len(p.Team.Members) == 0 {
			return nil, false, missing("team")
		}
		return []Weighted{
			w(NewWarlord(a, r, b.fighter(), p.Team), 6),
			w(NewAvoidFire(a, r), 5),
			w(NewEffects(a, r), 4),
			w(NewMoveRandomly(a, r), 1),
			w(NewGoldLust(a, r), 1),
		}, true, nil

	case PresetShowcaseHeroes, PresetShowcaseHeroLeader, PresetShowcaseMonsters, PresetShowcaseImps:
		if p.Showcase == nil {
			return nil, false, missing("showcase")
		}
		var actor Behavior
		switch preset {
		case PresetShowcaseHeroes:
			actor = NewShowcaseHeroes(a, r, p.Showcase)
		case PresetShowcaseHeroLeader:
			actor = NewShowcaseHeroLeader(a, r, p.Showcase)
		case PresetShowcaseMonsters:
			actor = NewShowcaseMonsters(a, r, p.Showcase)
		default:
			actor = NewShowcaseImps(a, r, p.Showcase)
		}
		idle, err := b.restOrWander()
		if err != nil {
			return nil, false, err
		}
		return []Weighted{
			w(actor, 6),
			w(NewEffects(a, r), 5),
			w(b.fighter(), 2),
			w(idle, 1),
		}, false, nil
	}
	return nil, false, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
}
