// Package arena runs the decision core against a generated level without
// a host game. Commands are applied locally between ticks.
package arena

import (
	"errors"
	"fmt"
	"math/rand/v2"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/nstehr/warren/warren-core/model"
)

const LevelName = "arena"

var ErrTooCrowded = errors.New("not enough floor for the population")

// Population describes one group placed on the generated level.
type Population struct {
	Name   string
	Tribe  string
	Count  int
	Damage int
	Role   string
	Flags  []model.Flag
}

// CaveConfig controls level generation. The same seed always yields the
// same level and placement.
type CaveConfig struct {
	Width       int
	Height      int
	Seed        int64
	WallLevel   float64 // noise above this becomes wall
	Populations []Population
}

// DefaultPopulations is a skirmish between two tribes with a few
// bystanders that exercise the non-combat roles.
func DefaultPopulations() []Population {
	return []Population{
		{Name: "orc", Tribe: "orcs", Count: 6, Damage: 3},
		{Name: "elf", Tribe: "elves", Count: 6, Damage: 2},
		{Name: "deer", Tribe: "wildlife", Count: 2, Damage: 1, Flags: []model.Flag{model.FlagPeaceful}},
		{Name: "villager", Tribe: "elves", Count: 2, Damage: 1, Flags: []model.Flag{model.FlagCivilian, model.FlagHumanoid}},
		{Name: "elf guard", Tribe: "elves", Count: 1, Damage: 3, Role: "guard"},
		{Name: "orc sentry", Tribe: "orcs", Count: 1, Damage: 3, Role: "sentry"},
	}
}

// Generate builds a cave level from layered simplex noise and places the
// populations on random floor tiles. Every creature is controlled.
func Generate(cfg CaveConfig) (model.GameState, error) {
	if cfg.Width <= 2 || cfg.Height <= 2 {
		return model.GameState{}, fmt.Errorf("cave %dx%d is too small", cfg.Width, cfg.Height)
	}
	if cfg.WallLevel == 0 {
		cfg.WallLevel = 0.6
	}
	noise := opensimplex.NewNormalized(cfg.Seed)
	grid := model.NewTileGrid(cfg.Width, cfg.Height, model.Floor)

	var floor []model.Vec2
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			v := model.Vec2{X: x, Y: y}
			if x == 0 || y == 0 || x == cfg.Width-1 || y == cfg.Height-1 {
				grid.Set(v, model.Rock)
				continue
			}
			if octaveNoise(noise, float64(x), float64(y), 3, 0.12, 0.5) > cfg.WallLevel {
				grid.Set(v, model.Wall)
				continue
			}
			floor = append(floor, v)
		}
	}

	total := 0
	for _, p := range cfg.Populations {
		total += p.Count
	}
	if total > len(floor) {
		return model.GameState{}, fmt.Errorf("%d creatures, %d floor tiles: %w", total, len(floor), ErrTooCrowded)
	}

	r := rand.New(rand.NewPCG(uint64(cfg.Seed), 0xa7e4a))
	r.Shuffle(len(floor), func(i, j int) { floor[i], floor[j] = floor[j], floor[i] })

	gs := model.GameState{
		Tick:  1,
		Level: model.Level{Name: LevelName, Grid: *grid},
	}
	id := 1
	for _, p := range cfg.Populations {
		for range p.Count {
			gs.Creatures = append(gs.Creatures, model.Creature{
				ID:     id,
				Name:   p.Name,
				Tribe:  p.Tribe,
				Pos:    model.At(LevelName, floor[id-1]),
				Health: 1,
				Damage: p.Damage,
				Flags:  p.Flags,
				Role:   p.Role,
			})
			gs.Controlled = append(gs.Controlled, id)
			id++
		}
	}
	return gs, nil
}

// octaveNoise layers several frequencies of noise into one sample.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
