package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/nstehr/warren/warren-core/model"
)

// Rest idles at a low value so anything purposeful beats it.
type Rest struct{ Base }

func NewRest(a Agent, r *rand.Rand) *Rest { return &Rest{newBase(a, r)} }

func (*Rest) Name() string { return "rest" }
func (b *Rest) Move() Move { return MoveOf(0.1, b.agent.Wait()) }

// Wait idles at full value.
type Wait struct{ Base }

func NewWait(a Agent, r *rand.Rand) *Wait { return &Wait{newBase(a, r)} }

func (*Wait) Name() string { return "wait" }
func (b *Wait) Move() Move { return Do(b.agent.Wait()) }

const (
	wanderValue  = 0.0001
	wanderMemory = 3
)

// MoveRandomly wanders, preferring tiles not among the last few visited.
type MoveRandomly struct {
	Base
	visited []model.Position
}

func NewMoveRandomly(a Agent, r *rand.Rand) *MoveRandomly {
	return &MoveRandomly{Base: newBase(a, r)}
}

func (*MoveRandomly) Name() string { return "move_randomly" }

func (b *MoveRandomly) Move() Move {
	me := b.agent
	if !b.seen(me.Position()) {
		b.remember(me.Position())
	}
	if b.roll(2) {
		return MoveOf(wanderValue, me.Wait())
	}
	level := me.Level()
	var target *model.Position
	for _, pos := range b.randomNeighbors() {
		if b.roll(10) {
			if other := level.CreatureAt(pos); other != nil {
				if act := me.Pet(other); act.Possible() {
					return Do(act)
				}
			}
		}
		if !b.seen(pos) && me.Move(pos).Possible() {
			target = &pos
			break
		}
	}
	if target == nil {
		for _, pos := range b.randomNeighbors() {
			if me.Move(pos).Possible() {
				target = &pos
				break
			}
		}
	}
	if target == nil {
		return MoveOf(wanderValue, me.Wait())
	}
	return MoveOf(wanderValue, me.Move(*target)).Append(func() {
		b.remember(me.Position())
	})
}

func (b *MoveRandomly) remember(pos model.Position) {
	b.visited = append(b.visited, pos)
	if len(b.visited) > wanderMemory {
		b.visited = b.visited[len(b.visited)-wanderMemory:]
	}
}

func (b *MoveRandomly) seen(pos model.Position) bool { return slices.Contains(b.visited, pos) }

func (b *MoveRandomly) SnapshotMemory() (json.RawMessage, error) { return json.Marshal(b.visited) }

func (b *MoveRandomly) RestoreMemory(raw json.RawMessage) error {
	if err := json.Unmarshal(raw, &b.visited); err != nil {
		return fmt.Errorf("wander memory: %w", err)
	}
	return nil
}

// AvoidFire steps off burning tiles and heads for water while on fire.
type AvoidFire struct{ Base }

func NewAvoidFire(a Agent, r *rand.Rand) *AvoidFire { return &AvoidFire{newBase(a, r)} }

func (*AvoidFire) Name() string { return "avoid_fire" }

func (b *AvoidFire) Move() Move {
	me := b.agent
	level := me.Level()
	pos := me.Position()
	if level.IsBurning(pos) && !me.Affected(model.FireResistant) {
		for _, n := range b.randomNeighbors() {
			if !level.IsBurning(n) {
				if act := me.Move(n); act.Possible() {
					return Do(act)
				}
			}
		}
		for _, n := range b.randomNeighbors() {
			if act := me.ForceMove(n); act.Possible() {
				return Do(act)
			}
		}
	}
	if me.Affected(model.OnFire) {
		var water *model.Position
		for _, v := range model.Centered(pos.Coord(), 7).Tiles() {
			p := pos.WithCoord(v)
			if !level.IsWater(p) {
				continue
			}
			if water == nil || pos.DistOr(p, 1<<20) < pos.DistOr(*water, 1<<20) {
				water = &p
			}
		}
		if water != nil {
			return Do(me.MoveOnto(*water))
		}
	}
	return NoMove
}

// Effects uses spells, applies and hands out consumables, and throws
// items whose effect triggers on impact.
type Effects struct{ Base }

func NewEffects(a Agent, r *rand.Rand) *Effects { return &Effects{newBase(a, r)} }

func (*Effects) Name() string { return "effects" }

func (*Effects) ItemValue(item model.Item) float64 {
	if item.Effect == model.EffectHeal {
		return 0.5
	}
	return 0
}

func (b *Effects) Move() Move {
	me := b.agent
	level := me.Level()
	best := NoMove
	bestValue := 0.0
	try := func(v float64, act Action) {
		if v > bestValue && act.Possible() {
			best, bestValue = Do(act), v
		}
	}

	for _, s := range me.Spells() {
		if !s.Ready {
			continue
		}
		try(me.EffectValue(s.Effect, me.Position()), me.CastSpell(s, me.Position()))
		if s.Range <= 0 {
			continue
		}
		for _, c := range me.VisibleCreatures() {
			if d, ok := me.Position().Dist8(c.Position()); ok && d <= s.Range && c.ID() != me.ID() {
				try(me.EffectValue(s.Effect, c.Position()), me.CastSpell(s, c.Position()))
			}
		}
	}

	// Civilians haul items for others and must not use them up.
	if !me.Has(model.FlagCivilian) {
		for _, it := range me.Items() {
			if it.Effect == model.EffectNone {
				continue
			}
			if v := me.EffectValue(it.Effect, me.Position()); v > 0 {
				try(v, me.ApplyItem(it))
			}
			for _, n := range me.Position().Neighbors8() {
				c := level.CreatureAt(n)
				if c == nil || !me.IsFriend(c) || me.EffectValue(it.Effect, n) <= 0 || carries(c, it.Name) {
					continue
				}
				try(1, me.Give(c, []model.Item{it}))
			}
		}
	}

	for _, c := range me.VisibleCreatures() {
		if c.ID() != me.ID() {
			b.throwAt(c, try)
		}
	}
	return best.WithValue(1)
}

func (b *Effects) throwAt(other Creature, try func(float64, Action)) {
	me := b.agent
	target := other.Position()
	if !target.SameLevel(me.Position()) {
		return
	}
	var line []model.Position
	for _, v := range model.Line(me.Position().Coord(), target.Coord()) {
		line = append(line, target.WithCoord(v))
	}
	if isObstructed(me.Level(), line) {
		return
	}
	dist := me.Position().DistOr(target, 10000)
	for _, it := range me.Items() {
		if !it.Thrown || it.Effect == model.EffectNone || it.Equipped {
			continue
		}
		v := me.EffectValue(it.Effect, target)
		if v <= 0 || me.ThrowDistance(it) < dist {
			continue
		}
		try(v, me.Throw(it, target).Append(func() {
			if other.IsEnemy(me) {
				b.addCombatIntent(other, IntentAttack)
			}
		}))
	}
}

func carries(c Creature, name string) bool {
	for _, it := range c.Items() {
		if it.Name == name {
			return true
		}
	}
	return false
}

// GoldLust only makes gold attractive to pick up.
type GoldLust struct{ Base }

func NewGoldLust(a Agent, r *rand.Rand) *GoldLust { return &GoldLust{newBase(a, r)} }

func (*GoldLust) Name() string { return "gold_lust" }
func (*GoldLust) Move() Move   { return NoMove }

func (*GoldLust) ItemValue(item model.Item) float64 {
	if item.Class == model.ClassGold {
		return 1
	}
	return 0
}

// Wildlife bites whatever is adjacent and flees anything nearby.
type Wildlife struct{ Base }

func NewWildlife(a Agent, r *rand.Rand) *Wildlife { return &Wildlife{newBase(a, r)} }

func (*Wildlife) Name() string { return "wildlife" }

func (b *Wildlife) Move() Move {
	me := b.agent
	other := b.closestCreature()
	if other == nil {
		return NoMove
	}
	dist := me.Position().DistOr(other.Position(), 100000)
	if dist == 1 {
		return Do(me.Attack(other))
	}
	if dist < panicRange {
		// Pathfinding only pays off when running from a player.
		return Do(me.MoveAway(other.Position(), other.Has(model.FlagPlayer))).Prepend(func() {
			b.addCombatIntent(other, IntentRetreat)
		})
	}
	return NoMove
}

// BirdFlyAway leaves the level now and then, or when an enemy comes near.
type BirdFlyAway struct {
	Base
	maxDist int
}

func NewBirdFlyAway(a Agent, r *rand.Rand, maxDist int) *BirdFlyAway {
	return &BirdFlyAway{Base: newBase(a, r), maxDist: maxDist}
}

func (*BirdFlyAway) Name() string { return "fly_away" }

func (b *BirdFlyAway) Move() Move {
	me := b.agent
	enemy := me.ClosestEnemy()
	near := enemy != nil && enemy.Position().DistOr(me.Position(), 100000) < b.maxDist
	if b.roll(15) || near {
		return Do(me.FlyAway())
	}
	return NoMove
}

// StayOnFurniture keeps the agent on a furniture kind, e.g. animals in a pen.
type StayOnFurniture struct {
	Base
	kind string
	next *model.Position
}

func NewStayOnFurniture(a Agent, r *rand.Rand, kind string) *StayOnFurniture {
	return &StayOnFurniture{Base: newBase(a, r), kind: kind}
}

func (*StayOnFurniture) Name() string { return "stay_on_furniture" }

func (b *StayOnFurniture) on(pos model.Position) bool {
	f, ok := b.agent.Level().Furniture(pos)
	return ok && f.Kind == b.kind
}

func (b *StayOnFurniture) Move() Move {
	me := b.agent
	pos := me.Position()
	if !b.on(pos) {
		if b.next == nil {
			for _, v := range model.Centered(pos.Coord(), 20).Tiles() {
				if p := pos.WithCoord(v); b.on(p) {
					b.next = &p
					break
				}
			}
		}
		if b.next != nil {
			if act := me.MoveOnto(*b.next); act.Possible() {
				return Do(act)
			}
		}
	}
	if b.roll(10) {
		for _, n := range b.randomNeighbors() {
			if me.CanEnter(n) && b.on(n) {
				return Do(me.Move(n))
			}
		}
	}
	return Do(me.Wait())
}

// Sacrifice pushes a blind, immobile neighbor into a gap the pusher itself
// cannot enter, but only while a player is watching.
type Sacrifice struct{ Base }

func NewSacrifice(a Agent, r *rand.Rand) *Sacrifice { return &Sacrifice{newBase(a, r)} }

func (*Sacrifice) Name() string { return "sacrifice" }

func (b *Sacrifice) Move() Move {
	me := b.agent
	if !me.Has(model.FlagHumanoid) {
		return NoMove
	}
	level := me.Level()
	pos := me.Position()
	for _, player := range level.Players() {
		if !me.CanSee(player) {
			continue
		}
		for _, v := range model.Directions8() {
			c := level.CreatureAt(pos.Plus(v))
			if c == nil || !c.Affected(model.Blind) || !c.Affected(model.Immobile) {
				continue
			}
			beyond := pos.Plus(v.Mult(2))
			if c.CanEnter(beyond) && !me.CanEnter(beyond) {
				return Do(me.Push(c))
			}
		}
		break
	}
	return NoMove
}

// GuardTarget leashes the agent to a creature, pulling harder the further
// it strays past minDist.
type GuardTarget struct {
	Base
	target           int
	minDist, maxDist float64
}

func NewGuardTarget(a Agent, r *rand.Rand, target int, minDist, maxDist float64) *GuardTarget {
	return &GuardTarget{Base: newBase(a, r), target: target, minDist: minDist, maxDist: maxDist}
}

func (*GuardTarget) Name() string { return "guard_target" }

func (b *GuardTarget) Move() Move {
	t := b.agent.Level().Creature(b.target)
	if t == nil {
		return NoMove
	}
	return b.moveTowards(t.Position())
}

func (b *GuardTarget) moveTowards(target model.Position) Move {
	me := b.agent
	dist := float64(me.Position().DistOr(target, int(b.maxDist)))
	if dist <= b.minDist {
		return NoMove
	}
	weight := math.Pow((dist-b.minDist)/(b.maxDist-b.minDist), 1.5)
	return MoveOf(weight, me.MoveTowards(target))
}

// Summoned follows its summoner and dies with it. A summoner on another
// level is still alive, so the agent only waits for it.
type Summoned struct {
	GuardTarget
}

func NewSummoned(a Agent, r *rand.Rand, leader int, minDist, maxDist float64) *Summoned {
	return &Summoned{GuardTarget: *NewGuardTarget(a, r, leader, minDist, maxDist)}
}

func (*Summoned) Name() string { return "summoned" }

func (b *Summoned) Move() Move {
	me := b.agent
	leader := me.FindCreature(b.target)
	if leader == nil || leader.Dead() || leader.Affected(model.Stunned) {
		return Do(me.Die())
	}
	if !leader.Position().SameLevel(me.Position()) {
		return NoMove
	}
	return b.moveTowards(leader.Position()).WithValue(0.5)
}

// GuardArea keeps the agent inside a set of tiles on the level it was
// first seen on.
type GuardArea struct {
	Base
	area  []model.Vec2
	in    map[model.Vec2]bool
	level string
}

func NewGuardArea(a Agent, r *rand.Rand, area []model.Vec2) *GuardArea {
	in := make(map[model.Vec2]bool, len(area))
	for _, v := range area {
		in[v] = true
	}
	return &GuardArea{Base: newBase(a, r), area: area, in: in}
}

func (*GuardArea) Name() string { return "guard_area" }

func (b *GuardArea) Move() Move {
	me := b.agent
	pos := me.Position()
	if b.level == "" {
		b.level = pos.Level
	}
	if pos.Level == b.level && b.in[pos.Coord()] {
		return NoMove
	}
	if pos.Level == b.level {
		for _, n := range b.randomNeighbors() {
			if b.in[n.Coord()] {
				if act := me.Move(n); act.Possible() {
					return Do(act)
				}
			}
		}
	}
	if len(b.area) == 0 {
		return NoMove
	}
	dest := b.area[b.rand.IntN(len(b.area))]
	return Do(me.MoveTowards(model.At(b.level, dest)))
}

func (b *GuardArea) SnapshotMemory() (json.RawMessage, error) { return json.Marshal(b.level) }

func (b *GuardArea) RestoreMemory(raw json.RawMessage) error {
	if err := json.Unmarshal(raw, &b.level); err != nil {
		return fmt.Errorf("guard area memory: %w", err)
	}
	return nil
}

// ChooseRandom delegates each tick to one of its children, picked by weight.
type ChooseRandom struct {
	Base
	children []Behavior
	weights  []float64
}

func NewChooseRandom(a Agent, r *rand.Rand, children []Behavior, weights []float64) (*ChooseRandom, error) {
	if len(children) == 0 || len(children) != len(weights) {
		return nil, fmt.Errorf("choose random: %d children, %d weights", len(children), len(weights))
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("choose random: negative weight %v", w)
		}
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("choose random: weights sum to zero")
	}
	return &ChooseRandom{Base: newBase(a, r), children: children, weights: weights}, nil
}

func (*ChooseRandom) Name() string { return "choose_random" }

func (b *ChooseRandom) Move() Move {
	return b.children[b.pick()].Move()
}

func (b *ChooseRandom) pick() int {
	total := 0.0
	for _, w := range b.weights {
		total += w
	}
	x := b.rand.Float64() * total
	for i, w := range b.weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(b.weights) - 1
}

func (b *ChooseRandom) SnapshotMemory() (json.RawMessage, error) {
	mem := make(map[string]json.RawMessage)
	for i, c := range b.children {
		if m, ok := c.(Memorizer); ok {
			raw, err := m.SnapshotMemory()
			if err != nil {
				return nil, err
			}
			mem[memoryKey(i, c)] = raw
		}
	}
	return json.Marshal(mem)
}

func (b *ChooseRandom) RestoreMemory(raw json.RawMessage) error {
	var mem map[string]json.RawMessage
	if err := json.Unmarshal(raw, &mem); err != nil {
		return fmt.Errorf("choose random memory: %w", err)
	}
	for i, c := range b.children {
		m, ok := c.(Memorizer)
		if !ok {
			continue
		}
		if r, ok := mem[memoryKey(i, c)]; ok {
			if err := m.RestoreMemory(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// SingleTask runs one externally supplied task.
type SingleTask struct {
	Base
	task Task
}

func NewSingleTask(a Agent, r *rand.Rand, t Task) *SingleTask {
	return &SingleTask{Base: newBase(a, r), task: t}
}

func (*SingleTask) Name() string { return "single_task" }

func (b *SingleTask) Move() Move {
	if b.task.Done() {
		return NoMove
	}
	return b.task.Move(b.agent)
}

// WarlordTeam is shared by every member of a warlord's war band.
type WarlordTeam struct {
	Members []int
	Orders  map[TeamOrder]bool
}

func (t *WarlordTeam) Has(o TeamOrder) bool { return t.Orders[o] }

// Warlord fights alongside its band and otherwise follows the band leader.
type Warlord struct {
	Base
	fighter *Fighter
	team    *WarlordTeam
}

func NewWarlord(a Agent, r *rand.Rand, f *Fighter, team *WarlordTeam) *Warlord {
	return &Warlord{Base: newBase(a, r), fighter: f, team: team}
}

func (*Warlord) Name() string { return "warlord" }

func (b *Warlord) Move() Move {
	me := b.agent
	fm := b.fighter.MoveWithChase(len(b.team.Orders) == 0)
	if b.team.Has(OrderStandGround) || fm.Value() > 0.1 {
		return fm.OrWait(me)
	}
	if len(b.team.Members) == 0 || b.team.Members[0] == me.ID() {
		return fm
	}
	leader := me.Level().Creature(b.team.Members[0])
	if leader == nil {
		return fm
	}
	return Do(me.MoveTowards(leader.Position()))
}

func (b *Warlord) SnapshotMemory() (json.RawMessage, error) { return b.fighter.SnapshotMemory() }
func (b *Warlord) RestoreMemory(raw json.RawMessage) error  { return b.fighter.RestoreMemory(raw) }
