package ai

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/nstehr/warren/warren-core/model"
)

const (
	lastSeenTimeout  = 20
	panicRange       = 7
	panicMemoryRange = 4
	chaseRange       = 20
	healerThreshold  = 0.7
	blastCrowd       = 3

	DefaultFreezeDelay  = 20
	DefaultFreezeLength = 20
)

// Stance is the fighter's tactical mode, recomputed on every call.
type Stance int

const (
	StanceMelee Stance = iota
	StanceRanged
	StanceHealer
)

func (s Stance) String() string {
	switch s {
	case StanceMelee:
		return "melee"
	case StanceRanged:
		return "ranged"
	case StanceHealer:
		return "healer"
	}
	return "unknown"
}

type SightingKind string

const (
	SightingAttack SightingKind = "attack"
	SightingPanic  SightingKind = "panic"
)

// LastSeen remembers where the fighter last engaged or fled from an enemy.
type LastSeen struct {
	Pos    model.Position `json:"pos"`
	Time   int            `json:"time"`
	Kind   SightingKind   `json:"kind"`
	Target int            `json:"target"`
}

// ChaseWindow is an inclusive span of time during which chasing one
// target is suppressed.
type ChaseWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ChaseCooldown tracks per-target chase windows. A chase at time t opens
// [t+Delay, t+Delay+Length] unless a window that has not yet ended exists.
type ChaseCooldown struct {
	Delay   int
	Length  int
	windows map[int]ChaseWindow
}

func NewChaseCooldown(delay, length int) *ChaseCooldown {
	return &ChaseCooldown{Delay: delay, Length: length, windows: make(map[int]ChaseWindow)}
}

// Frozen reports whether chasing target is suppressed at now.
func (c *ChaseCooldown) Frozen(target, now int) bool {
	w, ok := c.windows[target]
	return ok && w.Start <= now && now <= w.End
}

// Refresh opens a new window when none exists or the last one has ended.
// It reports whether a window was opened.
func (c *ChaseCooldown) Refresh(target, now int) bool {
	if w, ok := c.windows[target]; ok && now <= w.End {
		return false
	}
	c.windows[target] = ChaseWindow{Start: now + c.Delay, End: now + c.Delay + c.Length}
	return true
}

func (c *ChaseCooldown) Window(target int) (ChaseWindow, bool) {
	w, ok := c.windows[target]
	return w, ok
}

// Fighter is the combat policy. It is used directly as a behavior and
// owned by wrappers that call MoveWithChase with chasing disabled.
type Fighter struct {
	Base
	lastSeen *LastSeen
	cooldown *ChaseCooldown
}

func NewFighter(a Agent, r *rand.Rand) *Fighter {
	return &Fighter{
		Base:     newBase(a, r),
		cooldown: NewChaseCooldown(DefaultFreezeDelay, DefaultFreezeLength),
	}
}

func (f *Fighter) Name() string { return "fighter" }

func (f *Fighter) Move() Move { return f.MoveWithChase(true) }

// Cooldown exposes the chase windows.
func (f *Fighter) Cooldown() *ChaseCooldown { return f.cooldown }

// LastSeen returns the remembered sighting, dropping it first if its
// target has left the level.
func (f *Fighter) LastSeen() (LastSeen, bool) {
	if ls := f.recall(); ls != nil {
		return *ls, true
	}
	return LastSeen{}, false
}

// MoveWithChase runs the combat decision. With chase false the fighter
// never closes distance and never returns to a last sighting.
func (f *Fighter) MoveWithChase(chase bool) Move {
	me := f.agent
	other := me.ClosestEnemy()
	if other == nil {
		if chase {
			return f.lastSeenMove()
		}
		return NoMove
	}
	chaseThis := chase && me.ShouldAIChase(other)
	if me.ShouldAIAttack(other) {
		return f.attackMove(other, chaseThis)
	}
	return f.reluctantMove(other, chase, chaseThis)
}

// reluctantMove handles an enemy the agent would rather not fight: flee
// when it is close and out-reaches our spells, else engage only if we
// hold an offensive spell.
func (f *Fighter) reluctantMove(other Creature, chase, chaseThis bool) Move {
	me := f.agent
	dist := me.Position().DistOr(other.Position(), 100000)
	minSpellRange := 1000
	offensive := false
	for _, s := range me.Spells() {
		if s.Range > 1 && me.EffectValue(s.Effect, other.Position()) > 0 {
			offensive = true
			if s.Ready && s.Range < minSpellRange {
				minSpellRange = s.Range
			}
		}
	}
	if dist < panicRange && chase {
		if minSpellRange >= dist {
			if m := f.panicMove(other); m.OK() {
				return m
			}
		}
		return f.attackMove(other, chaseThis)
	}
	if offensive && chase {
		return f.attackMove(other, chaseThis)
	}
	return NoMove
}

func (f *Fighter) panicMove(other Creature) Move {
	if m := f.tryEffect(model.EffectEscape, 1); m.OK() {
		return m
	}
	return Do(f.agent.MoveAway(other.Position(), true)).Prepend(func() {
		f.addCombatIntent(other, IntentRetreat)
		f.lastSeen = &LastSeen{Pos: f.agent.Position(), Time: f.agent.Time(), Kind: SightingPanic, Target: other.ID()}
	})
}

func (f *Fighter) recall() *LastSeen {
	if f.lastSeen != nil && f.agent.Level().Creature(f.lastSeen.Target) == nil {
		f.lastSeen = nil
	}
	return f.lastSeen
}

func (f *Fighter) lastSeenMove() Move {
	ls := f.recall()
	if ls == nil {
		return NoMove
	}
	me := f.agent.Position()
	if !ls.Pos.SameLevel(me) || ls.Time < f.agent.Time()-lastSeenTimeout || ls.Pos == me {
		f.lastSeen = nil
		return NoMove
	}
	switch ls.Kind {
	case SightingAttack:
		return MoveOf(0.5, f.agent.MoveTowards(ls.Pos))
	case SightingPanic:
		if ls.Pos.DistOr(me, panicMemoryRange) < panicMemoryRange {
			return MoveOf(0.5, f.agent.MoveAway(ls.Pos, true))
		}
	}
	return NoMove
}

// Stance derives the tactical mode from spells, equipment and allies. A
// support stance only holds while some visible friend hits harder.
func (f *Fighter) Stance() Stance {
	me := f.agent
	s := StanceMelee
	for _, sp := range me.Spells() {
		if sp.Range > 0 && sp.Effect == model.EffectHeal {
			s = StanceHealer
			break
		}
	}
	if s == StanceMelee {
		if _, ok := equipped(me, model.ClassRangedWeapon); ok && me.RangedDamage() >= me.Damage() {
			s = StanceRanged
		}
	}
	if s == StanceMelee {
		return s
	}
	for _, ally := range me.VisibleCreatures() {
		if ally.ID() != me.ID() && ally.IsFriend(me) && ally.Damage() > me.Damage() {
			return s
		}
	}
	return StanceMelee
}

func (f *Fighter) attackMove(other Creature, chase bool) Move {
	stance := f.Stance()
	if stance == StanceHealer {
		chase = false
	}
	if m := f.formationMove(other, stance); m.OK() {
		return m
	}
	if other.Has(model.FlagBoulder) {
		return NoMove
	}
	distance := f.agent.Position().Dir(other.Position()).Length8()
	if m := f.equipMove(other, distance); m.OK() {
		return m
	}
	if distance == 1 {
		if m := f.blastMove(); m.OK() {
			return m
		}
		return f.meleeMove(other)
	}
	if distance > 1 && chase {
		if m, done := f.chaseMove(other, distance); done {
			return m
		}
	}
	if distance == 2 {
		return f.chokePointMove(other)
	}
	return NoMove
}

// formationMove keeps support fighters out of melee and holds the line
// when allies are already engaged further back.
func (f *Fighter) formationMove(other Creature, stance Stance) Move {
	me := f.agent
	if !me.ObeysFormation(other) || !me.Has(model.FlagBrain) {
		return NoMove
	}
	myPos := me.Position()
	distance := myPos.Dir(other.Position()).Length8()
	if stance == StanceHealer {
		if m := f.healerMove(); m.OK() {
			return m
		}
	}
	if stance != StanceMelee {
		switch distance {
		case 1:
			return Do(me.MoveAway(other.Position(), false)).Prepend(func() {
				f.addCombatIntent(other, IntentRetreat)
			})
		case 2:
			return Do(me.Wait())
		}
	}
	if distance < 2 {
		return NoMove
	}
	if other.ShouldAIAttack(me) && !f.isChokePoint2(myPos) {
		behind, inFront := false, false
		for _, ally := range me.VisibleCreatures() {
			if ally.ID() == me.ID() || !ally.IsFriend(me) || ally.Has(model.FlagIllusion) {
				continue
			}
			enemy := ally.ClosestEnemy()
			if enemy == nil || !ally.ShouldAIAttack(enemy) {
				continue
			}
			allyDist, ok := ally.Position().Dist8(enemy.Position())
			if !ok {
				continue
			}
			if allyDist < distance {
				inFront = true
			}
			if !ally.WillMoveThisTurn() {
				allyDist++
			}
			if allyDist >= distance+1 {
				behind = true
			}
		}
		if behind && !inFront {
			return Do(me.Wait())
		}
	}
	return NoMove
}

func (f *Fighter) healerMove() Move {
	me := f.agent
	unsafe := NoMove
	for _, ally := range me.VisibleCreatures() {
		if ally.ID() == me.ID() || !ally.IsFriend(me) || ally.Health() >= healerThreshold {
			continue
		}
		if pos, ok := f.healingPosition(ally.Position()); ok {
			if pos == me.Position() {
				return Do(me.Wait())
			}
			if m := Do(me.MoveTowards(pos)); m.OK() {
				return m
			}
		}
		if m := Do(me.MoveTowards(ally.Position())); m.OK() {
			unsafe = m
		}
	}
	return unsafe
}

// healingPosition is the tile next to target closest to the agent that
// touches no enemy of the agent. The agent's own tile counts, so a healer
// already in place stays there.
func (f *Fighter) healingPosition(target model.Position) (model.Position, bool) {
	me := f.agent
	level := me.Level()
	safe := func(pos model.Position) bool {
		for _, n := range pos.Neighbors8() {
			if c := level.CreatureAt(n); c != nil && c.ID() != me.ID() && c.IsEnemy(me) {
				return false
			}
		}
		return true
	}
	var best model.Position
	bestDist := -1
	for _, pos := range target.Neighbors8() {
		if (pos != me.Position() && !me.CanEnter(pos)) || !safe(pos) {
			continue
		}
		d := me.Position().DistOr(pos, 1<<20)
		if bestDist < 0 || d < bestDist {
			best, bestDist = pos, d
		}
	}
	return best, bestDist >= 0
}

func (f *Fighter) isChokePoint1(pos model.Position) bool {
	me := f.agent
	return (!me.CanEnterEmpty(pos.Minus(model.Vec2{X: 1})) && !me.CanEnterEmpty(pos.Plus(model.Vec2{X: 1}))) ||
		(!me.CanEnterEmpty(pos.Minus(model.Vec2{Y: 1})) && !me.CanEnterEmpty(pos.Plus(model.Vec2{Y: 1})))
}

func (f *Fighter) isChokePoint2(pos model.Position) bool {
	for _, n := range pos.Neighbors4() {
		if f.isChokePoint1(n) {
			return true
		}
	}
	return false
}

func (f *Fighter) equipMove(other Creature, distance int) Move {
	me := f.agent
	if !me.Has(model.FlagHumanoid) {
		return NoMove
	}
	if _, armed := equipped(me, model.ClassWeapon); armed {
		return NoMove
	}
	weapon, ok := f.bestWeapon()
	if !ok {
		return NoMove
	}
	return MoveOf(3/(2+float64(distance)), me.Equip(weapon)).Prepend(func() {
		f.addCombatIntent(other, IntentChase)
	})
}

func (f *Fighter) blastMove() Move {
	me := f.agent
	level := me.Level()
	enemies := 0
	for _, pos := range me.Position().Neighbors8() {
		if c := level.CreatureAt(pos); c != nil && c.IsEnemy(me) {
			enemies++
		}
	}
	if enemies >= blastCrowd {
		return f.tryEffect(model.EffectCircularBlast, 1)
	}
	return NoMove
}

// chaseMove reports done when the chase decision is final, including a
// deliberate NoMove for targets out of chase range.
func (f *Fighter) chaseMove(other Creature, distance int) (Move, bool) {
	me := f.agent
	if other.Has(model.FlagDontChase) || f.cooldown.Frozen(other.ID(), me.Time()) {
		return NoMove, false
	}
	f.lastSeen = nil
	act := me.MoveTowards(other.Position())
	if !act.Possible() {
		return NoMove, false
	}
	if distance >= chaseRange {
		return NoMove, true
	}
	return MoveOf(max(0, 1-float64(distance)/chaseRange), act).Prepend(func() {
		f.addCombatIntent(other, IntentChase)
		f.lastSeen = &LastSeen{Pos: other.Position(), Time: me.Time(), Kind: SightingAttack, Target: other.ID()}
		f.cooldown.Refresh(other.ID(), me.Time())
	}), true
}

// chokePointMove clears a blocked gap between the agent and a target two
// tiles away. With a friend in the gap it prefers a wall-destroying
// effect that cannot hurt the friend.
func (f *Fighter) chokePointMove(other Creature) Move {
	me := f.agent
	level := me.Level()
	mine := make(map[model.Position]bool)
	for _, pos := range me.Position().Neighbors8() {
		mine[pos] = true
	}
	destroy := NoMove
	friendBetween := false
	for _, pos := range other.Position().Neighbors8() {
		if !mine[pos] {
			continue
		}
		if me.CanEnter(pos) {
			return NoMove
		}
		if c := level.CreatureAt(pos); c != nil && c.IsFriend(me) {
			friendBetween = true
			continue
		}
		if !destroy.OK() {
			destroy = Do(me.Destroy(pos))
		}
	}
	if friendBetween {
		if m := f.tryEffect(model.EffectDestroyWalls, 1); m.OK() {
			return m
		}
	}
	return destroy
}

func (f *Fighter) meleeMove(other Creature) Move {
	return Do(f.agent.Attack(other)).Prepend(func() {
		f.addCombatIntent(other, IntentAttack)
	})
}

type fighterMemory struct {
	LastSeen *LastSeen           `json:"lastSeen,omitempty"`
	Windows  map[int]ChaseWindow `json:"windows,omitempty"`
}

func (f *Fighter) SnapshotMemory() (json.RawMessage, error) {
	return json.Marshal(fighterMemory{LastSeen: f.lastSeen, Windows: f.cooldown.windows})
}

func (f *Fighter) RestoreMemory(raw json.RawMessage) error {
	var m fighterMemory
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("fighter memory: %w", err)
	}
	f.lastSeen = m.LastSeen
	f.cooldown.windows = make(map[int]ChaseWindow, len(m.Windows))
	for id, w := range m.Windows {
		f.cooldown.windows[id] = w
	}
	return nil
}

// StandGround fights without ever closing distance. It owns its fighter.
type StandGround struct {
	fighter *Fighter
}

func NewStandGround(a Agent, r *rand.Rand) *StandGround {
	return &StandGround{fighter: NewFighter(a, r)}
}

func (s *StandGround) Name() string                    { return "stand_ground" }
func (s *StandGround) Move() Move                      { return s.fighter.MoveWithChase(false) }
func (s *StandGround) OnAttacked(c Creature)           { s.fighter.OnAttacked(c) }
func (s *StandGround) ItemValue(it model.Item) float64 { return s.fighter.ItemValue(it) }

func (s *StandGround) SnapshotMemory() (json.RawMessage, error) { return s.fighter.SnapshotMemory() }
func (s *StandGround) RestoreMemory(raw json.RawMessage) error  { return s.fighter.RestoreMemory(raw) }

func equipped(c Creature, class model.ItemClass) (model.Item, bool) {
	for _, it := range c.Items() {
		if it.Equipped && it.Class == class {
			return it, true
		}
	}
	return model.Item{}, false
}
