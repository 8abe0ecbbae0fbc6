package ai

import "github.com/nstehr/warren/warren-core/model"

// Intent is a declared combat relationship recorded for threat assessment.
type Intent int

const (
	IntentAttack Intent = iota
	IntentChase
	IntentRetreat
)

func (i Intent) String() string {
	switch i {
	case IntentAttack:
		return "attack"
	case IntentChase:
		return "chase"
	case IntentRetreat:
		return "retreat"
	}
	return "unknown"
}

// Creature is the read view of a perceived creature. Relations are asked
// from the receiver's point of view.
type Creature interface {
	ID() int
	Name() string
	Position() model.Position
	Health() float64
	Damage() int
	RangedDamage() int
	Has(f model.Flag) bool
	Affected(c model.Condition) bool
	Items() []model.Item
	Spells() []model.Spell
	Dead() bool

	IsEnemy(o Creature) bool
	IsFriend(o Creature) bool
	CanSee(o Creature) bool
	ShouldAIAttack(o Creature) bool
	ShouldAIChase(o Creature) bool
	ClosestEnemy() Creature
	WillMoveThisTurn() bool
	CanEnter(pos model.Position) bool

	AddCombatIntent(o Creature, kind Intent)
}

// Level answers spatial queries about the agent's current level.
type Level interface {
	Name() string
	Creature(id int) Creature
	CreatureAt(pos model.Position) Creature
	Creatures() []Creature
	Players() []Creature
	IsBurning(pos model.Position) bool
	IsWater(pos model.Position) bool
	Furniture(pos model.Position) (model.Furniture, bool)
	StopsProjectiles(pos model.Position) bool
	ItemsAt(pos model.Position) []model.Item
	Bounds() model.Rect
}

// Agent is the creature being decided for. Action constructors return the
// zero Action when the action is not possible.
type Agent interface {
	Creature

	Time() int
	Level() Level
	FindCreature(id int) Creature // any creature in the snapshot, on any level
	VisibleCreatures() []Creature
	CanEnterEmpty(pos model.Position) bool
	ObeysFormation(o Creature) bool
	CanHeal() bool
	EffectValue(effect model.EffectKind, target model.Position) float64
	ThrowDistance(item model.Item) int
	PickUpOptions() []model.Item

	Wait() Action
	Move(to model.Position) Action
	ForceMove(to model.Position) Action
	MoveTowards(to model.Position) Action
	MoveOnto(to model.Position) Action
	MoveAway(from model.Position, pathfinding bool) Action
	Attack(o Creature) Action
	Equip(item model.Item) Action
	CastSpell(spell model.Spell, target model.Position) Action
	ApplyItem(item model.Item) Action
	Throw(item model.Item, target model.Position) Action
	Give(to Creature, items []model.Item) Action
	Destroy(at model.Position) Action
	Push(o Creature) Action
	Pet(o Creature) Action
	FlyAway() Action
	Die() Action
	PickUp(stack []model.Item) Action
	Drop(items []model.Item) Action
}
