package model

import "slices"

// Flag is an intrinsic creature attribute reported by the host.
type Flag string

const (
	FlagHumanoid  Flag = "humanoid"
	FlagBrain     Flag = "brain"
	FlagBoulder   Flag = "boulder"
	FlagDontChase Flag = "dont_chase"
	FlagCivilian  Flag = "civilian"
	FlagPlayer    Flag = "player"
	FlagIllusion  Flag = "illusion"
	FlagPeaceful  Flag = "peaceful"
	FlagFlying    Flag = "flying"
	FlagCoward    Flag = "coward"
)

// Condition is a lasting effect currently applied to a creature.
type Condition string

const (
	Blind         Condition = "blind"
	Immobile      Condition = "immobile"
	Stunned       Condition = "stunned"
	Poisoned      Condition = "poisoned"
	OnFire        Condition = "on_fire"
	FireResistant Condition = "fire_resistant"
	Insane        Condition = "insane"
	Sleeping      Condition = "sleeping"
	Speed         Condition = "speed"
)

// EffectKind names what a spell or item does when used.
type EffectKind string

const (
	EffectNone          EffectKind = ""
	EffectHeal          EffectKind = "heal"
	EffectEscape        EffectKind = "escape"
	EffectCircularBlast EffectKind = "circular_blast"
	EffectDestroyWalls  EffectKind = "destroy_walls"
	EffectDamage        EffectKind = "damage"
	EffectFire          EffectKind = "fire"
	EffectAntidote      EffectKind = "antidote"
	EffectSpeed         EffectKind = "speed"
)

// ItemClass groups items by how creatures use them.
type ItemClass string

const (
	ClassWeapon       ItemClass = "weapon"
	ClassRangedWeapon ItemClass = "ranged_weapon"
	ClassArmor        ItemClass = "armor"
	ClassGold         ItemClass = "gold"
	ClassCorpse       ItemClass = "corpse"
	ClassPotion       ItemClass = "potion"
	ClassScroll       ItemClass = "scroll"
	ClassFood         ItemClass = "food"
	ClassOther        ItemClass = "other"
)

type Item struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Class     ItemClass  `json:"class"`
	Damage    int        `json:"damage,omitempty"`
	Effect    EffectKind `json:"effect,omitempty"`
	Thrown    bool       `json:"thrown,omitempty"` // effect applies on impact when thrown
	ApplyTime int        `json:"applyTime,omitempty"`
	Equipped  bool       `json:"equipped,omitempty"`
	ForSale   bool       `json:"forSale,omitempty"`
	Owner     int        `json:"owner,omitempty"`
}

// Equipable reports whether the item goes into an equipment slot.
func (it Item) Equipable() bool {
	return it.Class == ClassWeapon || it.Class == ClassRangedWeapon || it.Class == ClassArmor
}

// Stackable reports whether two items are interchangeable for pickup.
func (it Item) Stackable(o Item) bool {
	return it.Name == o.Name && it.Class == o.Class && it.Effect == o.Effect && it.ForSale == o.ForSale
}

// StackItems groups interchangeable items, preserving first-seen order.
func StackItems(items []Item) [][]Item {
	var stacks [][]Item
	for _, it := range items {
		placed := false
		for i := range stacks {
			if stacks[i][0].Stackable(it) {
				stacks[i] = append(stacks[i], it)
				placed = true
				break
			}
		}
		if !placed {
			stacks = append(stacks, []Item{it})
		}
	}
	return stacks
}

type Spell struct {
	Name   string     `json:"name"`
	Effect EffectKind `json:"effect"`
	Range  int        `json:"range"`
	Ready  bool       `json:"ready"`
}

// Creature is a host-reported creature on the current level.
type Creature struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	Tribe        string      `json:"tribe"`
	Pos          Position    `json:"pos"`
	Health       float64     `json:"health"` // fraction of max, 0..1
	Damage       int         `json:"damage"`
	RangedDamage int         `json:"rangedDamage,omitempty"`
	Vision       int         `json:"vision,omitempty"`
	Flags        []Flag      `json:"flags,omitempty"`
	Conditions   []Condition `json:"conditions,omitempty"`
	Items        []Item      `json:"items,omitempty"`
	Spells       []Spell     `json:"spells,omitempty"`
	WillMove     bool        `json:"willMove,omitempty"` // scheduled to act again this turn
	AttackedBy   []int       `json:"attackedBy,omitempty"`
	Role         string      `json:"role,omitempty"`   // host-assigned role hint
	Leader       *int        `json:"leader,omitempty"` // summoner or band leader; nil when none
}

func (c Creature) Has(f Flag) bool { return slices.Contains(c.Flags, f) }

func (c Creature) Affected(cond Condition) bool { return slices.Contains(c.Conditions, cond) }

// Weapon returns the equipped melee weapon, if any.
func (c Creature) Weapon() (Item, bool) {
	return c.equipped(ClassWeapon)
}

// RangedWeapon returns the equipped ranged weapon, if any.
func (c Creature) RangedWeapon() (Item, bool) {
	return c.equipped(ClassRangedWeapon)
}

func (c Creature) equipped(class ItemClass) (Item, bool) {
	for _, it := range c.Items {
		if it.Equipped && it.Class == class {
			return it, true
		}
	}
	return Item{}, false
}

// Item looks up a carried item by id.
func (c Creature) Item(id int) (Item, int, bool) {
	for i, it := range c.Items {
		if it.ID == id {
			return it, i, true
		}
	}
	return Item{}, -1, false
}
