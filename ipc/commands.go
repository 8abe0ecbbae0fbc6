package ipc

// Command type constants. The host game executes these against the
// creature named by CreatureID.
const (
	TypeWait         = "wait"
	TypeMove         = "move"
	TypeAttack       = "attack"
	TypeEquip        = "equip"
	TypeCastSpell    = "cast_spell"
	TypeApplyItem    = "apply_item"
	TypeThrow        = "throw"
	TypeGive         = "give"
	TypeDestroy      = "destroy"
	TypePush         = "push"
	TypePet          = "pet"
	TypeFlyAway      = "fly_away"
	TypeDie          = "die"
	TypePickUp       = "pick_up"
	TypeDrop         = "drop"
	TypeCombatIntent = "combat_intent"
)

type WaitCommand struct {
	CreatureID int `json:"creature_id"`
}

type MoveCommand struct {
	CreatureID int  `json:"creature_id"`
	X          int  `json:"x"`
	Y          int  `json:"y"`
	Force      bool `json:"force,omitempty"` // ignore burning or hazardous tiles
}

// TargetCommand covers attack, push and pet.
type TargetCommand struct {
	CreatureID int `json:"creature_id"`
	TargetID   int `json:"target_id"`
}

type ItemsCommand struct {
	CreatureID int   `json:"creature_id"`
	ItemIDs    []int `json:"item_ids"`
}

type CastSpellCommand struct {
	CreatureID int    `json:"creature_id"`
	Spell      string `json:"spell"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
}

type ThrowCommand struct {
	CreatureID int `json:"creature_id"`
	ItemID     int `json:"item_id"`
	X          int `json:"x"`
	Y          int `json:"y"`
}

type GiveCommand struct {
	CreatureID int   `json:"creature_id"`
	TargetID   int   `json:"target_id"`
	ItemIDs    []int `json:"item_ids"`
}

type DestroyCommand struct {
	CreatureID int `json:"creature_id"`
	X          int `json:"x"`
	Y          int `json:"y"`
}

// CombatIntentCommand records that CreatureID is attacking, chasing or
// retreating from TargetID, for the host's threat bookkeeping.
type CombatIntentCommand struct {
	CreatureID int    `json:"creature_id"`
	TargetID   int    `json:"target_id"`
	Intent     string `json:"intent"`
}
