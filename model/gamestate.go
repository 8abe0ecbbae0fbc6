package model

// GameState is one tick of a level as reported by the host game.
type GameState struct {
	Tick       int              `json:"tick"`
	Level      Level            `json:"level"`
	Creatures  []Creature       `json:"creatures"`
	Controlled []int            `json:"controlled"` // ids this sidecar decides for, in turn order
	Collective *CollectiveState `json:"collective,omitempty"`
}

// Level carries the static and semi-static parts of the current level.
type Level struct {
	Name      string       `json:"name"`
	Grid      TileGrid     `json:"grid"`
	Burning   []Vec2       `json:"burning,omitempty"`
	Furniture []Furniture  `json:"furniture,omitempty"`
	Items     []GroundItem `json:"items,omitempty"`
}

type Furniture struct {
	Pos     Vec2   `json:"pos"`
	Kind    string `json:"kind"`
	Water   bool   `json:"water,omitempty"` // entering extinguishes fire
	Blocker bool   `json:"blocker,omitempty"`
}

type GroundItem struct {
	Pos  Vec2 `json:"pos"`
	Item Item `json:"item"`
}

// CollectiveState is the host's view of the managed group (if any) the
// controlled creatures belong to. It seeds the sidecar's collective.
type CollectiveState struct {
	Name            string      `json:"name"`
	Members         []int       `json:"members"`
	Fighters        []int       `json:"fighters,omitempty"`
	Workers         []int       `json:"workers,omitempty"`
	NoAutoEquip     []int       `json:"noAutoEquip,omitempty"`
	Territory       []Vec2      `json:"territory,omitempty"`
	Storage         []Vec2      `json:"storage,omitempty"`
	Beds            []Vec2      `json:"beds,omitempty"`
	TrainingDummies []Vec2      `json:"trainingDummies,omitempty"`
	Alarm           *AlarmState `json:"alarm,omitempty"`
	Teams           []TeamState `json:"teams,omitempty"`
	Jobs            []JobState  `json:"jobs,omitempty"`
}

type AlarmState struct {
	Pos    Vec2 `json:"pos"`
	Expiry int  `json:"expiry"`
}

type TeamState struct {
	ID         int      `json:"id"`
	Members    []int    `json:"members"` // first member leads
	Active     bool     `json:"active"`
	Persistent bool     `json:"persistent,omitempty"`
	Orders     []string `json:"orders,omitempty"`
}

// JobState is an externally posted unit of work, e.g. hauling or digging.
type JobState struct {
	ID       int    `json:"id"`
	Activity string `json:"activity"`
	Pos      Vec2   `json:"pos"`
	Priority bool   `json:"priority,omitempty"`
}

// Creature returns the creature with id, if present.
func (gs *GameState) Creature(id int) (*Creature, bool) {
	for i := range gs.Creatures {
		if gs.Creatures[i].ID == id {
			return &gs.Creatures[i], true
		}
	}
	return nil, false
}
