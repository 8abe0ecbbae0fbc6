package collective

import (
	"slices"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/model"
)

type team struct {
	members    []int // first member leads
	active     bool
	persistent bool
	orders     map[ai.TeamOrder]bool
}

// Teams are groups of members following a leader.
type Teams struct {
	level ai.Level
	teams map[ai.TeamID]*team
}

var _ ai.Teams = (*Teams)(nil)

func NewTeams() *Teams {
	return &Teams{teams: make(map[ai.TeamID]*team)}
}

// update replaces the teams with the host's view. Dead members are removed
// and teams with no survivors are dissolved.
func (t *Teams) update(states []model.TeamState, level ai.Level, alive map[int]bool) {
	t.level = level
	t.teams = make(map[ai.TeamID]*team, len(states))
	for _, s := range states {
		tm := &team{active: s.Active, persistent: s.Persistent, orders: make(map[ai.TeamOrder]bool)}
		for _, id := range s.Members {
			if alive[id] {
				tm.members = append(tm.members, id)
			}
		}
		if len(tm.members) == 0 {
			continue
		}
		for _, o := range s.Orders {
			if order, ok := ai.ParseTeamOrder(o); ok {
				tm.orders[order] = true
			}
		}
		t.teams[ai.TeamID(s.ID)] = tm
	}
}

// Containing lists the teams c belongs to in id order.
func (t *Teams) Containing(c ai.Creature) []ai.TeamID {
	var ids []ai.TeamID
	for id, tm := range t.teams {
		if slices.Contains(tm.members, c.ID()) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (t *Teams) IsActive(id ai.TeamID) bool {
	tm, ok := t.teams[id]
	return ok && tm.active
}

func (t *Teams) HasOrder(id ai.TeamID, c ai.Creature, o ai.TeamOrder) bool {
	tm, ok := t.teams[id]
	return ok && tm.orders[o] && slices.Contains(tm.members, c.ID())
}

// Leader is the first member still on the level.
func (t *Teams) Leader(id ai.TeamID) ai.Creature {
	tm, ok := t.teams[id]
	if !ok || t.level == nil {
		return nil
	}
	for _, m := range tm.members {
		if c := t.level.Creature(m); c != nil {
			return c
		}
	}
	return nil
}

func (t *Teams) IsPersistent(id ai.TeamID) bool {
	tm, ok := t.teams[id]
	return ok && tm.persistent
}

func (t *Teams) Len() int { return len(t.teams) }
