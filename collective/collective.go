// Package collective is an in-memory collective for delegating agents. It
// is seeded every tick from the host's view of the group and keeps the
// sidecar-side state (activities, task claims, equipment owners) between
// ticks.
package collective

import (
	"log/slog"
	"slices"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/model"
)

const (
	sleepTurns = 20
	trainTurns = 10
	guardTurns = 5
	jobTurns   = 5
)

// DefaultDurations is how long each activity lasts once chosen.
var DefaultDurations = map[ai.Activity]int{
	ai.ActivityIdle:  10,
	ai.ActivitySleep: 60,
	ai.ActivityTrain: 40,
	ai.ActivityWork:  40,
	ai.ActivityHaul:  30,
	ai.ActivityStudy: 40,
	ai.ActivityGuard: 50,
	ai.ActivityEat:   10,
}

type Option func(*Collective)

// WithHealingOutsideTerritory lets members go to sleep wherever they are.
func WithHealingOutsideTerritory() Option {
	return func(c *Collective) { c.healOutside = true }
}

func WithDurations(d map[ai.Activity]int) Option {
	return func(c *Collective) { c.durations = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Collective) { c.logger = l }
}

// Collective implements ai.Collective. It is owned by the tick loop and is
// not safe for concurrent use.
type Collective struct {
	name        string
	level       ai.Level
	time        int
	state       model.CollectiveState
	members     map[int]bool
	traits      map[ai.MinionTrait]map[int]bool
	territory   map[model.Vec2]bool
	tasks       *TaskMap
	teams       *Teams
	activities  map[int]ai.ActivityState
	jobs        map[int]*entry
	owners      map[int]int // item id -> member id
	healOutside bool
	durations   map[ai.Activity]int
	logger      *slog.Logger
}

var _ ai.Collective = (*Collective)(nil)

func New(name string, opts ...Option) *Collective {
	c := &Collective{
		name:       name,
		members:    make(map[int]bool),
		traits:     make(map[ai.MinionTrait]map[int]bool),
		territory:  make(map[model.Vec2]bool),
		tasks:      NewTaskMap(),
		teams:      NewTeams(),
		activities: make(map[int]ai.ActivityState),
		jobs:       make(map[int]*entry),
		owners:     make(map[int]int),
		durations:  DefaultDurations,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collective) Name() string { return c.name }

// Update reseeds the collective from the host's view at tick. Claims and
// activities of members that are gone are dropped; jobs the host no longer
// lists are withdrawn.
func (c *Collective) Update(state model.CollectiveState, level ai.Level, tick int) {
	c.state = state
	c.level = level
	c.time = tick

	c.members = make(map[int]bool, len(state.Members))
	for _, id := range state.Members {
		if level.Creature(id) != nil {
			c.members[id] = true
		}
	}
	c.traits = map[ai.MinionTrait]map[int]bool{
		ai.TraitFighter:         idSet(state.Fighters),
		ai.TraitWorker:          idSet(state.Workers),
		ai.TraitNoAutoEquipment: idSet(state.NoAutoEquip),
	}
	c.territory = make(map[model.Vec2]bool, len(state.Territory))
	for _, v := range state.Territory {
		c.territory[v] = true
	}

	c.tasks.prune(c.members)
	for id := range c.activities {
		if !c.members[id] {
			delete(c.activities, id)
		}
	}
	c.syncJobs(state.Jobs)
	c.teams.update(state.Teams, level, c.members)

	c.logger.Debug("collective updated",
		"collective", c.name,
		"members", len(c.members),
		"tasks", c.tasks.Len(),
		"teams", c.teams.Len(),
	)
}

func (c *Collective) syncJobs(jobs []model.JobState) {
	posted := make(map[int]bool, len(jobs))
	for _, j := range jobs {
		posted[j.ID] = true
		if _, ok := c.jobs[j.ID]; ok {
			continue
		}
		act, ok := ai.ParseActivity(j.Activity)
		if !ok {
			c.logger.Warn("job with unknown activity", "collective", c.name, "job", j.ID, "activity", j.Activity)
			continue
		}
		pos := c.at(j.Pos)
		c.jobs[j.ID] = c.tasks.add(&entry{
			task:     ai.NewWorkAt(j.Activity, pos, jobTurns),
			activity: act,
			pos:      pos,
			hasPos:   true,
			priority: j.Priority,
			job:      j.ID,
		})
	}
	for id, e := range c.jobs {
		if !posted[id] || e.task.Done() {
			c.tasks.remove(e)
			delete(c.jobs, id)
		}
	}
}

func idSet(ids []int) map[int]bool {
	s := make(map[int]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

func (c *Collective) at(v model.Vec2) model.Position {
	name := ""
	if c.level != nil {
		name = c.level.Name()
	}
	return model.At(name, v)
}

func (c *Collective) Tasks() ai.TaskMap { return c.tasks }
func (c *Collective) Teams() ai.Teams   { return c.teams }
func (c *Collective) Time() int         { return c.time }

// IsMember reports whether id is a living member.
func (c *Collective) IsMember(id int) bool { return c.members[id] }

// CurrentActivity defaults to idle, lapsing now.
func (c *Collective) CurrentActivity(m ai.Creature) ai.ActivityState {
	if s, ok := c.activities[m.ID()]; ok {
		return s
	}
	return ai.ActivityState{Activity: ai.ActivityIdle, FinishTime: c.time}
}

func (c *Collective) SetActivity(m ai.Creature, a ai.Activity) {
	c.activities[m.ID()] = ai.ActivityState{Activity: a, FinishTime: c.time + c.durations[a]}
}

func (c *Collective) ActivityAvailable(m ai.Creature, a ai.Activity) bool {
	switch a {
	case ai.ActivityIdle:
		return true
	case ai.ActivitySleep:
		return len(c.state.Beds) > 0
	case ai.ActivityTrain:
		return len(c.state.TrainingDummies) > 0 && c.HasTrait(m, ai.TraitFighter)
	case ai.ActivityWork, ai.ActivityHaul:
		return c.HasTrait(m, ai.TraitWorker)
	case ai.ActivityGuard:
		return len(c.state.Territory) > 0 && c.HasTrait(m, ai.TraitFighter)
	}
	return false
}

func (c *Collective) CanChooseRandomly(m ai.Creature, a ai.Activity) bool {
	return c.ActivityAvailable(m, a)
}

// ActivityGood: sleeping is only worth it while hurt.
func (c *Collective) ActivityGood(m ai.Creature, a ai.Activity) bool {
	if a == ai.ActivitySleep {
		return m.Health() < 1
	}
	return true
}

// ActivityGoodAssumingTasks also requires work activities to have work.
func (c *Collective) ActivityGoodAssumingTasks(m ai.Creature, a ai.Activity) bool {
	switch a {
	case ai.ActivityWork:
		return c.ExistingTask(m, a) != nil
	case ai.ActivityHaul:
		return c.ExistingTask(m, a) != nil || len(c.looseItems()) > 0
	}
	return c.ActivityGood(m, a)
}

// ExistingTask is the nearest free posted job for the activity.
func (c *Collective) ExistingTask(m ai.Creature, a ai.Activity) ai.Task {
	return c.tasks.closest(m.Position(), func(e *entry) bool {
		return e.job != 0 && !e.priority && e.activity == a
	})
}

func (c *Collective) GenerateTask(m ai.Creature, a ai.Activity) ai.Task {
	from := m.Position()
	switch a {
	case ai.ActivitySleep:
		if bed, ok := c.nearest(from, c.state.Beds); ok {
			return ai.NewWorkAt("sleep", bed, sleepTurns)
		}
	case ai.ActivityTrain:
		if dummy, ok := c.nearest(from, c.state.TrainingDummies); ok {
			return ai.NewWorkAt("train", dummy, trainTurns)
		}
	case ai.ActivityGuard:
		if n := len(c.state.Territory); n > 0 {
			post := c.state.Territory[((c.time+m.ID())%n+n)%n]
			return ai.NewWorkAt("guard", c.at(post), guardTurns)
		}
	case ai.ActivityHaul:
		loose := c.looseItems()
		if len(loose) == 0 || len(c.state.Storage) == 0 {
			return nil
		}
		src := slices.MinFunc(loose, func(x, y model.GroundItem) int {
			return from.DistOr(c.at(x.Pos), 1<<20) - from.DistOr(c.at(y.Pos), 1<<20)
		})
		dst, _ := c.nearest(c.at(src.Pos), c.state.Storage)
		return ai.NewBringItem(c.at(src.Pos), []model.Item{src.Item}, []model.Position{dst})
	}
	return nil
}

// DropTask brings gold a member is carrying back to storage.
func (c *Collective) DropTask(m ai.Creature, a ai.Activity) ai.Task {
	var gold []model.Item
	for _, it := range m.Items() {
		if it.Class == model.ClassGold {
			gold = append(gold, it)
		}
	}
	if len(gold) == 0 {
		return nil
	}
	dst, ok := c.nearest(m.Position(), c.state.Storage)
	if !ok {
		return nil
	}
	return ai.NewDropAt(dst, gold)
}

func (c *Collective) FreeFromTask(m ai.Creature) { c.tasks.Free(m) }

func (c *Collective) Alarm() (ai.Alarm, bool) {
	a := c.state.Alarm
	if a == nil || a.Expiry <= c.time {
		return ai.Alarm{}, false
	}
	return ai.Alarm{Pos: c.at(a.Pos), FinishTime: a.Expiry}, true
}

func (c *Collective) HasTrait(m ai.Creature, t ai.MinionTrait) bool {
	return c.traits[t][m.ID()]
}

func (c *Collective) UsesEquipment(m ai.Creature) bool { return m.Has(model.FlagHumanoid) }

// AutoAssignEquipment gives m ownership of one unowned stored item for
// each equipment class it has nothing for yet.
func (c *Collective) AutoAssignEquipment(m ai.Creature) {
	have := make(map[model.ItemClass]bool)
	for _, it := range m.Items() {
		if it.Equipable() {
			have[it.Class] = true
		}
	}
	for _, s := range c.OwnedStorage(m) {
		for _, it := range s.Items {
			have[it.Class] = true
		}
	}
	for _, v := range c.state.Storage {
		for _, it := range c.level.ItemsAt(c.at(v)) {
			if !it.Equipable() || have[it.Class] || c.owner(it) != 0 {
				continue
			}
			c.owners[it.ID] = m.ID()
			have[it.Class] = true
			c.logger.Debug("equipment assigned", "collective", c.name, "member", m.ID(), "item", it.Name)
		}
	}
}

func (c *Collective) owner(it model.Item) int {
	if it.Owner != 0 {
		return it.Owner
	}
	return c.owners[it.ID]
}

// OwnedStorage lists storage tiles holding items that belong to m.
func (c *Collective) OwnedStorage(m ai.Creature) []ai.Stash {
	if c.level == nil {
		return nil
	}
	var out []ai.Stash
	for _, v := range c.state.Storage {
		pos := c.at(v)
		var mine []model.Item
		for _, it := range c.level.ItemsAt(pos) {
			if c.owner(it) == m.ID() {
				mine = append(mine, it)
			}
		}
		if len(mine) > 0 {
			out = append(out, ai.Stash{Pos: pos, Items: mine})
		}
	}
	return out
}

func (c *Collective) HealingOutsideTerritory() bool { return c.healOutside }

func (c *Collective) InTerritory(pos model.Position) bool {
	return c.level != nil && pos.Level == c.level.Name() && c.territory[pos.Coord()]
}

func (c *Collective) nearest(from model.Position, tiles []model.Vec2) (model.Position, bool) {
	if len(tiles) == 0 {
		return model.Position{}, false
	}
	best := slices.MinFunc(tiles, func(x, y model.Vec2) int {
		return from.DistOr(c.at(x), 1<<20) - from.DistOr(c.at(y), 1<<20)
	})
	return c.at(best), true
}

// looseItems are gold and corpses lying in the territory outside storage.
func (c *Collective) looseItems() []model.GroundItem {
	if c.level == nil {
		return nil
	}
	var out []model.GroundItem
	for _, v := range c.state.Territory {
		if slices.Contains(c.state.Storage, v) {
			continue
		}
		for _, it := range c.level.ItemsAt(c.at(v)) {
			if it.Class == model.ClassGold || it.Class == model.ClassCorpse {
				out = append(out, model.GroundItem{Pos: v, Item: it})
			}
		}
	}
	return out
}
