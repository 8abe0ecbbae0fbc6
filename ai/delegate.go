package ai

import (
	"encoding/json"
	"math/rand/v2"

	"github.com/nstehr/warren/warren-core/model"
)

// Delegate lets a collective member follow the work, teams and alarms of
// its collective, falling back to its own fighter when threatened.
type Delegate struct {
	Base
	collective Collective
	fighter    *Fighter
}

func NewDelegate(a Agent, r *rand.Rand, c Collective, f *Fighter) *Delegate {
	return &Delegate{Base: newBase(a, r), collective: c, fighter: f}
}

func (*Delegate) Name() string { return "delegate" }

func (d *Delegate) OnAttacked(attacker Creature) { d.fighter.OnAttacked(attacker) }

func (d *Delegate) Move() Move {
	d.considerHealing()
	steps := []func() Move{
		d.fighterMove,
		d.priorityTask,
		d.followTeamLeader,
		d.goToAlarm,
		d.normalTask,
		d.newEquipmentTask,
		d.newStandardTask,
	}
	for _, step := range steps {
		if m := step(); m.OK() {
			return m
		}
	}
	return NoMove
}

// considerHealing switches to sleep now and then. Checking every tick would
// cancel a sleep task just as the member reaches its bed.
func (d *Delegate) considerHealing() {
	me := d.agent
	col := d.collective
	if !d.roll(5) {
		return
	}
	if !col.HealingOutsideTerritory() && !col.InTerritory(me.Position()) {
		return
	}
	if !me.CanHeal() || me.Affected(model.Poisoned) {
		return
	}
	if col.CurrentActivity(me).Activity == ActivitySleep {
		return
	}
	if col.ActivityAvailable(me, ActivitySleep) && col.ActivityGood(me, ActivitySleep) {
		col.FreeFromTask(me)
		col.SetActivity(me, ActivitySleep)
	}
}

func (d *Delegate) activeTeam() (TeamID, bool) {
	teams := d.collective.Teams()
	for _, id := range teams.Containing(d.agent) {
		if teams.IsActive(id) {
			return id, true
		}
	}
	return 0, false
}

func (d *Delegate) fighterMove() Move {
	if id, ok := d.activeTeam(); ok {
		teams := d.collective.Teams()
		if teams.HasOrder(id, d.agent, OrderFlee) || teams.HasOrder(id, d.agent, OrderStandGround) {
			return d.fighter.MoveWithChase(false)
		}
	}
	return d.fighter.MoveWithChase(true)
}

func (d *Delegate) priorityTask() Move {
	me := d.agent
	tasks := d.collective.Tasks()
	if t := tasks.TaskFor(me); t != nil && tasks.IsPriority(t) {
		return t.Move(me).OrWait(me)
	}
	for _, act := range Activities() {
		if !d.collective.ActivityAvailable(me, act) {
			continue
		}
		if t := tasks.ClosestPriorityTask(me, act); t != nil {
			tasks.Free(me)
			tasks.Take(me, t)
			return t.Move(me).OrWait(me)
		}
	}
	return NoMove
}

func (d *Delegate) followTeamLeader() Move {
	me := d.agent
	id, ok := d.activeTeam()
	if !ok {
		return NoMove
	}
	teams := d.collective.Teams()
	if teams.HasOrder(id, me, OrderStandGround) {
		return Do(me.Wait())
	}
	leader := teams.Leader(id)
	if leader == nil {
		return NoMove
	}
	if leader.ID() != me.ID() {
		if me.Position().DistOr(leader.Position(), 2) > 1 {
			return Do(me.MoveTowards(leader.Position())).OrWait(me)
		}
		return Do(me.Wait())
	}
	if !teams.IsPersistent(id) {
		return Do(me.Wait())
	}
	return NoMove
}

func (d *Delegate) goToAlarm() Move {
	me := d.agent
	alarm, ok := d.collective.Alarm()
	if !ok || !d.collective.HasTrait(me, TraitFighter) || alarm.FinishTime <= d.collective.Time() {
		return NoMove
	}
	return Do(me.MoveTowards(alarm.Pos))
}

func (d *Delegate) normalTask() Move {
	if t := d.collective.Tasks().TaskFor(d.agent); t != nil {
		return t.Move(d.agent).OrWait(d.agent)
	}
	return NoMove
}

func (d *Delegate) equipmentTask() Task {
	me := d.agent
	col := d.collective
	if !col.UsesEquipment(me) {
		return nil
	}
	if !col.HasTrait(me, TraitNoAutoEquipment) && d.roll(40) {
		col.AutoAssignEquipment(me)
	}
	var tasks []Task
	carried := me.Items()
	for _, it := range carried {
		if !it.Equipped && canEquip(carried, it) {
			tasks = append(tasks, NewEquipItem(it))
		}
	}
	for _, stash := range col.OwnedStorage(me) {
		var consumables []model.Item
		for _, it := range stash.Items {
			if it.Equipable() {
				tasks = append(tasks, NewPickAndEquip(stash.Pos, it))
			} else {
				consumables = append(consumables, it)
			}
		}
		if len(consumables) > 0 {
			tasks = append(tasks, NewPickUpItems(stash.Pos, consumables))
		}
	}
	if len(tasks) == 0 {
		return nil
	}
	return NewChain(tasks...)
}

// canEquip is true for an equipable item whose slot is free.
func canEquip(carried []model.Item, it model.Item) bool {
	if !it.Equipable() {
		return false
	}
	for _, o := range carried {
		if o.Equipped && o.Class == it.Class {
			return false
		}
	}
	return true
}

func (d *Delegate) newEquipmentTask() Move {
	t := d.equipmentTask()
	if t == nil {
		return NoMove
	}
	m := t.Move(d.agent)
	if m.OK() {
		d.collective.Tasks().AddFor(t, d.agent)
	}
	return m
}

type generatedTask struct {
	activity Activity
	task     Task
}

// setRandomTask picks one of the good activities at random and makes it
// current. The chosen task, if one was generated for it, is handed back so
// it is not generated twice.
func (d *Delegate) setRandomTask() *generatedTask {
	me := d.agent
	col := d.collective
	var good []generatedTask
	for _, act := range Activities() {
		if !col.CanChooseRandomly(me, act) || !col.ActivityGoodAssumingTasks(me, act) {
			continue
		}
		if act == ActivityIdle || col.ExistingTask(me, act) != nil {
			good = append(good, generatedTask{activity: act})
		}
		if t := col.GenerateTask(me, act); t != nil {
			good = append(good, generatedTask{activity: act, task: t})
		}
	}
	if len(good) == 0 {
		return nil
	}
	ret := good[d.rand.IntN(len(good))]
	col.SetActivity(me, ret.activity)
	return &ret
}

func (d *Delegate) standardTask() Task {
	me := d.agent
	col := d.collective
	tasks := col.Tasks()
	current := col.CurrentActivity(me)
	var cached *generatedTask
	if current.Activity == ActivityIdle || !col.ActivityGood(me, current.Activity) {
		col.SetActivity(me, ActivityIdle)
		cached = d.setRandomTask()
	}
	current = col.CurrentActivity(me)
	activity := current.Activity
	if current.FinishTime < col.Time() {
		col.SetActivity(me, ActivityIdle)
	}
	if t := col.DropTask(me, activity); t != nil {
		return tasks.AddFor(t, me)
	}
	if t := col.ExistingTask(me, activity); t != nil {
		tasks.Take(me, t)
		return t
	}
	var t Task
	if cached != nil && cached.activity == activity {
		t = cached.task
	} else {
		t = col.GenerateTask(me, activity)
	}
	if t == nil {
		return nil
	}
	return tasks.AddFor(t, me)
}

func (d *Delegate) newStandardTask() Move {
	if t := d.standardTask(); t != nil {
		if m := t.Move(d.agent); m.OK() {
			return m
		}
	}
	return Do(d.agent.Wait())
}

func (d *Delegate) SnapshotMemory() (json.RawMessage, error) { return d.fighter.SnapshotMemory() }
func (d *Delegate) RestoreMemory(raw json.RawMessage) error  { return d.fighter.RestoreMemory(raw) }
