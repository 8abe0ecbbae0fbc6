package collective

import (
	"slices"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/model"
)

type entry struct {
	task     ai.Task
	activity ai.Activity
	pos      model.Position
	hasPos   bool
	priority bool
	job      int // 0 for tasks generated by members
	owner    int // 0 when unclaimed
}

// TaskMap is the one writer of task claims. A task is held by at most one
// member and a member holds at most one task.
type TaskMap struct {
	entries []*entry
	byOwner map[int]*entry
}

var _ ai.TaskMap = (*TaskMap)(nil)

func NewTaskMap() *TaskMap {
	return &TaskMap{byOwner: make(map[int]*entry)}
}

func (m *TaskMap) find(t ai.Task) *entry {
	for _, e := range m.entries {
		if e.task == t {
			return e
		}
	}
	return nil
}

func (m *TaskMap) add(e *entry) *entry {
	m.entries = append(m.entries, e)
	return e
}

func (m *TaskMap) remove(e *entry) {
	if e.owner != 0 && m.byOwner[e.owner] == e {
		delete(m.byOwner, e.owner)
	}
	m.entries = slices.DeleteFunc(m.entries, func(o *entry) bool { return o == e })
}

// TaskFor returns the unfinished task c holds. Finished tasks are released.
func (m *TaskMap) TaskFor(c ai.Creature) ai.Task {
	e, ok := m.byOwner[c.ID()]
	if !ok {
		return nil
	}
	if e.task.Done() {
		m.release(e)
		return nil
	}
	return e.task
}

func (m *TaskMap) IsPriority(t ai.Task) bool {
	e := m.find(t)
	return e != nil && e.priority
}

// ClosestPriorityTask returns the nearest free priority task for activity.
func (m *TaskMap) ClosestPriorityTask(c ai.Creature, a ai.Activity) ai.Task {
	return m.closest(c.Position(), func(e *entry) bool { return e.priority && e.activity == a })
}

func (m *TaskMap) closest(from model.Position, match func(*entry) bool) ai.Task {
	var best *entry
	bestDist := 0
	for _, e := range m.entries {
		if e.owner != 0 || e.task.Done() || !match(e) {
			continue
		}
		d := 0
		if e.hasPos {
			d = from.DistOr(e.pos, 1<<20)
		}
		if best == nil || d < bestDist {
			best, bestDist = e, d
		}
	}
	if best == nil {
		return nil
	}
	return best.task
}

// Take assigns t to c, releasing whatever c held before and taking t away
// from any other holder.
func (m *TaskMap) Take(c ai.Creature, t ai.Task) {
	m.Free(c)
	e := m.find(t)
	if e == nil {
		e = m.add(&entry{task: t})
	}
	if e.owner != 0 {
		delete(m.byOwner, e.owner)
	}
	e.owner = c.ID()
	m.byOwner[c.ID()] = e
}

// Free releases c's claim. Generated tasks are dropped, posted jobs become
// available again.
func (m *TaskMap) Free(c ai.Creature) {
	if e, ok := m.byOwner[c.ID()]; ok {
		m.release(e)
	}
}

func (m *TaskMap) release(e *entry) {
	delete(m.byOwner, e.owner)
	e.owner = 0
	if e.job == 0 || e.task.Done() {
		m.remove(e)
	}
}

// AddFor registers a generated task and hands it to c.
func (m *TaskMap) AddFor(t ai.Task, c ai.Creature) ai.Task {
	if m.find(t) == nil {
		m.add(&entry{task: t})
	}
	m.Take(c, t)
	return t
}

// Holder returns the member holding t.
func (m *TaskMap) Holder(t ai.Task) (int, bool) {
	e := m.find(t)
	if e == nil || e.owner == 0 {
		return 0, false
	}
	return e.owner, true
}

// Len counts tracked tasks, claimed or not.
func (m *TaskMap) Len() int { return len(m.entries) }

// prune drops claims held by members that are gone.
func (m *TaskMap) prune(alive map[int]bool) {
	for id, e := range m.byOwner {
		if !alive[id] {
			m.release(e)
		}
	}
}
