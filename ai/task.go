package ai

import (
	"fmt"
	"slices"

	"github.com/nstehr/warren/warren-core/model"
)

// GoTo walks to a position.
type GoTo struct {
	Target model.Position
	done   bool
}

func NewGoTo(target model.Position) *GoTo { return &GoTo{Target: target} }

func (t *GoTo) Name() string { return fmt.Sprintf("go_to(%d,%d)", t.Target.X, t.Target.Y) }
func (t *GoTo) Done() bool   { return t.done }

func (t *GoTo) Move(a Agent) Move {
	if a.Position() == t.Target {
		t.done = true
		return NoMove
	}
	return Do(a.MoveTowards(t.Target))
}

// WorkAt walks to a position and then spends a number of turns there.
type WorkAt struct {
	Label    string
	Target   model.Position
	Duration int
	spent    int
}

func NewWorkAt(label string, target model.Position, duration int) *WorkAt {
	return &WorkAt{Label: label, Target: target, Duration: duration}
}

func (t *WorkAt) Name() string { return t.Label }
func (t *WorkAt) Done() bool   { return t.spent >= t.Duration }

func (t *WorkAt) Move(a Agent) Move {
	if t.Done() {
		return NoMove
	}
	if a.Position() != t.Target {
		return Do(a.MoveTowards(t.Target))
	}
	return Do(a.Wait()).Append(func() { t.spent++ })
}

// EquipItem equips an item already carried.
type EquipItem struct {
	Item model.Item
	done bool
}

func NewEquipItem(item model.Item) *EquipItem { return &EquipItem{Item: item} }

func (t *EquipItem) Name() string { return "equip:" + t.Item.Name }
func (t *EquipItem) Done() bool   { return t.done }

func (t *EquipItem) Move(a Agent) Move {
	if t.done {
		return NoMove
	}
	for _, it := range a.Items() {
		if it.ID == t.Item.ID && it.Equipped {
			t.done = true
			return NoMove
		}
	}
	return Do(a.Equip(t.Item)).Append(func() { t.done = true })
}

// PickUpItems fetches specific items lying at a position.
type PickUpItems struct {
	Pos   model.Position
	IDs   []int
	label string
	done  bool
}

func NewPickUpItems(pos model.Position, items []model.Item) *PickUpItems {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	label := "pick_up"
	if len(items) > 0 {
		label += ":" + items[0].Name
	}
	return &PickUpItems{Pos: pos, IDs: ids, label: label}
}

func (t *PickUpItems) Name() string { return t.label }
func (t *PickUpItems) Done() bool   { return t.done }

func (t *PickUpItems) Move(a Agent) Move {
	if t.done {
		return NoMove
	}
	if a.Position() != t.Pos {
		return Do(a.MoveTowards(t.Pos))
	}
	var here []model.Item
	for _, it := range a.Level().ItemsAt(t.Pos) {
		if slices.Contains(t.IDs, it.ID) {
			here = append(here, it)
		}
	}
	if len(here) == 0 {
		t.done = true
		return NoMove
	}
	return Do(a.PickUp(here)).Append(func() { t.done = true })
}

// DropAt carries items to a position and drops them there.
type DropAt struct {
	Pos  model.Position
	IDs  []int
	done bool
}

func NewDropAt(pos model.Position, items []model.Item) *DropAt {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return &DropAt{Pos: pos, IDs: ids}
}

func (t *DropAt) Name() string { return fmt.Sprintf("drop_at(%d,%d)", t.Pos.X, t.Pos.Y) }
func (t *DropAt) Done() bool   { return t.done }

func (t *DropAt) Move(a Agent) Move {
	if t.done {
		return NoMove
	}
	var carried []model.Item
	for _, it := range a.Items() {
		if slices.Contains(t.IDs, it.ID) {
			carried = append(carried, it)
		}
	}
	if len(carried) == 0 {
		t.done = true
		return NoMove
	}
	if a.Position() != t.Pos {
		return Do(a.MoveTowards(t.Pos))
	}
	return Do(a.Drop(carried)).Append(func() { t.done = true })
}

// Chain runs tasks in order, skipping the ones already done.
type Chain struct {
	Tasks []Task
}

func NewChain(tasks ...Task) *Chain { return &Chain{Tasks: tasks} }

func (t *Chain) Name() string {
	for _, sub := range t.Tasks {
		if !sub.Done() {
			return "chain:" + sub.Name()
		}
	}
	return "chain"
}

func (t *Chain) Done() bool {
	for _, sub := range t.Tasks {
		if !sub.Done() {
			return false
		}
	}
	return true
}

func (t *Chain) Move(a Agent) Move {
	for _, sub := range t.Tasks {
		if sub.Done() {
			continue
		}
		if m := sub.Move(a); m.OK() {
			return m
		}
	}
	return NoMove
}

// NewPickAndEquip fetches an item from storage and equips it.
func NewPickAndEquip(pos model.Position, item model.Item) *Chain {
	return NewChain(NewPickUpItems(pos, []model.Item{item}), NewEquipItem(item))
}

// NewBringItem hauls items from one tile to the first of targets.
func NewBringItem(from model.Position, items []model.Item, targets []model.Position) *Chain {
	if len(targets) == 0 {
		return NewChain(NewPickUpItems(from, items))
	}
	return NewChain(NewPickUpItems(from, items), NewDropAt(targets[0], items))
}
