package world

import (
	"fmt"
	"slices"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/ipc"
	"github.com/nstehr/warren/warren-core/model"
)

const (
	throwRange     = 6
	tossRange      = 3
	escapeDistance = 3
)

// Agent implements ai.Agent. Every action constructor checks feasibility
// against the local snapshot and returns the zero ai.Action when the host
// would refuse it.
type Agent struct {
	*Creature
}

var _ ai.Agent = (*Agent)(nil)

func (a *Agent) Time() int { return a.w.state.Tick }

func (a *Agent) Level() ai.Level { return a.w.Level() }

// FindCreature also returns creatures on other levels and dead ones still
// listed in the snapshot. It returns nil for unknown ids.
func (a *Agent) FindCreature(id int) ai.Creature {
	c, ok := a.w.creatures[id]
	if !ok {
		return nil
	}
	return &Creature{w: a.w, c: c}
}

func (a *Agent) VisibleCreatures() []ai.Creature {
	var out []ai.Creature
	for _, o := range a.w.Level().Creatures() {
		if o.ID() != a.ID() && a.CanSee(o) {
			out = append(out, o)
		}
	}
	return out
}

// CanEnterEmpty ignores creatures standing on pos.
func (a *Agent) CanEnterEmpty(pos model.Position) bool { return a.canEnterTerrain(pos) }

func (a *Agent) ObeysFormation(o ai.Creature) bool {
	return !a.Affected(model.Insane) && !o.Has(model.FlagBoulder)
}

func (a *Agent) CanHeal() bool { return a.c.Health < 1 && !a.Has(model.FlagBoulder) }

// EffectValue estimates how useful an effect centred on target would be,
// in [0,1]. Zero means do not use it.
func (a *Agent) EffectValue(effect model.EffectKind, target model.Position) float64 {
	level := a.w.Level()
	t := level.CreatureAt(target)
	friendly := t != nil && (t.ID() == a.ID() || a.IsFriend(t))
	hostile := t != nil && a.IsEnemy(t)
	switch effect {
	case model.EffectHeal:
		if friendly && t.Health() < 1 {
			return 1 - t.Health()
		}
	case model.EffectAntidote:
		if friendly && t.Affected(model.Poisoned) {
			return 1
		}
	case model.EffectSpeed:
		if friendly && !t.Affected(model.Speed) && a.ClosestEnemy() != nil {
			return 0.3
		}
	case model.EffectEscape:
		if t != nil && t.ID() == a.ID() && a.c.Health < 0.5 {
			if e := a.ClosestEnemy(); e != nil && a.c.Pos.DistOr(e.Position(), escapeDistance) < escapeDistance {
				return 1
			}
		}
	case model.EffectDamage:
		if hostile {
			return 1
		}
	case model.EffectFire:
		if hostile && !t.Affected(model.FireResistant) {
			return 1
		}
	case model.EffectCircularBlast:
		enemies := 0
		for _, n := range target.Neighbors8() {
			c := level.CreatureAt(n)
			if c == nil || c.ID() == a.ID() {
				continue
			}
			if a.IsFriend(c) {
				return 0
			}
			if a.IsEnemy(c) {
				enemies++
			}
		}
		return min(1, float64(enemies)/3)
	case model.EffectDestroyWalls:
		for _, n := range target.Neighbors8() {
			if a.w.onLevel(n) && a.w.grid().At(n.Coord()).Destructible() {
				return 0.5
			}
		}
	}
	return 0
}

func (a *Agent) ThrowDistance(item model.Item) int {
	if item.Thrown {
		return throwRange
	}
	return tossRange
}

// PickUpOptions lists items lying under the agent.
func (a *Agent) PickUpOptions() []model.Item {
	return a.w.Level().ItemsAt(a.c.Pos)
}

func (a *Agent) adjacent(pos model.Position) bool {
	d, ok := a.c.Pos.Dist8(pos)
	return ok && d == 1
}

func (a *Agent) carried(ids []int) bool {
	for _, id := range ids {
		if _, _, ok := a.c.Item(id); !ok {
			return false
		}
	}
	return len(ids) > 0
}

func itemIDs(items []model.Item) []int {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func (a *Agent) Wait() ai.Action {
	return ai.NewAction("wait", func() error {
		return a.w.send(ipc.TypeWait, ipc.WaitCommand{CreatureID: a.ID()})
	})
}

func (a *Agent) stepTo(name string, to model.Position, force bool) ai.Action {
	if a.Affected(model.Immobile) || !a.adjacent(to) || !a.CanEnter(to) {
		return ai.Action{}
	}
	if !force && a.w.Level().IsBurning(to) && !a.Affected(model.FireResistant) {
		return ai.Action{}
	}
	return ai.NewAction(name, func() error {
		err := a.w.send(ipc.TypeMove, ipc.MoveCommand{CreatureID: a.ID(), X: to.X, Y: to.Y, Force: force})
		if err != nil {
			return err
		}
		a.w.relocate(a.c, to)
		return nil
	})
}

func (a *Agent) Move(to model.Position) ai.Action { return a.stepTo("move", to, false) }

// ForceMove steps even onto burning tiles.
func (a *Agent) ForceMove(to model.Position) ai.Action { return a.stepTo("force_move", to, true) }

// MoveTowards takes the single neighboring step that gets closest to to.
// Route planning is the host's business; this only needs to be monotone.
func (a *Agent) MoveTowards(to model.Position) ai.Action {
	if !to.SameLevel(a.c.Pos) || to == a.c.Pos {
		return ai.Action{}
	}
	cur := a.c.Pos.Coord()
	goal := to.Coord()
	bestD, bestM := cur.Dist8(goal), cur.Minus(goal).Length4()
	var best *model.Position
	for _, n := range a.c.Pos.Neighbors8() {
		if !a.Move(n).Possible() {
			continue
		}
		d, m := n.Coord().Dist8(goal), n.Coord().Minus(goal).Length4()
		if d < bestD || (d == bestD && m < bestM) {
			p := n
			best, bestD, bestM = &p, d, m
		}
	}
	if best == nil {
		return ai.Action{}
	}
	return a.stepTo("move_towards", *best, false)
}

// MoveOnto steps onto to when adjacent, otherwise heads for it.
func (a *Agent) MoveOnto(to model.Position) ai.Action {
	if a.adjacent(to) {
		return a.stepTo("move_onto", to, false)
	}
	return a.MoveTowards(to)
}

// MoveAway steps to the neighbor furthest from from. Both modes step
// greedily; pathfinding only matters to the host's own planner.
func (a *Agent) MoveAway(from model.Position, pathfinding bool) ai.Action {
	if !from.SameLevel(a.c.Pos) {
		return ai.Action{}
	}
	src := from.Coord()
	curD := a.c.Pos.Coord().Dist8(src)
	bestD, bestM := 0, 0
	var best *model.Position
	for _, n := range a.c.Pos.Neighbors8() {
		if !a.Move(n).Possible() {
			continue
		}
		d, m := n.Coord().Dist8(src), n.Coord().Minus(src).Length4()
		if d <= curD {
			continue
		}
		if best == nil || d > bestD || (d == bestD && m > bestM) {
			p := n
			best, bestD, bestM = &p, d, m
		}
	}
	if best == nil {
		return ai.Action{}
	}
	return a.stepTo("move_away", *best, false)
}

func (a *Agent) Attack(o ai.Creature) ai.Action {
	if o == nil || o.Dead() || !a.adjacent(o.Position()) || a.Affected(model.Stunned) {
		return ai.Action{}
	}
	return ai.NewAction("attack:"+o.Name(), func() error {
		return a.w.send(ipc.TypeAttack, ipc.TargetCommand{CreatureID: a.ID(), TargetID: o.ID()})
	})
}

func (a *Agent) Equip(item model.Item) ai.Action {
	it, _, ok := a.c.Item(item.ID)
	if !ok || it.Equipped || !it.Equipable() {
		return ai.Action{}
	}
	return ai.NewAction("equip:"+it.Name, func() error {
		if err := a.w.send(ipc.TypeEquip, ipc.ItemsCommand{CreatureID: a.ID(), ItemIDs: []int{it.ID}}); err != nil {
			return err
		}
		for i := range a.c.Items {
			switch {
			case a.c.Items[i].ID == it.ID:
				a.c.Items[i].Equipped = true
			case a.c.Items[i].Class == it.Class:
				a.c.Items[i].Equipped = false
			}
		}
		return nil
	})
}

func (a *Agent) CastSpell(spell model.Spell, target model.Position) ai.Action {
	i := slices.IndexFunc(a.c.Spells, func(s model.Spell) bool { return s.Name == spell.Name })
	if i < 0 || !a.c.Spells[i].Ready || !target.SameLevel(a.c.Pos) {
		return ai.Action{}
	}
	if target != a.c.Pos && a.c.Pos.DistOr(target, 1<<20) > a.c.Spells[i].Range {
		return ai.Action{}
	}
	return ai.NewAction("cast:"+spell.Name, func() error {
		err := a.w.send(ipc.TypeCastSpell, ipc.CastSpellCommand{CreatureID: a.ID(), Spell: spell.Name, X: target.X, Y: target.Y})
		if err != nil {
			return err
		}
		a.c.Spells[i].Ready = false
		return nil
	})
}

func (a *Agent) ApplyItem(item model.Item) ai.Action {
	it, _, ok := a.c.Item(item.ID)
	if !ok || it.Effect == model.EffectNone {
		return ai.Action{}
	}
	return ai.NewAction("apply:"+it.Name, func() error {
		if err := a.w.send(ipc.TypeApplyItem, ipc.ItemsCommand{CreatureID: a.ID(), ItemIDs: []int{it.ID}}); err != nil {
			return err
		}
		a.dropLocal(it.ID)
		return nil
	})
}

func (a *Agent) Throw(item model.Item, target model.Position) ai.Action {
	it, _, ok := a.c.Item(item.ID)
	if !ok || it.Equipped || !target.SameLevel(a.c.Pos) || a.c.Pos.DistOr(target, 1<<20) > a.ThrowDistance(it) {
		return ai.Action{}
	}
	return ai.NewAction("throw:"+it.Name, func() error {
		err := a.w.send(ipc.TypeThrow, ipc.ThrowCommand{CreatureID: a.ID(), ItemID: it.ID, X: target.X, Y: target.Y})
		if err != nil {
			return err
		}
		a.dropLocal(it.ID)
		if !it.Thrown || it.Effect == model.EffectNone {
			a.w.items[target.Coord()] = append(a.w.items[target.Coord()], it)
		}
		return nil
	})
}

func (a *Agent) Give(to ai.Creature, items []model.Item) ai.Action {
	ids := itemIDs(items)
	if to == nil || !a.adjacent(to.Position()) || !a.carried(ids) {
		return ai.Action{}
	}
	recv, ok := a.w.creatures[to.ID()]
	if !ok {
		return ai.Action{}
	}
	return ai.NewAction("give:"+to.Name(), func() error {
		if err := a.w.send(ipc.TypeGive, ipc.GiveCommand{CreatureID: a.ID(), TargetID: to.ID(), ItemIDs: ids}); err != nil {
			return err
		}
		for _, id := range ids {
			if it, ok := a.dropLocal(id); ok {
				it.Equipped = false
				recv.Items = append(recv.Items, it)
			}
		}
		return nil
	})
}

func (a *Agent) Destroy(at model.Position) ai.Action {
	if !a.adjacent(at) || !a.w.onLevel(at) || !a.w.grid().At(at.Coord()).Destructible() {
		return ai.Action{}
	}
	return ai.NewAction("destroy", func() error {
		if err := a.w.send(ipc.TypeDestroy, ipc.DestroyCommand{CreatureID: a.ID(), X: at.X, Y: at.Y}); err != nil {
			return err
		}
		a.w.grid().Set(at.Coord(), model.Floor)
		return nil
	})
}

// Push shoves an adjacent creature one tile further along the same line.
func (a *Agent) Push(o ai.Creature) ai.Action {
	if o == nil || !a.adjacent(o.Position()) {
		return ai.Action{}
	}
	dest := o.Position().Plus(a.c.Pos.Dir(o.Position()))
	if !o.CanEnter(dest) {
		return ai.Action{}
	}
	target, ok := a.w.creatures[o.ID()]
	if !ok {
		return ai.Action{}
	}
	return ai.NewAction("push:"+o.Name(), func() error {
		if err := a.w.send(ipc.TypePush, ipc.TargetCommand{CreatureID: a.ID(), TargetID: o.ID()}); err != nil {
			return err
		}
		a.w.relocate(target, dest)
		return nil
	})
}

func (a *Agent) Pet(o ai.Creature) ai.Action {
	if o == nil || !a.adjacent(o.Position()) || a.IsEnemy(o) {
		return ai.Action{}
	}
	return ai.NewAction("pet:"+o.Name(), func() error {
		return a.w.send(ipc.TypePet, ipc.TargetCommand{CreatureID: a.ID(), TargetID: o.ID()})
	})
}

func (a *Agent) FlyAway() ai.Action {
	if !a.Has(model.FlagFlying) {
		return ai.Action{}
	}
	return ai.NewAction("fly_away", func() error {
		if err := a.w.send(ipc.TypeFlyAway, ipc.WaitCommand{CreatureID: a.ID()}); err != nil {
			return err
		}
		a.w.remove(a.c)
		return nil
	})
}

func (a *Agent) Die() ai.Action {
	return ai.NewAction("die", func() error {
		if err := a.w.send(ipc.TypeDie, ipc.WaitCommand{CreatureID: a.ID()}); err != nil {
			return err
		}
		a.c.Health = 0
		a.w.remove(a.c)
		return nil
	})
}

// PickUp takes items lying under the agent.
func (a *Agent) PickUp(stack []model.Item) ai.Action {
	ids := itemIDs(stack)
	here := a.w.items[a.c.Pos.Coord()]
	if len(ids) == 0 {
		return ai.Action{}
	}
	for _, id := range ids {
		if !slices.ContainsFunc(here, func(it model.Item) bool { return it.ID == id }) {
			return ai.Action{}
		}
	}
	name := fmt.Sprintf("pick_up:%s", stack[0].Name)
	return ai.NewAction(name, func() error {
		if err := a.w.send(ipc.TypePickUp, ipc.ItemsCommand{CreatureID: a.ID(), ItemIDs: ids}); err != nil {
			return err
		}
		pos := a.c.Pos.Coord()
		a.w.items[pos] = slices.DeleteFunc(a.w.items[pos], func(it model.Item) bool {
			if slices.Contains(ids, it.ID) {
				a.c.Items = append(a.c.Items, it)
				return true
			}
			return false
		})
		return nil
	})
}

func (a *Agent) Drop(items []model.Item) ai.Action {
	ids := itemIDs(items)
	if !a.carried(ids) {
		return ai.Action{}
	}
	return ai.NewAction("drop", func() error {
		if err := a.w.send(ipc.TypeDrop, ipc.ItemsCommand{CreatureID: a.ID(), ItemIDs: ids}); err != nil {
			return err
		}
		pos := a.c.Pos.Coord()
		for _, id := range ids {
			if it, ok := a.dropLocal(id); ok {
				it.Equipped = false
				a.w.items[pos] = append(a.w.items[pos], it)
			}
		}
		return nil
	})
}

func (a *Agent) dropLocal(id int) (model.Item, bool) {
	it, i, ok := a.c.Item(id)
	if !ok {
		return model.Item{}, false
	}
	a.c.Items = slices.Delete(a.c.Items, i, i+1)
	return it, true
}
