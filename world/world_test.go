package world

import (
	"errors"
	"testing"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/ipc"
	"github.com/nstehr/warren/warren-core/model"
)

type sent struct {
	Type string
	Data any
}

type recorder struct {
	cmds []sent
	err  error
}

func (r *recorder) Send(msgType string, data any) error {
	if r.err != nil {
		return r.err
	}
	r.cmds = append(r.cmds, sent{msgType, data})
	return nil
}

func (r *recorder) types() []string {
	var out []string
	for _, c := range r.cmds {
		out = append(out, c.Type)
	}
	return out
}

const lvl = "cave"

func pos(x, y int) model.Position { return model.Position{Level: lvl, X: x, Y: y} }

// testState is a 10x10 floor with a wall column at x=5 (rows 0-8).
func testState(creatures ...model.Creature) model.GameState {
	grid := model.NewTileGrid(10, 10, model.Floor)
	for y := 0; y < 9; y++ {
		grid.Set(model.Vec2{X: 5, Y: y}, model.Wall)
	}
	return model.GameState{
		Tick:      100,
		Level:     model.Level{Name: lvl, Grid: *grid},
		Creatures: creatures,
	}
}

func orc(id, x, y int) model.Creature {
	return model.Creature{ID: id, Name: "orc", Tribe: "orcs", Pos: pos(x, y), Health: 1, Damage: 3}
}

func elf(id, x, y int) model.Creature {
	return model.Creature{ID: id, Name: "elf", Tribe: "elves", Pos: pos(x, y), Health: 1, Damage: 2}
}

func TestRelations(t *testing.T) {
	deer := model.Creature{ID: 4, Name: "deer", Tribe: "wild", Pos: pos(2, 3), Health: 1, Flags: []model.Flag{model.FlagPeaceful}}
	w := New(testState(orc(1, 1, 1), orc(2, 2, 2), elf(3, 3, 1), deer), &recorder{})
	a, _ := w.Agent(1)
	l := w.Level()

	tests := []struct {
		name          string
		other         int
		enemy, friend bool
	}{
		{"same tribe", 2, false, true},
		{"other tribe", 3, true, false},
		{"peaceful", 4, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := l.Creature(tt.other)
			if got := a.IsEnemy(o); got != tt.enemy {
				t.Errorf("IsEnemy = %v, want %v", got, tt.enemy)
			}
			if got := a.IsFriend(o); got != tt.friend {
				t.Errorf("IsFriend = %v, want %v", got, tt.friend)
			}
		})
	}
}

func TestCanSeeBlockedByWall(t *testing.T) {
	w := New(testState(orc(1, 3, 3), elf(2, 7, 3), elf(3, 3, 8)), &recorder{})
	a, _ := w.Agent(1)
	if a.CanSee(w.Level().Creature(2)) {
		t.Error("saw through the wall")
	}
	if !a.CanSee(w.Level().Creature(3)) {
		t.Error("open line of sight reported blocked")
	}
}

func TestClosestEnemy(t *testing.T) {
	w := New(testState(orc(1, 1, 1), elf(2, 4, 4), elf(3, 2, 2), orc(4, 1, 2)), &recorder{})
	a, _ := w.Agent(1)
	e := a.ClosestEnemy()
	if e == nil || e.ID() != 3 {
		t.Fatalf("ClosestEnemy = %v, want 3", e)
	}

	blind := orc(1, 1, 1)
	blind.Conditions = []model.Condition{model.Blind}
	w = New(testState(blind, elf(2, 2, 2)), &recorder{})
	a, _ = w.Agent(1)
	if e := a.ClosestEnemy(); e != nil {
		t.Errorf("blind agent found enemy %d", e.ID())
	}
}

func TestMoveUpdatesLocalState(t *testing.T) {
	rec := &recorder{}
	w := New(testState(orc(1, 1, 1), orc(2, 3, 3)), rec)
	a, _ := w.Agent(1)

	act := a.Move(pos(2, 2))
	if !act.Possible() {
		t.Fatal("move to free floor should be possible")
	}
	if err := act.Perform(); err != nil {
		t.Fatal(err)
	}
	if a.Position() != pos(2, 2) {
		t.Errorf("position = %v", a.Position())
	}
	if c := w.Level().CreatureAt(pos(2, 2)); c == nil || c.ID() != 1 {
		t.Error("occupancy not updated")
	}
	if c := w.Level().CreatureAt(pos(1, 1)); c != nil {
		t.Error("old tile still occupied")
	}
	cmd, ok := rec.cmds[0].Data.(ipc.MoveCommand)
	if rec.cmds[0].Type != ipc.TypeMove || !ok || cmd.X != 2 || cmd.Y != 2 {
		t.Errorf("sent %+v", rec.cmds[0])
	}

	if a.Move(pos(3, 3)).Possible() {
		t.Error("moved onto an occupied tile")
	}
	if err := a.Move(pos(3, 2)).Perform(); err != nil {
		t.Fatal(err)
	}
	if err := a.Move(pos(4, 2)).Perform(); err != nil {
		t.Fatal(err)
	}
	if a.Move(pos(5, 2)).Possible() {
		t.Error("moved into a wall")
	}
	if a.Move(pos(2, 2)).Possible() {
		t.Error("moved two tiles")
	}
}

func TestMoveAvoidsFireUnlessForced(t *testing.T) {
	gs := testState(orc(1, 1, 1))
	gs.Level.Burning = []model.Vec2{{X: 2, Y: 1}}
	w := New(gs, &recorder{})
	a, _ := w.Agent(1)
	if a.Move(pos(2, 1)).Possible() {
		t.Error("walked into fire")
	}
	if !a.ForceMove(pos(2, 1)).Possible() {
		t.Error("force move refused")
	}
}

func TestMoveTowardsAndAway(t *testing.T) {
	tests := []struct {
		name string
		act  func(a *Agent) ai.Action
		want model.Position
	}{
		{"towards diagonal", func(a *Agent) ai.Action { return a.MoveTowards(pos(4, 4)) }, pos(3, 3)},
		{"towards straight", func(a *Agent) ai.Action { return a.MoveTowards(pos(2, 7)) }, pos(2, 3)},
		{"away", func(a *Agent) ai.Action { return a.MoveAway(pos(3, 3), false) }, pos(1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(testState(orc(1, 2, 2)), &recorder{})
			a, _ := w.Agent(1)
			if err := tt.act(a).Perform(); err != nil {
				t.Fatal(err)
			}
			if a.Position() != tt.want {
				t.Errorf("position = %v, want %v", a.Position(), tt.want)
			}
		})
	}

	w := New(testState(orc(1, 2, 2)), &recorder{})
	a, _ := w.Agent(1)
	if a.MoveTowards(a.Position()).Possible() {
		t.Error("move towards own tile should be impossible")
	}
}

func TestEquipSwapsSlot(t *testing.T) {
	c := orc(1, 1, 1)
	c.Flags = []model.Flag{model.FlagHumanoid}
	c.Items = []model.Item{
		{ID: 10, Name: "club", Class: model.ClassWeapon, Damage: 2, Equipped: true},
		{ID: 11, Name: "axe", Class: model.ClassWeapon, Damage: 5},
		{ID: 12, Name: "potion", Class: model.ClassPotion, Effect: model.EffectHeal},
	}
	w := New(testState(c), &recorder{})
	a, _ := w.Agent(1)

	if a.Equip(c.Items[2]).Possible() {
		t.Error("equipped a potion")
	}
	if err := a.Equip(c.Items[1]).Perform(); err != nil {
		t.Fatal(err)
	}
	for _, it := range a.Items() {
		if want := it.ID == 11; it.Class == model.ClassWeapon && it.Equipped != want {
			t.Errorf("%s equipped = %v", it.Name, it.Equipped)
		}
	}
}

func TestPickUpAndDrop(t *testing.T) {
	gs := testState(orc(1, 1, 1))
	gold := model.Item{ID: 20, Name: "gold", Class: model.ClassGold}
	gs.Level.Items = []model.GroundItem{{Pos: model.Vec2{X: 1, Y: 1}, Item: gold}}
	w := New(gs, &recorder{})
	a, _ := w.Agent(1)

	opts := a.PickUpOptions()
	if len(opts) != 1 {
		t.Fatalf("options = %v", opts)
	}
	if err := a.PickUp(opts).Perform(); err != nil {
		t.Fatal(err)
	}
	if len(a.Items()) != 1 || len(a.PickUpOptions()) != 0 {
		t.Fatalf("items = %v, ground = %v", a.Items(), a.PickUpOptions())
	}
	if a.PickUp(opts).Possible() {
		t.Error("picked up the same item twice")
	}

	if err := a.Move(pos(2, 1)).Perform(); err != nil {
		t.Fatal(err)
	}
	if err := a.Drop(a.Items()).Perform(); err != nil {
		t.Fatal(err)
	}
	if got := w.Level().ItemsAt(pos(2, 1)); len(got) != 1 || got[0].ID != 20 {
		t.Errorf("ground at (2,1) = %v", got)
	}
	if st := w.State(); len(st.Level.Items) != 1 {
		t.Errorf("state items = %v", st.Level.Items)
	}
}

func TestDestroyWall(t *testing.T) {
	w := New(testState(orc(1, 4, 4)), &recorder{})
	a, _ := w.Agent(1)
	if a.Destroy(pos(3, 4)).Possible() {
		t.Error("destroyed floor")
	}
	if err := a.Destroy(pos(5, 4)).Perform(); err != nil {
		t.Fatal(err)
	}
	if !a.Move(pos(5, 4)).Possible() {
		t.Error("destroyed wall still blocks")
	}
}

func TestDieRemovesCreature(t *testing.T) {
	w := New(testState(orc(1, 1, 1), elf(2, 2, 2)), &recorder{})
	a, _ := w.Agent(1)
	if err := a.Die().Perform(); err != nil {
		t.Fatal(err)
	}
	if w.Level().Creature(1) != nil {
		t.Error("dead creature still on level")
	}
	if _, ok := w.Agent(1); ok {
		t.Error("agent for dead creature")
	}
	if n := len(w.State().Creatures); n != 1 {
		t.Errorf("state creatures = %d", n)
	}
}

func TestFindCreatureAcrossLevels(t *testing.T) {
	below := elf(2, 1, 1)
	below.Pos.Level = "deeper"
	w := New(testState(orc(1, 1, 1), below, orc(3, 4, 4)), &recorder{})
	a, _ := w.Agent(1)

	if w.Level().Creature(2) != nil {
		t.Error("creature on another level listed on this one")
	}
	c := a.FindCreature(2)
	if c == nil || c.Position().Level != "deeper" || c.Dead() {
		t.Fatalf("found %v", c)
	}
	if a.FindCreature(99) != nil {
		t.Error("unknown id found")
	}

	victim, _ := w.Agent(3)
	if err := victim.Die().Perform(); err != nil {
		t.Fatal(err)
	}
	if c := a.FindCreature(3); c == nil || !c.Dead() {
		t.Errorf("killed creature = %v, want it found dead", c)
	}
}

func TestSendFailureSurfaces(t *testing.T) {
	rec := &recorder{err: errors.New("broken pipe")}
	w := New(testState(orc(1, 1, 1)), rec)
	a, _ := w.Agent(1)
	err := a.Move(pos(2, 2)).Perform()
	if err == nil {
		t.Fatal("expected error")
	}
	if a.Position() != pos(1, 1) {
		t.Error("position changed although the command was not delivered")
	}
}

func TestEffectValue(t *testing.T) {
	hurt := orc(2, 2, 1)
	hurt.Health = 0.4
	w := New(testState(orc(1, 1, 1), hurt, elf(3, 1, 2), elf(4, 2, 2), elf(5, 0, 2)), &recorder{})
	a, _ := w.Agent(1)

	tests := []struct {
		name   string
		effect model.EffectKind
		target model.Position
		want   float64
	}{
		{"heal wounded friend", model.EffectHeal, pos(2, 1), 0.6},
		{"heal healthy self", model.EffectHeal, pos(1, 1), 0},
		{"damage enemy", model.EffectDamage, pos(1, 2), 1},
		{"damage friend", model.EffectDamage, pos(2, 1), 0},
		{"blast hits friend", model.EffectCircularBlast, pos(1, 1), 0},
		{"empty tile", model.EffectDamage, pos(8, 8), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.EffectValue(tt.effect, tt.target)
			if got < tt.want-1e-9 || got > tt.want+1e-9 {
				t.Errorf("EffectValue = %v, want %v", got, tt.want)
			}
		})
	}
}
