package ai_test

import (
	"testing"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/model"
)

// run performs moves until the task stops proposing them.
func run(t *testing.T, a ai.Agent, task ai.Task, limit int) int {
	t.Helper()
	for i := 0; i < limit; i++ {
		m := task.Move(a)
		if !m.OK() {
			return i
		}
		if err := m.Action().Perform(); err != nil {
			t.Fatal(err)
		}
	}
	t.Fatalf("%s still running after %d moves", task.Name(), limit)
	return limit
}

func TestWorkAt(t *testing.T) {
	_, a, _ := agentIn(t, arena(100, orc(1, 1, 1)), 1)
	task := ai.NewWorkAt("dig", pos(3, 1), 2)
	if m := task.Move(a); m.ActionName() != "move_towards" {
		t.Fatalf("first move = %v", m)
	}
	if n := run(t, a, task, 10); n != 4 {
		t.Errorf("took %d moves, want 2 steps and 2 turns of work", n)
	}
	if !task.Done() || a.Position() != pos(3, 1) {
		t.Errorf("done = %v at %v", task.Done(), a.Position())
	}
}

func TestBringItem(t *testing.T) {
	gs := arena(100, orc(1, 1, 1))
	gold := model.Item{ID: 70, Name: "gold", Class: model.ClassGold}
	gs.Level.Items = []model.GroundItem{{Pos: model.Vec2{X: 2, Y: 1}, Item: gold}}
	w, a, _ := agentIn(t, gs, 1)

	task := ai.NewBringItem(pos(2, 1), []model.Item{gold}, []model.Position{pos(4, 1)})
	run(t, a, task, 10)
	if !task.Done() {
		t.Fatal("not done")
	}
	if got := w.Level().ItemsAt(pos(4, 1)); len(got) != 1 || got[0].ID != gold.ID {
		t.Errorf("items at target = %v", got)
	}
	if len(a.Items()) != 0 {
		t.Errorf("still carrying %v", a.Items())
	}
}

func TestPickUpItemsGone(t *testing.T) {
	_, a, _ := agentIn(t, arena(100, orc(1, 1, 1)), 1)
	task := ai.NewPickUpItems(pos(1, 1), []model.Item{{ID: 5, Name: "gold"}})
	if m := task.Move(a); m.OK() {
		t.Errorf("move = %v for items no longer there", m)
	}
	if !task.Done() {
		t.Error("task not finished")
	}
}

func TestEquipItem(t *testing.T) {
	me := orc(1, 1, 1)
	me.Flags = []model.Flag{model.FlagHumanoid}
	axe := model.Item{ID: 80, Name: "axe", Class: model.ClassWeapon, Damage: 5}
	me.Items = []model.Item{axe}
	_, a, _ := agentIn(t, arena(100, me), 1)

	task := ai.NewEquipItem(axe)
	if n := run(t, a, task, 3); n != 1 {
		t.Errorf("took %d moves", n)
	}
	if it := a.Items()[0]; !it.Equipped {
		t.Error("axe not equipped")
	}
}

func TestChainSkipsFinishedSteps(t *testing.T) {
	_, a, _ := agentIn(t, arena(100, orc(1, 1, 1)), 1)
	here := ai.NewGoTo(pos(1, 1))
	there := ai.NewGoTo(pos(2, 2))
	chain := ai.NewChain(here, there)
	if chain.Name() != "chain:go_to(1,1)" {
		t.Errorf("name = %s", chain.Name())
	}
	m := chain.Move(a)
	if m.ActionName() != "move_towards" {
		t.Fatalf("move = %v", m)
	}
	if !here.Done() || chain.Name() != "chain:go_to(2,2)" {
		t.Errorf("first step not skipped: %s", chain.Name())
	}
}

func TestParseShowcaseLayout(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		rows    int
		wantErr bool
	}{
		{"valid", "rows:\n  - \"..1\"\n  - \"2..\"\n", 2, false},
		{"bad tile", "rows:\n  - \"..x\"\n", 0, true},
		{"not yaml", "rows: [\n", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := ai.ParseShowcaseLayout([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if len(l.Rows) != tt.rows {
				t.Errorf("rows = %v", l.Rows)
			}
		})
	}
}

func TestShowcaseImpsHaulLoot(t *testing.T) {
	gs := arena(100, orc(1, 0, 0))
	gold := model.Item{ID: 90, Name: "gold", Class: model.ClassGold}
	gs.Level.Items = []model.GroundItem{{Pos: model.Vec2{X: 2, Y: 2}, Item: gold}}
	w, a, _ := agentIn(t, gs, 1)

	layout := ai.ShowcaseLayout{Rows: []string{"....1"}}
	s := ai.NewShowcaseSession(model.Rect{Max: model.Vec2{X: 5, Y: 5}}, layout, seeded())
	imps := ai.NewShowcaseImps(a, seeded(), s)
	for i := 0; i < 20; i++ {
		m := imps.Move()
		if !m.OK() {
			break
		}
		if err := m.Action().Perform(); err != nil {
			t.Fatal(err)
		}
	}
	if !s.Initialized() || s.Piles() != 0 {
		t.Errorf("initialized = %v, piles = %d", s.Initialized(), s.Piles())
	}
	if got := w.Level().ItemsAt(pos(4, 0)); len(got) != 1 || got[0].ID != gold.ID {
		t.Errorf("gold target holds %v", got)
	}
	if a.Position() != pos(0, 0) {
		t.Errorf("imp ended at %v, want home", a.Position())
	}
}

func TestShowcaseHeroesWaitForLeader(t *testing.T) {
	bounds := model.Rect{Max: model.Vec2{X: 10, Y: 10}}
	tests := []struct {
		name      string
		creatures []model.Creature
		want      string
	}{
		{"leader absent", []model.Creature{orc(1, 8, 9)}, "wait"},
		{"leader at post", []model.Creature{orc(1, 8, 9), orc(2, 6, 5)}, "move"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, a, _ := agentIn(t, arena(100, tt.creatures...), 1)
			s := ai.NewShowcaseSession(bounds, ai.ShowcaseLayout{}, seeded())
			if m := ai.NewShowcaseHeroes(a, seeded(), s).Move(); m.ActionName() != tt.want {
				t.Errorf("move = %v, want %s", m, tt.want)
			}
		})
	}
}
