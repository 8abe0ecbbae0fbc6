package ai_test

import (
	"testing"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/collective"
	"github.com/nstehr/warren/warren-core/model"
)

func v(x, y int) model.Vec2 { return model.Vec2{X: x, Y: y} }

func TestDelegate(t *testing.T) {
	humanoid := orc(1, 1, 1)
	humanoid.Flags = []model.Flag{model.FlagHumanoid}
	withGold := orc(1, 1, 1)
	withGold.Items = []model.Item{{ID: 60, Name: "gold", Class: model.ClassGold}}
	sword := model.Item{ID: 61, Name: "sword", Class: model.ClassWeapon, Damage: 4, Owner: 1}

	tests := []struct {
		name      string
		creatures []model.Creature
		items     []model.GroundItem
		state     model.CollectiveState
		want      string
		holdsTask bool
	}{
		{
			name:      "priority job first",
			creatures: []model.Creature{orc(1, 1, 1)},
			state: model.CollectiveState{
				Members: []int{1},
				Workers: []int{1},
				Jobs:    []model.JobState{{ID: 1, Activity: "work", Pos: v(3, 1), Priority: true}},
				Alarm:   &model.AlarmState{Pos: v(8, 8), Expiry: 200},
			},
			want:      "move_towards",
			holdsTask: true,
		},
		{
			name:      "answers the alarm",
			creatures: []model.Creature{orc(1, 1, 1)},
			state: model.CollectiveState{
				Members:  []int{1},
				Fighters: []int{1},
				Alarm:    &model.AlarmState{Pos: v(4, 4), Expiry: 200},
			},
			want: "move_towards",
		},
		{
			name:      "ignores the alarm without the fighter trait",
			creatures: []model.Creature{orc(1, 1, 1)},
			state: model.CollectiveState{
				Members: []int{1},
				Alarm:   &model.AlarmState{Pos: v(4, 4), Expiry: 200},
			},
			want: "wait",
		},
		{
			name:      "follows the team leader",
			creatures: []model.Creature{orc(1, 4, 4), orc(2, 1, 1)},
			state: model.CollectiveState{
				Members: []int{1, 2},
				Teams:   []model.TeamState{{ID: 1, Members: []int{2, 1}, Active: true}},
			},
			want: "move_towards",
		},
		{
			name:      "waits next to the leader",
			creatures: []model.Creature{orc(1, 2, 2), orc(2, 1, 1)},
			state: model.CollectiveState{
				Members: []int{1, 2},
				Teams:   []model.TeamState{{ID: 1, Members: []int{2, 1}, Active: true}},
			},
			want: "wait",
		},
		{
			name:      "inactive team is ignored",
			creatures: []model.Creature{orc(1, 4, 4), orc(2, 1, 1)},
			state: model.CollectiveState{
				Members: []int{1, 2},
				Teams:   []model.TeamState{{ID: 1, Members: []int{2, 1}}},
			},
			want: "wait",
		},
		{
			name:      "chases an enemy",
			creatures: []model.Creature{orc(1, 1, 9), elf(2, 4, 9)},
			state:     model.CollectiveState{Members: []int{1}},
			want:      "move_towards",
		},
		{
			name:      "stand ground order holds position",
			creatures: []model.Creature{orc(1, 1, 9), elf(2, 4, 9)},
			state: model.CollectiveState{
				Members: []int{1},
				Teams:   []model.TeamState{{ID: 1, Members: []int{1}, Active: true, Orders: []string{"stand_ground"}}},
			},
			want: "wait",
		},
		{
			name:      "fetches owned equipment",
			creatures: []model.Creature{humanoid},
			items:     []model.GroundItem{{Pos: v(0, 4), Item: sword}},
			state:     model.CollectiveState{Members: []int{1}, Storage: []model.Vec2{v(0, 4)}},
			want:      "move_towards",
			holdsTask: true,
		},
		{
			name:      "brings carried gold to storage",
			creatures: []model.Creature{withGold},
			state:     model.CollectiveState{Members: []int{1}, Storage: []model.Vec2{v(4, 1)}},
			want:      "move_towards",
			holdsTask: true,
		},
		{
			name:      "nothing to do",
			creatures: []model.Creature{orc(1, 1, 1)},
			state:     model.CollectiveState{Members: []int{1}},
			want:      "wait",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := arena(100, tt.creatures...)
			gs.Level.Items = tt.items
			w, a, _ := agentIn(t, gs, 1)
			col := collective.New("keep")
			col.Update(tt.state, w.Level(), gs.Tick)
			d := ai.NewDelegate(a, seeded(), col, ai.NewFighter(a, seeded()))

			m := d.Move()
			if m.ActionName() != tt.want {
				t.Fatalf("move = %v, want %s", m, tt.want)
			}
			if held := col.Tasks().TaskFor(a) != nil; held != tt.holdsTask {
				t.Errorf("holds task = %v, want %v", held, tt.holdsTask)
			}
			if err := m.Action().Perform(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestDelegateTakesPriorityTaskOnce(t *testing.T) {
	gs := arena(100, orc(1, 1, 1), orc(2, 1, 3))
	w, a1, _ := agentIn(t, gs, 1)
	a2, _ := w.Agent(2)
	col := collective.New("keep")
	col.Update(model.CollectiveState{
		Members: []int{1, 2},
		Workers: []int{1, 2},
		Jobs:    []model.JobState{{ID: 1, Activity: "haul", Pos: v(3, 1), Priority: true}},
	}, w.Level(), 100)

	d1 := ai.NewDelegate(a1, seeded(), col, ai.NewFighter(a1, seeded()))
	d2 := ai.NewDelegate(a2, seeded(), col, ai.NewFighter(a2, seeded()))
	if m := d1.Move(); m.ActionName() != "move_towards" {
		t.Fatalf("first member: %v", m)
	}
	job := col.Tasks().TaskFor(a1)
	d2.Move()
	if col.Tasks().TaskFor(a2) == job {
		t.Error("priority job handed to two members")
	}
	if col.Tasks().TaskFor(a1) != job {
		t.Error("first member lost its job")
	}
}

func TestDelegateSleepsWhenHurt(t *testing.T) {
	hurt := orc(1, 1, 1)
	hurt.Health = 0.5
	gs := arena(100, hurt)
	cs := model.CollectiveState{Members: []int{1}, Beds: []model.Vec2{v(3, 3)}, Territory: []model.Vec2{v(1, 1)}}

	// Sleep is checked now and then, so a few ticks are needed to see it.
	w, a, _ := agentIn(t, gs, 1)
	col := collective.New("keep")
	col.Update(cs, w.Level(), 100)
	d := ai.NewDelegate(a, seeded(), col, ai.NewFighter(a, seeded()))
	for i := 0; i < 50 && col.CurrentActivity(a).Activity != ai.ActivitySleep; i++ {
		d.Move()
	}
	if got := col.CurrentActivity(a).Activity; got != ai.ActivitySleep {
		t.Errorf("activity = %v, want sleep", got)
	}
}
