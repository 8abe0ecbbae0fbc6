package model

import (
	"slices"
	"testing"
)

func TestLength8(t *testing.T) {
	tests := []struct {
		v    Vec2
		want int
	}{
		{Vec2{0, 0}, 0},
		{Vec2{1, 1}, 1},
		{Vec2{-3, 2}, 3},
		{Vec2{2, -5}, 5},
	}
	for _, tc := range tests {
		if got := tc.v.Length8(); got != tc.want {
			t.Errorf("%v.Length8() = %d, want %d", tc.v, got, tc.want)
		}
	}
}

func TestPositionDist8(t *testing.T) {
	a := Position{Level: "cave", X: 1, Y: 1}

	if d, ok := a.Dist8(Position{Level: "cave", X: 4, Y: 3}); !ok || d != 3 {
		t.Errorf("Dist8 same level = (%d, %v), want (3, true)", d, ok)
	}
	if _, ok := a.Dist8(Position{Level: "tower", X: 1, Y: 1}); ok {
		t.Error("Dist8 across levels reported ok")
	}
	if got := a.DistOr(Position{Level: "tower"}, 100); got != 100 {
		t.Errorf("DistOr across levels = %d, want fallback 100", got)
	}
}

func TestNeighbors(t *testing.T) {
	p := Position{Level: "cave", X: 5, Y: 5}
	n8 := p.Neighbors8()
	if len(n8) != 8 {
		t.Fatalf("Neighbors8 returned %d positions", len(n8))
	}
	for _, n := range n8 {
		if d, _ := p.Dist8(n); d != 1 {
			t.Errorf("neighbor %v at distance %d", n, d)
		}
		if n.Level != "cave" {
			t.Errorf("neighbor %v changed level", n)
		}
	}
	n4 := p.Neighbors4()
	if len(n4) != 4 {
		t.Fatalf("Neighbors4 returned %d positions", len(n4))
	}
	for _, n := range n4 {
		if p.Dir(n).Length4() != 1 {
			t.Errorf("orthogonal neighbor %v is diagonal", n)
		}
	}
}

func TestCenteredRect(t *testing.T) {
	r := Centered(Vec2{10, 10}, 2)
	if r.Width() != 5 || r.Height() != 5 {
		t.Errorf("Centered radius 2 = %dx%d, want 5x5", r.Width(), r.Height())
	}
	if !r.Contains(Vec2{8, 12}) || r.Contains(Vec2{13, 10}) {
		t.Error("Contains wrong at the rectangle edge")
	}
	if len(r.Tiles()) != 25 {
		t.Errorf("Tiles() len = %d, want 25", len(r.Tiles()))
	}
	if r.Middle() != (Vec2{10, 10}) {
		t.Errorf("Middle() = %v, want (10,10)", r.Middle())
	}
}

func TestLine(t *testing.T) {
	tests := []struct {
		name string
		a, b Vec2
		want []Vec2
	}{
		{"point", Vec2{2, 2}, Vec2{2, 2}, []Vec2{{2, 2}}},
		{"horizontal", Vec2{0, 0}, Vec2{3, 0}, []Vec2{{0, 0}, {1, 0}, {2, 0}, {3, 0}}},
		{"diagonal", Vec2{0, 0}, Vec2{-2, 2}, []Vec2{{0, 0}, {-1, 1}, {-2, 2}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Line(tc.a, tc.b)
			if !slices.Equal(got, tc.want) {
				t.Errorf("Line(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestLineEndpoints(t *testing.T) {
	a, b := Vec2{1, 7}, Vec2{6, 2}
	line := Line(a, b)
	if line[0] != a || line[len(line)-1] != b {
		t.Fatalf("Line endpoints = %v..%v, want %v..%v", line[0], line[len(line)-1], a, b)
	}
	for i := 1; i < len(line); i++ {
		if line[i-1].Dist8(line[i]) != 1 {
			t.Errorf("gap between %v and %v", line[i-1], line[i])
		}
	}
}

func TestStackItems(t *testing.T) {
	items := []Item{
		{ID: 1, Name: "gold", Class: ClassGold},
		{ID: 2, Name: "sword", Class: ClassWeapon, Damage: 4},
		{ID: 3, Name: "gold", Class: ClassGold},
		{ID: 4, Name: "gold", Class: ClassGold, ForSale: true},
	}
	stacks := StackItems(items)
	if len(stacks) != 3 {
		t.Fatalf("StackItems returned %d stacks, want 3", len(stacks))
	}
	if len(stacks[0]) != 2 || stacks[0][1].ID != 3 {
		t.Errorf("first stack = %v, want gold 1 and 3", stacks[0])
	}
}

func TestCreatureEquipment(t *testing.T) {
	c := Creature{
		Flags: []Flag{FlagHumanoid},
		Items: []Item{
			{ID: 1, Class: ClassWeapon, Damage: 3},
			{ID: 2, Class: ClassRangedWeapon, Equipped: true},
		},
	}
	if _, ok := c.Weapon(); ok {
		t.Error("Weapon() reported an unequipped sword")
	}
	if bow, ok := c.RangedWeapon(); !ok || bow.ID != 2 {
		t.Errorf("RangedWeapon() = %v, %v", bow, ok)
	}
	if !c.Has(FlagHumanoid) || c.Has(FlagBoulder) {
		t.Error("Has() mismatch")
	}
}
