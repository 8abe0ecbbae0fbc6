package ai

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/nstehr/warren/warren-core/model"
)

// ShowcaseLayout marks where hauled loot ends up: '1' for gold, '2' for
// corpses. Rows are read relative to the session bounds.
type ShowcaseLayout struct {
	Rows []string `yaml:"rows"`
}

func ParseShowcaseLayout(data []byte) (ShowcaseLayout, error) {
	var l ShowcaseLayout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return ShowcaseLayout{}, fmt.Errorf("parsing showcase layout: %w", err)
	}
	for i, row := range l.Rows {
		for j, ch := range row {
			if ch != '.' && ch != '1' && ch != '2' {
				return ShowcaseLayout{}, fmt.Errorf("showcase layout row %d col %d: unexpected %q", i, j, ch)
			}
		}
	}
	return l, nil
}

// ShowcaseSession holds the staging state shared by the actors of one
// set-piece: heroes march to Target, monsters ambush them, imps then haul
// the loot into the layout.
type ShowcaseSession struct {
	ID        uuid.UUID
	Bounds    model.Rect
	Target    model.Vec2
	LeaderPos model.Vec2

	layout        ShowcaseLayout
	piles         map[model.Vec2][]model.Item
	targetsGold   []model.Vec2
	targetsCorpse []model.Vec2
	initialized   bool
	rand          *rand.Rand
}

func NewShowcaseSession(bounds model.Rect, layout ShowcaseLayout, r *rand.Rand) *ShowcaseSession {
	mid := bounds.Middle()
	return &ShowcaseSession{
		ID:        uuid.New(),
		Bounds:    bounds,
		Target:    mid.Minus(model.Vec2{X: 3}),
		LeaderPos: model.Vec2{X: bounds.Max.X - 4, Y: mid.Y},
		layout:    layout,
		piles:     map[model.Vec2][]model.Item{},
		rand:      r,
	}
}

func (s *ShowcaseSession) Initialized() bool { return s.initialized }

// Initialize collects gold and corpses lying inside the bounds and reads
// drop targets from the layout.
func (s *ShowcaseSession) Initialize(level Level) {
	for _, v := range s.Bounds.Tiles() {
		var loot []model.Item
		for _, it := range level.ItemsAt(model.At(level.Name(), v)) {
			if it.Class == model.ClassGold || it.Class == model.ClassCorpse {
				loot = append(loot, it)
			}
		}
		if len(loot) > 0 {
			s.piles[v] = loot
		}
	}
	for i, row := range s.layout.Rows {
		for j, ch := range row {
			v := s.Bounds.Min.Plus(model.Vec2{X: j, Y: i})
			switch ch {
			case '1':
				s.targetsGold = append(s.targetsGold, v)
			case '2':
				s.targetsCorpse = append(s.targetsCorpse, v)
			}
		}
	}
	s.initialized = true
}

// Piles reports how many loot piles remain unclaimed.
func (s *ShowcaseSession) Piles() int { return len(s.piles) }

func (s *ShowcaseSession) closestPile(from model.Vec2) model.Vec2 {
	keys := slices.SortedFunc(maps.Keys(s.piles), func(a, b model.Vec2) int {
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
	best := keys[0]
	for _, v := range keys[1:] {
		if v.Dist8(from) < best.Dist8(from) {
			best = v
		}
	}
	return best
}

// NextTask claims a pile near from and returns a task hauling it to a
// free drop target, or nil when nothing is left.
func (s *ShowcaseSession) NextTask(from model.Vec2, level string) Task {
	if len(s.piles) == 0 {
		return nil
	}
	pos := s.closestPile(from)
	pile := s.piles[pos]
	first := pile[s.rand.IntN(len(pile))]
	picked := []model.Item{first}
	if first.Class == model.ClassGold {
		for _, it := range pile {
			if it.ID != first.ID && it.Class == first.Class && s.rand.IntN(10) == 0 {
				picked = append(picked, it)
			}
		}
	}
	pile = slices.DeleteFunc(pile, func(it model.Item) bool {
		return slices.ContainsFunc(picked, func(p model.Item) bool { return p.ID == it.ID })
	})
	if len(pile) == 0 {
		delete(s.piles, pos)
	} else {
		s.piles[pos] = pile
	}
	targets := &s.targetsCorpse
	if first.Class == model.ClassGold {
		targets = &s.targetsGold
	}
	if len(*targets) == 0 {
		return nil
	}
	i := s.rand.IntN(len(*targets))
	target := (*targets)[i]
	*targets = slices.Delete(*targets, i, i+1)
	return NewBringItem(model.At(level, pos), picked, []model.Position{model.At(level, target)})
}

// ShowcaseHeroes wait for the leader to arrive, then march on the target.
type ShowcaseHeroes struct {
	Base
	session *ShowcaseSession
	started bool
}

func NewShowcaseHeroes(a Agent, r *rand.Rand, s *ShowcaseSession) *ShowcaseHeroes {
	return &ShowcaseHeroes{Base: newBase(a, r), session: s}
}

func (*ShowcaseHeroes) Name() string { return "showcase_heroes" }

func (b *ShowcaseHeroes) Move() Move {
	me := b.agent
	pos := me.Position()
	if !b.started && me.Level().CreatureAt(pos.WithCoord(b.session.LeaderPos)) != nil {
		b.started = true
	}
	if !b.started {
		return Do(me.Wait())
	}
	if pos.X > b.session.Target.X {
		return MoveOf(0.1, me.Move(pos.Plus(model.Vec2{X: -1})))
	}
	return MoveOf(0.1, me.Wait())
}

// ShowcaseHeroLeader walks to its post and leads the charge once the
// party has formed up behind it.
type ShowcaseHeroLeader struct {
	Base
	session *ShowcaseSession
	started bool
}

func NewShowcaseHeroLeader(a Agent, r *rand.Rand, s *ShowcaseSession) *ShowcaseHeroLeader {
	return &ShowcaseHeroLeader{Base: newBase(a, r), session: s}
}

func (*ShowcaseHeroLeader) Name() string { return "showcase_hero_leader" }

var partyOffsets = []model.Vec2{{X: 2}, {X: 2, Y: -1}, {X: 2, Y: 1}, {X: 3}, {X: 3, Y: -1}, {X: 3, Y: 1}}

func (b *ShowcaseHeroLeader) Move() Move {
	me := b.agent
	pos := me.Position()
	post := b.session.LeaderPos
	if b.started {
		return Do(me.MoveTowards(pos.WithCoord(b.session.Target)))
	}
	if pos.Coord() == post {
		for _, v := range partyOffsets {
			if me.Level().CreatureAt(pos.Plus(v)) != nil {
				b.started = true
			}
		}
		return Do(me.Wait())
	}
	if pos.Y == post.Y {
		return Do(me.Move(pos.Plus(model.Vec2{X: -1})))
	}
	return Do(me.MoveTowards(pos.WithCoord(post)))
}

// ShowcaseMonsters hold their ground until a hero reaches the target tile
// and then pile on.
type ShowcaseMonsters struct {
	Base
	session *ShowcaseSession
	home    *model.Vec2
	attack  bool
}

func NewShowcaseMonsters(a Agent, r *rand.Rand, s *ShowcaseSession) *ShowcaseMonsters {
	return &ShowcaseMonsters{Base: newBase(a, r), session: s}
}

func (*ShowcaseMonsters) Name() string { return "showcase_monsters" }

func (b *ShowcaseMonsters) Move() Move {
	me := b.agent
	pos := me.Position()
	if b.home == nil {
		home := pos.Coord()
		b.home = &home
	}
	heroes := enemiesOnLevel(me)
	if len(heroes) == 0 {
		if pos.Coord() == *b.home {
			return Do(me.Wait())
		}
		return Do(me.MoveTowards(pos.WithCoord(*b.home)))
	}
	if other := me.Level().CreatureAt(pos.WithCoord(b.session.Target)); other != nil && me.IsEnemy(other) {
		b.attack = true
	}
	if !b.attack {
		return Do(me.Wait())
	}
	hero := heroes[b.rand.IntN(len(heroes))]
	return MoveOf(0.1, me.MoveTowards(hero.Position()))
}

// ShowcaseImps clear the field once the heroes are dead.
type ShowcaseImps struct {
	Base
	session *ShowcaseSession
	home    *model.Vec2
	task    Task
}

func NewShowcaseImps(a Agent, r *rand.Rand, s *ShowcaseSession) *ShowcaseImps {
	return &ShowcaseImps{Base: newBase(a, r), session: s}
}

func (*ShowcaseImps) Name() string { return "showcase_imps" }

func (b *ShowcaseImps) Move() Move {
	me := b.agent
	pos := me.Position()
	if b.home == nil {
		home := pos.Coord()
		b.home = &home
	}
	if len(enemiesOnLevel(me)) > 0 {
		return Do(me.Wait())
	}
	if !b.session.Initialized() {
		b.session.Initialize(me.Level())
	}
	if b.task != nil {
		if !b.task.Done() {
			return b.task.Move(me)
		}
		b.task = nil
	}
	b.task = b.session.NextTask(pos.Coord(), pos.Level)
	if b.task == nil {
		return Do(me.MoveTowards(pos.WithCoord(*b.home)))
	}
	return b.task.Move(me)
}

func enemiesOnLevel(me Agent) []Creature {
	var out []Creature
	for _, c := range me.Level().Creatures() {
		if c.ID() != me.ID() && c.IsEnemy(me) {
			out = append(out, c)
		}
	}
	return out
}
