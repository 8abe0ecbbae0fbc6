package agent

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/ipc"
	"github.com/nstehr/warren/warren-core/model"
	"github.com/nstehr/warren/warren-core/rules"
	"github.com/nstehr/warren/warren-core/store"
	"github.com/nstehr/warren/warren-core/world"
)

type sent struct {
	Type string
	Data any
}

type recorder struct {
	cmds []sent
}

func (r *recorder) Send(msgType string, data any) error {
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

type fakeSessions struct {
	started []string
}

func (f *fakeSessions) StartSession(_ context.Context, player, tribe string) (store.Session, error) {
	f.started = append(f.started, player)
	return store.Session{ID: "session-1", Player: player, Tribe: tribe}, nil
}

const lvl = "cave"

func pos(x, y int) model.Position { return model.Position{Level: lvl, X: x, Y: y} }

func cave(tick int, controlled []int, creatures ...model.Creature) model.GameState {
	return model.GameState{
		Tick:       tick,
		Level:      model.Level{Name: lvl, Grid: *model.NewTileGrid(10, 10, model.Floor)},
		Creatures:  creatures,
		Controlled: controlled,
	}
}

func orc(id, x, y int) model.Creature {
	return model.Creature{ID: id, Name: "orc", Tribe: "orcs", Pos: pos(x, y), Health: 1, Damage: 3}
}

func elf(id, x, y int) model.Creature {
	return model.Creature{ID: id, Name: "elf", Tribe: "elves", Pos: pos(x, y), Health: 1, Damage: 2}
}

func newAgent(t *testing.T, opts ...Option) (*Agent, *recorder) {
	t.Helper()
	engine, err := rules.NewEngine(rules.DefaultRules())
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	a := New(rec, engine, opts...)
	a.Player = "keeper"
	return a, rec
}

func envelope(t *testing.T, msgType string, data any) ipc.Envelope {
	t.Helper()
	env, err := ipc.NewEnvelope(msgType, data)
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func TestHandleHello(t *testing.T) {
	sessions := &fakeSessions{}
	a, _ := newAgent(t, WithSessions(sessions))

	hello := ipc.HelloMessage{
		Player:   "keeper",
		Tribe:    "orcs",
		Showcase: &ipc.ShowcaseData{MinX: 0, MinY: 0, MaxX: 20, MaxY: 10},
	}
	resp, err := a.HandleHello(envelope(t, ipc.TypeHello, hello))
	if err != nil {
		t.Fatal(err)
	}
	if resp == nil || resp.Type != ipc.TypeAck {
		t.Fatalf("response = %+v, want ack", resp)
	}
	if a.Player != "keeper" || a.Tribe != "orcs" {
		t.Errorf("identity = %q/%q", a.Player, a.Tribe)
	}
	if a.Session != "session-1" {
		t.Errorf("session = %q, want the recorded one", a.Session)
	}
	if a.showcase == nil {
		t.Error("showcase not started")
	}
	if !slices.Equal(sessions.started, []string{"keeper"}) {
		t.Errorf("sessions started = %v", sessions.started)
	}
}

func TestHandleHelloWithoutStore(t *testing.T) {
	a, _ := newAgent(t)
	if _, err := a.HandleHello(envelope(t, ipc.TypeHello, ipc.HelloMessage{Player: "keeper"})); err != nil {
		t.Fatal(err)
	}
	if a.Session == "" {
		t.Error("no session id generated")
	}
	if a.showcase != nil {
		t.Error("showcase started without showcase data")
	}
}

func TestHandleGameStateAttacksAdjacentEnemy(t *testing.T) {
	a, rec := newAgent(t)
	gs := cave(100, []int{1}, orc(1, 2, 2), elf(2, 3, 2))

	resp, err := a.HandleGameState(envelope(t, ipc.TypeGameState, gs))
	if err != nil {
		t.Fatal(err)
	}
	var ack ipc.AckMessage
	if err := json.Unmarshal(resp.Data, &ack); err != nil {
		t.Fatal(err)
	}
	if ack.Status != "ok" || ack.Tick != 100 || ack.Moved != 1 {
		t.Errorf("ack = %+v", ack)
	}
	if !slices.Contains(rec.types(), ipc.TypeAttack) {
		t.Errorf("sent %v, want an attack", rec.types())
	}
	if m := a.minds[1]; m == nil || m.Preset != ai.PresetMonster {
		t.Errorf("mind = %+v, want a monster", m)
	}
	if _, ok := a.minds[2]; ok {
		t.Error("uncontrolled creature got a mind")
	}
}

func TestRosterLifecycle(t *testing.T) {
	cp := NewCheckpointer(newMemStore(), 1000)
	a, _ := newAgent(t, WithCheckpointer(cp))

	first := cave(1, []int{1, 3}, orc(1, 2, 2), orc(3, 7, 7))
	if _, err := a.Tick(first); err != nil {
		t.Fatal(err)
	}
	arb := a.minds[1].arbiter

	if _, err := a.Tick(cave(2, []int{1, 3}, orc(1, 2, 2), orc(3, 7, 7))); err != nil {
		t.Fatal(err)
	}
	if a.minds[1].arbiter != arb {
		t.Error("unchanged creature got a new arbiter")
	}

	guard := orc(1, 2, 2)
	guard.Role = "guard"
	if _, err := a.Tick(cave(3, []int{1}, guard, orc(3, 7, 7))); err != nil {
		t.Fatal(err)
	}
	m := a.minds[1]
	if m.Preset != ai.PresetGuard || m.Rule != "town-guard" {
		t.Errorf("after role change mind = %+v", m.assignment)
	}
	if m.arbiter == arb {
		t.Error("reassigned creature kept its old arbiter")
	}
	if _, ok := a.minds[3]; ok {
		t.Error("creature no longer controlled kept its mind")
	}
	if !cp.forget[memoryKey{"keeper", 3}] {
		t.Error("memory of the departed creature not queued for deletion")
	}
}

func TestDeadCreaturesAreDropped(t *testing.T) {
	a, rec := newAgent(t)
	dead := orc(1, 2, 2)
	dead.Health = 0
	res, err := a.Tick(cave(5, []int{1}, dead))
	if err != nil {
		t.Fatal(err)
	}
	if res.Moved != 0 || len(rec.cmds) != 0 {
		t.Errorf("dead creature acted: moved=%d sent=%v", res.Moved, rec.types())
	}
	if len(a.minds) != 0 {
		t.Errorf("minds = %d, want none", len(a.minds))
	}
}

func TestCheckpointRestore(t *testing.T) {
	mem := newMemStore()
	cp := NewCheckpointer(mem, 10)
	gs := cave(100, []int{1}, orc(1, 2, 2), elf(2, 3, 2))

	a, _ := newAgent(t, WithCheckpointer(cp))
	if _, err := a.Tick(gs); err != nil {
		t.Fatal(err)
	}
	if err := cp.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	saved, ok := mem.data[memoryKey{"keeper", 1}]
	if !ok {
		t.Fatal("no memory written")
	}
	if saved.Preset != string(ai.PresetMonster) || saved.Tick != 100 {
		t.Errorf("saved = %+v", saved)
	}

	b, rec := newAgent(t, WithCheckpointer(cp))
	b.syncRoster(world.New(gs, rec), gs)
	got, err := b.minds[1].arbiter.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(saved.Data) {
		t.Errorf("restored memory = %s, want %s", got, saved.Data)
	}
}

type never struct{}

func (never) Name() string                 { return "never" }
func (never) Move() ai.Move                { return ai.NoMove }
func (never) OnAttacked(ai.Creature)       {}
func (never) ItemValue(model.Item) float64 { return 0 }

func TestNoLegalMoveClosesSession(t *testing.T) {
	a, _ := newAgent(t)
	gs := cave(7, []int{1}, orc(1, 2, 2))
	if _, err := a.Tick(gs); err != nil {
		t.Fatal(err)
	}

	m := a.minds[1]
	arb, err := ai.NewArbiter(m.proxy, []ai.Weighted{{Behavior: never{}, Weight: 1}})
	if err != nil {
		t.Fatal(err)
	}
	m.arbiter = arb

	gs.Tick = 8
	_, err = a.Tick(gs)
	if !errors.Is(err, ipc.ErrCloseSession) || !errors.Is(err, ai.ErrNoLegalMove) {
		t.Fatalf("err = %v, want a session-closing no-legal-move error", err)
	}
}

func TestWarlordBands(t *testing.T) {
	a, _ := newAgent(t)
	leader := orc(1, 2, 2)
	leader.Role = "warlord"
	follower := orc(4, 3, 3)
	follower.Role = "warlord"
	follower.Leader = &leader.ID

	gs := cave(1, []int{1, 4}, leader, follower)
	gs.Collective = &model.CollectiveState{
		Name:    "warband",
		Members: []int{1, 4},
		Teams:   []model.TeamState{{ID: 1, Members: []int{1, 4}, Active: true, Orders: []string{"stand_ground", "dance"}}},
	}
	if _, err := a.Tick(gs); err != nil {
		t.Fatal(err)
	}
	team, ok := a.bands[1]
	if !ok {
		t.Fatalf("bands = %v, want one led by 1", a.bands)
	}
	if !slices.Equal(team.Members, []int{1, 4}) {
		t.Errorf("members = %v", team.Members)
	}
	if len(team.Orders) != 1 || !team.Orders[ai.OrderStandGround] {
		t.Errorf("orders = %v", team.Orders)
	}
}
