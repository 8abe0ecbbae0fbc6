package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nstehr/warren/warren-core/ai"
	"github.com/nstehr/warren/warren-core/collective"
	"github.com/nstehr/warren/warren-core/ipc"
	"github.com/nstehr/warren/warren-core/model"
	"github.com/nstehr/warren/warren-core/rules"
	"github.com/nstehr/warren/warren-core/store"
	"github.com/nstehr/warren/warren-core/world"
)

// SessionStore records sessions. *store.DB satisfies it.
type SessionStore interface {
	StartSession(ctx context.Context, player, tribe string) (store.Session, error)
}

// Tracer hands out decision observers. *trace.Hub satisfies it.
type Tracer interface {
	Observer(player string) ai.Observer
}

// mind is the decision state kept for one controlled creature across ticks.
type mind struct {
	assignment
	proxy   *world.Proxy
	arbiter *ai.Arbiter
}

// TickResult summarizes one processed game state.
type TickResult struct {
	Moved int             // creatures that sent at least one command
	State model.GameState // the level after this tick's actions
}

// Agent owns the decision-making for a single player session.
type Agent struct {
	Player  string
	Tribe   string
	Session string

	sink        world.CommandSink
	engine      *rules.Engine
	sessions    SessionStore
	checkpoints *Checkpointer
	tracer      Tracer
	seed        uint64
	logger      *slog.Logger

	minds      map[int]*mind
	roster     rosterSnapshot
	bands      map[int]*ai.WarlordTeam // by leader id
	collective *collective.Collective
	showcase   *ai.ShowcaseSession

	tickLog  rate.Sometimes
	buildLog rate.Sometimes
}

type Option func(*Agent)

func WithCheckpointer(c *Checkpointer) Option { return func(a *Agent) { a.checkpoints = c } }
func WithSessions(s SessionStore) Option      { return func(a *Agent) { a.sessions = s } }
func WithTracer(t Tracer) Option              { return func(a *Agent) { a.tracer = t } }
func WithSeed(seed uint64) Option             { return func(a *Agent) { a.seed = seed } }
func WithLogger(l *slog.Logger) Option        { return func(a *Agent) { a.logger = l } }

// New creates an agent that sends commands through sink and assigns roles
// from engine.
func New(sink world.CommandSink, engine *rules.Engine, opts ...Option) *Agent {
	a := &Agent{
		sink:     sink,
		engine:   engine,
		logger:   slog.Default(),
		minds:    make(map[int]*mind),
		roster:   make(rosterSnapshot),
		bands:    make(map[int]*ai.WarlordTeam),
		tickLog:  rate.Sometimes{First: 1, Interval: 30 * time.Second},
		buildLog: rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HandleHello completes the handshake so the host knows the sidecar is ready.
// A second hello starts a fresh session.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := json.Unmarshal(env.Data, &hello); err != nil {
		return nil, fmt.Errorf("unmarshal hello: %w", err)
	}

	a.Player = hello.Player
	a.Tribe = hello.Tribe
	a.reset()

	a.Session = uuid.NewString()
	if a.sessions != nil {
		s, err := a.sessions.StartSession(context.Background(), a.Player, a.Tribe)
		if err != nil {
			a.logger.Warn("session not recorded", "player", a.Player, "error", err)
		} else {
			a.Session = s.ID
		}
	}

	if sc := hello.Showcase; sc != nil {
		bounds := model.Rect{Min: model.Vec2{X: sc.MinX, Y: sc.MinY}, Max: model.Vec2{X: sc.MaxX, Y: sc.MaxY}}
		layout := ai.ShowcaseLayout{Rows: sc.Layout}
		a.showcase = ai.NewShowcaseSession(bounds, layout, rand.New(rand.NewPCG(a.seed, 0x5c)))
		a.logger.Info("showcase started", "player", a.Player, "showcase", a.showcase.ID, "bounds", bounds)
	}
	a.logger.Info("player identified", "player", a.Player, "tribe", a.Tribe, "session", a.Session)

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok"})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

func (a *Agent) HandleGameState(env ipc.Envelope) (*ipc.Envelope, error) {
	var gs model.GameState
	if err := json.Unmarshal(env.Data, &gs); err != nil {
		return nil, fmt.Errorf("unmarshal GameState: %w", err)
	}

	res, err := a.Tick(gs)
	if err != nil {
		return nil, err
	}
	a.tickLog.Do(func() {
		a.logger.Info("game state received",
			"player", a.Player,
			"tick", gs.Tick,
			"level", gs.Level.Name,
			"creatures", len(gs.Creatures),
			"controlled", len(gs.Controlled),
			"moved", res.Moved,
		)
	})

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok", Tick: gs.Tick, Moved: res.Moved})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// Tick runs one decision round: every controlled creature, in the order the
// host listed them, makes exactly one move against the shared snapshot.
// A creature left without a legal move aborts the session.
func (a *Agent) Tick(gs model.GameState) (TickResult, error) {
	w := world.New(gs, a.sink)
	level := w.Level()

	if gs.Collective != nil {
		if a.collective == nil || a.collective.Name() != gs.Collective.Name {
			a.collective = collective.New(gs.Collective.Name, collective.WithLogger(a.logger))
		}
		a.collective.Update(*gs.Collective, level, gs.Tick)
	}
	a.syncRoster(w, gs)

	moved := 0
	for _, id := range gs.Controlled {
		m, ok := a.minds[id]
		if !ok {
			continue
		}
		ag, ok := w.Agent(id)
		if !ok {
			// Killed earlier this tick.
			continue
		}
		m.proxy.Bind(ag)
		if c, ok := gs.Creature(id); ok {
			for _, attacker := range c.AttackedBy {
				if o := level.Creature(attacker); o != nil {
					m.arbiter.OnAttacked(o)
				}
			}
		}

		sent := w.Sent()
		if err := m.arbiter.MakeMove(); err != nil {
			if errors.Is(err, ai.ErrNoLegalMove) {
				return TickResult{}, fmt.Errorf("tick %d: %w: %w", gs.Tick, ipc.ErrCloseSession, err)
			}
			return TickResult{}, fmt.Errorf("tick %d, creature %d: %w", gs.Tick, id, err)
		}
		if w.Sent() > sent {
			moved++
		}
	}

	a.checkpoint(gs.Tick)
	return TickResult{Moved: moved, State: w.State()}, nil
}

func (a *Agent) reset() {
	a.minds = make(map[int]*mind)
	a.roster = make(rosterSnapshot)
	a.bands = make(map[int]*ai.WarlordTeam)
	a.collective = nil
	a.showcase = nil
}

// syncRoster matches every controlled creature against the role table and
// builds, rebuilds or drops minds for the differences.
func (a *Agent) syncRoster(w *world.World, gs model.GameState) {
	next := make(rosterSnapshot, len(gs.Controlled))
	matched := make(map[int]*rules.Rule, len(gs.Controlled))
	for _, id := range gs.Controlled {
		c, ok := gs.Creature(id)
		if !ok || c.Health <= 0 || c.Pos.Level != gs.Level.Name {
			continue
		}
		r, err := a.engine.Match(rules.NewEnv(gs, *c, a.showcase != nil))
		if err != nil {
			a.buildLog.Do(func() { a.logger.Warn("creature left uncontrolled", "creature", id, "error", err) })
			continue
		}
		next[id] = assignment{Rule: r.Name, Preset: r.Preset}
		matched[id] = r
	}
	a.updateBands(gs, next)

	changes := diffRoster(a.roster, next, gs.Tick)
	for _, ch := range changes {
		if ch.Kind == ChangeLeft {
			delete(a.minds, ch.ID)
			if a.checkpoints != nil {
				a.checkpoints.Forget(a.Player, ch.ID)
			}
			continue
		}
		c, _ := gs.Creature(ch.ID)
		ag, _ := w.Agent(ch.ID)
		m, err := a.build(ag, *c, matched[ch.ID], a.minds[ch.ID])
		if err != nil {
			a.buildLog.Do(func() { a.logger.Error("behavior stack not built", "creature", ch.ID, "error", err) })
			delete(next, ch.ID)
			delete(a.minds, ch.ID)
			continue
		}
		a.minds[ch.ID] = m
	}
	if len(changes) > 0 {
		a.logger.Debug("roster changed", "player", a.Player, "tick", gs.Tick, "changes", formatChanges(changes))
	}
	a.roster = next
}

// build creates the arbiter for c. Memory carries over from prev when the
// preset is unchanged, otherwise it is restored from the last checkpoint.
func (a *Agent) build(ag *world.Agent, c model.Creature, r *rules.Rule, prev *mind) (*mind, error) {
	p := r.Params.Params(c)
	if a.collective != nil {
		p.Collective = a.collective
	}
	p.Showcase = a.showcase
	if r.Preset == ai.PresetWarlord {
		p.Team = a.bands[leaderOf(c)]
	}
	p.Rand = rand.New(rand.NewPCG(a.seed, uint64(c.ID)))

	opts := []ai.Option{ai.WithLogger(a.logger)}
	if a.tracer != nil {
		opts = append(opts, ai.WithObserver(a.tracer.Observer(a.Player)))
	}
	proxy := world.NewProxy(ag)
	arb, err := ai.Build(proxy, r.Preset, p, opts...)
	if err != nil {
		return nil, fmt.Errorf("creature %d: %w", c.ID, err)
	}
	m := &mind{assignment: assignment{Rule: r.Name, Preset: r.Preset}, proxy: proxy, arbiter: arb}

	switch {
	case prev != nil && prev.Preset == r.Preset:
		data, err := prev.arbiter.Snapshot()
		if err == nil {
			err = arb.Restore(data)
		}
		if err != nil {
			a.logger.Warn("memory not carried over", "creature", c.ID, "error", err)
		}
	case prev == nil && a.checkpoints != nil:
		a.restore(arb, c.ID, r.Preset)
	}
	return m, nil
}

func (a *Agent) restore(arb *ai.Arbiter, id int, preset ai.Preset) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	mem, ok, err := a.checkpoints.Load(ctx, a.Player, id)
	if err != nil {
		a.logger.Warn("memory not loaded", "creature", id, "error", err)
		return
	}
	if !ok || mem.Preset != string(preset) {
		return
	}
	if err := arb.Restore(mem.Data); err != nil {
		a.logger.Warn("memory not restored", "creature", id, "error", err)
		return
	}
	a.logger.Debug("memory restored", "creature", id, "preset", preset, "tick", mem.Tick)
}

func leaderOf(c model.Creature) int {
	if c.Leader != nil {
		return *c.Leader
	}
	return c.ID
}

// updateBands regroups warlord-preset creatures by leader. Teams are
// updated in place so existing stacks see new members and orders.
func (a *Agent) updateBands(gs model.GameState, next rosterSnapshot) {
	members := make(map[int][]int)
	for id, as := range next {
		if as.Preset != ai.PresetWarlord {
			continue
		}
		c, _ := gs.Creature(id)
		l := leaderOf(*c)
		if l != id {
			members[l] = append(members[l], id)
		} else if _, ok := members[l]; !ok {
			members[l] = nil
		}
	}
	for l := range a.bands {
		if _, ok := members[l]; !ok {
			delete(a.bands, l)
		}
	}
	for l, ids := range members {
		slices.Sort(ids)
		team, ok := a.bands[l]
		if !ok {
			team = &ai.WarlordTeam{}
			a.bands[l] = team
		}
		team.Members = append([]int{l}, ids...)
		team.Orders = bandOrders(gs, l)
	}
}

// bandOrders takes the orders of the collective team the leader is in.
func bandOrders(gs model.GameState, leader int) map[ai.TeamOrder]bool {
	orders := make(map[ai.TeamOrder]bool)
	if gs.Collective == nil {
		return orders
	}
	for _, t := range gs.Collective.Teams {
		if !slices.Contains(t.Members, leader) {
			continue
		}
		for _, s := range t.Orders {
			if o, ok := ai.ParseTeamOrder(s); ok {
				orders[o] = true
			}
		}
	}
	return orders
}

// checkpoint hands memory snapshots to the checkpointer every interval.
func (a *Agent) checkpoint(tick int) {
	if a.checkpoints == nil || !a.checkpoints.Due(a.Player, tick) {
		return
	}
	ids := slices.Sorted(maps.Keys(a.minds))
	mems := make([]store.Memory, 0, len(ids))
	for _, id := range ids {
		m := a.minds[id]
		data, err := m.arbiter.Snapshot()
		if err != nil {
			a.logger.Warn("memory snapshot failed", "creature", id, "error", err)
			continue
		}
		mems = append(mems, store.Memory{
			Player:   a.Player,
			Creature: id,
			Preset:   string(m.Preset),
			Tick:     tick,
			Session:  a.Session,
			Data:     data,
		})
	}
	a.checkpoints.Offer(a.Player, tick, mems)
}
