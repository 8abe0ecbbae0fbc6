package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nstehr/warren/warren-core/model"
)

var (
	ErrNoAgent     = errors.New("agent is required")
	ErrEmptyStack  = errors.New("behavior stack is empty")
	ErrNilBehavior = errors.New("behavior is nil")
	ErrWeightOrder = errors.New("weights must be positive and non-increasing")
	ErrNoLegalMove = errors.New("no positive-valued move")
)

// Weighted pairs a behavior with its priority weight. The weight is both
// the evaluation order and the score multiplier.
type Weighted struct {
	Behavior Behavior
	Weight   int
}

// Candidate is one scored proposal considered during arbitration.
type Candidate struct {
	Behavior string  `json:"behavior"`
	Action   string  `json:"action"`
	Value    float64 `json:"value"`
	Pickup   bool    `json:"pickup,omitempty"`
}

// Decision describes one arbitration for tracing.
type Decision struct {
	Agent      int         `json:"agent"`
	Time       int         `json:"time"`
	Winner     Candidate   `json:"winner"`
	Evaluated  int         `json:"evaluated"` // behaviors asked before pruning stopped
	Candidates []Candidate `json:"candidates"`
}

// Observer receives every decision an arbiter makes.
type Observer func(Decision)

// Arbiter picks one action per tick for its agent from a weighted stack of
// behaviors. Greedy winner-take-all: the highest scored proposal wins.
type Arbiter struct {
	agent    Agent
	stack    []Weighted
	pickup   bool
	prune    bool
	observer Observer
	logger   *slog.Logger
}

type Option func(*Arbiter)

// WithPickup enables scanning pickable items after each behavior.
func WithPickup(enabled bool) Option {
	return func(a *Arbiter) { a.pickup = enabled }
}

// WithoutPruning disables the early exit. Winners are identical either way;
// it exists for comparison in tests.
func WithoutPruning() Option {
	return func(a *Arbiter) { a.prune = false }
}

func WithObserver(o Observer) Option {
	return func(a *Arbiter) { a.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Arbiter) { a.logger = l }
}

// NewArbiter validates the stack and returns a ready arbiter.
func NewArbiter(agent Agent, stack []Weighted, opts ...Option) (*Arbiter, error) {
	if agent == nil {
		return nil, ErrNoAgent
	}
	if err := ValidateStack(stack); err != nil {
		return nil, err
	}
	a := &Arbiter{
		agent:  agent,
		stack:  stack,
		prune:  true,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ValidateStack checks that the stack is non-empty, has no nil behaviors and
// that its weights are positive and non-increasing.
func ValidateStack(stack []Weighted) error {
	if len(stack) == 0 {
		return ErrEmptyStack
	}
	for i, w := range stack {
		if w.Behavior == nil {
			return fmt.Errorf("entry %d: %w", i, ErrNilBehavior)
		}
		if w.Weight <= 0 {
			return fmt.Errorf("entry %d (%s) weight %d: %w", i, w.Behavior.Name(), w.Weight, ErrWeightOrder)
		}
		if i > 0 && w.Weight > stack[i-1].Weight {
			return fmt.Errorf("entry %d (%s) weight %d after %d: %w",
				i, w.Behavior.Name(), w.Weight, stack[i-1].Weight, ErrWeightOrder)
		}
	}
	return nil
}

func (a *Arbiter) Agent() Agent { return a.agent }

// Stack returns the behaviors in priority order.
func (a *Arbiter) Stack() []Weighted { return a.stack }

// Decide runs arbitration without performing the winner. Proposed values
// and ItemValue results are clamped to [0,1] before weighting, so no
// behavior can score above its weight and pruning never changes the winner.
func (a *Arbiter) Decide() (Move, Decision, error) {
	d := Decision{Agent: a.agent.ID(), Time: a.agent.Time()}
	winner := NoMove

	consider := func(m Move, c Candidate) {
		d.Candidates = append(d.Candidates, c)
		if m.Better(winner) {
			winner = m
			d.Winner = c
		}
	}

	for i, wb := range a.stack {
		d.Evaluated = i + 1
		weight := float64(wb.Weight)

		m := wb.Behavior.Move()
		scored := m.WithValue(clamp(m.Value(), 0, 1) * weight)
		if scored.OK() {
			consider(scored, Candidate{Behavior: wb.Behavior.Name(), Action: scored.ActionName(), Value: scored.Value()})
		}

		if a.pickup {
			for _, stack := range model.StackItems(a.agent.PickUpOptions()) {
				item := stack[0]
				if item.ForSale {
					continue
				}
				act := a.agent.PickUp(stack)
				if !act.Possible() {
					continue
				}
				pm := MoveOf(clamp(wb.Behavior.ItemValue(item), 0, 1)*weight, act)
				consider(pm, Candidate{Behavior: wb.Behavior.Name(), Action: "pick_up:" + item.Name, Value: pm.Value(), Pickup: true})
			}
		}

		// Later weights are no larger than the next one, and scores are clamped
		// to [0,1] before weighting, so nothing later can beat this.
		if a.prune && i+1 < len(a.stack) && scored.OK() && scored.Value() > float64(a.stack[i+1].Weight) {
			break
		}
	}

	if !winner.OK() || winner.Value() <= 0 {
		return NoMove, d, fmt.Errorf("agent %d (%s) at %d: %w", a.agent.ID(), a.agent.Name(), a.agent.Time(), ErrNoLegalMove)
	}
	return winner, d, nil
}

// MakeMove decides and performs the winning action. ErrNoLegalMove means
// the stack was built without a fallback and the session must abort.
func (a *Arbiter) MakeMove() error {
	winner, d, err := a.Decide()
	if a.observer != nil {
		a.observer(d)
	}
	if err != nil {
		return err
	}
	a.logger.Debug("move chosen",
		"agent", d.Agent,
		"name", a.agent.Name(),
		"behavior", d.Winner.Behavior,
		"action", d.Winner.Action,
		"value", d.Winner.Value,
		"evaluated", d.Evaluated,
	)
	return winner.Action().Perform()
}

// OnAttacked notifies every behavior, including ones that lose this tick.
func (a *Arbiter) OnAttacked(attacker Creature) {
	for _, wb := range a.stack {
		wb.Behavior.OnAttacked(attacker)
	}
}

// Snapshot serializes the private memory of every behavior that keeps any.
// Keys are stable as long as the stack is rebuilt from the same preset.
func (a *Arbiter) Snapshot() ([]byte, error) {
	mem := make(map[string]json.RawMessage)
	for i, wb := range a.stack {
		m, ok := wb.Behavior.(Memorizer)
		if !ok {
			continue
		}
		raw, err := m.SnapshotMemory()
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", wb.Behavior.Name(), err)
		}
		if raw != nil {
			mem[memoryKey(i, wb.Behavior)] = raw
		}
	}
	return json.Marshal(mem)
}

// Restore loads a snapshot taken from a stack built from the same preset.
// Entries for behaviors no longer in the stack are ignored.
func (a *Arbiter) Restore(data []byte) error {
	var mem map[string]json.RawMessage
	if err := json.Unmarshal(data, &mem); err != nil {
		return fmt.Errorf("unmarshal memory: %w", err)
	}
	for i, wb := range a.stack {
		m, ok := wb.Behavior.(Memorizer)
		if !ok {
			continue
		}
		raw, ok := mem[memoryKey(i, wb.Behavior)]
		if !ok {
			continue
		}
		if err := m.RestoreMemory(raw); err != nil {
			return fmt.Errorf("restore %s: %w", wb.Behavior.Name(), err)
		}
	}
	return nil
}

func memoryKey(i int, b Behavior) string {
	return fmt.Sprintf("%d:%s", i, b.Name())
}
