package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/nstehr/warren/warren-core/ai"
)

// ErrNoRole is returned when no rule matches a creature.
var ErrNoRole = errors.New("no role matches")

// Engine assigns roles from a compiled rule table. The table can be swapped
// while sessions are running; each match sees one consistent table.
type Engine struct {
	mu    sync.RWMutex
	rules []*Rule
}

// NewEngine compiles all rule conditions into expr bytecode and sorts by priority.
func NewEngine(rules []*Rule) (*Engine, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Engine{rules: compiled}, nil
}

// Match returns the highest-priority rule whose condition holds for env.
// A condition that fails at run time is logged and skipped.
func (e *Engine) Match(env RuleEnv) (*Rule, error) {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	for _, r := range rules {
		result, err := vm.Run(r.program, env)
		if err != nil {
			slog.Warn("rule condition error", "rule", r.Name, "creature", env.Name, "error", err)
			continue
		}
		if match, ok := result.(bool); ok && match {
			slog.Debug("role matched", "rule", r.Name, "preset", r.Preset, "creature", env.Name)
			return r, nil
		}
	}
	return nil, fmt.Errorf("%s (%s): %w", env.Name, env.Tribe, ErrNoRole)
}

// Rules returns the active table in evaluation order.
func (e *Engine) Rules() []*Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.rules)
}

// Swap atomically replaces the rule table. Compiles first; if compilation
// fails the old table remains active. Creatures keep their current role
// until the next tick re-matches them.
func (e *Engine) Swap(newRules []*Rule) error {
	compiled, err := compileRules(newRules)
	if err != nil {
		return err
	}
	names := make([]string, len(compiled))
	for i, r := range compiled {
		names[i] = r.Name
	}
	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()
	slog.Info("role table swapped", "count", len(compiled), "rules", names)
	return nil
}

func compileRules(rules []*Rule) ([]*Rule, error) {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return nil, errors.New("rule without a name")
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate rule %q", r.Name)
		}
		seen[r.Name] = true
		if !slices.Contains(ai.Presets(), r.Preset) {
			return nil, fmt.Errorf("rule %q: %w: %q", r.Name, ai.ErrUnknownPreset, r.Preset)
		}
		prog, err := expr.Compile(r.ConditionSrc, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = prog
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules, nil
}
