package ai

import "fmt"

// Action is a deferred operation against the world. The zero Action means
// "not possible": collaborators return it when they decline to act.
type Action struct {
	name    string
	perform func() error
	before  []func()
	after   []func()
}

// NewAction wraps perform as a possible action.
func NewAction(name string, perform func() error) Action {
	return Action{name: name, perform: perform}
}

// Possible reports whether the action can be performed.
func (a Action) Possible() bool { return a.perform != nil }

func (a Action) Name() string {
	if !a.Possible() {
		return "none"
	}
	return a.name
}

// Prepend returns a copy that runs fn before the action itself.
func (a Action) Prepend(fn func()) Action {
	if !a.Possible() {
		return a
	}
	a.before = append([]func(){fn}, a.before...)
	return a
}

// Append returns a copy that runs fn after the action succeeds.
func (a Action) Append(fn func()) Action {
	if !a.Possible() {
		return a
	}
	after := make([]func(), len(a.after), len(a.after)+1)
	copy(after, a.after)
	a.after = append(after, fn)
	return a
}

// Perform runs the hooks and the action. Post hooks are skipped when the
// action fails.
func (a Action) Perform() error {
	if !a.Possible() {
		return fmt.Errorf("perform %s: action not possible", a.name)
	}
	for _, fn := range a.before {
		fn()
	}
	if err := a.perform(); err != nil {
		return fmt.Errorf("perform %s: %w", a.name, err)
	}
	for _, fn := range a.after {
		fn()
	}
	return nil
}
