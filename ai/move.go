package ai

import "fmt"

// Move is a behavior's valued proposal. The zero Move is NoMove, which is
// distinct from a proposal valued 0 and loses to every valued proposal.
type Move struct {
	value  float64
	action Action
	ok     bool
}

// NoMove is the "nothing to propose" result.
var NoMove Move

// MoveOf proposes action at value. An impossible action yields NoMove.
func MoveOf(value float64, action Action) Move {
	if !action.Possible() {
		return NoMove
	}
	return Move{value: value, action: action, ok: true}
}

// Do proposes action at full value.
func Do(action Action) Move { return MoveOf(1, action) }

func (m Move) OK() bool           { return m.ok }
func (m Move) Value() float64     { return m.value }
func (m Move) Action() Action     { return m.action }
func (m Move) ActionName() string { return m.action.Name() }

// Better reports whether m strictly beats o.
func (m Move) Better(o Move) bool {
	if !m.ok {
		return false
	}
	if !o.ok {
		return true
	}
	return m.value > o.value
}

// WithValue replaces the value; NoMove stays NoMove.
func (m Move) WithValue(v float64) Move {
	if !m.ok {
		return m
	}
	m.value = v
	return m
}

// OrWait falls back to waiting at full value.
func (m Move) OrWait(a Agent) Move {
	if m.ok {
		return m
	}
	return Do(a.Wait())
}

// Prepend attaches a pre-execution hook.
func (m Move) Prepend(fn func()) Move {
	if !m.ok {
		return m
	}
	m.action = m.action.Prepend(fn)
	return m
}

// Append attaches a post-execution hook.
func (m Move) Append(fn func()) Move {
	if !m.ok {
		return m
	}
	m.action = m.action.Append(fn)
	return m
}

func (m Move) String() string {
	if !m.ok {
		return "no-move"
	}
	return fmt.Sprintf("%s@%.4g", m.action.Name(), m.value)
}
