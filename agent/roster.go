package agent

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nstehr/warren/warren-core/ai"
)

// ChangeKind identifies how control of a creature changed between ticks.
type ChangeKind string

const (
	ChangeJoined     ChangeKind = "joined"
	ChangeReassigned ChangeKind = "reassigned"
	ChangeLeft       ChangeKind = "left"
)

// Change is one roster difference detected by comparing consecutive ticks.
type Change struct {
	Kind   ChangeKind
	Tick   int
	ID     int
	Detail string
}

// assignment is the role a controlled creature was given.
type assignment struct {
	Rule   string
	Preset ai.Preset
}

// rosterSnapshot maps controlled creature ids to their roles for one tick.
type rosterSnapshot map[int]assignment

// diffRoster reports creatures that appeared, changed role or disappeared
// between prev and next, ordered by creature id.
func diffRoster(prev, next rosterSnapshot, tick int) []Change {
	var changes []Change
	for id, cur := range next {
		old, ok := prev[id]
		switch {
		case !ok:
			changes = append(changes, Change{
				Kind:   ChangeJoined,
				Tick:   tick,
				ID:     id,
				Detail: fmt.Sprintf("%s via %s", cur.Preset, cur.Rule),
			})
		case old != cur:
			changes = append(changes, Change{
				Kind:   ChangeReassigned,
				Tick:   tick,
				ID:     id,
				Detail: fmt.Sprintf("%s (%s) -> %s (%s)", old.Preset, old.Rule, cur.Preset, cur.Rule),
			})
		}
	}
	for id, old := range prev {
		if _, ok := next[id]; !ok {
			changes = append(changes, Change{
				Kind:   ChangeLeft,
				Tick:   tick,
				ID:     id,
				Detail: string(old.Preset),
			})
		}
	}
	slices.SortFunc(changes, func(a, b Change) int { return a.ID - b.ID })
	return changes
}

// formatChanges renders changes for a single log line.
func formatChanges(changes []Change) string {
	parts := make([]string, len(changes))
	for i, c := range changes {
		parts[i] = fmt.Sprintf("%d %s: %s", c.ID, c.Kind, c.Detail)
	}
	return strings.Join(parts, "; ")
}
