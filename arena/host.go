package arena

import (
	"slices"
	"sync"

	"github.com/nstehr/warren/warren-core/ipc"
	"github.com/nstehr/warren/warren-core/model"
)

// damageScale converts a creature's damage rating into lost health.
const damageScale = 0.1

// Host stands in for the game: it collects commands during a tick and
// resolves the ones the decision core cannot apply to its own snapshot.
type Host struct {
	mu     sync.Mutex
	cmds   []Command
	counts map[string]int
}

// Command is one command as received from the agent.
type Command struct {
	Type string
	Data any
}

func NewHost() *Host {
	return &Host{counts: make(map[string]int)}
}

// Send records a command. It implements world.CommandSink.
func (h *Host) Send(msgType string, data any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cmds = append(h.cmds, Command{Type: msgType, Data: data})
	h.counts[msgType]++
	return nil
}

// Counts returns how many commands of each type were sent so far.
func (h *Host) Counts() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]int, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}

// Resolve applies the tick's attacks to gs, removes the dead and returns
// the state for the next tick along with the ids that died.
func (h *Host) Resolve(gs model.GameState) (model.GameState, []int) {
	h.mu.Lock()
	cmds := h.cmds
	h.cmds = nil
	h.mu.Unlock()

	next := gs
	next.Tick++
	next.Creatures = slices.Clone(gs.Creatures)
	index := make(map[int]int, len(next.Creatures))
	for i := range next.Creatures {
		next.Creatures[i].AttackedBy = nil
		index[next.Creatures[i].ID] = i
	}

	for _, cmd := range cmds {
		if cmd.Type != ipc.TypeAttack {
			continue
		}
		tc, ok := cmd.Data.(ipc.TargetCommand)
		if !ok {
			continue
		}
		src, aok := index[tc.CreatureID]
		dst, tok := index[tc.TargetID]
		if !aok || !tok {
			continue
		}
		target := &next.Creatures[dst]
		target.Health -= float64(next.Creatures[src].Damage) * damageScale
		if !slices.Contains(target.AttackedBy, tc.CreatureID) {
			target.AttackedBy = append(target.AttackedBy, tc.CreatureID)
		}
	}

	var dead []int
	next.Creatures = slices.DeleteFunc(next.Creatures, func(c model.Creature) bool {
		if c.Health <= 0 {
			dead = append(dead, c.ID)
			return true
		}
		return false
	})
	alive := make(map[int]bool, len(next.Creatures))
	for _, c := range next.Creatures {
		alive[c.ID] = true
	}
	next.Controlled = slices.DeleteFunc(slices.Clone(gs.Controlled), func(id int) bool { return !alive[id] })
	return next, dead
}
