package arena

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nstehr/warren/warren-core/agent"
	"github.com/nstehr/warren/warren-core/model"
)

// Stats summarizes a finished run.
type Stats struct {
	Ticks    int
	Moved    int
	Deaths   int
	Commands map[string]int
	Final    model.GameState
}

// Run drives a for up to ticks rounds starting from gs, resolving host-side
// effects in between. a must send its commands to host. Run stops early
// when ctx is cancelled or nobody is left to control, and fails on the
// first tick error.
func Run(ctx context.Context, a *agent.Agent, host *Host, gs model.GameState, ticks int) (Stats, error) {
	var st Stats
	for range ticks {
		if ctx.Err() != nil {
			break
		}
		if len(gs.Controlled) == 0 {
			slog.Info("arena emptied", "tick", gs.Tick)
			break
		}
		res, err := a.Tick(gs)
		if err != nil {
			st.Final = gs
			st.Commands = host.Counts()
			return st, fmt.Errorf("arena tick %d: %w", gs.Tick, err)
		}
		next, dead := host.Resolve(res.State)
		st.Ticks++
		st.Moved += res.Moved
		st.Deaths += len(dead)
		if len(dead) > 0 {
			slog.Debug("creatures died", "tick", gs.Tick, "ids", dead)
		}
		gs = next
	}
	st.Final = gs
	st.Commands = host.Counts()
	return st, nil
}
