// Command arena plays the decision core against itself on a generated cave.
package main

import (
	"context"
	"flag"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nstehr/warren/warren-core/agent"
	"github.com/nstehr/warren/warren-core/arena"
	"github.com/nstehr/warren/warren-core/rules"
)

func main() {
	var (
		ticks   = flag.Int("ticks", 1000, "number of ticks to run")
		seed    = flag.Int64("seed", 1, "level and decision seed")
		width   = flag.Int("width", 48, "cave width")
		height  = flag.Int("height", 32, "cave height")
		roles   = flag.String("roles", "", "role table (built-in when empty)")
		verbose = flag.Bool("v", false, "log every decision")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	rs := rules.DefaultRules()
	if *roles != "" {
		var err error
		if rs, err = rules.Load(*roles); err != nil {
			slog.Error("failed to load role table", "error", err)
			os.Exit(1)
		}
	}
	engine, err := rules.NewEngine(rs)
	if err != nil {
		slog.Error("invalid role table", "error", err)
		os.Exit(1)
	}

	gs, err := arena.Generate(arena.CaveConfig{
		Width:       *width,
		Height:      *height,
		Seed:        *seed,
		Populations: arena.DefaultPopulations(),
	})
	if err != nil {
		slog.Error("failed to generate cave", "error", err)
		os.Exit(1)
	}
	slog.Info("cave generated",
		"tiles", humanize.Comma(int64(len(gs.Level.Grid.Tiles))),
		"creatures", len(gs.Creatures),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	host := arena.NewHost()
	a := agent.New(host, engine, agent.WithSeed(uint64(*seed)), agent.WithLogger(logger))
	a.Player = "arena"

	start := time.Now()
	st, err := arena.Run(ctx, a, host, gs, *ticks)
	if err != nil {
		slog.Error("arena run failed", "ticks", st.Ticks, "error", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	slog.Info("arena finished",
		"ticks", humanize.Comma(int64(st.Ticks)),
		"moved", humanize.Comma(int64(st.Moved)),
		"deaths", st.Deaths,
		"survivors", len(st.Final.Creatures),
		"elapsed", elapsed.Round(time.Millisecond),
	)
	for _, t := range slices.Sorted(maps.Keys(st.Commands)) {
		slog.Info("commands sent", "type", t, "count", humanize.Comma(int64(st.Commands[t])))
	}
}
