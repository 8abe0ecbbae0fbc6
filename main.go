package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nstehr/warren/warren-core/agent"
	"github.com/nstehr/warren/warren-core/config"
	"github.com/nstehr/warren/warren-core/ipc"
	"github.com/nstehr/warren/warren-core/rules"
	"github.com/nstehr/warren/warren-core/store"
	"github.com/nstehr/warren/warren-core/trace"
)

const banner = `
██╗    ██╗ █████╗ ██████╗ ██████╗ ███████╗███╗   ██╗
██║    ██║██╔══██╗██╔══██╗██╔══██╗██╔════╝████╗  ██║
██║ █╗ ██║███████║██████╔╝██████╔╝█████╗  ██╔██╗ ██║
██║███╗██║██╔══██║██╔══██╗██╔══██╗██╔══╝  ██║╚██╗██║
╚███╔███╔╝██║  ██║██║  ██║██║  ██║███████╗██║ ╚████║
 ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═══╝

Weighted Creature Intelligence`

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	fmt.Println(banner)

	slog.Info("starting warren")

	engine, err := loadRoles(cfg.RolesPath)
	if err != nil {
		slog.Error("failed to load role table", "path", cfg.RolesPath, "error", err)
		os.Exit(1)
	}
	slog.Info("role table loaded", "rules", len(engine.Rules()))

	db, err := store.Open(cfg.StorePath)
	if err != nil {
		slog.Error("failed to open store", "path", cfg.StorePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checkpoints := agent.NewCheckpointer(db, cfg.CheckpointInterval)
	checkpointsDone := make(chan struct{})
	go func() {
		checkpoints.Start(ctx)
		close(checkpointsDone)
	}()

	opts := []agent.Option{
		agent.WithCheckpointer(checkpoints),
		agent.WithSessions(db),
		agent.WithSeed(cfg.Seed),
		agent.WithLogger(logger),
	}
	if cfg.TraceAddr != "" {
		hub := trace.NewHub(logger)
		srv := &http.Server{Addr: cfg.TraceAddr, Handler: hub, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			slog.Info("trace viewer listening", "addr", cfg.TraceAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("trace server failed", "error", err)
			}
		}()
		defer srv.Close()
		opts = append(opts, agent.WithTracer(hub))
	}

	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		slog.Error("failed to clean up socket", "path", cfg.SocketPath, "error", err)
		os.Exit(1)
	}

	listener, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		slog.Error("failed to listen on socket", "path", cfg.SocketPath, "error", err)
		os.Exit(1)
	}
	defer listener.Close()
	defer os.Remove(cfg.SocketPath)

	slog.Info("listening on domain socket", "path", cfg.SocketPath)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					slog.Error("failed to accept connection", "error", err)
					continue
				}
			}
			slog.Info("new connection accepted")
			go handleConn(conn, engine, opts)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	<-checkpointsDone
}

func loadRoles(path string) (*rules.Engine, error) {
	if path == "" {
		return rules.NewEngine(rules.DefaultRules())
	}
	rs, err := rules.Load(path)
	if err != nil {
		return nil, err
	}
	return rules.NewEngine(rs)
}

func handleConn(conn net.Conn, engine *rules.Engine, opts []agent.Option) {
	c := ipc.NewConnection(conn, nil)
	a := agent.New(c, engine, opts...)
	c.RegisterHandler(ipc.TypeHello, func(env ipc.Envelope) (*ipc.Envelope, error) {
		resp, err := a.HandleHello(env)
		c.Player = a.Player
		return resp, err
	})
	c.RegisterHandler(ipc.TypeGameState, a.HandleGameState)
	c.ReadLoop()
}
