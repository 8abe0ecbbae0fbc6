package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nstehr/warren/warren-core/store"
)

// MemoryStore persists behavior memory. *store.DB satisfies it.
type MemoryStore interface {
	SaveMemories(ctx context.Context, mems []store.Memory) error
	LoadMemory(ctx context.Context, player string, creature int) (store.Memory, bool, error)
	DeleteMemory(ctx context.Context, player string, creature int) error
}

type memoryKey struct {
	player   string
	creature int
}

// Checkpointer writes behavior memory in the background so the tick loop
// never waits on the disk. Sessions hand it snapshot copies every interval
// ticks; only the latest snapshot per creature is written.
type Checkpointer struct {
	mu       sync.Mutex
	store    MemoryStore
	interval int
	lastTick map[string]int // per player
	pending  map[memoryKey]store.Memory
	forget   map[memoryKey]bool
	ready    chan struct{}
}

// NewCheckpointer creates a checkpointer. interval defaults to 100 ticks.
func NewCheckpointer(s MemoryStore, interval int) *Checkpointer {
	if interval <= 0 {
		interval = 100
	}
	return &Checkpointer{
		store:    s,
		interval: interval,
		lastTick: make(map[string]int),
		pending:  make(map[memoryKey]store.Memory),
		forget:   make(map[memoryKey]bool),
		ready:    make(chan struct{}, 1),
	}
}

// Due reports whether player's memory should be snapshotted at tick.
func (c *Checkpointer) Due(player string, tick int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastTick[player]
	return !ok || tick-last >= c.interval || tick < last
}

// Offer queues a snapshot batch taken at tick.
func (c *Checkpointer) Offer(player string, tick int, mems []store.Memory) {
	c.mu.Lock()
	c.lastTick[player] = tick
	for _, m := range mems {
		k := memoryKey{m.Player, m.Creature}
		c.pending[k] = m
		delete(c.forget, k)
	}
	c.mu.Unlock()
	c.signal()
}

// Forget drops a creature's stored memory.
func (c *Checkpointer) Forget(player string, creature int) {
	k := memoryKey{player, creature}
	c.mu.Lock()
	delete(c.pending, k)
	c.forget[k] = true
	c.mu.Unlock()
	c.signal()
}

// Load returns the newest memory of a creature, queued or stored.
func (c *Checkpointer) Load(ctx context.Context, player string, creature int) (store.Memory, bool, error) {
	k := memoryKey{player, creature}
	c.mu.Lock()
	m, queued := c.pending[k]
	forgotten := c.forget[k]
	c.mu.Unlock()
	if queued {
		return m, true, nil
	}
	if forgotten {
		return store.Memory{}, false, nil
	}
	return c.store.LoadMemory(ctx, player, creature)
}

func (c *Checkpointer) signal() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Start writes queued memory until ctx is cancelled, then flushes once more.
func (c *Checkpointer) Start(ctx context.Context) {
	slog.Info("checkpointer started", "interval", c.interval)
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := c.Flush(flushCtx); err != nil {
				slog.Error("final checkpoint failed", "error", err)
			}
			cancel()
			slog.Info("checkpointer stopped")
			return
		case <-c.ready:
			if err := c.Flush(ctx); err != nil {
				slog.Error("checkpoint failed", "error", err)
			}
		}
	}
}

// Flush writes everything queued so far. On failure the batch is queued
// again unless newer data replaced it meanwhile.
func (c *Checkpointer) Flush(ctx context.Context) error {
	c.mu.Lock()
	pending, forget := c.pending, c.forget
	c.pending = make(map[memoryKey]store.Memory)
	c.forget = make(map[memoryKey]bool)
	c.mu.Unlock()

	if len(pending) == 0 && len(forget) == 0 {
		return nil
	}
	for k := range forget {
		if err := c.store.DeleteMemory(ctx, k.player, k.creature); err != nil {
			c.requeue(pending, forget)
			return err
		}
		delete(forget, k)
	}

	mems := make([]store.Memory, 0, len(pending))
	size := 0
	for _, m := range pending {
		mems = append(mems, m)
		size += len(m.Data)
	}
	if len(mems) > 0 {
		if err := c.store.SaveMemories(ctx, mems); err != nil {
			c.requeue(pending, forget)
			return err
		}
	}
	slog.Info("checkpoint written", "memories", len(mems), "size", humanize.Bytes(uint64(size)))
	return nil
}

func (c *Checkpointer) requeue(pending map[memoryKey]store.Memory, forget map[memoryKey]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, m := range pending {
		if _, newer := c.pending[k]; !newer && !c.forget[k] {
			c.pending[k] = m
		}
	}
	for k := range forget {
		if _, newer := c.pending[k]; !newer {
			c.forget[k] = true
		}
	}
}
