// Package store keeps behavior memory and session records in SQLite so a
// restarted sidecar can pick creatures up where they left off.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Session is one hello-to-disconnect run of a player.
type Session struct {
	ID      string `db:"id"`
	Player  string `db:"player"`
	Tribe   string `db:"tribe"`
	Started int64  `db:"started_at"` // unix seconds
}

// Memory is the serialized behavior memory of one creature. It is only
// valid for a stack built from the same preset.
type Memory struct {
	Player   string `db:"player"`
	Creature int    `db:"creature"`
	Preset   string `db:"preset"`
	Tick     int    `db:"tick"`
	Session  string `db:"session"`
	Data     []byte `db:"data"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		player TEXT NOT NULL,
		tribe TEXT NOT NULL,
		started_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS memories (
		player TEXT NOT NULL,
		creature INTEGER NOT NULL,
		preset TEXT NOT NULL,
		tick INTEGER NOT NULL,
		session TEXT NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (player, creature)
	);

	CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartSession records a new session under a fresh id.
func (db *DB) StartSession(ctx context.Context, player, tribe string) (Session, error) {
	s := Session{
		ID:      uuid.NewString(),
		Player:  player,
		Tribe:   tribe,
		Started: time.Now().Unix(),
	}
	_, err := db.conn.NamedExecContext(ctx,
		"INSERT INTO sessions (id, player, tribe, started_at) VALUES (:id, :player, :tribe, :started_at)", s)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// Sessions returns a player's sessions, newest first.
func (db *DB) Sessions(ctx context.Context, player string) ([]Session, error) {
	var out []Session
	err := db.conn.SelectContext(ctx, &out,
		"SELECT id, player, tribe, started_at FROM sessions WHERE player = ? ORDER BY started_at DESC, rowid DESC", player)
	return out, err
}

// SaveMemories upserts a batch of memories in one transaction.
func (db *DB) SaveMemories(ctx context.Context, mems []Memory) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO memories
		(player, creature, preset, tick, session, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (player, creature) DO UPDATE SET
			preset = excluded.preset,
			tick = excluded.tick,
			session = excluded.session,
			data = excluded.data`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range mems {
		if _, err := stmt.ExecContext(ctx, m.Player, m.Creature, m.Preset, m.Tick, m.Session, m.Data); err != nil {
			return fmt.Errorf("upsert memory %s/%d: %w", m.Player, m.Creature, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("memories saved", "count", len(mems))
	return nil
}

// LoadMemory returns the stored memory of a creature, if any.
func (db *DB) LoadMemory(ctx context.Context, player string, creature int) (Memory, bool, error) {
	var m Memory
	err := db.conn.GetContext(ctx, &m,
		"SELECT player, creature, preset, tick, session, data FROM memories WHERE player = ? AND creature = ?",
		player, creature)
	if errors.Is(err, sql.ErrNoRows) {
		return Memory{}, false, nil
	}
	if err != nil {
		return Memory{}, false, fmt.Errorf("load memory %s/%d: %w", player, creature, err)
	}
	return m, true, nil
}

// DeleteMemory forgets a creature, e.g. after it died.
func (db *DB) DeleteMemory(ctx context.Context, player string, creature int) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM memories WHERE player = ? AND creature = ?", player, creature)
	return err
}

// Memories returns every stored memory of a player ordered by creature id.
func (db *DB) Memories(ctx context.Context, player string) ([]Memory, error) {
	var out []Memory
	err := db.conn.SelectContext(ctx, &out,
		"SELECT player, creature, preset, tick, session, data FROM memories WHERE player = ? ORDER BY creature", player)
	return out, err
}
