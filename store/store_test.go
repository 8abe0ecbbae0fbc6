package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "warren.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	s, err := db.StartSession(ctx, "keeper", "imps")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		t.Errorf("session id %q: %v", s.ID, err)
	}
	if _, err := db.StartSession(ctx, "keeper", "imps"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.StartSession(ctx, "rival", "orcs"); err != nil {
		t.Fatal(err)
	}

	got, err := db.Sessions(ctx, "keeper")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("sessions = %d, want 2", len(got))
	}
	if got[1].ID != s.ID {
		t.Errorf("oldest session = %s, want %s", got[1].ID, s.ID)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	err := db.SaveMemories(ctx, []Memory{
		{Player: "keeper", Creature: 3, Preset: "monster", Tick: 10, Session: "a", Data: []byte(`{"2:fighter":{}}`)},
		{Player: "keeper", Creature: 5, Preset: "guard", Tick: 10, Session: "a", Data: []byte(`{}`)},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Later snapshot of the same creature replaces the earlier one.
	err = db.SaveMemories(ctx, []Memory{
		{Player: "keeper", Creature: 3, Preset: "collective", Tick: 20, Session: "b", Data: []byte(`{"3:delegate":{}}`)},
	})
	if err != nil {
		t.Fatal(err)
	}

	m, ok, err := db.LoadMemory(ctx, "keeper", 3)
	if err != nil || !ok {
		t.Fatalf("LoadMemory = %v, %v", ok, err)
	}
	if m.Preset != "collective" || m.Tick != 20 || m.Session != "b" || string(m.Data) != `{"3:delegate":{}}` {
		t.Errorf("memory = %+v", m)
	}

	if _, ok, err := db.LoadMemory(ctx, "rival", 3); err != nil || ok {
		t.Errorf("other player's memory: ok=%v err=%v", ok, err)
	}

	if err := db.DeleteMemory(ctx, "keeper", 3); err != nil {
		t.Fatal(err)
	}
	all, err := db.Memories(ctx, "keeper")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Creature != 5 {
		t.Errorf("memories after delete = %+v", all)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warren.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMemories(ctx, []Memory{{Player: "p", Creature: 1, Preset: "idle", Data: []byte("{}")}}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, ok, err := db.LoadMemory(ctx, "p", 1); err != nil || !ok {
		t.Errorf("memory lost across reopen: ok=%v err=%v", ok, err)
	}
}
