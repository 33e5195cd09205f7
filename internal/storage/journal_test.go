package storage

import (
	"testing"
	"time"
)

func TestAppendSessionsInOrder(t *testing.T) {
	db, _ := openTest(t)
	defer db.Close()

	states := []string{"sealed", "degraded", "sealed"}
	for i, state := range states {
		id, err := db.AppendSession(SessionEntry{
			Started:  time.Now(),
			Ended:    time.Now(),
			State:    state,
			Sealed:   state == "sealed",
			Appended: i,
			Warnings: []string{"w"},
		})
		if err != nil {
			t.Fatalf("AppendSession failed: %v", err)
		}
		if id != uint64(i+1) {
			t.Errorf("Entry %d got id %d", i, id)
		}
	}

	entries, err := db.Sessions()
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(entries) != len(states) {
		t.Fatalf("Got %d entries, want %d", len(entries), len(states))
	}
	for i, e := range entries {
		if e.State != states[i] || e.Appended != i {
			t.Errorf("Entry %d = %+v", i, e)
		}
	}
	if entries[1].Label() != "#2" {
		t.Errorf("Label = %q, want #2", entries[1].Label())
	}
}

func TestPruneAndCompact(t *testing.T) {
	db, _ := openTest(t)
	defer db.Close()

	for range 10 {
		if _, err := db.AppendSession(SessionEntry{State: "sealed", Sealed: true}); err != nil {
			t.Fatalf("AppendSession failed: %v", err)
		}
	}

	deleted, err := db.PruneSessions(3)
	if err != nil {
		t.Fatalf("PruneSessions failed: %v", err)
	}
	if deleted != 7 {
		t.Errorf("Deleted %d entries, want 7", deleted)
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	entries, err := db.Sessions()
	if err != nil {
		t.Fatalf("Sessions after compact failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Got %d entries after prune, want 3", len(entries))
	}
	if entries[0].ID != 8 {
		t.Errorf("Oldest kept entry = %d, want 8", entries[0].ID)
	}

	// Sequence survives compaction so ids never repeat
	id, err := db.AppendSession(SessionEntry{State: "sealed"})
	if err != nil {
		t.Fatalf("AppendSession after compact failed: %v", err)
	}
	if id != 11 {
		t.Errorf("Next id = %d, want 11", id)
	}
}

func TestPruneKeepsAllWhenUnderLimit(t *testing.T) {
	db, _ := openTest(t)
	defer db.Close()

	if _, err := db.AppendSession(SessionEntry{State: "sealed"}); err != nil {
		t.Fatalf("AppendSession failed: %v", err)
	}
	deleted, err := db.PruneSessions(5)
	if err != nil {
		t.Fatalf("PruneSessions failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Deleted %d entries, want 0", deleted)
	}
}
