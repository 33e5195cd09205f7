package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) (*Storage, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), FileName)

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db, dbPath
}

func TestOpenAndInitialize(t *testing.T) {
	db, _ := openTest(t)
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}

	id, err := db.VaultID()
	if err != nil {
		t.Fatalf("Failed to get vault ID: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("Vault ID %q should be 32 hex characters", id)
	}

	// Initialize is idempotent and keeps the vault ID
	if err := db.Initialize(); err != nil {
		t.Fatalf("Second Initialize failed: %v", err)
	}
	again, _ := db.VaultID()
	if again != id {
		t.Errorf("Vault ID changed from %s to %s", id, again)
	}
}

func TestMetaBeforeInitialize(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Meta(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestRecordSealAndState(t *testing.T) {
	db, _ := openTest(t)
	defer db.Close()

	sealedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := db.RecordSeal(sealedAt, 7); err != nil {
		t.Fatalf("RecordSeal failed: %v", err)
	}
	if err := db.SetLastState("degraded"); err != nil {
		t.Fatalf("SetLastState failed: %v", err)
	}

	m, err := db.Meta()
	if err != nil {
		t.Fatalf("Meta failed: %v", err)
	}
	if !m.LastSealed.Equal(sealedAt) {
		t.Errorf("LastSealed = %v, want %v", m.LastSealed, sealedAt)
	}
	if m.SealedRecords != 7 {
		t.Errorf("SealedRecords = %d, want 7", m.SealedRecords)
	}
	if m.LastState != "degraded" {
		t.Errorf("LastState = %q, want degraded", m.LastState)
	}
	if m.Created.IsZero() {
		t.Error("Created should be set")
	}
}

func TestExclusiveLock(t *testing.T) {
	db, dbPath := openTest(t)
	defer db.Close()

	start := time.Now()
	second, err := Open(dbPath)
	if err == nil {
		second.Close()
		t.Fatal("Second exclusive open should fail while the first is held")
	}
	if !errors.Is(err, ErrVaultBusy) {
		t.Errorf("Expected ErrVaultBusy, got %v", err)
	}
	if time.Since(start) < LockTimeout/2 {
		t.Error("Open should wait for the lock timeout before giving up")
	}
}

func TestReadOnlyAfterClose(t *testing.T) {
	db, dbPath := openTest(t)
	if err := db.RecordSeal(time.Now(), 2); err != nil {
		t.Fatalf("RecordSeal failed: %v", err)
	}
	db.Close()

	ro, err := OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	defer ro.Close()

	m, err := ro.Meta()
	if err != nil {
		t.Fatalf("Meta failed: %v", err)
	}
	if m.SealedRecords != 2 {
		t.Errorf("SealedRecords = %d, want 2", m.SealedRecords)
	}
	if err := ro.Compact(); err == nil {
		t.Error("Compact on read-only database should fail")
	}
}

func TestPersistence(t *testing.T) {
	db, dbPath := openTest(t)
	id, _ := db.VaultID()
	if _, err := db.AppendSession(SessionEntry{State: "sealed", Sealed: true}); err != nil {
		t.Fatalf("AppendSession failed: %v", err)
	}
	db.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	if got, _ := db2.VaultID(); got != id {
		t.Errorf("Vault ID not persisted: got %s, want %s", got, id)
	}
	entries, err := db2.Sessions()
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 session entry, got %d", len(entries))
	}
}
