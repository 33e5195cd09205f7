package core

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/illarion/passvault/internal/git"
	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/vault"
)

// Derived vault conditions shown by status.
const (
	ConditionEmpty     = "empty"
	ConditionSealed    = "sealed"
	ConditionActive    = "open (session active)"
	ConditionPlaintext = "plaintext (encryption disabled)"
	ConditionLeftover  = "unsealed working copy left by an earlier session"
)

// StatusInfo describes a vault without decrypting it.
type StatusInfo struct {
	Dir              string
	Condition        string
	BlobExists       bool
	BlobSize         int64
	BlobModified     time.Time
	PlaintextExists  bool
	PlaintextRecords int
	MalformedRecords int
	Busy             bool
	Mode             string
	Backend          string
	BackendAvailable bool
	Meta             *storage.Meta
	LastSession      *storage.SessionEntry
	Git              *git.ExposureStatus
}

// NeedsReview reports whether plaintext sits on disk outside a session
// while encryption is enabled.
func (s *StatusInfo) NeedsReview() bool {
	return s.Condition == ConditionLeftover
}

// Status returns the current status (no passphrase required)
func (p *PassVault) Status(ctx context.Context) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status := &StatusInfo{
		Dir:              p.dir,
		Mode:             p.cfg.Mode(),
		Backend:          p.backend.Name(),
		BackendAvailable: p.backend.Available(ctx),
	}

	if info, err := p.root.Stat(vault.BlobFile); err == nil {
		status.BlobExists = true
		status.BlobSize = info.Size()
		status.BlobModified = info.ModTime()
	}

	if data, err := p.root.ReadFile(vault.PlaintextFile); err == nil {
		status.PlaintextExists = true
		records, errs := vault.Decode(data)
		status.PlaintextRecords = len(records)
		status.MalformedRecords = len(errs)
		clear(data)
	}

	if err := p.readState(status); err != nil {
		return nil, err
	}

	switch {
	case status.PlaintextExists && status.Busy:
		status.Condition = ConditionActive
	case status.PlaintextExists && !p.cfg.EncryptionEnabled:
		status.Condition = ConditionPlaintext
	case status.PlaintextExists:
		status.Condition = ConditionLeftover
	case status.BlobExists:
		status.Condition = ConditionSealed
	default:
		status.Condition = ConditionEmpty
	}

	if git.Available() {
		status.Git = git.CheckExposure(p.dir, vault.PlaintextFile, vault.BlobFile)
	}

	return status, nil
}

// readState fills the state database fields. A held lock means a session
// is active.
func (p *PassVault) readState(status *StatusInfo) error {
	if _, err := os.Stat(p.dbPath()); err != nil {
		return nil
	}

	db, err := storage.OpenReadOnly(p.dbPath())
	if errors.Is(err, storage.ErrVaultBusy) {
		status.Busy = true
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	if meta, err := db.Meta(); err == nil {
		status.Meta = meta
	}
	if entries, err := db.Sessions(); err == nil && len(entries) > 0 {
		last := entries[len(entries)-1]
		status.LastSession = &last
	}
	return nil
}
