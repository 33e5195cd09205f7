package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/illarion/passvault/internal/config"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/fsroot"
	"github.com/illarion/passvault/internal/gpg"
	"github.com/illarion/passvault/internal/logging"
	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/vault"
)

var (
	ErrNotInitialized     = errors.New("vault not initialized")
	ErrPassphraseRequired = errors.New("passphrase required")
	ErrNoIdentities       = errors.New("backend cannot list identities")
)

// PassVault ties a vault directory to its configuration, state database
// and encryption backend.
type PassVault struct {
	dir        string
	cfg        *config.Config
	root       *fsroot.Root
	backend    vault.Backend
	passphrase *PassphraseSource
}

// Option customizes New.
type Option func(*PassVault)

// WithBackend replaces the backend selected by configuration.
func WithBackend(b vault.Backend) Option {
	return func(p *PassVault) { p.backend = b }
}

// WithPrompt replaces the terminal passphrase prompt.
func WithPrompt(prompt PromptFunc) Option {
	return func(p *PassVault) { p.passphrase.prompt = prompt }
}

// New opens the vault directory, creating it if needed, and loads its
// configuration.
func New(dir string, opts ...Option) (*PassVault, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	root, err := fsroot.Open(dir)
	if err != nil {
		return nil, err
	}

	p := &PassVault{
		dir:        root.Path(),
		cfg:        cfg,
		root:       root,
		passphrase: NewPassphraseSource(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.backend == nil {
		p.backend = p.newBackend()
	}
	return p, nil
}

// Close releases resources held by the PassVault instance
func (p *PassVault) Close() error {
	p.passphrase.Clear()
	if b, ok := p.backend.(*crypto.Backend); ok {
		b.Destroy()
	}
	return p.root.Close()
}

// Dir returns the absolute vault directory.
func (p *PassVault) Dir() string {
	return p.dir
}

// Config returns the loaded configuration.
func (p *PassVault) Config() *config.Config {
	return p.cfg
}

// Backend returns the encryption backend in use.
func (p *PassVault) Backend() vault.Backend {
	return p.backend
}

// Passphrase returns the passphrase source shared by the backends.
func (p *PassVault) Passphrase() *PassphraseSource {
	return p.passphrase
}

func (p *PassVault) dbPath() string {
	return filepath.Join(p.dir, storage.FileName)
}

func (p *PassVault) newBackend() vault.Backend {
	switch p.cfg.Backend {
	case config.BackendNative:
		return crypto.NewBackend(p.passphrase.Get)
	default:
		return gpg.New(gpg.Options{
			Program:    p.cfg.GPGProgram,
			Symmetric:  p.cfg.EncryptionEnabled && len(p.cfg.Recipients) == 0,
			Passphrase: p.passphrase.Get,
		})
	}
}

// Session is a vault session holding the exclusive state database lock
// until End.
type Session struct {
	*vault.Session
	db *storage.Storage
}

// Begin locks the vault and opens a session. ErrVaultBusy means another
// session is active; ErrVaultLocked means the blob could not be decrypted
// and fallback is disabled.
func (p *PassVault) Begin(ctx context.Context) (*Session, error) {
	db, err := storage.Open(p.dbPath())
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize state database: %w", err)
	}

	if id, err := db.VaultID(); err == nil {
		p.passphrase.SetVaultID(id)
	}

	probe := vault.BackendProbe(ctx, p.backend)
	store := vault.NewStore(p.root, p.backend, probe, p.cfg.ToolTimeout)

	vs, err := vault.BeginSession(ctx, store, p.cfg.Vault())
	if err != nil {
		journal(db, storage.SessionEntry{
			Started:    vs.Started(),
			Ended:      time.Now(),
			State:      "refused",
			Diagnostic: vs.Diagnostic() + ": " + err.Error(),
		})
		db.Close()
		return nil, err
	}

	logging.Debugf("session started in %s (%s, backend %s)", p.dir, p.cfg.Mode(), p.backend.Name())
	return &Session{Session: vs, db: db}, nil
}

// End seals the vault, journals the outcome and releases the lock. Later
// calls return the first outcome without touching the journal again.
func (s *Session) End(ctx context.Context) vault.EndResult {
	if s.db == nil {
		return s.Session.End(ctx)
	}

	var count int
	if records, _, err := s.Records(); err == nil {
		count = len(records)
	}

	res := s.Session.End(ctx)

	entry := storage.SessionEntry{
		Started:    s.Started(),
		Ended:      time.Now(),
		State:      res.State.String(),
		Sealed:     res.Sealed,
		Diagnostic: res.Diagnostic,
		Appended:   res.Appended,
		Warnings:   res.Warnings,
	}
	journal(s.db, entry)

	if res.Sealed && res.Diagnostic != vault.NothingToSeal {
		if err := s.db.RecordSeal(entry.Ended, count); err != nil {
			logging.Warnf("failed to record seal: %v", err)
		}
	}

	if err := s.db.Close(); err != nil {
		logging.Warnf("failed to close state database: %v", err)
	}
	s.db = nil
	return res
}

func journal(db *storage.Storage, entry storage.SessionEntry) {
	if _, err := db.AppendSession(entry); err != nil {
		logging.Warnf("failed to journal session: %v", err)
	}
	if err := db.SetLastState(entry.State); err != nil {
		logging.Warnf("failed to store last state: %v", err)
	}
}

// SaveConfig validates and writes cfg, then reloads the effective settings
// so PASSVAULT_* overrides keep applying to this instance. Pass a config
// from config.LoadFile to avoid persisting those overrides.
func (p *PassVault) SaveConfig(cfg *config.Config) error {
	if err := cfg.Save(p.dir); err != nil {
		return err
	}
	effective, err := config.Load(p.dir)
	if err != nil {
		return err
	}
	p.cfg = effective
	p.backend = p.newBackend()
	return nil
}

// VaultID returns the random vault identifier, reading the state database
// without taking the session lock.
func (p *PassVault) VaultID() (string, error) {
	if _, err := os.Stat(p.dbPath()); err != nil {
		return "", ErrNotInitialized
	}

	db, err := storage.OpenReadOnly(p.dbPath())
	if err != nil {
		return "", err
	}
	defer db.Close()

	id, err := db.VaultID()
	if err != nil {
		return "", ErrNotInitialized
	}
	return id, nil
}

// Init creates the state database so the vault has an ID before its first
// session.
func (p *PassVault) Init() (string, error) {
	db, err := storage.Open(p.dbPath())
	if err != nil {
		return "", err
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return "", err
	}
	return db.VaultID()
}

// Identities lists recipient identities when the backend supports it.
func (p *PassVault) Identities(ctx context.Context) ([]string, error) {
	lister, ok := p.backend.(vault.IdentityLister)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoIdentities, p.backend.Name())
	}
	return lister.ListIdentities(ctx)
}

// History returns the session journal. keep > 0 first prunes all but the
// newest keep entries and compacts the database; that needs the lock.
func (p *PassVault) History(keep int) ([]storage.SessionEntry, int, error) {
	if _, err := os.Stat(p.dbPath()); err != nil {
		return nil, 0, ErrNotInitialized
	}

	if keep <= 0 {
		db, err := storage.OpenReadOnly(p.dbPath())
		if err != nil {
			return nil, 0, err
		}
		defer db.Close()
		entries, err := db.Sessions()
		return entries, 0, err
	}

	db, err := storage.Open(p.dbPath())
	if err != nil {
		return nil, 0, err
	}
	defer db.Close()

	pruned, err := db.PruneSessions(keep)
	if err != nil {
		return nil, 0, err
	}
	if pruned > 0 {
		if err := db.Compact(); err != nil {
			return nil, pruned, fmt.Errorf("failed to compact state database: %w", err)
		}
	}

	entries, err := db.Sessions()
	return entries, pruned, err
}

// NeedsPassphrase reports whether sealing uses a symmetric passphrase.
func (p *PassVault) NeedsPassphrase() bool {
	return p.cfg.EncryptionEnabled && p.cfg.Vault().Symmetric()
}

// HasBlob reports whether an encrypted blob exists.
func (p *PassVault) HasBlob() bool {
	exists, err := p.root.Exists(vault.BlobFile)
	return err == nil && exists
}

// VerifyPassphrase resolves the passphrase and, when a blob exists, proves
// it by decrypting the blob in memory. A rejected passphrase is forgotten.
func (p *PassVault) VerifyPassphrase(ctx context.Context) error {
	id, err := p.Init()
	if err != nil {
		return err
	}
	p.passphrase.SetVaultID(id)

	pass, err := p.passphrase.Get(ctx, !p.HasBlob())
	if err != nil {
		return err
	}
	crypto.ClearBytes(pass)

	plain, err := p.decryptBlob(ctx)
	if err != nil {
		p.passphrase.Clear()
		return err
	}
	crypto.ClearBytes(plain)
	return nil
}
