package core

import (
	"bytes"
	"context"
	"sync"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/illarion/passvault/internal/logging"
)

// PromptFunc asks the operator for a passphrase. confirm requests a second
// entry for a passphrase that will protect a new blob.
type PromptFunc func(confirm bool) ([]byte, error)

// Passphrase origins.
const (
	OriginNone    = ""
	OriginEnv     = "environment"
	OriginKeyring = "keyring"
	OriginPrompt  = "prompt"
)

// PassphraseSource resolves the symmetric passphrase once per process:
// PASSVAULT_PASSPHRASE, then the OS keyring entry for the vault, then an
// interactive prompt.
type PassphraseSource struct {
	mu       sync.Mutex
	vaultID  string
	prompt   PromptFunc
	value    []byte
	origin   string
	keyring  bool
	terminal func() bool
}

// NewPassphraseSource returns a source prompting on the terminal.
func NewPassphraseSource() *PassphraseSource {
	return &PassphraseSource{
		prompt:   terminalPrompt,
		keyring:  true,
		terminal: IsInteractive,
	}
}

func terminalPrompt(confirm bool) ([]byte, error) {
	if confirm {
		return ReadNewPassphrase()
	}
	return ReadPassphrase("Vault passphrase: ")
}

// SetVaultID selects the keyring entry.
func (s *PassphraseSource) SetVaultID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vaultID = id
}

// Get implements vault.PassphraseFunc. Callers own the returned copy.
func (s *PassphraseSource) Get(ctx context.Context, confirm bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value != nil {
		return bytes.Clone(s.value), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if pass := PassphraseFromEnv(); pass != nil {
		s.set(pass, OriginEnv)
		return bytes.Clone(s.value), nil
	}

	if s.keyring && s.vaultID != "" {
		if stored, err := keyring.GetPassphrase(s.vaultID); err == nil && stored != "" {
			logging.Debugf("using passphrase from keyring")
			s.set([]byte(stored), OriginKeyring)
			return bytes.Clone(s.value), nil
		}
	}

	if s.prompt == nil || (s.terminal != nil && !s.terminal()) {
		return nil, ErrPassphraseRequired
	}

	pass, err := s.prompt(confirm)
	if err != nil {
		return nil, err
	}
	if len(pass) == 0 {
		return nil, ErrPassphraseRequired
	}
	s.set(pass, OriginPrompt)
	return bytes.Clone(s.value), nil
}

func (s *PassphraseSource) set(pass []byte, origin string) {
	s.value = pass
	s.origin = origin
}

// Origin reports where the passphrase came from, or OriginNone.
func (s *PassphraseSource) Origin() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.origin
}

// SaveToKeyring stores the resolved passphrase for the vault.
func (s *PassphraseSource) SaveToKeyring() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == nil || s.vaultID == "" {
		return ErrPassphraseRequired
	}
	return keyring.SavePassphrase(s.vaultID, string(s.value))
}

// Clear forgets the passphrase.
func (s *PassphraseSource) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	crypto.ClearBytes(s.value)
	s.value = nil
	s.origin = OriginNone
}
