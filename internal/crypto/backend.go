package crypto

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/illarion/passvault/internal/vault"
)

// BackendName identifies the built-in backend in configuration.
const BackendName = "native"

var (
	ErrRecipientsUnsupported = errors.New("native backend only supports passphrase encryption")
	ErrWrongPassphrase       = errors.New("wrong passphrase or corrupted blob")
)

// Backend implements vault.Backend with SealBlob and OpenBlob. The
// passphrase is requested once per process and reused for sealing.
type Backend struct {
	passphrase vault.PassphraseFunc

	mu     sync.Mutex
	cached []byte
}

// NewBackend returns a native backend that asks source for the passphrase.
func NewBackend(source vault.PassphraseFunc) *Backend {
	return &Backend{passphrase: source}
}

func (b *Backend) Name() string { return BackendName }

// Available is always true: the backend has no external dependency.
func (b *Backend) Available(ctx context.Context) bool { return true }

func (b *Backend) Encrypt(ctx context.Context, plaintext []byte, recipients []string) ([]byte, error) {
	if len(recipients) > 0 {
		return nil, ErrRecipientsUnsupported
	}

	pass, err := b.get(ctx, true)
	if err != nil {
		return nil, err
	}
	return SealBlob(plaintext, pass)
}

func (b *Backend) Decrypt(ctx context.Context, blob []byte) ([]byte, error) {
	pass, err := b.get(ctx, false)
	if err != nil {
		return nil, err
	}

	plain, err := OpenBlob(blob, pass)
	if errors.Is(err, ErrAuthFailed) {
		b.forget()
		return nil, ErrWrongPassphrase
	}
	return plain, err
}

// Destroy clears the cached passphrase.
func (b *Backend) Destroy() {
	b.forget()
}

func (b *Backend) get(ctx context.Context, confirm bool) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cached != nil {
		return b.cached, nil
	}
	if b.passphrase == nil {
		return nil, errors.New("no passphrase source configured")
	}

	pass, err := b.passphrase(ctx, confirm)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain passphrase: %w", err)
	}
	if len(pass) == 0 {
		return nil, errors.New("empty passphrase")
	}
	b.cached = pass
	return pass, nil
}

func (b *Backend) forget() {
	b.mu.Lock()
	defer b.mu.Unlock()
	ClearBytes(b.cached)
	b.cached = nil
}
