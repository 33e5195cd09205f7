package testutil

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
)

// fakeMagic prefixes every blob produced by FakeBackend so tests can tell
// an encrypted artifact from plaintext at a glance.
var fakeMagic = []byte("FAKEBLOB:")

var (
	ErrFakeEncrypt  = errors.New("fake: encryption failed")
	ErrFakeDecrypt  = errors.New("fake: decryption failed")
	ErrFakeNotABlob = errors.New("fake: input is not a fake blob")
)

// FakeBackend is an in-memory encryption backend. Its "ciphertext" is the
// plaintext reversed behind a fixed prefix, which is enough to prove that a
// file went through Encrypt without needing gpg on the test machine.
type FakeBackend struct {
	mu sync.Mutex

	// Unavailable makes Available report false.
	Unavailable bool
	// FailEncrypt makes Encrypt return ErrFakeEncrypt.
	FailEncrypt bool
	// FailDecrypt makes Decrypt return ErrFakeDecrypt.
	FailDecrypt bool
	// Identities is returned by ListIdentities.
	Identities []string

	probes         int
	encrypts       int
	decrypts       int
	lastRecipients []string
}

// NewFakeBackend returns a working fake backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{}
}

func (f *FakeBackend) Name() string { return "fake" }

func (f *FakeBackend) Available(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return !f.Unavailable
}

func (f *FakeBackend) Encrypt(ctx context.Context, plaintext []byte, recipients []string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encrypts++
	f.lastRecipients = slices.Clone(recipients)
	if f.FailEncrypt {
		return nil, ErrFakeEncrypt
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Seal(plaintext), nil
}

func (f *FakeBackend) Decrypt(ctx context.Context, blob []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrypts++
	if f.FailDecrypt {
		return nil, ErrFakeDecrypt
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Unseal(blob)
}

func (f *FakeBackend) ListIdentities(ctx context.Context) ([]string, error) {
	return slices.Clone(f.Identities), nil
}

// Probes returns how many times Available was called.
func (f *FakeBackend) Probes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

// Encrypts returns how many times Encrypt was called.
func (f *FakeBackend) Encrypts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.encrypts
}

// Decrypts returns how many times Decrypt was called.
func (f *FakeBackend) Decrypts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decrypts
}

// LastRecipients returns the recipients of the most recent Encrypt call.
func (f *FakeBackend) LastRecipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.lastRecipients)
}

// Seal produces the fake ciphertext for plaintext.
func Seal(plaintext []byte) []byte {
	out := make([]byte, 0, len(fakeMagic)+len(plaintext))
	out = append(out, fakeMagic...)
	body := slices.Clone(plaintext)
	slices.Reverse(body)
	return append(out, body...)
}

// Unseal reverses Seal.
func Unseal(blob []byte) ([]byte, error) {
	if !bytes.HasPrefix(blob, fakeMagic) {
		return nil, ErrFakeNotABlob
	}
	body := slices.Clone(blob[len(fakeMagic):])
	slices.Reverse(body)
	return body, nil
}

// StaticProbe is a probe with a fixed answer.
type StaticProbe bool

func (p StaticProbe) Available() bool { return bool(p) }
