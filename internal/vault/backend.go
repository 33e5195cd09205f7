package vault

import (
	"context"
	"sync"
)

// Backend encrypts and decrypts the whole working copy.
//
// Implementations must not write any file themselves: the Store decides
// where the output lands and in which order artifacts are replaced.
type Backend interface {
	Name() string
	Available(ctx context.Context) bool
	Encrypt(ctx context.Context, plaintext []byte, recipients []string) ([]byte, error)
	Decrypt(ctx context.Context, blob []byte) ([]byte, error)
}

// IdentityLister is implemented by backends that can enumerate the
// encryption identities usable as recipients.
type IdentityLister interface {
	ListIdentities(ctx context.Context) ([]string, error)
}

// Probe reports whether the encryption backend can be invoked.
type Probe interface {
	Available() bool
}

// CachedProbe evaluates a check once and remembers the answer for the
// lifetime of the process.
type CachedProbe struct {
	once   sync.Once
	check  func() bool
	result bool
}

// NewCachedProbe wraps check. check is called at most once.
func NewCachedProbe(check func() bool) *CachedProbe {
	return &CachedProbe{check: check}
}

// BackendProbe returns a cached probe over b.Available.
func BackendProbe(ctx context.Context, b Backend) *CachedProbe {
	return NewCachedProbe(func() bool {
		return b.Available(ctx)
	})
}

func (p *CachedProbe) Available() bool {
	p.once.Do(func() {
		p.result = p.check()
	})
	return p.result
}

// PassphraseFunc obtains the passphrase for symmetric encryption. confirm
// asks the source to double-check a passphrase that is about to protect a
// new blob.
type PassphraseFunc func(ctx context.Context, confirm bool) ([]byte, error)
