package vault

import "fmt"

const (
	PlaintextFile = "accounts"
	BlobFile      = "accounts.gpg"
)

// State is the lifecycle state of a vault.
type State int

const (
	StateSealed State = iota
	StateOpen
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateSealed:
		return "sealed"
	case StateOpen:
		return "open"
	case StateDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Record is a single vault entry. Label may be empty, Secret may not.
type Record struct {
	Label  string `json:"label"`
	Secret string `json:"secret"`
}

// Config controls how a vault is opened and sealed.
//
// Empty Recipients with EncryptionEnabled selects passphrase-based
// (symmetric) encryption. AllowPlaintextFallback decides whether a failed
// decrypt degrades the session or refuses it.
type Config struct {
	EncryptionEnabled      bool
	Recipients             []string
	AllowPlaintextFallback bool
}

// Symmetric reports whether sealing uses passphrase-based encryption.
func (c Config) Symmetric() bool {
	return len(c.Recipients) == 0
}
