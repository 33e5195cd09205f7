package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable means the encryption tool cannot be invoked.
	// It degrades the session and is never fatal.
	ErrBackendUnavailable = errors.New("encryption backend unavailable")

	// ErrVaultLocked means an existing blob could not be decrypted and
	// plaintext fallback is disabled. The session refuses to start.
	ErrVaultLocked = errors.New("vault locked: encrypted blob could not be decrypted")

	ErrSessionClosed  = errors.New("session already ended")
	ErrSessionRefused = errors.New("session refused: vault is locked")
	ErrNotOpen        = errors.New("vault is not open")
)

// CodecError reports a record that cannot be encoded or a chunk of the
// working copy that cannot be decoded. It never carries the secret itself.
type CodecError struct {
	Index  int // chunk index in the working copy, -1 when encoding
	Reason string
}

func (e *CodecError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid record: %s", e.Reason)
	}
	return fmt.Sprintf("malformed record #%d: %s", e.Index+1, e.Reason)
}

// SealError reports a failed encryption. The plaintext working copy is
// kept on disk and needs manual review.
type SealError struct {
	Diagnostic string
	Err        error
}

func (e *SealError) Error() string {
	if e.Err == nil {
		return e.Diagnostic
	}
	return fmt.Sprintf("%s: %v", e.Diagnostic, e.Err)
}

func (e *SealError) Unwrap() error {
	return e.Err
}
