package vault

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/illarion/passvault/internal/fsroot"
)

// NothingToSeal is the diagnostic of a Seal that had no work to do.
const NothingToSeal = "nothing to seal"

var (
	errAlreadyOpen = errors.New("vault store already open")
	errTerminal    = errors.New("vault degraded earlier in this run; restart to retry encryption")
)

// Store owns the encrypted blob and the plaintext working copy inside a
// vault directory. It is not safe for concurrent use: one session at a time.
type Store struct {
	root    *fsroot.Root
	backend Backend
	probe   Probe
	timeout time.Duration

	state    State
	cause    error
	dirty    bool
	openHash [sha256.Size]byte
	hashed   bool
	terminal bool
}

// NewStore creates a store over root. timeout bounds every backend call;
// zero means no bound.
func NewStore(root *fsroot.Root, backend Backend, probe Probe, timeout time.Duration) *Store {
	return &Store{
		root:    root,
		backend: backend,
		probe:   probe,
		timeout: timeout,
		state:   StateSealed,
	}
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	return s.state
}

// Cause returns why the store is Degraded, or nil.
func (s *Store) Cause() error {
	return s.cause
}

// Dirty reports whether records were appended since Open.
func (s *Store) Dirty() bool {
	return s.dirty
}

// PlaintextPath returns the absolute path of the working copy.
func (s *Store) PlaintextPath() string {
	return s.root.Join(PlaintextFile)
}

// BlobPath returns the absolute path of the encrypted blob.
func (s *Store) BlobPath() string {
	return s.root.Join(BlobFile)
}

// RecordAppended marks the working copy as changed so Seal encrypts it.
func (s *Store) RecordAppended() {
	s.dirty = true
}

// Open produces the plaintext view of the vault according to cfg.
//
// The returned error is non-nil only when the session must not proceed:
// ErrVaultLocked when the blob cannot be decrypted and fallback is off, or
// an I/O failure on the vault directory. A Degraded state is not an error;
// its reason is available from Cause.
func (s *Store) Open(ctx context.Context, cfg Config) (State, string, error) {
	if s.terminal {
		return s.state, errTerminal.Error(), errTerminal
	}
	if s.state != StateSealed {
		return s.state, errAlreadyOpen.Error(), errAlreadyOpen
	}

	s.dirty = false
	s.cause = nil

	leftover, err := s.root.Exists(PlaintextFile)
	if err != nil {
		return s.state, "cannot inspect working copy", fmt.Errorf("failed to stat %s: %w", PlaintextFile, err)
	}

	var diag string
	switch {
	case !cfg.EncryptionEnabled:
		if err := s.root.Touch(PlaintextFile); err != nil {
			return s.state, "cannot create working copy", err
		}
		s.state = StateOpen
		diag = "plaintext mode by configuration"

	case !s.probe.Available():
		if err := s.root.Touch(PlaintextFile); err != nil {
			return s.state, "cannot create working copy", err
		}
		s.degrade(ErrBackendUnavailable)
		diag = "backend unavailable"

	default:
		diag, err = s.openEncrypted(ctx, cfg, leftover)
		if err != nil {
			return s.state, diag, err
		}
	}

	if err := s.recordHash(); err != nil {
		return s.state, diag, err
	}
	return s.state, diag, nil
}

// openEncrypted handles the cases where encryption is enabled and the
// backend answers the probe.
func (s *Store) openEncrypted(ctx context.Context, cfg Config, leftover bool) (string, error) {
	blobExists, err := s.root.Exists(BlobFile)
	if err != nil {
		return "cannot inspect encrypted blob", fmt.Errorf("failed to stat %s: %w", BlobFile, err)
	}

	if !blobExists {
		if leftover {
			// Only copy of the data: it must be sealed at the end of this session
			s.state = StateOpen
			s.dirty = true
			return "recovered plaintext working copy from an earlier session", nil
		}
		if err := s.root.Touch(PlaintextFile); err != nil {
			return "cannot create working copy", err
		}
		s.state = StateOpen
		return "new vault", nil
	}

	blob, err := s.root.ReadFile(BlobFile)
	if err != nil {
		return s.decryptFailed(cfg, leftover, fmt.Errorf("cannot read %s: %w", BlobFile, err))
	}

	plain, err := s.decrypt(ctx, blob)
	if err != nil {
		return s.decryptFailed(cfg, leftover, err)
	}
	defer clear(plain)

	if !leftover {
		if err := s.root.WriteFileAtomic(PlaintextFile, plain); err != nil {
			return "cannot write working copy", err
		}
		s.state = StateOpen
		return "decrypted " + BlobFile, nil
	}

	return s.reconcile(plain)
}

// reconcile merges a working copy left behind by an earlier run with the
// freshly decrypted blob. The leftover is authoritative: it is extended,
// never truncated.
func (s *Store) reconcile(plain []byte) (string, error) {
	current, err := s.root.ReadFile(PlaintextFile)
	if err != nil {
		return "cannot read leftover working copy", err
	}
	defer clear(current)

	s.state = StateOpen
	if bytes.HasPrefix(current, plain) {
		s.dirty = !bytes.Equal(current, plain)
		if s.dirty {
			return "recovered unsealed records from an earlier session", nil
		}
		return "working copy matches " + BlobFile, nil
	}

	pad := terminator(plain)
	merged := make([]byte, 0, len(plain)+len(pad)+len(current))
	merged = append(merged, plain...)
	merged = append(merged, pad...)
	merged = append(merged, current...)
	defer clear(merged)

	if err := s.root.WriteFileAtomic(PlaintextFile, merged); err != nil {
		s.state = StateSealed
		return "cannot write reconciled working copy", err
	}
	s.dirty = true
	return "merged records from an earlier degraded session after sealed records", nil
}

// decryptFailed applies the fallback policy. The blob is never touched.
func (s *Store) decryptFailed(cfg Config, leftover bool, cause error) (string, error) {
	if !cfg.AllowPlaintextFallback {
		s.state = StateSealed
		return "decrypt failed; plaintext fallback disabled",
			fmt.Errorf("%w: %v", ErrVaultLocked, cause)
	}

	if !leftover {
		if err := s.root.Touch(PlaintextFile); err != nil {
			return "cannot create working copy", err
		}
	}
	s.degrade(cause)
	return "decrypt failed; continuing with plaintext working copy", nil
}

func (s *Store) degrade(cause error) {
	s.state = StateDegraded
	s.cause = cause
	s.terminal = true
}

// Seal encrypts the working copy into the blob and removes the working copy.
//
// ok is false when plaintext remains on disk by policy (plaintext mode,
// Degraded) or because encryption failed; in the latter case err is a
// *SealError. The working copy is only removed after the new blob has been
// written and confirmed.
func (s *Store) Seal(ctx context.Context, cfg Config) (bool, string, error) {
	if s.state == StateSealed {
		return true, NothingToSeal, nil
	}

	if !s.dirty && !s.plaintextChanged() {
		s.discardClean(cfg)
		return true, NothingToSeal, nil
	}

	if !cfg.EncryptionEnabled {
		return false, "plaintext mode by configuration: records stored unencrypted in " + s.PlaintextPath(), nil
	}
	if s.state == StateDegraded {
		return false, "vault degraded: plaintext working copy kept at " + s.PlaintextPath(), nil
	}

	plain, err := s.root.ReadFile(PlaintextFile)
	if err != nil {
		return s.sealFailed("cannot read working copy", err)
	}
	defer clear(plain)

	blob, err := s.encrypt(ctx, plain, cfg.Recipients)
	if err != nil {
		return s.sealFailed("encryption failed", err)
	}
	if len(blob) == 0 {
		return s.sealFailed("encryption produced no output", nil)
	}

	if err := s.root.WriteFileAtomic(BlobFile, blob); err != nil {
		return s.sealFailed("cannot write "+BlobFile, err)
	}

	info, err := s.root.Stat(BlobFile)
	if err != nil {
		return s.sealFailed("cannot confirm "+BlobFile, err)
	}
	if info.Size() != int64(len(blob)) {
		return s.sealFailed(fmt.Sprintf("%s has %d bytes, expected %d", BlobFile, info.Size(), len(blob)), nil)
	}

	// Blob confirmed: the working copy is now a stale duplicate
	s.dirty = false
	if err := s.root.Remove(PlaintextFile); err != nil {
		return false, "sealed, but plaintext working copy could not be removed: " + s.PlaintextPath(),
			&SealError{Diagnostic: "cannot remove working copy after sealing", Err: err}
	}

	s.state = StateSealed
	s.hashed = false
	return true, "sealed into " + BlobFile, nil
}

func (s *Store) sealFailed(diag string, cause error) (bool, string, error) {
	s.degrade(&SealError{Diagnostic: diag, Err: cause})
	msg := diag + "; plaintext working copy left for manual review at " + s.PlaintextPath()
	return false, msg, &SealError{Diagnostic: msg, Err: cause}
}

// discardClean removes a working copy that holds nothing the blob does not
// already hold, returning the vault to Sealed.
func (s *Store) discardClean(cfg Config) {
	if s.state != StateOpen || !cfg.EncryptionEnabled {
		return
	}

	blobExists, err := s.root.Exists(BlobFile)
	if err != nil {
		return
	}
	if !blobExists {
		info, err := s.root.Stat(PlaintextFile)
		if err != nil || info.Size() != 0 {
			return
		}
	}

	if err := s.root.Remove(PlaintextFile); err != nil {
		return
	}
	s.state = StateSealed
	s.hashed = false
}

func (s *Store) recordHash() error {
	data, err := s.root.ReadFile(PlaintextFile)
	if err != nil {
		return fmt.Errorf("failed to read working copy: %w", err)
	}
	s.openHash = sha256.Sum256(data)
	s.hashed = true
	clear(data)
	return nil
}

// plaintextChanged detects edits made to the working copy outside the
// session since Open.
func (s *Store) plaintextChanged() bool {
	if !s.hashed {
		return false
	}
	data, err := s.root.ReadFile(PlaintextFile)
	if err != nil {
		return false
	}
	defer clear(data)
	return sha256.Sum256(data) != s.openHash
}

func (s *Store) encrypt(ctx context.Context, plain []byte, recipients []string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.backend.Encrypt(ctx, plain, recipients)
}

func (s *Store) decrypt(ctx context.Context, blob []byte) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.backend.Decrypt(ctx, blob)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// AppendRecord writes r at the end of the working copy in one write and
// marks the store dirty before returning. A last record missing its blank
// line is terminated first.
func (s *Store) AppendRecord(r Record) error {
	if s.state != StateOpen && s.state != StateDegraded {
		return ErrNotOpen
	}

	encoded, err := Encode(r)
	if err != nil {
		return err
	}
	defer clear(encoded)

	// Close an unterminated last record in the same write
	tail, err := s.root.Tail(PlaintextFile, int64(len("\r\n\r\n")))
	if err != nil {
		return fmt.Errorf("failed to read end of working copy: %w", err)
	}
	data := append(terminator(tail), encoded...)
	defer clear(data)

	if err := s.root.Append(PlaintextFile, data); err != nil {
		return err
	}
	s.RecordAppended()
	return nil
}

// Records returns a snapshot of the working copy. Malformed chunks are
// returned as *CodecError values alongside the readable records.
func (s *Store) Records() ([]Record, []error, error) {
	if s.state != StateOpen && s.state != StateDegraded {
		return nil, nil, ErrNotOpen
	}

	data, err := s.root.ReadFile(PlaintextFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read working copy: %w", err)
	}
	defer clear(data)

	records, errs := Decode(data)
	return records, errs, nil
}
