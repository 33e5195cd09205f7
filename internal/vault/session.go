package vault

import (
	"context"
	"errors"
	"time"

	"github.com/illarion/passvault/internal/logging"
)

// EndResult reports how a session finished.
type EndResult struct {
	Sealed     bool
	Diagnostic string
	State      State
	Warnings   []string
	Appended   int
	Err        error
}

// Session brackets one interactive run: Begin opens the vault, End seals it.
// End runs its sealing logic once; later calls report the first outcome.
type Session struct {
	store   *Store
	cfg     Config
	started time.Time

	opened     bool
	refused    error
	diagnostic string
	appended   int

	ended  bool
	result EndResult
}

// NewSession returns a session over store. Call Begin before anything else.
func NewSession(store *Store) *Session {
	return &Session{store: store}
}

// BeginSession creates a session and begins it.
func BeginSession(ctx context.Context, store *Store, cfg Config) (*Session, error) {
	s := NewSession(store)
	if err := s.Begin(ctx, cfg); err != nil {
		return s, err
	}
	return s, nil
}

// Begin opens the vault. A Degraded or plaintext-mode open is reported as a
// warning, not an error. ErrVaultLocked refuses the session: nothing is
// created on disk and every later Append fails.
func (s *Session) Begin(ctx context.Context, cfg Config) error {
	if s.opened || s.refused != nil {
		return errors.New("session already begun")
	}

	s.cfg = cfg
	s.started = time.Now()

	state, diag, err := s.store.Open(ctx, cfg)
	s.diagnostic = diag
	if err != nil {
		s.refused = err
		if errors.Is(err, ErrVaultLocked) {
			logging.Errorf("vault locked: %s", diag)
		}
		return err
	}
	s.opened = true

	logging.Debugf("vault open: state=%s (%s)", state, diag)
	switch {
	case state == StateDegraded:
		logging.Warnf("vault degraded: %s; records are kept unencrypted in %s", diag, s.store.PlaintextPath())
		if cause := s.store.Cause(); cause != nil {
			logging.Debugf("degraded cause: %v", cause)
		}
	case !cfg.EncryptionEnabled:
		logging.Warnf("encryption disabled: records are stored unencrypted in %s", s.store.PlaintextPath())
	}
	return nil
}

// State returns the vault state as seen by this session.
func (s *Session) State() State {
	return s.store.State()
}

// Diagnostic returns the message from the last Open.
func (s *Session) Diagnostic() string {
	return s.diagnostic
}

// Started returns when Begin was called.
func (s *Session) Started() time.Time {
	return s.started
}

// Appended returns how many records this session wrote.
func (s *Session) Appended() int {
	return s.appended
}

// PlaintextPath returns where the working copy lives.
func (s *Session) PlaintextPath() string {
	return s.store.PlaintextPath()
}

func (s *Session) usable() error {
	if s.refused != nil {
		if errors.Is(s.refused, ErrVaultLocked) {
			return errors.Join(ErrSessionRefused, ErrVaultLocked)
		}
		return ErrSessionRefused
	}
	if !s.opened {
		return ErrNotOpen
	}
	if s.ended {
		return ErrSessionClosed
	}
	return nil
}

// Append writes r to the working copy. The record is durable when Append
// returns nil.
func (s *Session) Append(r Record) error {
	if err := s.usable(); err != nil {
		return err
	}
	if err := s.store.AppendRecord(r); err != nil {
		return err
	}
	s.appended++
	return nil
}

// Records returns the readable records and the malformed chunks.
func (s *Session) Records() ([]Record, []error, error) {
	if err := s.usable(); err != nil {
		return nil, nil, err
	}
	return s.store.Records()
}

// End seals the vault and reports the outcome. It never panics and never
// deletes the working copy unless a confirmed blob replaced it. Callers
// should pass a context that is not already cancelled by the signal that
// triggered the shutdown.
func (s *Session) End(ctx context.Context) EndResult {
	if s.ended {
		if s.result.Sealed {
			return EndResult{Sealed: true, Diagnostic: NothingToSeal, State: s.store.State()}
		}
		return s.result
	}
	s.ended = true

	if s.refused != nil || !s.opened {
		s.result = EndResult{
			Sealed:     true,
			Diagnostic: NothingToSeal,
			State:      s.store.State(),
			Err:        s.refused,
		}
		return s.result
	}

	ok, diag, err := s.store.Seal(ctx, s.cfg)
	res := EndResult{
		Sealed:     ok,
		Diagnostic: diag,
		State:      s.store.State(),
		Appended:   s.appended,
		Err:        err,
	}

	var sealErr *SealError
	if errors.As(err, &sealErr) {
		res.Warnings = append(res.Warnings, "seal failed: "+sealErr.Error())
	}
	if !s.cfg.EncryptionEnabled {
		res.Warnings = append(res.Warnings,
			"plaintext mode: records are stored UNENCRYPTED in "+s.store.PlaintextPath())
	}
	if res.State == StateDegraded {
		res.Warnings = append(res.Warnings,
			"vault degraded: plaintext working copy left at "+s.store.PlaintextPath()+"; review it before the next session")
	}

	for _, w := range res.Warnings {
		logging.Warnf("%s", w)
	}
	if ok {
		logging.Debugf("session ended: %s", diag)
	}

	s.result = res
	return res
}
