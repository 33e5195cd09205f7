package gpg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/illarion/passvault/internal/logging"
	"github.com/illarion/passvault/internal/vault"
)

// BackendName identifies the gpg backend in configuration.
const BackendName = "gpg"

const probeTimeout = 5 * time.Second

var (
	ErrNotInstalled = errors.New("gpg executable not found")
	ErrEmptyOutput  = errors.New("gpg produced no output")
)

// ToolError reports a failed gpg invocation with its stderr.
type ToolError struct {
	Op     string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("gpg %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gpg %s: %v: %s", e.Op, e.Err, e.Stderr)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Options configures a Backend.
type Options struct {
	// Program is the gpg executable name or path. Defaults to "gpg".
	Program string
	// HomeDir, when set, is passed as --homedir.
	HomeDir string
	// Symmetric selects passphrase encryption for blobs without recipients.
	Symmetric bool
	// Passphrase supplies the symmetric passphrase. When nil gpg asks
	// through its own agent.
	Passphrase vault.PassphraseFunc
}

// Backend implements vault.Backend and vault.IdentityLister.
type Backend struct {
	opts Options
}

// New returns a gpg backend.
func New(opts Options) *Backend {
	if opts.Program == "" {
		opts.Program = "gpg"
	}
	return &Backend{opts: opts}
}

func (b *Backend) Name() string { return BackendName }

// Available reports whether gpg can be found and answers --version.
func (b *Backend) Available(ctx context.Context) bool {
	path, err := exec.LookPath(b.opts.Program)
	if err != nil {
		logging.Debugf("gpg probe: %v", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		logging.Debugf("gpg probe: %s --version: %v", path, err)
		return false
	}

	if first, _, _ := strings.Cut(string(out), "\n"); first != "" {
		logging.Debugf("gpg probe: %s", first)
	}
	return true
}

func (b *Backend) baseArgs() []string {
	args := []string{"--batch", "--yes", "--quiet"}
	if b.opts.HomeDir != "" {
		args = append(args, "--homedir", b.opts.HomeDir)
	}
	return args
}

// Encrypt encrypts plaintext to recipients, or with a passphrase when
// recipients is empty.
func (b *Backend) Encrypt(ctx context.Context, plaintext []byte, recipients []string) ([]byte, error) {
	args := b.baseArgs()

	var pass []byte
	if len(recipients) == 0 {
		var err error
		pass, err = b.passphrase(ctx, true)
		if err != nil {
			return nil, err
		}
		args = append(args, loopbackArgs(pass)...)
		args = append(args, "--symmetric")
	} else {
		args = append(args, "--encrypt")
		for _, r := range recipients {
			args = append(args, "--recipient", r)
		}
	}

	out, err := b.run(ctx, "encrypt", args, plaintext, pass)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmptyOutput
	}
	return out, nil
}

// Decrypt decrypts blob. For symmetric vaults the passphrase is supplied
// on fd 3.
func (b *Backend) Decrypt(ctx context.Context, blob []byte) ([]byte, error) {
	args := b.baseArgs()

	var pass []byte
	if b.opts.Symmetric {
		var err error
		pass, err = b.passphrase(ctx, false)
		if err != nil {
			return nil, err
		}
		args = append(args, loopbackArgs(pass)...)
	}
	args = append(args, "--decrypt")

	return b.run(ctx, "decrypt", args, blob, pass)
}

func (b *Backend) passphrase(ctx context.Context, confirm bool) ([]byte, error) {
	if b.opts.Passphrase == nil {
		return nil, nil
	}
	pass, err := b.opts.Passphrase(ctx, confirm)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain passphrase: %w", err)
	}
	return pass, nil
}

func loopbackArgs(pass []byte) []string {
	if pass == nil {
		return nil
	}
	return []string{"--pinentry-mode", "loopback", "--passphrase-fd", "3"}
}

// run executes gpg with stdin as input. When pass is non-nil it is written
// to the child's fd 3.
func (b *Backend) run(ctx context.Context, op string, args []string, stdin, pass []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, b.opts.Program, args...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if pass != nil {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("failed to create passphrase pipe: %w", err)
		}
		defer r.Close()
		cmd.ExtraFiles = []*os.File{r}

		go func() {
			defer w.Close()
			w.Write(pass)
			w.Write([]byte("\n"))
		}()
	}

	logging.Debugf("running %s %s", b.opts.Program, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrNotInstalled, err)
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w (%v)", ctx.Err(), err)
		}
		return nil, &ToolError{Op: op, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}
