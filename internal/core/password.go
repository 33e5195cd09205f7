package core

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// PassphraseEnv overrides every other passphrase source.
const PassphraseEnv = "PASSVAULT_PASSPHRASE"

// confirmAttempts is how many times a new passphrase may be mistyped.
const confirmAttempts = 3

var ErrPassphraseMismatch = errors.New("passphrases do not match")

// readFunc reads one passphrase after showing prompt.
type readFunc func(prompt string) ([]byte, error)

// ReadPassphrase reads a passphrase from the terminal without echo. The
// prompt goes to stderr so stdout stays clean for scripts.
func ReadPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(pass) == 0 {
		return nil, ErrPassphraseRequired
	}
	return pass, nil
}

// ReadNewPassphrase asks for the passphrase that will protect a new blob,
// retrying when the confirmation does not match.
func ReadNewPassphrase() ([]byte, error) {
	return confirmPassphrase(ReadPassphrase)
}

func confirmPassphrase(read readFunc) ([]byte, error) {
	for attempt := 1; attempt <= confirmAttempts; attempt++ {
		pass, err := read("New vault passphrase: ")
		if err != nil {
			return nil, err
		}

		again, err := read("Repeat passphrase: ")
		if err != nil {
			clear(pass)
			return nil, err
		}

		match := subtle.ConstantTimeCompare(pass, again) == 1
		clear(again)
		if match {
			return pass, nil
		}
		clear(pass)

		if attempt < confirmAttempts {
			fmt.Fprintln(os.Stderr, "Passphrases do not match, try again")
		}
	}
	return nil, ErrPassphraseMismatch
}

// PassphraseFromEnv returns PASSVAULT_PASSPHRASE, or nil when unset.
func PassphraseFromEnv() []byte {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return []byte(pass)
	}
	return nil
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
