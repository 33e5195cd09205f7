package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/atotto/clipboard"

	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/logging"
	"github.com/illarion/passvault/internal/secretgen"
	"github.com/illarion/passvault/internal/vault"
)

const (
	initialMinLength = 12
	initialMaxLength = 20

	// endTimeout bounds sealing after the loop stops, including after a
	// signal cancelled ctx.
	endTimeout = 2 * time.Minute
)

// Open runs the interactive generator loop: every accepted secret is
// appended to the vault and the vault is sealed when the loop ends.
func Open(ctx context.Context, dir string) {
	pv := openVault(dir)
	defer pv.Close()

	session, err := pv.Begin(ctx)
	if err != nil {
		HandleError(err)
	}

	input := newLineReader(os.Stdin)
	hadBlob := pv.HasBlob()

	if session.State() == vault.StateOpen && pv.NeedsPassphrase() {
		// Resolve now so a prompt at seal time does not compete with the loop
		if pass, err := pv.Passphrase().Get(ctx, !hadBlob); err != nil {
			logging.Warnf("no passphrase available, the vault will not be sealed: %v", err)
		} else {
			clear(pass)
		}
	}

	fmt.Printf("vault: %s (%s)\n", pv.Dir(), session.State())
	res := runSession(ctx, session, input)
	sealed := printEndResult(res)

	if sealed && res.Appended > 0 && pv.Passphrase().Origin() == core.OriginPrompt && ctx.Err() == nil {
		if input.confirm(ctx, "save passphrase to keyring?") {
			if err := pv.Passphrase().SaveToKeyring(); err != nil {
				fmt.Printf("warning: failed to save passphrase to keyring: %s\n", err)
			} else {
				fmt.Println("passphrase saved to keyring")
			}
		}
	}

	if !sealed {
		os.Exit(1)
	}
}

// runSession runs the loop until quit, end of input or ctx is done, then
// ends the session under a context of its own so a signal does not stop
// the seal.
func runSession(ctx context.Context, session *core.Session, input *lineReader) vault.EndResult {
	runLoop(ctx, session, input)

	endCtx, cancel := context.WithTimeout(context.Background(), endTimeout)
	defer cancel()
	return session.End(endCtx)
}

func runLoop(ctx context.Context, session *core.Session, input *lineReader) {
	length, err := secretgen.RandomLength(initialMinLength, initialMaxLength)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}

	secret, err := secretgen.Generate(length)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return
	}

	for {
		fmt.Printf("\n%s  (%d chars)\n", secret, len(secret))
		answer, ok := input.ask(ctx, "[n]ew, <length>, [y]es save, [q]uit: ")
		if !ok {
			return
		}

		switch answer {
		case "q", "quit":
			return
		case "n", "":
		case "y", "yes":
			if !save(ctx, session, input, secret) {
				return
			}
		default:
			n, err := strconv.Atoi(answer)
			if err != nil {
				fmt.Printf("unknown choice %q\n", answer)
				continue
			}
			next, err := secretgen.Generate(n)
			if err != nil {
				fmt.Printf("error: %s\n", err)
				continue
			}
			length, secret = n, next
			continue
		}

		next, err := secretgen.Generate(length)
		if err != nil {
			fmt.Printf("error: %s\n", err)
			continue
		}
		secret = next
	}
}

// save copies secret to the clipboard, asks for a website and appends the
// record. It returns false when the loop should stop.
func save(ctx context.Context, session *core.Session, input *lineReader, secret string) bool {
	if !clipboard.Unsupported {
		if err := clipboard.WriteAll(secret); err != nil {
			logging.Debugf("clipboard: %v", err)
		} else {
			fmt.Println("copied to clipboard")
		}
	}

	label, ok := input.ask(ctx, "website (optional): ")
	if !ok {
		return false
	}

	err := session.Append(vault.Record{Label: label, Secret: secret})
	var codecErr *vault.CodecError
	switch {
	case err == nil:
		if label == "" {
			fmt.Println("saved")
		} else {
			fmt.Printf("saved: %s\n", label)
		}
	case errors.As(err, &codecErr):
		fmt.Printf("error: %s\n", codecErr)
	default:
		fmt.Printf("error: %s\n", err)
		return false
	}
	return true
}
