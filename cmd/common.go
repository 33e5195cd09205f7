package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/config"
	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/vault"
)

// openVault loads the vault in dir or exits.
func openVault(dir string) *core.PassVault {
	pv, err := core.New(dir)
	if err != nil {
		HandleError(err)
	}
	return pv
}

// HandleError handles common errors consistently
func HandleError(err error) {
	var sealErr *vault.SealError
	switch {
	case errors.Is(err, storage.ErrVaultBusy):
		fmt.Fprintf(os.Stderr, "Error: vault is busy\n")
		fmt.Fprintf(os.Stderr, "Another passvault session is running on this directory\n")
	case errors.Is(err, vault.ErrVaultLocked):
		fmt.Fprintf(os.Stderr, "Error: vault is locked: the encrypted accounts could not be decrypted\n")
		fmt.Fprintf(os.Stderr, "Check the passphrase or key, or enable allow_plaintext_fallback with 'passvault config -fallback'\n")
	case errors.Is(err, crypto.ErrWrongPassphrase):
		fmt.Fprintf(os.Stderr, "Error: wrong passphrase\n")
	case errors.Is(err, core.ErrPassphraseRequired):
		fmt.Fprintf(os.Stderr, "Error: passphrase required\n")
		fmt.Fprintf(os.Stderr, "Set %s or store it with 'passvault keyring save'\n", core.PassphraseEnv)
	case errors.Is(err, config.ErrInvalidConfig):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Fix it with 'passvault config' or edit %s\n", config.FileName)
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: vault not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'passvault init' first\n")
	case errors.Is(err, core.ErrNoWorkingCopy):
		fmt.Fprintf(os.Stderr, "Error: no plaintext working copy, nothing to review\n")
	case errors.As(err, &sealErr):
		fmt.Fprintf(os.Stderr, "Error: %s\n", sealErr.Diagnostic)
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// printEndResult reports how a session ended. It returns false when the
// operator has something to act on.
func printEndResult(res vault.EndResult) bool {
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}

	switch {
	case res.Sealed && res.Diagnostic == vault.NothingToSeal:
		fmt.Println("nothing to seal")
	case res.Sealed:
		fmt.Printf("sealed: %s\n", res.Diagnostic)
	default:
		fmt.Printf("not sealed: %s\n", res.Diagnostic)
	}

	return res.Sealed && res.Err == nil
}
