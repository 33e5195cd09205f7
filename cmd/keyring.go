package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/keyring"
)

// KeyringSave verifies the passphrase and saves it to the OS keyring
func KeyringSave(ctx context.Context, dir string) {
	pv := openVault(dir)
	defer pv.Close()

	if !pv.NeedsPassphrase() {
		fmt.Fprintf(os.Stderr, "Error: vault does not use passphrase encryption (%s)\n", pv.Config().Mode())
		os.Exit(1)
	}

	if err := pv.VerifyPassphrase(ctx); err != nil {
		HandleError(err)
	}

	if err := pv.Passphrase().SaveToKeyring(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Passphrase saved to keyring")
}

// KeyringDelete removes the passphrase from the OS keyring
func KeyringDelete(dir string) {
	pv := openVault(dir)
	defer pv.Close()

	vaultID, err := pv.VaultID()
	if err != nil {
		fmt.Println("No passphrase stored in keyring")
		return
	}

	if !keyring.HasPassphrase(vaultID) {
		fmt.Println("No passphrase stored in keyring")
		return
	}

	if err := keyring.DeletePassphrase(vaultID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to delete from keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Passphrase removed from keyring")
}

// KeyringStatus checks if a passphrase is stored in the keyring
func KeyringStatus(dir string) {
	pv := openVault(dir)
	defer pv.Close()

	vaultID, err := pv.VaultID()
	if err != nil {
		fmt.Println("Passphrase: not stored")
		return
	}

	if keyring.HasPassphrase(vaultID) {
		fmt.Println("Passphrase: stored in keyring")
	} else {
		fmt.Println("Passphrase: not stored")
	}
}
