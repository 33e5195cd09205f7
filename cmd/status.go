package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/illarion/passvault/internal/vault"
)

// Status shows the state of the vault (no passphrase required)
func Status(ctx context.Context, dir string) {
	pv := openVault(dir)
	defer pv.Close()

	status, err := pv.Status(ctx)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Vault:      %s\n", status.Dir)
	fmt.Printf("State:      %s\n", status.Condition)
	fmt.Printf("Encryption: %s\n", status.Mode)

	available := "available"
	if !status.BackendAvailable {
		available = "NOT available"
	}
	fmt.Printf("Backend:    %s (%s)\n", status.Backend, available)

	fmt.Println()
	if status.BlobExists {
		fmt.Printf("  %s  %d bytes, modified %s\n", vault.BlobFile, status.BlobSize, status.BlobModified.Format(time.RFC3339))
	} else {
		fmt.Printf("  %s  (none)\n", vault.BlobFile)
	}
	if status.PlaintextExists {
		fmt.Printf("  %s      %d records", vault.PlaintextFile, status.PlaintextRecords)
		if status.MalformedRecords > 0 {
			fmt.Printf(", %d malformed", status.MalformedRecords)
		}
		fmt.Println(", UNENCRYPTED")
	} else {
		fmt.Printf("  %s      (none)\n", vault.PlaintextFile)
	}

	if m := status.Meta; m != nil {
		fmt.Println()
		if m.LastSealed.IsZero() {
			fmt.Println("Last sealed: never")
		} else {
			fmt.Printf("Last sealed: %s (%d records)\n", m.LastSealed.Format(time.RFC3339), m.SealedRecords)
		}
	}
	if last := status.LastSession; last != nil {
		fmt.Printf("Last session %s: %s, %s\n", last.Label(), last.State, last.Diagnostic)
	}

	if status.Busy {
		fmt.Println()
		fmt.Println("A session is active on this vault")
	}

	if status.NeedsReview() {
		fmt.Println()
		fmt.Println("warning: plaintext working copy left by an earlier session")
		fmt.Println("  Review it with 'passvault diff'; the next session will seal it")
	}

	if status.Git != nil {
		fmt.Print(status.Git.Format())
	}
}
