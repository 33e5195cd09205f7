package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/core"
)

// List prints the records in the vault. Secrets are shown as fingerprints
// unless reveal is set.
func List(ctx context.Context, dir string, reveal bool) {
	pv := openVault(dir)
	defer pv.Close()

	session, err := pv.Begin(ctx)
	if err != nil {
		HandleError(err)
	}

	records, malformed, err := session.Records()

	endCtx, cancel := context.WithTimeout(context.Background(), endTimeout)
	defer cancel()
	res := session.End(endCtx)

	if err != nil {
		HandleError(err)
	}

	if len(records) == 0 {
		fmt.Println("(no records)")
	}
	for i, r := range records {
		label := r.Label
		if label == "" {
			label = "(no label)"
		}
		secret := core.Fingerprint(r.Secret)
		if reveal {
			secret = r.Secret
		}
		fmt.Printf("  %3d  %-30s %s\n", i+1, label, secret)
	}

	for _, e := range malformed {
		fmt.Printf("warning: %s\n", e)
	}

	// A clean listing ends with nothing to seal; only report trouble
	if !res.Sealed || len(res.Warnings) > 0 {
		if !printEndResult(res) {
			os.Exit(1)
		}
	}
}
