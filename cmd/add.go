package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/secretgen"
	"github.com/illarion/passvault/internal/vault"
)

// Add appends one record without the interactive loop. An empty secret
// generates one of the given length.
func Add(ctx context.Context, dir, label, secret string, length int) {
	if secret == "" {
		generated, err := secretgen.Generate(length)
		if err != nil {
			HandleError(err)
		}
		secret = generated
	}

	record := vault.Record{Label: label, Secret: secret}
	if err := vault.Validate(record); err != nil {
		HandleError(err)
	}

	pv := openVault(dir)
	defer pv.Close()

	session, err := pv.Begin(ctx)
	if err != nil {
		HandleError(err)
	}

	appendErr := session.Append(record)

	endCtx, cancel := context.WithTimeout(context.Background(), endTimeout)
	defer cancel()
	res := session.End(endCtx)

	if appendErr != nil {
		printEndResult(res)
		HandleError(appendErr)
	}

	if label == "" {
		fmt.Println("added: (no label)")
	} else {
		fmt.Printf("added: %s\n", label)
	}
	if !printEndResult(res) {
		os.Exit(1)
	}
}
