package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/illarion/passvault/internal/secretgen"
)

// Gen prints a generated secret without touching the vault.
func Gen(length int, copyToClipboard bool) {
	secret, err := secretgen.Generate(length)
	if err != nil {
		HandleError(err)
	}

	fmt.Println(secret)

	if copyToClipboard {
		if clipboard.Unsupported {
			fmt.Println("warning: clipboard not supported on this system")
			return
		}
		if err := clipboard.WriteAll(secret); err != nil {
			fmt.Printf("warning: failed to copy to clipboard: %s\n", err)
			return
		}
		fmt.Println("copied to clipboard")
	}
}
