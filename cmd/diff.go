package cmd

import (
	"context"
	"fmt"
)

// Diff shows how the plaintext working copy differs from the sealed blob
func Diff(ctx context.Context, dir string, reveal bool) {
	pv := openVault(dir)
	defer pv.Close()

	out, err := pv.Diff(ctx, reveal)
	if err != nil {
		HandleError(err)
	}

	if out == "" {
		fmt.Println("working copy matches the sealed blob")
		return
	}
	fmt.Print(out)
}
