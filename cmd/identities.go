package cmd

import (
	"context"
	"fmt"
)

// Identities lists the recipients the backend can encrypt to.
func Identities(ctx context.Context, dir string) {
	pv := openVault(dir)
	defer pv.Close()

	ids, err := pv.Identities(ctx)
	if err != nil {
		HandleError(err)
	}

	if len(ids) == 0 {
		fmt.Println("(no identities)")
		return
	}
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}
}
