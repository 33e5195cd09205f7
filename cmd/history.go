package cmd

import (
	"fmt"
	"time"
)

// History prints the session journal, pruning it first when keep > 0.
func History(dir string, keep int) {
	pv := openVault(dir)
	defer pv.Close()

	entries, pruned, err := pv.History(keep)
	if err != nil {
		HandleError(err)
	}

	if pruned > 0 {
		fmt.Printf("pruned: %d sessions\n", pruned)
	}

	if len(entries) == 0 {
		fmt.Println("(no sessions)")
		return
	}

	for _, e := range entries {
		sealed := " "
		if e.Sealed {
			sealed = "*"
		}
		fmt.Printf("%-6s %s %s %-9s +%d  %s\n",
			e.Label(), e.Started.Format(time.DateTime), sealed, e.State, e.Appended, e.Diagnostic)
		for _, w := range e.Warnings {
			fmt.Printf("         warning: %s\n", w)
		}
	}
}
