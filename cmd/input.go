package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// lineReader feeds stdin lines to the interactive loop. It reads on its own
// goroutine so a signal can interrupt a blocked prompt.
type lineReader struct {
	lines chan string
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{lines: make(chan string)}
	go func() {
		defer close(lr.lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lr.lines <- scanner.Text()
		}
	}()
	return lr
}

// ask prints prompt and waits for a line. ok is false on EOF or when ctx
// is done.
func (lr *lineReader) ask(ctx context.Context, prompt string) (line string, ok bool) {
	fmt.Print(prompt)
	select {
	case <-ctx.Done():
		fmt.Println()
		return "", false
	case line, ok = <-lr.lines:
		if !ok {
			fmt.Println()
		}
		return strings.TrimSpace(line), ok
	}
}

// confirm asks a yes/no question, defaulting to no.
func (lr *lineReader) confirm(ctx context.Context, prompt string) bool {
	answer, ok := lr.ask(ctx, prompt+" [y/N] ")
	if !ok {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}
