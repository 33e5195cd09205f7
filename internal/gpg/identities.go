package gpg

import (
	"context"
	"strings"
)

// ListIdentities returns the user IDs of the public keys in the keyring,
// deduplicated, in keyring order. A missing gpg yields an empty list.
func (b *Backend) ListIdentities(ctx context.Context) ([]string, error) {
	if !b.Available(ctx) {
		return nil, nil
	}

	args := append(b.baseArgs(), "--list-keys", "--with-colons")
	out, err := b.run(ctx, "list-keys", args, nil, nil)
	if err != nil {
		return nil, err
	}
	return parseIdentities(string(out)), nil
}

// parseIdentities extracts field 10 of every uid record in --with-colons
// output.
func parseIdentities(out string) []string {
	var ids []string
	seen := make(map[string]bool)

	for line := range strings.Lines(out) {
		fields := strings.Split(strings.TrimRight(line, "\r\n"), ":")
		if len(fields) < 10 || fields[0] != "uid" {
			continue
		}

		id := strings.ReplaceAll(fields[9], `\x3a`, ":")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
