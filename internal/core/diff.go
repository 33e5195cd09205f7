package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/passvault/internal/vault"
)

var ErrNoWorkingCopy = errors.New("no plaintext working copy")

// UnifiedDiff renders the line changes from sealed to working, prefixing
// each line with ' ', '-' or '+'. It returns "" when both are identical.
func UnifiedDiff(sealedName, workingName string, sealed, working []byte) string {
	if bytes.Equal(sealed, working) {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff: records are line pairs
	a, b, lineArray := dmp.DiffLinesToChars(string(sealed), string(working))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var result strings.Builder
	fmt.Fprintf(&result, "--- %s\n", sealedName)
	fmt.Fprintf(&result, "+++ %s\n", workingName)

	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for line := range strings.Lines(d.Text) {
			result.WriteString(prefix)
			result.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				result.WriteString("\n")
			}
		}
	}

	return result.String()
}

// Fingerprint identifies a secret without revealing it.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return "sha256:" + hex.EncodeToString(sum[:4])
}

// maskRecords re-encodes data with every secret replaced by its
// fingerprint. Malformed chunks are dropped.
func maskRecords(data []byte) []byte {
	records, _ := vault.Decode(data)
	for i := range records {
		records[i].Secret = Fingerprint(records[i].Secret)
	}
	out, err := vault.EncodeAll(records)
	if err != nil {
		return nil
	}
	return out
}

// Diff compares the sealed blob with the plaintext working copy. Secrets
// are shown as fingerprints unless reveal is set.
func (p *PassVault) Diff(ctx context.Context, reveal bool) (string, error) {
	exists, err := p.root.Exists(vault.PlaintextFile)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrNoWorkingCopy
	}

	working, err := p.root.ReadFile(vault.PlaintextFile)
	if err != nil {
		return "", fmt.Errorf("failed to read working copy: %w", err)
	}
	defer clear(working)

	sealed, err := p.decryptBlob(ctx)
	if err != nil {
		return "", err
	}
	defer clear(sealed)

	if !reveal {
		working = maskRecords(working)
		sealed = maskRecords(sealed)
	}

	return UnifiedDiff(vault.BlobFile, vault.PlaintextFile, sealed, working), nil
}

// decryptBlob returns the blob content in memory, or nil when there is no
// blob yet.
func (p *PassVault) decryptBlob(ctx context.Context) ([]byte, error) {
	exists, err := p.root.Exists(vault.BlobFile)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	blob, err := p.root.ReadFile(vault.BlobFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", vault.BlobFile, err)
	}

	if id, err := p.VaultID(); err == nil {
		p.passphrase.SetVaultID(id)
	}

	if p.cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ToolTimeout)
		defer cancel()
	}

	plain, err := p.backend.Decrypt(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", vault.BlobFile, err)
	}
	return plain, nil
}
