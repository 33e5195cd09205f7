// Package secretgen produces random secrets for new vault records.
package secretgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	Letters     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Digits      = "0123456789"
	Punctuation = "!@#$%^&*()-_=+"

	// Alphabet is every character a generated secret may contain.
	Alphabet = Letters + Digits + Punctuation

	// MinLength is the floor applied to any requested length.
	MinLength = 4
	// MaxLength caps requests so a typo cannot allocate gigabytes.
	MaxLength = 1024
)

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Generate returns a secret of the requested length drawn uniformly from
// Alphabet. Lengths below MinLength are raised to MinLength.
func Generate(length int) (string, error) {
	if length > MaxLength {
		return "", fmt.Errorf("length %d exceeds maximum %d", length, MaxLength)
	}
	length = max(length, MinLength)

	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}

// RandomLength picks a length in [lo, hi] using the secure random source.
func RandomLength(lo, hi int) (int, error) {
	if hi < lo {
		lo, hi = hi, lo
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(hi-lo+1)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return lo + int(n.Int64()), nil
}
