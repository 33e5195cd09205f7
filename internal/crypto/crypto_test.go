package crypto

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestEncryptorRoundTrip(t *testing.T) {
	key, err := GenerateRandom(KeySize)
	if err != nil {
		t.Fatalf("GenerateRandom failed: %v", err)
	}
	enc := NewEncryptor(key)

	plaintext := []byte("example.com\nXk9!mP2vQs\n\n")
	ciphertext, err := enc.Encrypt(plaintext, []byte("aad"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Error("Ciphertext contains plaintext")
	}

	got, err := enc.Decrypt(ciphertext, []byte("aad"))
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Decrypt = %q, want %q", got, plaintext)
	}

	if _, err := enc.Decrypt(ciphertext, []byte("other")); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Expected ErrAuthFailed for wrong additional data, got %v", err)
	}
	if _, err := enc.Decrypt(ciphertext[:NonceSize], nil); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("Expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	kdf := &KDF{Salt: bytes.Repeat([]byte{7}, SaltSize), Iterations: 1000}
	a := kdf.DeriveKey([]byte("pass"))
	b := kdf.DeriveKey([]byte("pass"))
	c := kdf.DeriveKey([]byte("other"))

	if len(a) != KeySize {
		t.Errorf("Key length = %d, want %d", len(a), KeySize)
	}
	if !bytes.Equal(a, b) {
		t.Error("Same passphrase and salt must derive the same key")
	}
	if bytes.Equal(a, c) {
		t.Error("Different passphrases must derive different keys")
	}
}

func TestBlobRoundTrip(t *testing.T) {
	plaintext := []byte("bank\np@ss\n\n")
	blob, err := SealBlob(plaintext, []byte("correct horse"))
	if err != nil {
		t.Fatalf("SealBlob failed: %v", err)
	}
	if !IsBlob(blob) {
		t.Error("Sealed output should carry the blob magic")
	}

	got, err := OpenBlob(blob, []byte("correct horse"))
	if err != nil {
		t.Fatalf("OpenBlob failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("OpenBlob = %q, want %q", got, plaintext)
	}

	if _, err := OpenBlob(blob, []byte("wrong")); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Expected ErrAuthFailed, got %v", err)
	}
}

func TestOpenBlobRejectsBadHeaders(t *testing.T) {
	blob, err := SealBlob([]byte("x\ny\n\n"), []byte("pw"))
	if err != nil {
		t.Fatalf("SealBlob failed: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func([]byte) []byte
		wantErr error
	}{
		{"not a blob", func(b []byte) []byte { return []byte("-----BEGIN PGP MESSAGE-----") }, ErrNotABlob},
		{"truncated", func(b []byte) []byte { return b[:headerSize] }, ErrInvalidCiphertext},
		{"future version", func(b []byte) []byte { b[len(blobMagic)] = 9; return b }, ErrUnsupportedVersion},
		{"weak iterations", func(b []byte) []byte {
			pos := len(blobMagic) + 1 + SaltSize
			b[pos], b[pos+1], b[pos+2], b[pos+3] = 0, 0, 0, 1
			return b
		}, ErrWeakIterations},
		{"tampered salt", func(b []byte) []byte { b[len(blobMagic)+1] ^= 0xff; return b }, ErrAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mutated := tt.mutate(bytes.Clone(blob))
			if _, err := OpenBlob(mutated, []byte("pw")); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBackendCachesPassphrase(t *testing.T) {
	calls := 0
	var confirms []bool
	b := NewBackend(func(ctx context.Context, confirm bool) ([]byte, error) {
		calls++
		confirms = append(confirms, confirm)
		return []byte("correct horse"), nil
	})
	defer b.Destroy()

	blob, err := b.Encrypt(context.Background(), []byte("a\nb\n\n"), nil)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if _, err := b.Decrypt(context.Background(), blob); err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("Passphrase requested %d times, want 1", calls)
	}
	if len(confirms) != 1 || !confirms[0] {
		t.Errorf("First passphrase for a new blob should be confirmed, got %v", confirms)
	}
}

func TestBackendRejectsRecipients(t *testing.T) {
	b := NewBackend(func(ctx context.Context, confirm bool) ([]byte, error) {
		return []byte("pw"), nil
	})
	if _, err := b.Encrypt(context.Background(), []byte("a\nb\n\n"), []string{"alice@example.com"}); !errors.Is(err, ErrRecipientsUnsupported) {
		t.Errorf("Expected ErrRecipientsUnsupported, got %v", err)
	}
}

func TestBackendWrongPassphraseForgotten(t *testing.T) {
	blob, err := SealBlob([]byte("a\nb\n\n"), []byte("right"))
	if err != nil {
		t.Fatalf("SealBlob failed: %v", err)
	}

	answers := [][]byte{[]byte("wrong"), []byte("right")}
	b := NewBackend(func(ctx context.Context, confirm bool) ([]byte, error) {
		next := answers[0]
		answers = answers[1:]
		return next, nil
	})

	if _, err := b.Decrypt(context.Background(), blob); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("Expected ErrWrongPassphrase, got %v", err)
	}
	if _, err := b.Decrypt(context.Background(), blob); err != nil {
		t.Errorf("Second attempt should ask again and succeed, got %v", err)
	}
}
