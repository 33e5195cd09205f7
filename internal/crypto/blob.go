package crypto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const blobVersion = 1

var blobMagic = []byte("PVLT")

// headerSize is magic, version, salt and iteration count.
var headerSize = len(blobMagic) + 1 + SaltSize + 4

var (
	ErrNotABlob           = errors.New("not a passvault blob")
	ErrUnsupportedVersion = errors.New("unsupported blob version")
	ErrWeakIterations     = errors.New("blob iteration count below minimum")
)

// SealBlob encrypts plaintext under a key derived from passphrase and
// returns a self-describing blob. The header is authenticated.
func SealBlob(plaintext, passphrase []byte) ([]byte, error) {
	kdf, err := NewKDF()
	if err != nil {
		return nil, err
	}
	return sealWith(kdf, plaintext, passphrase)
}

func sealWith(kdf *KDF, plaintext, passphrase []byte) ([]byte, error) {
	header := encodeHeader(kdf)

	key := kdf.DeriveKey(passphrase)
	enc := NewEncryptor(key)
	defer enc.Destroy()

	body, err := enc.Encrypt(plaintext, header)
	if err != nil {
		return nil, err
	}

	return append(header, body...), nil
}

// OpenBlob decrypts a blob produced by SealBlob.
func OpenBlob(blob, passphrase []byte) ([]byte, error) {
	kdf, err := decodeHeader(blob)
	if err != nil {
		return nil, err
	}

	key := kdf.DeriveKey(passphrase)
	enc := NewEncryptor(key)
	defer enc.Destroy()

	return enc.Decrypt(blob[headerSize:], blob[:headerSize])
}

// IsBlob reports whether data starts with the blob magic.
func IsBlob(data []byte) bool {
	return bytes.HasPrefix(data, blobMagic)
}

func encodeHeader(kdf *KDF) []byte {
	header := make([]byte, 0, headerSize)
	header = append(header, blobMagic...)
	header = append(header, blobVersion)
	header = append(header, kdf.Salt...)
	return binary.BigEndian.AppendUint32(header, uint32(kdf.Iterations))
}

func decodeHeader(blob []byte) (*KDF, error) {
	if !IsBlob(blob) {
		return nil, ErrNotABlob
	}
	if len(blob) < headerSize+NonceSize+TagSize {
		return nil, ErrInvalidCiphertext
	}

	pos := len(blobMagic)
	if v := blob[pos]; v != blobVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	pos++

	salt := bytes.Clone(blob[pos : pos+SaltSize])
	pos += SaltSize

	iters := binary.BigEndian.Uint32(blob[pos : pos+4])
	if iters < MinIters {
		return nil, fmt.Errorf("%w: %d", ErrWeakIterations, iters)
	}

	return &KDF{Salt: salt, Iterations: int(iters)}, nil
}
