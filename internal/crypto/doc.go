// Package crypto provides the built-in encryption backend.
//
// It is used when no gpg binary is wanted or available on the machine and
// only supports passphrase (symmetric) encryption.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from the passphrase via PBKDF2
//   - 12-byte random nonce per encryption operation
//   - Authenticated encryption prevents tampering
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 32-byte random salt (stored in the blob header)
//   - 210,000 iterations (OWASP minimum recommendation)
//
// Blob layout:
//
//	"PVLT" | version (1 byte) | salt (32) | iterations (uint32 BE) | nonce (12) | ciphertext+tag
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
