// Package storage provides the BBolt state database kept next to a vault.
//
// Database structure uses two buckets:
//   - meta: vault ID, creation time, last seal time and record count, last
//     session state
//   - sessions: one JSON entry per finished session, keyed by sequence
//
// The database never holds secrets: record labels and secrets live only in
// the vault artifacts. It doubles as the vault lock: a session keeps it open
// exclusively, so a second concurrent session fails with ErrVaultBusy
// instead of racing on the working copy. Read-only commands open it shared.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
