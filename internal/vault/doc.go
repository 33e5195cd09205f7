// Package vault implements the credential vault lifecycle.
//
// A vault directory holds two artifacts:
//   - accounts.gpg: the encrypted blob, present once any session has sealed
//   - accounts: the plaintext working copy, present only while a session is
//     Open or Degraded
//
// A Session opens the vault (decrypting the blob into the working copy),
// accepts appended records through the record codec and seals the working
// copy back into the blob when it ends. When encryption cannot be performed
// safely the session is Degraded: the plaintext stays on disk, is treated as
// authoritative and the condition is reported at every close.
//
// Ordering rules for every encryption tool invocation:
//   - the blob is never removed on decrypt failure
//   - the new blob is written and confirmed before the plaintext is removed
//   - a working copy left behind by an earlier run is never overwritten
package vault
