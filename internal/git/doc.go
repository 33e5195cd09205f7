// Package git reports whether a vault directory is exposed through a git
// repository.
//
// Checks performed:
//   - Whether the plaintext working copy is tracked by git (must not be)
//   - Whether the plaintext working copy is ignored (should be)
//   - Whether the encrypted blob is tracked (informational)
package git
