// Package core provides the passvault operations behind the CLI.
//
// Core operations include:
//   - Begin/End: lock the vault, open a session, seal and journal it
//   - Status: derive the vault condition from the files on disk without a
//     passphrase
//   - Diff: compare the sealed blob with a leftover working copy in memory
//   - Identities: list gpg recipients for configuration
//   - History: read, prune and compact the session journal
//
// Backend selection follows the configuration: gpg (recipients or
// passphrase) or the built-in native backend (passphrase only). Symmetric
// passphrases are resolved from PASSVAULT_PASSPHRASE, the OS keyring and
// finally a terminal prompt.
package core
