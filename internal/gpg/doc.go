// Package gpg implements the vault encryption backend on top of the gpg
// command line tool.
//
// Every invocation runs with --batch, exchanges data over stdin and stdout
// and never names a file, so the vault store alone decides where results
// land. Passphrases for symmetric encryption are handed over on file
// descriptor 3 with loopback pinentry and never appear in argv.
package gpg
