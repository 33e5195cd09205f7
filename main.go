package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/passvault/cmd"
	"github.com/illarion/passvault/internal/config"
	"github.com/illarion/passvault/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	global := flag.NewFlagSet("passvault", flag.ExitOnError)
	global.Usage = printUsage
	dirFlag := global.String("dir", "", "Vault directory (default $PASSVAULT_DIR or ~/.passvault)")
	verbose := global.Bool("v", false, "Verbose logging")
	if err := global.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	logging.SetVerbose(*verbose)

	args := global.Args()
	command := "open"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	if command == "help" || command == "-h" || command == "--help" {
		if len(args) == 0 {
			printUsage()
			return
		}
		printCommandHelp(args[0])
		return
	}
	if command == "completion" {
		runCompletion(args)
		return
	}
	if command == "gen" {
		runGen(args)
		return
	}

	dir, err := config.ResolveDir(*dirFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	switch command {
	case "open":
		runOpen(ctx, dir, args)
	case "add":
		runAdd(ctx, dir, args)
	case "ls":
		runLs(ctx, dir, args)
	case "status":
		runStatus(ctx, dir, args)
	case "diff":
		runDiff(ctx, dir, args)
	case "config":
		runConfig(dir, args)
	case "keyring":
		runKeyring(ctx, dir, args)
	case "identities":
		runIdentities(ctx, dir, args)
	case "history":
		runHistory(dir, args)
	case "init":
		runInit(dir, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runOpen(ctx context.Context, dir string, args []string) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	parse(fs, args)

	cmd.Open(ctx, dir)
}

func runAdd(ctx context.Context, dir string, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	label := fs.String("label", "", "Website or label for the record")
	generate := fs.Int("generate", 16, "Generate a secret of this length")
	secret := fs.String("secret", "", "Store this secret instead of generating one")
	parse(fs, args)

	cmd.Add(ctx, dir, *label, *secret, *generate)
}

func runLs(ctx context.Context, dir string, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	reveal := fs.Bool("reveal", false, "Show secrets in clear")
	parse(fs, args)

	cmd.List(ctx, dir, *reveal)
}

func runGen(args []string) {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	length := fs.Int("length", 16, "Secret length")
	copyFlag := fs.Bool("copy", false, "Copy the secret to the clipboard")
	parse(fs, args)

	cmd.Gen(*length, *copyFlag)
}

func runStatus(ctx context.Context, dir string, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parse(fs, args)

	cmd.Status(ctx, dir)
}

func runDiff(ctx context.Context, dir string, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	reveal := fs.Bool("reveal", false, "Show secrets in clear")
	parse(fs, args)

	cmd.Diff(ctx, dir, *reveal)
}

func runConfig(dir string, args []string) {
	var changes cmd.ConfigChanges

	fs := flag.NewFlagSet("config", flag.ExitOnError)
	enable := fs.Bool("enable", false, "Enable encryption")
	disable := fs.Bool("disable", false, "Disable encryption")
	fs.Func("recipient", "Add a gpg recipient (repeatable)", func(v string) error {
		changes.Recipients = append(changes.Recipients, v)
		return nil
	})
	fs.BoolVar(&changes.ClearRecipients, "clear-recipients", false, "Remove all recipients")
	fallback := fs.Bool("fallback", false, "Allow plaintext fallback when decryption fails")
	noFallback := fs.Bool("no-fallback", false, "Refuse to open when decryption fails")
	fs.StringVar(&changes.Backend, "backend", "", "Encryption backend: gpg or native")
	fs.StringVar(&changes.GPGProgram, "gpg-program", "", "gpg executable")
	parse(fs, args)

	if *enable && *disable {
		fmt.Fprintln(os.Stderr, "Error: -enable and -disable are mutually exclusive")
		os.Exit(1)
	}
	if *fallback && *noFallback {
		fmt.Fprintln(os.Stderr, "Error: -fallback and -no-fallback are mutually exclusive")
		os.Exit(1)
	}

	switch {
	case *enable:
		changes.Encryption = enable
	case *disable:
		off := false
		changes.Encryption = &off
	}
	switch {
	case *fallback:
		changes.Fallback = fallback
	case *noFallback:
		off := false
		changes.Fallback = &off
	}

	cmd.Config(dir, changes)
}

func runKeyring(ctx context.Context, dir string, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: passvault keyring <save|delete|status>")
		os.Exit(1)
	}

	switch args[0] {
	case "save":
		cmd.KeyringSave(ctx, dir)
	case "delete":
		cmd.KeyringDelete(dir)
	case "status":
		cmd.KeyringStatus(dir)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: passvault keyring <save|delete|status>")
		os.Exit(1)
	}
}

func runIdentities(ctx context.Context, dir string, args []string) {
	fs := flag.NewFlagSet("identities", flag.ExitOnError)
	parse(fs, args)

	cmd.Identities(ctx, dir)
}

func runHistory(dir string, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	keep := fs.Int("keep", 0, "Prune all but the newest N sessions")
	parse(fs, args)

	cmd.History(dir, *keep)
}

func runInit(dir string, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	parse(fs, args)

	cmd.Init(dir)
}

func runCompletion(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: passvault completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("passvault - generate secrets and keep them in an encrypted vault")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  passvault [-dir <dir>] [-v] <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  open        Generate secrets interactively and save them (default)")
	fmt.Println("  add         Append one record without the interactive loop")
	fmt.Println("  ls          List records (secrets masked)")
	fmt.Println("  gen         Print a generated secret")
	fmt.Println("  status      Show vault status")
	fmt.Println("  diff        Review an unsealed working copy")
	fmt.Println("  config      Show or change vault settings")
	fmt.Println("  keyring     Manage passphrase in OS keyring")
	fmt.Println("  identities  List gpg recipients")
	fmt.Println("  history     Show the session journal")
	fmt.Println("  init        Create a vault")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  passvault init                          # Create ~/.passvault")
	fmt.Println("  passvault config -enable                # Encrypt with a passphrase")
	fmt.Println("  passvault                               # Generate and save secrets")
	fmt.Println("  passvault add -label example.com        # Save one generated secret")
	fmt.Println()
	fmt.Println("Use 'passvault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "open":
		fmt.Println("passvault open")
		fmt.Println()
		fmt.Println("Opens the vault and shows a generated secret of 12 to 20 characters.")
		fmt.Println("The vault is sealed when the loop ends, including on Ctrl-C.")
		fmt.Println()
		fmt.Println("Choices:")
		fmt.Println("  n         Generate a new secret")
		fmt.Println("  <number>  Generate a new secret of that length")
		fmt.Println("  y         Save the secret (asks for an optional website)")
		fmt.Println("  q         Quit and seal the vault")
	case "add":
		fmt.Println("passvault add [-label <label>] [-generate <length> | -secret <secret>]")
		fmt.Println()
		fmt.Println("Appends one record and seals the vault.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  passvault add -label example.com")
		fmt.Println("  passvault add -label bank -generate 24")
	case "ls":
		fmt.Println("passvault ls [-reveal]")
		fmt.Println()
		fmt.Println("Lists records in order. Secrets are shown as sha256 fingerprints")
		fmt.Println("unless -reveal is given. Malformed records are reported and skipped.")
	case "gen":
		fmt.Println("passvault gen [-length <n>] [-copy]")
		fmt.Println()
		fmt.Println("Prints a generated secret without opening the vault.")
	case "status":
		fmt.Println("passvault status")
		fmt.Println()
		fmt.Println("Shows the vault state derived from the files on disk, the backend,")
		fmt.Println("the last seal and session, and git exposure of the working copy.")
		fmt.Println()
		fmt.Println("Does not require a passphrase.")
	case "diff":
		fmt.Println("passvault diff [-reveal]")
		fmt.Println()
		fmt.Println("Decrypts the sealed blob in memory and compares it with a plaintext")
		fmt.Println("working copy left by an earlier session.")
	case "config":
		fmt.Println("passvault config [-enable|-disable] [-recipient <id>]... [-clear-recipients]")
		fmt.Println("                 [-fallback|-no-fallback] [-backend gpg|native] [-gpg-program <path>]")
		fmt.Println()
		fmt.Println("Shows the vault settings, changing them first when flags are given.")
		fmt.Println("Without recipients the vault is encrypted with a passphrase.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  passvault config -enable -recipient alice@example.com")
		fmt.Println("  passvault config -enable -backend native")
	case "keyring":
		fmt.Println("passvault keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Manages the vault passphrase in the OS keyring.")
	case "identities":
		fmt.Println("passvault identities")
		fmt.Println()
		fmt.Println("Lists the gpg identities that can be used as recipients.")
	case "history":
		fmt.Println("passvault history [-keep <n>]")
		fmt.Println()
		fmt.Println("Shows past sessions and how they ended. With -keep, older entries")
		fmt.Println("are pruned and the state database is compacted.")
	case "init":
		fmt.Println("passvault init")
		fmt.Println()
		fmt.Println("Creates the vault directory, config.json and state database.")
	case "completion":
		fmt.Println("passvault completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(passvault completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(passvault completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  passvault completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
