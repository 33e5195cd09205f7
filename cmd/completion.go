package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_passvault() {
    local cur prev words cword
    _init_completion || return

    local commands="open add ls gen status diff config keyring identities history init help completion"

    if [[ $cword -eq 1 ]]; then
        if [[ "$cur" == -* ]]; then
            COMPREPLY=($(compgen -W "-dir -v" -- "$cur"))
        else
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        fi
        return
    fi

    if [[ "$prev" == "-dir" ]]; then
        _filedir -d
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        add)
            COMPREPLY=($(compgen -W "-label -generate -secret" -- "$cur"))
            ;;
        ls|diff)
            COMPREPLY=($(compgen -W "-reveal" -- "$cur"))
            ;;
        gen)
            COMPREPLY=($(compgen -W "-length -copy" -- "$cur"))
            ;;
        config)
            COMPREPLY=($(compgen -W "-enable -disable -recipient -clear-recipients -fallback -no-fallback -backend -gpg-program" -- "$cur"))
            ;;
        history)
            COMPREPLY=($(compgen -W "-keep" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _passvault passvault
`

const zshCompletion = `#compdef passvault

_passvault() {
    local -a commands
    commands=(
        'open:Generate secrets interactively and save them to the vault'
        'add:Append one record to the vault'
        'ls:List records in the vault'
        'gen:Print a generated secret'
        'status:Show vault status'
        'diff:Compare the working copy with the sealed blob'
        'config:Show or change vault settings'
        'keyring:Manage passphrase in OS keyring'
        'identities:List gpg recipients'
        'history:Show the session journal'
        'init:Create a vault'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'passvault commands' commands
            ;;
        args)
            case "${words[2]}" in
                add)
                    _arguments \
                        '-label[Website or label]:label:' \
                        '-generate[Generate a secret of this length]:length:' \
                        '-secret[Use this secret]:secret:'
                    ;;
                ls|diff)
                    _arguments '-reveal[Show secrets in clear]'
                    ;;
                gen)
                    _arguments \
                        '-length[Secret length]:length:' \
                        '-copy[Copy to clipboard]'
                    ;;
                config)
                    _arguments \
                        '-enable[Enable encryption]' \
                        '-disable[Disable encryption]' \
                        '*-recipient[Add a recipient]:recipient:' \
                        '-clear-recipients[Remove all recipients]' \
                        '-fallback[Allow plaintext fallback]' \
                        '-no-fallback[Refuse plaintext fallback]' \
                        '-backend[Encryption backend]:backend:(gpg native)' \
                        '-gpg-program[gpg executable]:program:_files'
                    ;;
                history)
                    _arguments '-keep[Keep only the newest N sessions]:count:'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'passvault commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_passvault "$@"
`

const fishCompletion = `# passvault fish completions

set -l commands open add ls gen status diff config keyring identities history init help completion

complete -c passvault -f

# Commands
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a open -d 'Generate and save secrets'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a add -d 'Append one record'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List records'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a gen -d 'Print a generated secret'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault status'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Review the working copy'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a config -d 'Show or change settings'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage passphrase in OS keyring'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a identities -d 'List gpg recipients'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a history -d 'Show session journal'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a vault'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# global flags
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -o dir -r -d 'Vault directory'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -o v -d 'Verbose logging'

# command flags
complete -c passvault -n "__fish_seen_subcommand_from add" -o label -r -d 'Website or label'
complete -c passvault -n "__fish_seen_subcommand_from add" -o generate -r -d 'Generated secret length'
complete -c passvault -n "__fish_seen_subcommand_from add" -o secret -r -d 'Secret to store'
complete -c passvault -n "__fish_seen_subcommand_from ls diff" -o reveal -d 'Show secrets in clear'
complete -c passvault -n "__fish_seen_subcommand_from gen" -o length -r -d 'Secret length'
complete -c passvault -n "__fish_seen_subcommand_from gen" -o copy -d 'Copy to clipboard'
complete -c passvault -n "__fish_seen_subcommand_from config" -o enable -d 'Enable encryption'
complete -c passvault -n "__fish_seen_subcommand_from config" -o disable -d 'Disable encryption'
complete -c passvault -n "__fish_seen_subcommand_from config" -o recipient -r -d 'Add a recipient'
complete -c passvault -n "__fish_seen_subcommand_from config" -o clear-recipients -d 'Remove all recipients'
complete -c passvault -n "__fish_seen_subcommand_from config" -o fallback -d 'Allow plaintext fallback'
complete -c passvault -n "__fish_seen_subcommand_from config" -o no-fallback -d 'Refuse plaintext fallback'
complete -c passvault -n "__fish_seen_subcommand_from config" -o backend -r -a "gpg native" -d 'Encryption backend'
complete -c passvault -n "__fish_seen_subcommand_from config" -o gpg-program -r -d 'gpg executable'
complete -c passvault -n "__fish_seen_subcommand_from history" -o keep -r -d 'Keep newest N sessions'

# keyring subcommands
complete -c passvault -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c passvault -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c passvault -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
