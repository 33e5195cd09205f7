package cmd

import (
	"fmt"
	"strings"

	"github.com/illarion/passvault/internal/config"
)

// ConfigChanges holds the config flags given on the command line. Nil
// fields are left unchanged.
type ConfigChanges struct {
	Encryption      *bool
	Recipients      []string
	ClearRecipients bool
	Fallback        *bool
	Backend         string
	GPGProgram      string
}

func (c ConfigChanges) empty() bool {
	return c.Encryption == nil && len(c.Recipients) == 0 && !c.ClearRecipients &&
		c.Fallback == nil && c.Backend == "" && c.GPGProgram == ""
}

// Config shows the vault settings, applying changes first when given.
func Config(dir string, changes ConfigChanges) {
	pv := openVault(dir)
	defer pv.Close()

	if !changes.empty() {
		cfg, err := config.LoadFile(pv.Dir())
		if err != nil {
			HandleError(err)
		}
		if changes.ClearRecipients {
			cfg.Recipients = nil
		}
		cfg.Recipients = append(cfg.Recipients, changes.Recipients...)
		if changes.Encryption != nil {
			cfg.EncryptionEnabled = *changes.Encryption
		}
		if changes.Fallback != nil {
			cfg.AllowPlaintextFallback = *changes.Fallback
		}
		if changes.Backend != "" {
			cfg.Backend = changes.Backend
		}
		if changes.GPGProgram != "" {
			cfg.GPGProgram = changes.GPGProgram
		}

		if err := pv.SaveConfig(cfg); err != nil {
			HandleError(err)
		}
		fmt.Printf("saved: %s\n", config.Path(pv.Dir()))
		fmt.Println()
	}

	cfg := pv.Config()
	fmt.Printf("Encryption:  %s\n", enabled(cfg.EncryptionEnabled))
	if len(cfg.Recipients) == 0 {
		fmt.Println("Recipients:  (none, passphrase encryption)")
	} else {
		fmt.Printf("Recipients:  %s\n", strings.Join(cfg.Recipients, ", "))
	}
	fmt.Printf("Fallback:    %s\n", enabled(cfg.AllowPlaintextFallback))
	fmt.Printf("Backend:     %s\n", cfg.Backend)
	if cfg.Backend == config.BackendGPG {
		fmt.Printf("GPG program: %s\n", cfg.GPGProgram)
	}
	fmt.Printf("Timeout:     %s\n", cfg.ToolTimeout)

	if !cfg.EncryptionEnabled {
		fmt.Println()
		fmt.Println("warning: encryption is disabled, records are stored UNENCRYPTED")
	}
}

func enabled(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}
