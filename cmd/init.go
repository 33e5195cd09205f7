package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/config"
)

// Init creates the vault directory, its settings file and state database
func Init(dir string) {
	pv := openVault(dir)
	defer pv.Close()

	if _, err := os.Stat(config.Path(pv.Dir())); os.IsNotExist(err) {
		cfg, err := config.LoadFile(pv.Dir())
		if err != nil {
			HandleError(err)
		}
		if err := pv.SaveConfig(cfg); err != nil {
			HandleError(err)
		}
	}

	vaultID, err := pv.Init()
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Initialized vault in %s (id %s)\n", pv.Dir(), vaultID)
	if !pv.Config().EncryptionEnabled {
		fmt.Println("warning: encryption is disabled; enable it with 'passvault config -enable'")
	}
}
