// Package config loads and stores the per-vault settings file.
//
// Settings come from, in increasing precedence: built-in defaults, the
// config.json file in the vault directory and PASSVAULT_* environment
// variables (PASSVAULT_ENCRYPTION_ENABLED, PASSVAULT_RECIPIENTS, ...).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/illarion/passvault/internal/vault"
)

const (
	FileName  = "config.json"
	EnvPrefix = "passvault"
	DirEnv    = "PASSVAULT_DIR"

	BackendGPG    = "gpg"
	BackendNative = "native"

	defaultDirName = ".passvault"
)

// Keys as they appear in config.json.
const (
	KeyEncryptionEnabled      = "encryption_enabled"
	KeyRecipients             = "recipients"
	KeyAllowPlaintextFallback = "allow_plaintext_fallback"
	KeyBackend                = "backend"
	KeyGPGProgram             = "gpg_program"
	KeyToolTimeout            = "tool_timeout"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full settings file.
type Config struct {
	EncryptionEnabled      bool          `mapstructure:"encryption_enabled"`
	Recipients             []string      `mapstructure:"recipients"`
	AllowPlaintextFallback bool          `mapstructure:"allow_plaintext_fallback"`
	Backend                string        `mapstructure:"backend"`
	GPGProgram             string        `mapstructure:"gpg_program"`
	ToolTimeout            time.Duration `mapstructure:"tool_timeout"`
}

// Defaults returns the built-in settings. Encryption starts disabled, as a
// fresh vault has no identity configured yet.
func Defaults() map[string]any {
	return map[string]any{
		KeyEncryptionEnabled:      false,
		KeyRecipients:             []string{},
		KeyAllowPlaintextFallback: false,
		KeyBackend:                BackendGPG,
		KeyGPGProgram:             "gpg",
		KeyToolTimeout:            30 * time.Second,
	}
}

// Path returns the settings file path for a vault directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads the settings for the vault in dir, with PASSVAULT_* variables
// taking precedence over the file. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	return load(dir, true)
}

// LoadFile reads the defaults and config.json only. Use it as the base for
// Save so environment overrides are never written back to disk.
func LoadFile(dir string) (*Config, error) {
	return load(dir, false)
}

func load(dir string, env bool) (*Config, error) {
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(Path(dir))
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", Path(dir), err)
		}
	}

	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", Path(dir), err)
	}

	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the settings to dir/config.json, replacing it atomically.
func (c *Config) Save(dir string) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetConfigPermissions(0600)
	v.Set(KeyEncryptionEnabled, c.EncryptionEnabled)
	v.Set(KeyRecipients, c.Recipients)
	v.Set(KeyAllowPlaintextFallback, c.AllowPlaintextFallback)
	v.Set(KeyBackend, c.Backend)
	v.Set(KeyGPGProgram, c.GPGProgram)
	v.Set(KeyToolTimeout, c.ToolTimeout.String())

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create vault directory %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, ".config.tmp.json")
	if err := v.WriteConfigAs(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, Path(dir)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

// Normalize trims recipients and drops empty and duplicate entries,
// keeping the first occurrence.
func (c *Config) Normalize() {
	var out []string
	for _, r := range c.Recipients {
		r = strings.TrimSpace(r)
		if r == "" || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	c.Recipients = out

	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendGPG
	}
	if c.GPGProgram == "" {
		c.GPGProgram = "gpg"
	}
}

// Validate rejects combinations the backends cannot honor.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGPG:
	case BackendNative:
		if len(c.Recipients) > 0 {
			return fmt.Errorf("%w: backend %q only supports passphrase encryption, remove recipients", ErrInvalidConfig, BackendNative)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q (want %s or %s)", ErrInvalidConfig, c.Backend, BackendGPG, BackendNative)
	}

	if c.ToolTimeout < 0 {
		return fmt.Errorf("%w: tool_timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Vault returns the subset the vault lifecycle works with.
func (c *Config) Vault() vault.Config {
	return vault.Config{
		EncryptionEnabled:      c.EncryptionEnabled,
		Recipients:             slices.Clone(c.Recipients),
		AllowPlaintextFallback: c.AllowPlaintextFallback,
	}
}

// Mode describes how records are protected, for display.
func (c *Config) Mode() string {
	switch {
	case !c.EncryptionEnabled:
		return "plaintext (encryption disabled)"
	case len(c.Recipients) == 0:
		return c.Backend + " symmetric (passphrase)"
	default:
		return c.Backend + " to " + strings.Join(c.Recipients, ", ")
	}
}

// ResolveDir picks the vault directory: flagDir if set, else $PASSVAULT_DIR,
// else ~/.passvault.
func ResolveDir(flagDir string) (string, error) {
	dir := flagDir
	if dir == "" {
		dir = os.Getenv(DirEnv)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		dir = filepath.Join(home, defaultDirName)
	}
	return filepath.Abs(dir)
}
