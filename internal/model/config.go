package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultMailbox is used when a command is not given -m.
const DefaultMailbox = "INBOX"

// Limit bounds applied to every --limit flag.
const (
	MinLimit = 1
	MaxLimit = 100
)

var (
	// ErrNoConfig is returned when config.json does not exist.
	ErrNoConfig = errors.New("no configuration found: run `mxctl init` or pass -a ACCOUNT")

	// ErrNoDefaultAccount is returned when config.json exists but names no
	// default account.
	ErrNoDefaultAccount = errors.New("no default account set: set mail.default_account in config.json (or re-run `mxctl init`) or pass -a ACCOUNT")
)

// MailConfig holds Mail.app related settings.
type MailConfig struct {
	// DefaultAccount is used when a command is run without -a.
	DefaultAccount string `mapstructure:"default_account" json:"default_account"`
}

// AppConfig is the contents of config.json.
type AppConfig struct {
	Mail MailConfig `mapstructure:"mail" json:"mail"`

	// TodoistAPIToken is only used when the token is not in the keychain.
	TodoistAPIToken string `mapstructure:"todoist_api_token" json:"todoist_api_token,omitempty"`
}

// AppState is the contents of state.json.
type AppState struct {
	AutomationPrompted bool `mapstructure:"automation_prompted" json:"automation_prompted"`
}

// Paths locates mxctl's files. All of them live in Dir.
type Paths struct {
	Dir string
}

// DefaultPaths returns ~/.config/mxctl, or $MXCTL_CONFIG_DIR when set.
func DefaultPaths() Paths {
	if dir := strings.TrimSpace(os.Getenv("MXCTL_CONFIG_DIR")); dir != "" {
		return Paths{Dir: dir}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{Dir: filepath.Join(".", ".mxctl")}
	}
	return Paths{Dir: filepath.Join(home, ".config", "mxctl")}
}

func (p Paths) Config() string  { return filepath.Join(p.Dir, "config.json") }
func (p Paths) State() string   { return filepath.Join(p.Dir, "state.json") }
func (p Paths) UndoLog() string { return filepath.Join(p.Dir, "mail-undo.json") }

func newJSON(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	return v
}

// readJSON loads path into a fresh viper instance. found is false when the
// file does not exist.
func readJSON(path string) (v *viper.Viper, found bool, err error) {
	v = newJSON(path)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return v, false, nil
	}
	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return v, false, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}
	return v, true, nil
}

func writeJSON(v *viper.Viper, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads config.json. A missing file yields ErrNoConfig.
func LoadConfig(p Paths) (*AppConfig, error) {
	v, found, err := readJSON(p.Config())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoConfig
	}
	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", p.Config(), err)
	}
	return cfg, nil
}

// SaveConfig rewrites config.json, keeping keys mxctl does not manage.
func SaveConfig(p Paths, cfg *AppConfig) error {
	v, _, err := readJSON(p.Config())
	if err != nil {
		return err
	}
	v.Set("mail.default_account", cfg.Mail.DefaultAccount)
	if cfg.TodoistAPIToken != "" {
		v.Set("todoist_api_token", cfg.TodoistAPIToken)
	}
	return writeJSON(v, p.Config())
}

// LoadState reads state.json. A missing or unreadable file yields the zero
// state.
func LoadState(p Paths) AppState {
	var st AppState
	v, found, err := readJSON(p.State())
	if err != nil || !found {
		return st
	}
	st.AutomationPrompted = v.GetBool("automation_prompted")
	return st
}

// SaveState rewrites state.json.
func SaveState(p Paths, st AppState) error {
	v, _, err := readJSON(p.State())
	if err != nil {
		// Unreadable state is replaced rather than repaired.
		v = newJSON(p.State())
	}
	v.Set("automation_prompted", st.AutomationPrompted)
	return writeJSON(v, p.State())
}

// ResolveAccount returns flag when set, otherwise the configured default.
func ResolveAccount(p Paths, flag string) (string, error) {
	if flag = strings.TrimSpace(flag); flag != "" {
		return flag, nil
	}
	cfg, err := LoadConfig(p)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(cfg.Mail.DefaultAccount) == "" {
		return "", ErrNoDefaultAccount
	}
	return cfg.Mail.DefaultAccount, nil
}

// ValidateLimit clamps n to [MinLimit, MaxLimit].
func ValidateLimit(n int) int {
	switch {
	case n < MinLimit:
		return MinLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}
