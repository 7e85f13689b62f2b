package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Stream  StreamConfig  `mapstructure:"stream"`
	Diagram DiagramConfig `mapstructure:"diagram"`
	Theme   ThemeConfig   `mapstructure:"theme"`
	History HistoryConfig `mapstructure:"history"`
	Export  ExportConfig  `mapstructure:"export"`
}

// StreamConfig tunes the incremental reveal of streamed answers
type StreamConfig struct {
	IntervalMs int  `mapstructure:"interval_ms"` // Reveal cadence in milliseconds (default 30)
	Disabled   bool `mapstructure:"disabled"`    // Skip revealing, show answers at once
}

// Interval returns the reveal cadence as a duration
func (s StreamConfig) Interval() time.Duration {
	if s.IntervalMs <= 0 {
		return 30 * time.Millisecond
	}
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// DiagramConfig configures diagram repair and rendering
type DiagramConfig struct {
	Backends         []string `mapstructure:"backends"`           // Tier order: kroki, mmdc, ink
	KrokiURL         string   `mapstructure:"kroki_url"`          // Override kroki endpoint
	InkURL           string   `mapstructure:"ink_url"`            // Override mermaid.ink endpoint
	MmdcPath         string   `mapstructure:"mmdc_path"`          // Path to local mermaid CLI
	Theme            string   `mapstructure:"theme"`              // Mermaid theme name
	NotifyOnTemplate bool     `mapstructure:"notify_on_template"` // Announce template substitution
	DelayMs          int      `mapstructure:"delay_ms"`           // Pause between diagram renders
}

// Delay returns the inter-diagram pause as a duration
func (d DiagramConfig) Delay() time.Duration {
	if d.DelayMs <= 0 {
		return 150 * time.Millisecond
	}
	return time.Duration(d.DelayMs) * time.Millisecond
}

// ThemeConfig allows customization of UI colors
// Colors can be ANSI color numbers (0-255) or hex codes (#RRGGBB)
type ThemeConfig struct {
	Primary   string `mapstructure:"primary"`   // main accent (commands, highlights)
	Secondary string `mapstructure:"secondary"` // secondary accent (headers, borders)
	Success   string `mapstructure:"success"`   // success states
	Error     string `mapstructure:"error"`     // error states
	Warning   string `mapstructure:"warning"`   // warnings
	Muted     string `mapstructure:"muted"`     // dimmed text
	Text      string `mapstructure:"text"`      // primary text
	Spinner   string `mapstructure:"spinner"`   // loading spinner
}

// HistoryConfig configures the answer history store
type HistoryConfig struct {
	Path     string `mapstructure:"path"`     // Override database location
	Disabled bool   `mapstructure:"disabled"` // Do not record answers
}

// ExportConfig configures document export
type ExportConfig struct {
	Dir string `mapstructure:"dir"` // Default output directory
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("stream.interval_ms", 30)
	viper.SetDefault("diagram.backends", []string{"kroki", "mmdc", "ink"})
	viper.SetDefault("diagram.theme", "neutral")
	viper.SetDefault("diagram.notify_on_template", true)
	viper.SetDefault("diagram.delay_ms", 150)
	viper.SetDefault("export.dir", ".")

	// Read config file (optional - won't error if missing)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Diagram.KrokiURL = expandEnv(cfg.Diagram.KrokiURL)
	cfg.Diagram.InkURL = expandEnv(cfg.Diagram.InkURL)
	cfg.Diagram.MmdcPath = expandEnv(cfg.Diagram.MmdcPath)
	cfg.History.Path = expandEnv(cfg.History.Path)
	cfg.Export.Dir = expandEnv(cfg.Export.Dir)

	return &cfg, nil
}

// ApplyOverrides applies command-line overrides to the config.
// Empty values leave the config untouched.
func (c *Config) ApplyOverrides(intervalMs int, backends []string) {
	if intervalMs > 0 {
		c.Stream.IntervalMs = intervalMs
	}
	if len(backends) > 0 {
		c.Diagram.Backends = backends
	}
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigDir returns the XDG config directory for prepterm.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "prepterm"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "prepterm"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// GetDataDir returns the XDG data directory for prepterm.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share
func GetDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "prepterm")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "prepterm-data") // fallback
	}
	return filepath.Join(homeDir, ".local", "share", "prepterm")
}

// HistoryPath returns the answer database location, honoring the
// config override.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(GetDataDir(), "history.db")
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes the config to disk
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`stream:
  interval_ms: %d

diagram:
  # Tier order; each backend is tried until one succeeds
  backends: [%s]
  theme: %s
  notify_on_template: %t
  delay_ms: %d
  # kroki_url: https://kroki.example.com  # self-hosted kroki
  # mmdc_path: /usr/local/bin/mmdc

export:
  dir: %s

# history:
#   path: ~/.local/share/prepterm/history.db
#   disabled: false
`, cfg.Stream.IntervalMs, strings.Join(cfg.Diagram.Backends, ", "),
		cfg.Diagram.Theme, cfg.Diagram.NotifyOnTemplate, cfg.Diagram.DelayMs, cfg.Export.Dir)

	return os.WriteFile(path, []byte(content), 0600)
}
