package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/prepterm/prepterm/internal/config"
	"github.com/prepterm/prepterm/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:   "prepterm",
	Short: "Render interview answers in the terminal",
	Long: `prepterm streams rich interview-prep answers into the terminal:
markdown blocks reveal word by word, code is highlighted, and mermaid
diagrams are repaired and rendered to SVG in the background.

Examples:
  prepterm ask "How does raft elect a leader?" -f answer.md
  cat answer.md | prepterm ask "Explain consistent hashing"
  prepterm history list
  prepterm export 12 -o answer.html`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies its theme before any
// command renders output.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	ui.InitTheme(ui.ThemeConfig(cfg.Theme))
	return cfg, nil
}
