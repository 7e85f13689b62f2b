package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepterm/prepterm/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if config.Exists() {
		fmt.Printf("config:           %s\n", path)
	} else {
		fmt.Printf("config:           %s (not created, run `prepterm config init`)\n", path)
	}
	fmt.Printf("stream interval:  %s\n", cfg.Stream.Interval())
	fmt.Printf("diagram backends: %s\n", strings.Join(cfg.Diagram.Backends, " -> "))
	fmt.Printf("diagram theme:    %s\n", cfg.Diagram.Theme)
	fmt.Printf("diagram delay:    %s\n", cfg.Diagram.Delay())
	fmt.Printf("history:          %s", cfg.HistoryPath())
	if cfg.History.Disabled {
		fmt.Print(" (disabled)")
	}
	fmt.Println()
	fmt.Printf("export dir:       %s\n", cfg.Export.Dir)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if config.Exists() {
		path, _ := config.GetConfigPath()
		return fmt.Errorf("config already exists at %s", path)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}

	path, _ := config.GetConfigPath()
	fmt.Printf("wrote %s\n", path)
	return nil
}
