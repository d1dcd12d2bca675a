package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igleads/pkg/config"
	"igleads/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ".igleads.yaml"
		if len(args) > 0 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s", path)
		}

		cfg := config.DefaultConfig()
		if err := cfg.Save(path); err != nil {
			return err
		}
		ui.PrintSuccess("Configuration file created: " + path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(globalFlags())
		if err != nil {
			return err
		}

		// Secrets never go to the terminal.
		cfg.Apify.Token = redact(cfg.Apify.Token)
		cfg.OpenAI.APIKey = redact(cfg.OpenAI.APIKey)
		cfg.Outreach.SenderPassword = redact(cfg.Outreach.SenderPassword)

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("formatting configuration: %w", err)
		}
		ui.PrintHighlight("Current configuration")
		fmt.Print(string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration including required tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := globalFlags()
		if _, err := loadConfigWithTokens(flags); err != nil {
			return err
		}
		ui.PrintSuccess("Configuration is valid")
		return nil
	},
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
