package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igleads/pkg/auth"
	"igleads/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored API tokens",
	Long: `Stores the API tokens the tool needs (Apify, OpenAI, SMTP sender
password) in the system keychain, falling back to an encrypted file on
hosts without one. Tokens can also be supplied via APIFY_TOKEN,
OPENAI_API_KEY and SENDER_PASSWORD environment variables.`,
}

var validProviders = []string{auth.ProviderApify, auth.ProviderOpenAI, auth.ProviderSMTP}

func checkProvider(provider string) error {
	for _, p := range validProviders {
		if p == provider {
			return nil
		}
	}
	return fmt.Errorf("unknown provider %q (expected one of: %s)",
		provider, strings.Join(validProviders, ", "))
}

var authSetCmd = &cobra.Command{
	Use:   "set <provider>",
	Short: "Store a token for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := args[0]
		if err := checkProvider(provider); err != nil {
			return err
		}

		fmt.Printf("Enter %s token: ", provider)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		token := strings.TrimSpace(string(raw))
		if token == "" {
			return fmt.Errorf("token must not be empty")
		}

		manager, err := auth.NewManager()
		if err != nil {
			return err
		}
		if err := manager.Store(provider, token); err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Stored %s token", provider))
		return nil
	},
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove <provider>",
	Short: "Delete a stored token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := args[0]
		if err := checkProvider(provider); err != nil {
			return err
		}

		manager, err := auth.NewManager()
		if err != nil {
			return err
		}
		if err := manager.Delete(provider); err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Removed %s token", provider))
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers have a stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return err
		}
		for _, provider := range validProviders {
			if manager.Exists(provider) {
				ui.PrintInfo(provider, "configured")
			} else {
				ui.PrintWarning(provider + ": not configured")
			}
		}
		return nil
	},
}

func init() {
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authRemoveCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
