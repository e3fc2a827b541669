package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/parleyhq/parley/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Parley Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.LLM.BaseURL = prompt(scanner, "LLM base URL", cfg.LLM.BaseURL)
		cfg.LLM.APIKey = prompt(scanner, "LLM API key", cfg.LLM.APIKey)
		cfg.LLM.Model = prompt(scanner, "LLM model name", cfg.LLM.Model)

		cfg.Embeddings.APIKey = prompt(scanner, "Embeddings API key (blank to reuse LLM key)", cfg.Embeddings.APIKey)
		if cfg.Embeddings.APIKey == "" {
			cfg.Embeddings.APIKey = cfg.LLM.APIKey
		}
		cfg.Qdrant.URL = prompt(scanner, "Qdrant URL", cfg.Qdrant.URL)
		cfg.Qdrant.Collection = prompt(scanner, "Qdrant collection", cfg.Qdrant.Collection)

		cfg.Storage.Driver = prompt(scanner, "Storage driver (file or supabase)", cfg.Storage.Driver)
		if cfg.Storage.Driver == "supabase" {
			cfg.Supabase.URL = prompt(scanner, "Supabase URL", cfg.Supabase.URL)
			cfg.Supabase.APIKey = prompt(scanner, "Supabase service key", cfg.Supabase.APIKey)
			cfg.Redis.Addr = prompt(scanner, "Redis address", cfg.Redis.Addr)
		}

		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)
		if cfg.Telegram.Token != "" {
			cfg.Telegram.OrganizationID = prompt(scanner, "Telegram organization ID", cfg.Telegram.OrganizationID)
		}
		cfg.Brave.APIKey = prompt(scanner, "Brave API key (optional)", cfg.Brave.APIKey)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
