package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mockmate/mockmate/internal/config"
	"github.com/mockmate/mockmate/internal/version"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show mockmate status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Mockmate %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
				}
				return nil
			}

			fmt.Printf("Server:  port=%d bind=%s\n", cfg.Server.Port, cfg.Server.Bind)
			fmt.Printf("Session: store=%s\n", cfg.Session.Store)

			model := cfg.Gemini.Model
			keyState := "missing"
			if cfg.Gemini.APIKey != "" {
				keyState = "configured"
			}
			fmt.Printf("Gemini:  model=%s apiKey=%s\n", model, keyState)

			oauthState := "not configured"
			if cfg.Google.ClientID != "" {
				oauthState = "configured"
			}
			fmt.Printf("OAuth:   %s\n", oauthState)

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Printf("\n%d configuration issue(s):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s\n", issue)
				}
			}
			return nil
		},
	}
}
