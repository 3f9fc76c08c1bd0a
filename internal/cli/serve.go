package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mockmate/mockmate/internal/auth"
	"github.com/mockmate/mockmate/internal/config"
	"github.com/mockmate/mockmate/internal/gateway"
	"github.com/mockmate/mockmate/internal/interview"
	"github.com/mockmate/mockmate/internal/llm"
	"github.com/mockmate/mockmate/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mockmate server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if cfg.Gemini.APIKey == "" {
				return fmt.Errorf("no Gemini API key configured; set gemini.apiKey or the GEMINI_API_KEY environment variable")
			}
			if cfg.Server.CookieSecret == "" {
				return fmt.Errorf("no cookie secret configured; set server.cookieSecret or the MOCKMATE_COOKIE_SECRET environment variable")
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			// Session store (SQLite or in-memory)
			var sessions store.SessionStore
			if cfg.Session.Store == "sqlite" {
				dbPath := filepath.Join(paths.Data, "mockmate.db")
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				sessions = store.NewSQLiteSessionStore(db)
				log.Info().Str("path", dbPath).Msg("using SQLite session store")
			} else {
				sessions = store.NewMemorySessionStore()
				log.Info().Msg("using in-memory session store")
			}

			client := llm.NewGeminiClient(cfg.Gemini)
			log.Info().Str("provider", client.Name()).Str("model", cfg.Gemini.Model).Msg("LLM client configured")

			notifier := auth.NewNotifier()
			authSvc := auth.NewService(cfg.Google, cfg.Server.CookieSecret, log)
			if cfg.Google.ClientID == "" {
				log.Warn().Msg("Google OAuth is not configured; sign-in will be unavailable")
			}

			registry := interview.NewRegistry(client, sessions, log)
			srv := gateway.New(cfg, log, authSvc, notifier, registry, sessions, cfg.Gemini.Model)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override the listen port")
	cmd.Flags().StringVar(&bind, "bind", "", "override the bind mode (loopback, lan, custom)")

	return cmd
}
