package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mockmate/mockmate/internal/config"
	"github.com/mockmate/mockmate/internal/store"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored interview sessions",
	}

	cmd.AddCommand(newSessionsListCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if cfg.Session.Store != "sqlite" {
				return fmt.Errorf("sessions list requires the sqlite store (session.store is %q)", cfg.Session.Store)
			}
			if owner == "" {
				return fmt.Errorf("--owner is required")
			}

			db, err := store.Open(filepath.Join(paths.Data, "mockmate.db"), log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			sessions, err := store.NewSQLiteSessionStore(db).List(context.Background(), owner)
			if err != nil {
				return err
			}

			if len(sessions) == 0 {
				fmt.Println("No sessions found.")
				return nil
			}
			for _, s := range sessions {
				title := s.Problem
				if len(title) > 60 {
					title = title[:57] + "..."
				}
				fmt.Printf("%s  %s  %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04"), title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner user ID")
	return cmd
}
