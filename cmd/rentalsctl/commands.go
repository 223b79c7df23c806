package main

import (
	"context"
	"fmt"
	"os"

	"rentals_backend/internal/app"
	"rentals_backend/internal/config"
	"rentals_backend/internal/database"
	"rentals_backend/internal/logger"
	"rentals_backend/internal/workers"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Server.Env)
	return cfg, nil
}

// withApp собирает приложение целиком и закрывает его после команды
func withApp(configPath string, run func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return run(ctx, a)
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if *configPath != "" {
				if err := os.Setenv("CONFIG_PATH", *configPath); err != nil {
					return err
				}
			}
			app.Run()
			return nil
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	connect := func() (*gorm.DB, error) {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		return database.Connect(cfg.Database.DSN, 1, 1)
	}

	for _, direction := range []string{database.DirectionUp, database.DirectionDown} {
		direction := direction
		cmd.AddCommand(&cobra.Command{
			Use:   direction,
			Short: fmt.Sprintf("Apply all %s migrations", direction),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := connect()
				if err != nil {
					return err
				}
				return database.RunMigrations(db, direction)
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect()
			if err != nil {
				return err
			}
			version, dirty, err := database.MigrationVersion(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %t\n", version, dirty)
			return nil
		},
	})

	return cmd
}

func expireFeaturedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "expire-featured",
		Short: "Clear featured flags whose period has ended",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app.App) error {
				expired, err := workers.NewFeaturedWorker(a.DB, a.Services.ApartmentService, 0).RunOnce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "expired: %d\n", expired)
				return nil
			})
		},
	}
}

func reindexCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app.App) error {
				resp, err := a.Services.SearchService.Reindex(a.DB.WithContext(ctx))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed: %d failed: %d\n", resp.Indexed, resp.Failed)
				return nil
			})
		},
	}
}

func relayOutboxCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "relay-outbox",
		Short: "Deliver pending search index updates once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app.App) error {
				relay := a.OutboxRelay()
				total := 0
				for {
					published, err := relay.RunOnce(ctx)
					if err != nil {
						return err
					}
					if published == 0 {
						break
					}
					total += published
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published: %d\n", total)
				return nil
			})
		},
	}
}

func cleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "cleanup-tokens",
		Aliases: []string{"cleanup"},
		Short:   "Delete expired tokens and old processed outbox rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app.App) error {
				result := workers.NewCleanupWorker(a.DB, a.Services.AuthService, a.Repos.Outbox, 0).RunOnce(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "reset_tokens: %d refresh_tokens: %d outbox_rows: %d\n",
					result.ResetTokens, result.RefreshTokens, result.OutboxRows)
				return nil
			})
		},
	}
}
