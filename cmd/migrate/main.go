// Command migrate manages the membership database schema.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"ms-membership/internal/config"
	"ms-membership/internal/database"
	"ms-membership/internal/database/migrations"
	"ms-membership/internal/logger"
)

var migrationsDir string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the membership database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&migrationsDir, "dir", "", "migrations directory (defaults to DB_MIGRATIONS_DIR)")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withRunner(func(r *migrations.Runner, _ []string) error {
				return r.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: withRunner(func(r *migrations.Runner, _ []string) error {
				return r.Down()
			}),
		},
		&cobra.Command{
			Use:   "to VERSION",
			Short: "Migrate up or down to a specific version",
			Args:  cobra.ExactArgs(1),
			RunE: withRunner(func(r *migrations.Runner, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return r.To(uint(v))
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: withRunner(func(r *migrations.Runner, _ []string) error {
				v, dirty, err := r.Version()
				if err != nil {
					return err
				}
				fmt.Printf("version=%d dirty=%t\n", v, dirty)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Create tables straight from the models (sqlite and tests)",
			RunE: withDB(func(ctx context.Context, db *bun.DB) error {
				return database.CreateSchema(ctx, db)
			}),
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert demo members and an event",
			RunE: withDB(func(ctx context.Context, db *bun.DB) error {
				return database.Seed(ctx, db)
			}),
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func withDB(fn func(ctx context.Context, db *bun.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg := config.Load()
		log := logger.NewLogger()
		defer log.Close()

		db, err := database.Open(cmd.Context(), cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(cmd.Context(), db)
	}
}

func withRunner(fn func(r *migrations.Runner, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.NewLogger()
		defer log.Close()

		db, err := database.Open(cmd.Context(), cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()

		opts := migrations.Options{MigrationsDir: cfg.Database.MigrationsDir}
		if migrationsDir != "" {
			opts.MigrationsDir = migrationsDir
		}
		runner := migrations.NewRunner(db, opts, log)
		defer runner.Close()
		return fn(runner, args)
	}
}
