package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func main() {
	loadEnvFiles()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	dsn string
	dir string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the ShelfSmart database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", dsnFromEnv(), "Postgres connection string (DB_DSN)")
	root.PersistentFlags().StringVar(&opts.dir, "dir", migrationsDir(), "Migrations directory (MIGRATIONS_DIR)")

	root.AddCommand(
		dbCommand(opts, "up", "Apply all pending migrations", func(db *sql.DB, dir string) error {
			if err := goose.Up(db, dir); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			fmt.Println("Migrations applied successfully")
			return nil
		}),
		dbCommand(opts, "down", "Roll back the latest migration", func(db *sql.DB, dir string) error {
			if err := goose.Down(db, dir); err != nil {
				return fmt.Errorf("roll back migration: %w", err)
			}
			fmt.Println("Migration rolled back successfully")
			return nil
		}),
		dbCommand(opts, "status", "Show migration status", func(db *sql.DB, dir string) error {
			return goose.Status(db, dir)
		}),
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create a new SQL migration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := goose.Create(nil, opts.dir, args[0], "sql"); err != nil {
					return fmt.Errorf("create migration: %w", err)
				}
				return nil
			},
		},
	)
	return root
}

func dbCommand(opts *options, use, short string, fn func(db *sql.DB, dir string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, closeDB, err := openDB(cmd.Context(), opts.dsn)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}
			return fn(db, opts.dir)
		},
	}
}

func openDB(ctx context.Context, dsn string) (*sql.DB, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	return db, func() {
		_ = db.Close()
		pool.Close()
	}, nil
}
