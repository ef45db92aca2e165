package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"cityinit.org/internal/migrate"
	"cityinit.org/ops/migrations"
)

type options struct {
	dsn     string
	dir     string
	timeout time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the portal PostgreSQL schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", os.Getenv("PORTAL_PG_DSN"), "PostgreSQL DSN (default $PORTAL_PG_DSN)")
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "read migrations from this directory instead of the embedded set (expects sql/ and seeds/)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")

	cmd.AddCommand(
		newStepCommand(opts, "up", "Apply pending migrations", (*migrate.Manager).Up),
		newStepCommand(opts, "down", "Roll back the latest migration", (*migrate.Manager).Down),
		newStepCommand(opts, "seed", "Apply pending seeds", (*migrate.Manager).Seed),
		newStatusCommand(opts),
	)
	return cmd
}

func newStepCommand(opts *options, use, short string, step func(*migrate.Manager, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd.Context(), opts, func(ctx context.Context, m *migrate.Manager) error {
				if err := step(m, ctx); err != nil {
					return fmt.Errorf("migrate %s: %w", use, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", use)
				return nil
			})
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd.Context(), opts, func(ctx context.Context, m *migrate.Manager) error {
				history, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("migrate status: %w", err)
				}
				for _, item := range history {
					fmt.Fprintln(cmd.OutOrStdout(), item)
				}
				return nil
			})
		},
	}
}

func withManager(parent context.Context, opts *options, fn func(context.Context, *migrate.Manager) error) error {
	if opts.dsn == "" {
		return errors.New("missing DSN: provide via --dsn or PORTAL_PG_DSN")
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.timeout)
	defer cancel()

	db, err := sql.Open("pgx", opts.dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	var fsys fs.FS = migrations.FS
	if opts.dir != "" {
		fsys = os.DirFS(opts.dir)
	}
	return fn(ctx, migrate.NewManager(db, fsys, migrations.MigrationsDir, migrations.SeedsDir))
}
