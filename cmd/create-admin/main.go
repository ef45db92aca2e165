package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cityinit.org/internal/auth"
	"cityinit.org/internal/config"
	"cityinit.org/internal/store"
)

type options struct {
	configPath string
	email      string
	name       string
	password   string
	migrate    bool
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "create-admin",
		Short:         "Create a portal administrator account",
		Long:          "Administrators cannot self-register. This command stores one directly in the configured database.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", os.Getenv("PORTAL_CONFIG"), "path to YAML config")
	cmd.Flags().StringVar(&opts.email, "email", "", "administrator email")
	cmd.Flags().StringVar(&opts.name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&opts.password, "password", os.Getenv("PORTAL_ADMIN_PASSWORD"), "password (default $PORTAL_ADMIN_PASSWORD)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending PostgreSQL migrations first")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	if opts.password == "" {
		return errors.New("password is required: pass --password or set PORTAL_ADMIN_PASSWORD")
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		return errors.New("database.driver is memory: an admin created here would not outlive this process")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	backend, err := store.Open(ctx, cfg.Database, opts.migrate)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer backend.Close()

	tokens, err := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	u, err := auth.NewService(backend, tokens).CreateAdmin(ctx, opts.email, opts.password, opts.name)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "admin created: id=%s email=%s\n", u.ID, u.Email)
	return nil
}
