package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pkurukuladithya/Block-Me-Messenger/internal/app"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/auth"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/config"
	"github.com/pkurukuladithya/Block-Me-Messenger/internal/log"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath string
	overrides  config.Config
}

func newRootCmd() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:          "server",
		Short:        "Multi-room chat relay",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.yaml (default ./config.yaml)")
	flags.StringVar(&opts.overrides.Log.Level, "log-level", "", "log level: debug, info, warn, error")

	root.Flags().StringVar(&opts.overrides.Addr, "addr", "", "HTTP listen address")
	root.Flags().DurationVar(&opts.overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	root.Flags().StringVar(&opts.overrides.Store.Driver, "store", "", "message store: mongo or sqlite")
	root.Flags().StringVar(&opts.overrides.Broadcast.Driver, "broadcast", "", "broadcast fabric: local, redis or nats")

	root.AddCommand(newTokenCmd(&opts))
	return root
}

func loadConfig(opts options) (config.Config, error) {
	bootstrap := log.New(opts.overrides.Log.Level, "console")

	cfg, path, err := config.Load(bootstrap, opts.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.UpdateFrom(opts.overrides)
	bootstrap.Debug().Str("path", path).Msg("config loaded")
	return cfg, nil
}

func runServer(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := log.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting chat relay")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newTokenCmd mints a token the relay accepts, for local testing.
func newTokenCmd(opts *options) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <username>",
		Short: "Print a signed JWT for username using the configured secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*opts)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set")
			}

			token, err := auth.GenerateToken(&auth.JWTConfig{
				Secret:   []byte(cfg.Auth.JWTSecret),
				Issuer:   cfg.Auth.JWTIssuer,
				Audience: cfg.Auth.JWTAudience,
				TTL:      ttl,
			}, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
