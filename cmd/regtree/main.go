package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"regtree/internal/app"
	"regtree/internal/config"
	"regtree/internal/logging"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "regtree:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfg        config.Config
		logger     *logrus.Logger
		logCloser  io.Closer
		configFile string
	)

	rootCmd := &cobra.Command{
		Use:           "regtree",
		Short:         "Browse large trees lazily in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx, cfg, logger)
		},
	}
	flags := config.BindFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/regtree/config.yaml)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var (
			loaded config.Config
			err    error
		)
		if configFile != "" {
			loaded, err = config.LoadConfigFrom(configFile)
		} else {
			loaded, err = config.LoadConfig()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = flags.Apply(loaded)
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, logCloser, err = logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel})
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"source": cfg.Source, "version": version}).Info("start")
		return nil
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load a YAML catalog into the SQLite catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Seed(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skips config loading.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "regtree", version)
		},
	})
	return rootCmd
}
