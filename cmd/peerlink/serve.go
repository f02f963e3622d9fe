package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rickgao/peerlink/internal/app"
	"github.com/rickgao/peerlink/internal/config"
	"github.com/rickgao/peerlink/internal/version"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/peerlink.local.yaml", "path to config file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return err
	}

	logger, err := app.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}

	logger.Info("starting peerlink",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
	)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}

	if err := a.Run(ctx); err != nil {
		logger.Error("broker exited", "error", err)
		return err
	}
	return nil
}
