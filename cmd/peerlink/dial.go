package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rickgao/peerlink/internal/connection"
	"github.com/rickgao/peerlink/internal/session"
)

func newDialCmd() *cobra.Command {
	cfg := connection.DefaultClientConfig()
	var autoReady bool

	cmd := &cobra.Command{
		Use:   "dial",
		Short: "Connect to the broker and print pairing events",
		Long: `dial opens one pairing connection for a task and prints every event it
receives. On pair it answers with ready unless --ready=false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDial(ctx, cfg, autoReady, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cfg.URL, "url", "ws://localhost:8080/ws", "websocket endpoint")
	cmd.Flags().StringVar(&cfg.Task, "task", "", "task id to pair on")
	cmd.Flags().StringVar(&cfg.Token, "token", "", "bearer token")
	cmd.Flags().BoolVar(&autoReady, "ready", true, "send ready when paired")
	cmd.MarkFlagRequired("task")
	return cmd
}

func runDial(ctx context.Context, cfg connection.ClientConfig, autoReady bool, out io.Writer) error {
	client := connection.NewClient(cfg, slog.Default())
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-client.Errors():
			return err
		case ev, ok := <-client.Events():
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", ev.Event, ev.Data)

			if ev.Event == session.EventPair && autoReady {
				if err := connection.Ready(client); err != nil {
					return err
				}
			}
		}
	}
}
