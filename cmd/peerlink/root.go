package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/peerlink/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "peerlink",
		Short: "Real-time peer pairing broker",
		Long: `peerlink pairs websocket connections waiting on the same task and relays
events between the two peers of each pair.

Run "peerlink serve" to start the broker. The user, task and dial commands
talk to a running broker.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newVersionCmd(),
		newUserCmd(),
		newTaskCmd(),
		newDialCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "peerlink", version.String())
		},
	}
}
