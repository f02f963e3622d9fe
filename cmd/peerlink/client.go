package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rickgao/peerlink/internal/api"
)

// clientOptions are the flags shared by REST commands.
type clientOptions struct {
	server  string
	token   string
	timeout time.Duration
	json    bool
}

func (o *clientOptions) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.server, "server", envOr("PEERLINK_SERVER", "http://localhost:8080/api"), "broker API base URL")
	fs.StringVar(&o.token, "token", os.Getenv("PEERLINK_TOKEN"), "bearer token")
	fs.DurationVar(&o.timeout, "timeout", 10*time.Second, "request timeout")
	fs.BoolVar(&o.json, "json", false, "print raw JSON")
}

func (o *clientOptions) client() *api.Client {
	return api.NewClient(o.server,
		api.WithToken(o.token),
		api.WithTimeout(o.timeout),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newUserCmd() *cobra.Command {
	opts := &clientOptions{}
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	opts.register(cmd.PersistentFlags())

	var avatar string
	create := &cobra.Command{
		Use:   "create <username> <password>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := opts.client().Register(cmd.Context(), api.Credentials{
				Username: args[0],
				Password: args[1],
				Avatar:   avatar,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	create.Flags().StringVar(&avatar, "avatar", "", "avatar URL")

	login := &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Print an access token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := opts.client().Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	leaderboard := &cobra.Command{
		Use:   "leaderboard",
		Short: "List users by points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := opts.client().Leaderboard(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), board)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tUSER\tPOINTS")
			for i, s := range board {
				fmt.Fprintf(w, "%d\t%s\t%d\n", i+1, s.Username, s.Points)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(create, login, leaderboard)
	return cmd
}

func newTaskCmd() *cobra.Command {
	opts := &clientOptions{}
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	opts.register(cmd.PersistentFlags())

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := opts.client().Tasks(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), tasks)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UUID\tTITLE\tRESULTS")
			for _, t := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%d\n", t.UUID, t.Title, len(t.Results))
			}
			return w.Flush()
		},
	}

	var description string
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := opts.client().CreateTask(cmd.Context(), api.NewTask{
				Title:       args[0],
				Description: description,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), t)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.UUID)
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "", "task description")

	cmd.AddCommand(list, create)
	return cmd
}
