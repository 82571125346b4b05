package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/wfunc/trivia/rpc"
)

// newAdminCmd queries a running server over its gRPC admin endpoint.
func newAdminCmd() *cobra.Command {
	var (
		target  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Inspect a running trivia server.",
	}
	cmd.PersistentFlags().StringVar(&target, "target", "127.0.0.1:7778", "address of the admin endpoint")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "deadline for each request")

	// call dials target and prints whatever fn returns as JSON.
	call := func(cmd *cobra.Command, fn func(ctx context.Context, c *rpc.Client) (any, error)) error {
		client, err := rpc.Dial(target)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		out, err := fn(ctx, client)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rooms",
		Short: "List live rooms.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd, func(ctx context.Context, c *rpc.Client) (any, error) {
				return c.ListRooms(ctx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show player and room counts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd, func(ctx context.Context, c *rpc.Client) (any, error) {
				return c.Stats(ctx)
			})
		},
	})

	var limit int
	games := &cobra.Command{
		Use:   "games",
		Short: "Show recently finished games from the archive.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd, func(ctx context.Context, c *rpc.Client) (any, error) {
				return c.RecentGames(ctx, limit)
			})
		},
	}
	games.Flags().IntVarP(&limit, "limit", "n", 10, "number of games to show")
	cmd.AddCommand(games)

	return cmd
}
