package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"alumnichat/pkg/models"
)

func connectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Manage connection requests",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "request <user>",
			Short: "Ask another user to connect",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newClient()
				if err != nil {
					return err
				}
				st, err := c.RequestConnection(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), st)
			},
		},
		&cobra.Command{
			Use:   "respond <initiator> <accept|reject>",
			Short: "Accept or reject a pending request",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, ok := models.ParseDecision(args[1])
				if !ok {
					return fmt.Errorf("decision must be accept or reject, got %q", args[1])
				}
				c, err := newClient()
				if err != nil {
					return err
				}
				st, err := c.Respond(cmd.Context(), args[0], d)
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), st)
			},
		},
		&cobra.Command{
			Use:   "status <user>",
			Short: "Show the connection state with a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newClient()
				if err != nil {
					return err
				}
				st, err := c.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), st)
			},
		},
		pendingCmd(),
		&cobra.Command{
			Use:   "list",
			Short: "List connected users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newClient()
				if err != nil {
					return err
				}
				peers, err := c.ConnectedPeers(cmd.Context())
				if err != nil {
					return err
				}
				return printOut(cmd.OutOrStdout(), map[string][]string{"connections": peers})
			},
		},
	)
	return cmd
}

func pendingCmd() *cobra.Command {
	var outgoing bool
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List requests waiting for your answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			list := c.Pending
			if outgoing {
				list = c.Outgoing
			}
			reqs, err := list(cmd.Context())
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), map[string][]models.ConnectionRequest{"requests": reqs})
		},
	}
	cmd.Flags().BoolVar(&outgoing, "outgoing", false, "list requests you sent instead")
	return cmd
}
