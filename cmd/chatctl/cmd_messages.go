package main

import (
	"bufio"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"alumnichat/pkg/models"
)

func messageCmds() []*cobra.Command {
	return []*cobra.Command{
		sendCmd(),
		sendFileCmd(),
		historyCmd(),
		reactCmd(),
		unreactCmd(),
		unreadCmd(),
		readCmd(),
		deleteCmd(),
	}
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <text...>",
		Short: "Send a text message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			msg, err := c.Send(cmd.Context(), args[0], models.Payload{Body: strings.Join(args[1:], " ")})
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), msg)
		},
	}
}

func sendFileCmd() *cobra.Command {
	var mimeType string
	cmd := &cobra.Command{
		Use:   "send-file <peer> <path>",
		Short: "Upload a file and send it as a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(args[1]))
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			msg, err := c.SendFile(cmd.Context(), args[0], filepath.Base(args[1]), mimeType, f)
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), msg)
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime", "", "content type (guessed from the extension by default)")
	return cmd
}

func historyCmd() *cobra.Command {
	var (
		limit  int
		cursor string
		all    bool
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "history <peer>",
		Short: "Show a conversation, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			var page models.HistoryPage
			if all {
				msgs, err := c.FullHistory(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				page.Messages = msgs
			} else {
				page, err = c.History(cmd.Context(), args[0], cursor, limit)
				if err != nil {
					return err
				}
			}
			if raw {
				return printOut(cmd.OutOrStdout(), page)
			}
			w := cmd.OutOrStdout()
			for _, m := range page.Messages {
				fmt.Fprintln(w, formatMessage(m))
			}
			if page.HasMore {
				fmt.Fprintf(w, "-- more: --cursor %s\n", page.NextCursor)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (server default when 0)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "continue from a previous page")
	cmd.Flags().BoolVar(&all, "all", false, "follow cursors until the whole conversation is loaded")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the page in the output format instead of lines")
	return cmd
}

func parseMessageID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid message id %q", s)
	}
	return id, nil
}

func reactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "react <message-id> <emoji>",
		Short: "React to a message, replacing any earlier reaction of yours",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMessageID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			groups, err := c.React(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), map[string]any{"message_id": id, "groups": groups})
		},
	}
}

func unreactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unreact <message-id>",
		Short: "Remove your reaction from a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMessageID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			groups, err := c.Unreact(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), map[string]any{"message_id": id, "groups": groups})
		},
	}
}

func unreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unread",
		Short: "Show unread counts per sender",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			sum, err := c.UnreadCounts(cmd.Context())
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), sum)
		},
	}
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <peer>",
		Short: "Mark a conversation as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.MarkRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked conversation with %s as read\n", args[0])
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <peer>",
		Short: "Delete a conversation for both participants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr(),
				fmt.Sprintf("Delete the whole conversation with %s for both of you?", args[0])) {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			n, err := c.DeleteConversation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), map[string]int{"deleted": n})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
