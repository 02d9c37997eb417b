package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"alumnichat/pkg/chatsync"
	"alumnichat/pkg/models"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <peer>",
		Short: "Follow a conversation live and send each typed line",
		Long: "Open a conversation and keep it, the unread badges and the connection list in sync.\n" +
			"Every line read from stdin is sent as a message. Commands:\n" +
			"  /open <peer>  switch to another conversation\n" +
			"  /up           stop following new messages (as if scrolled up)\n" +
			"  /bottom       follow new messages again\n" +
			"  /read         mark the conversation read\n" +
			"  /quit         exit",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			opts, err := cfg.syncOptions()
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			r := newTerminalRenderer(cmd.OutOrStdout())
			coord := chatsync.New(c, r, opts)
			coord.Start(ctx)
			defer coord.Stop()
			coord.Open(ctx, args[0])
			defer coord.Close()

			return readLoop(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(), coord, c)
		},
	}
}

// readLoop sends stdin lines to the open conversation and runs the slash
// commands until EOF, /quit or ctx ends.
func readLoop(ctx context.Context, in io.Reader, errw io.Writer, coord *chatsync.Coordinator, src chatsync.Source) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "/quit":
				return nil
			case "/read":
				vs, open := coord.ViewState()
				if !open {
					continue
				}
				if err := src.MarkRead(ctx, vs.Peer); err != nil {
					fmt.Fprintln(errw, "read failed:", err)
				}
				_ = coord.RefreshBadges(ctx)
				continue
			case "/up":
				coord.OnScroll(math.Inf(1))
				continue
			case "/bottom":
				coord.OnScroll(0)
				_ = coord.RefreshConversation(ctx)
				continue
			}
			if f := strings.Fields(line); f[0] == "/open" {
				if len(f) != 2 {
					fmt.Fprintln(errw, "usage: /open <peer>")
					continue
				}
				coord.Open(ctx, f[1])
				continue
			}
			if _, err := coord.Send(ctx, models.Payload{Body: line}); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				fmt.Fprintln(errw, "send failed:", err)
			}
		}
	}
}

// terminalRenderer prints a line-oriented view: new messages as they
// arrive, reaction changes on earlier ones, and badge or peer list changes.
type terminalRenderer struct {
	w         io.Writer
	peer      string
	lastID    uint64
	reactions map[uint64]string
	badges    string
	peers     string
}

func newTerminalRenderer(w io.Writer) *terminalRenderer {
	return &terminalRenderer{w: w, reactions: map[uint64]string{}}
}

func groupsLine(groups []models.ReactionGroup) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		parts = append(parts, fmt.Sprintf("%s %d", g.Emoji, g.Count))
	}
	return strings.Join(parts, ", ")
}

func (r *terminalRenderer) RenderConversation(peer string, msgs []models.MessageView, scrollToBottom bool) {
	if peer != r.peer {
		r.peer = peer
		r.lastID = 0
		r.reactions = map[uint64]string{}
		fmt.Fprintf(r.w, "== conversation with %s ==\n", peer)
	}
	if len(msgs) == 0 && r.lastID > 0 {
		fmt.Fprintln(r.w, "-- conversation cleared --")
		r.lastID = 0
		r.reactions = map[uint64]string{}
		return
	}
	fresh := 0
	for _, m := range msgs {
		line := groupsLine(m.Groups)
		if m.ID > r.lastID {
			fmt.Fprintln(r.w, formatMessage(m))
			r.lastID = m.ID
			r.reactions[m.ID] = line
			fresh++
			continue
		}
		if prev := r.reactions[m.ID]; prev != line {
			r.reactions[m.ID] = line
			if line == "" {
				line = "none"
			}
			fmt.Fprintf(r.w, "   #%d reactions: %s\n", m.ID, line)
		}
	}
	if fresh > 0 && !scrollToBottom {
		fmt.Fprintf(r.w, "-- %d new --\n", fresh)
	}
}

func (r *terminalRenderer) RenderBadges(counts map[string]int64) {
	senders := make([]string, 0, len(counts))
	for s, n := range counts {
		if n > 0 {
			senders = append(senders, s)
		}
	}
	sort.Strings(senders)
	parts := make([]string, 0, len(senders))
	for _, s := range senders {
		parts = append(parts, fmt.Sprintf("%s(%d)", s, counts[s]))
	}
	line := strings.Join(parts, " ")
	if line == r.badges {
		return
	}
	r.badges = line
	if line == "" {
		line = "none"
	}
	fmt.Fprintf(r.w, "** unread: %s\n", line)
}

func (r *terminalRenderer) RenderPeers(peers []string) {
	line := strings.Join(peers, ", ")
	if line == r.peers {
		return
	}
	r.peers = line
	fmt.Fprintf(r.w, "** connections: %s\n", line)
}
