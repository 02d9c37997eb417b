package chatsync

import (
	"context"

	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"
	"alumnichat/pkg/telemetry"

	"golang.org/x/sync/errgroup"
)

func record(kind, result string) {
	telemetry.SyncRefreshes.WithLabelValues(kind, result).Inc()
}

// RefreshConversation re-fetches the open conversation and the badges. Only
// one refresh runs at a time; calls made meanwhile coalesce into a single
// follow-up run. Without an open view it does nothing.
func (c *Coordinator) RefreshConversation(ctx context.Context) error {
	c.mu.Lock()
	v := c.view
	c.mu.Unlock()
	if v == nil {
		return nil
	}
	return c.refreshView(ctx, v)
}

// refreshView refreshes v if it is still the open view.
func (c *Coordinator) refreshView(ctx context.Context, v *view) error {
	c.mu.Lock()
	if c.view != v {
		c.mu.Unlock()
		return nil
	}
	if v.running {
		v.pending = true
		c.mu.Unlock()
		record("conversation", "coalesced")
		return nil
	}
	v.running = true
	c.mu.Unlock()

	for {
		err := c.refreshConversationOnce(ctx, v)
		c.mu.Lock()
		if !v.pending || c.view != v || ctx.Err() != nil {
			v.running = false
			v.pending = false
			c.mu.Unlock()
			return err
		}
		v.pending = false
		c.mu.Unlock()
	}
}

func (c *Coordinator) refreshConversationOnce(ctx context.Context, v *view) error {
	issued := c.opts.Now()

	var (
		msgs []models.MessageView
		sum  models.UnreadSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		msgs, err = c.fetchHistory(gctx, v.peer)
		return err
	})
	g.Go(func() error {
		var err error
		sum, err = c.src.UnreadCounts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		// keep whatever is on screen; the next tick retries
		logger.Debug("sync_refresh_failed", "kind", "conversation", "peer", v.peer, "error", err)
		record("conversation", "failed")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view != v || issued.Before(v.appliedAt) {
		record("conversation", "discarded")
		return nil
	}
	v.appliedAt = issued
	scroll := v.autoScroll && len(msgs) > v.rendered
	v.rendered = len(msgs)
	c.r.RenderConversation(v.peer, msgs, scroll)
	if !issued.Before(c.badgesApplied) {
		c.badgesApplied = issued
		c.r.RenderBadges(sum.Counts)
	}
	record("conversation", "ok")
	return nil
}

func (c *Coordinator) fetchHistory(ctx context.Context, peer string) ([]models.MessageView, error) {
	var all []models.MessageView
	cursor := ""
	for {
		page, err := c.src.History(ctx, peer, cursor, historyPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Messages...)
		if !page.HasMore || page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// RefreshBadges re-fetches the unread counts. It never touches scroll state.
func (c *Coordinator) RefreshBadges(ctx context.Context) error {
	issued := c.opts.Now()
	sum, err := c.src.UnreadCounts(ctx)
	if err != nil {
		logger.Debug("sync_refresh_failed", "kind", "badges", "error", err)
		record("badges", "failed")
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if issued.Before(c.badgesApplied) {
		record("badges", "discarded")
		return nil
	}
	c.badgesApplied = issued
	c.r.RenderBadges(sum.Counts)
	record("badges", "ok")
	return nil
}

// RefreshPeers re-fetches the connected peer list.
func (c *Coordinator) RefreshPeers(ctx context.Context) error {
	issued := c.opts.Now()
	peers, err := c.src.ConnectedPeers(ctx)
	if err != nil {
		logger.Debug("sync_refresh_failed", "kind", "peers", "error", err)
		record("peers", "failed")
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if issued.Before(c.peersApplied) {
		record("peers", "discarded")
		return nil
	}
	c.peersApplied = issued
	c.r.RenderPeers(peers)
	record("peers", "ok")
	return nil
}
