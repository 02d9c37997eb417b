// Package chatsync keeps a client's rendered chat state in step with the
// server by polling: the open conversation, unread badges and the peer list.
package chatsync

import (
	"context"

	"alumnichat/pkg/models"
)

// Source is the server as seen by one signed-in user.
type Source interface {
	History(ctx context.Context, peer, cursor string, limit int) (models.HistoryPage, error)
	UnreadCounts(ctx context.Context) (models.UnreadSummary, error)
	MarkRead(ctx context.Context, peer string) error
	ConnectedPeers(ctx context.Context) ([]string, error)
	Send(ctx context.Context, peer string, p models.Payload) (models.Message, error)
}

// Renderer draws state. Calls are serialized and made while the coordinator
// holds its lock, so a Renderer must not call back into the Coordinator.
type Renderer interface {
	RenderConversation(peer string, msgs []models.MessageView, scrollToBottom bool)
	RenderBadges(counts map[string]int64)
	RenderPeers(peers []string)
}
