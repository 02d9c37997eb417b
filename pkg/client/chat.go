package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strconv"

	"alumnichat/pkg/models"
	"alumnichat/pkg/store"

	"github.com/valyala/fasthttp"
)

func (c *Client) RequestConnection(ctx context.Context, to string) (models.ConnectionStatus, error) {
	var st models.ConnectionStatus
	err := c.sendJSON(ctx, fasthttp.MethodPost, "/v1/connections/requests", map[string]string{"to": to}, &st)
	return st, err
}

func (c *Client) Respond(ctx context.Context, initiator string, d models.Decision) (models.ConnectionStatus, error) {
	var st models.ConnectionStatus
	body := map[string]string{"initiator": initiator, "decision": string(d)}
	err := c.sendJSON(ctx, fasthttp.MethodPost, "/v1/connections/respond", body, &st)
	return st, err
}

func (c *Client) Status(ctx context.Context, user string) (models.ConnectionStatus, error) {
	var st models.ConnectionStatus
	err := c.getJSON(ctx, "/v1/connections/status?user="+url.QueryEscape(user), &st)
	return st, err
}

func (c *Client) Pending(ctx context.Context) ([]models.ConnectionRequest, error) {
	var out struct {
		Requests []models.ConnectionRequest `json:"requests"`
	}
	err := c.getJSON(ctx, "/v1/connections/pending", &out)
	return out.Requests, err
}

func (c *Client) Outgoing(ctx context.Context) ([]models.ConnectionRequest, error) {
	var out struct {
		Requests []models.ConnectionRequest `json:"requests"`
	}
	err := c.getJSON(ctx, "/v1/connections/outgoing", &out)
	return out.Requests, err
}

// ConnectedPeers lists the users the caller is connected to, sorted.
func (c *Client) ConnectedPeers(ctx context.Context) ([]string, error) {
	var out struct {
		Connections []string `json:"connections"`
	}
	err := c.getJSON(ctx, "/v1/connections", &out)
	return out.Connections, err
}

// Send appends a text or attachment-reference message to peer.
func (c *Client) Send(ctx context.Context, peer string, p models.Payload) (models.Message, error) {
	var msg models.Message
	body := struct {
		Receiver   string             `json:"receiver"`
		Body       string             `json:"body,omitempty"`
		Attachment *models.Attachment `json:"attachment,omitempty"`
	}{peer, p.Body, p.Attachment}
	err := c.sendJSON(ctx, fasthttp.MethodPost, "/v1/messages", body, &msg)
	return msg, err
}

// SendFile uploads r as an attachment message to peer.
func (c *Client) SendFile(ctx context.Context, peer, name, mimeType string, r io.Reader) (models.Message, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("receiver", peer); err != nil {
		return models.Message{}, err
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return models.Message{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return models.Message{}, err
	}
	if err := mw.Close(); err != nil {
		return models.Message{}, err
	}

	req := c.newRequest(fasthttp.MethodPost, "/v1/messages/file")
	req.Header.SetContentType(mw.FormDataContentType())
	req.SetBody(buf.Bytes())
	var msg models.Message
	err = c.do(ctx, req, &msg)
	return msg, err
}

// History fetches one page of the conversation with peer. An empty cursor
// starts at the oldest message; limit <= 0 uses the server default.
func (c *Client) History(ctx context.Context, peer, cursor string, limit int) (models.HistoryPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/conversations/" + url.PathEscape(peer) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page models.HistoryPage
	err := c.getJSON(ctx, path, &page)
	return page, err
}

// FullHistory pages through the whole conversation.
func (c *Client) FullHistory(ctx context.Context, peer string, pageSize int) ([]models.MessageView, error) {
	var all []models.MessageView
	cursor := ""
	for {
		page, err := c.History(ctx, peer, cursor, pageSize)
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

func (c *Client) DeleteConversation(ctx context.Context, peer string) (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	err := c.sendJSON(ctx, fasthttp.MethodDelete, "/v1/conversations/"+url.PathEscape(peer), nil, &out)
	return out.Deleted, err
}

func (c *Client) MarkRead(ctx context.Context, peer string) error {
	return c.sendJSON(ctx, fasthttp.MethodPut, "/v1/conversations/"+url.PathEscape(peer)+"/read", nil, nil)
}

func reactionsPath(id uint64) string {
	return "/v1/messages/" + strconv.FormatUint(id, 10) + "/reactions"
}

type groupsResponse struct {
	Groups []models.ReactionGroup `json:"groups"`
}

func (c *Client) React(ctx context.Context, id uint64, emoji string) ([]models.ReactionGroup, error) {
	var out groupsResponse
	err := c.sendJSON(ctx, fasthttp.MethodPost, reactionsPath(id), map[string]string{"emoji": emoji}, &out)
	return out.Groups, err
}

func (c *Client) Unreact(ctx context.Context, id uint64) ([]models.ReactionGroup, error) {
	var out groupsResponse
	err := c.sendJSON(ctx, fasthttp.MethodDelete, reactionsPath(id), nil, &out)
	return out.Groups, err
}

func (c *Client) Reactions(ctx context.Context, id uint64) ([]models.ReactionGroup, error) {
	var out groupsResponse
	err := c.getJSON(ctx, reactionsPath(id), &out)
	return out.Groups, err
}

func (c *Client) Palette(ctx context.Context) ([]string, error) {
	var out struct {
		Palette []string `json:"palette"`
	}
	err := c.getJSON(ctx, "/v1/reactions/palette", &out)
	return out.Palette, err
}

// UnreadCounts returns the caller's badge counts per sender.
func (c *Client) UnreadCounts(ctx context.Context) (models.UnreadSummary, error) {
	var sum models.UnreadSummary
	err := c.getJSON(ctx, "/v1/unread", &sum)
	if sum.Counts == nil {
		sum.Counts = map[string]int64{}
	}
	return sum, err
}

// Stats needs an admin API key.
func (c *Client) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	err := c.getJSON(ctx, "/admin/stats", &st)
	return st, err
}
