package api

import (
	"strings"

	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"
	"alumnichat/pkg/router"

	"github.com/valyala/fasthttp"
)

type sendBody struct {
	Sender     string             `json:"sender,omitempty"`
	Receiver   string             `json:"receiver" validate:"required"`
	Body       string             `json:"body,omitempty"`
	Attachment *models.Attachment `json:"attachment,omitempty"`
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

func (s *Server) SendMessage(ctx *fasthttp.RequestCtx) {
	var body sendBody
	if !decodeBody(ctx, &body) {
		return
	}
	user, ok := caller(ctx, body.Sender)
	if !ok {
		return
	}
	msg, err := s.deps.Messages.Append(user, body.Receiver, models.Payload{Body: body.Body, Attachment: body.Attachment})
	if err != nil {
		fail(ctx, "send_message", err)
		return
	}
	_ = router.WriteJSONStatus(ctx, fasthttp.StatusCreated, msg)
}

// SendFile stores the multipart "file" field and appends it as an attachment
// message to "receiver".
func (s *Server) SendFile(ctx *fasthttp.RequestCtx) {
	user, ok := caller(ctx, string(ctx.FormValue("sender")))
	if !ok {
		return
	}
	if s.deps.Attachments == nil {
		router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "attachments are not configured", "unavailable")
		return
	}
	receiver := strings.TrimSpace(string(ctx.FormValue("receiver")))
	if user == receiver {
		router.WriteError(ctx, chaterr.ErrInvalidTarget)
		return
	}
	// nothing is stored for a conversation that could not accept it
	if err := s.deps.Connections.RequireConnected(user, receiver); err != nil {
		fail(ctx, "send_file", err)
		return
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "multipart field \"file\" is required", chaterr.ErrBadRequest.Kind)
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(ctx, "send_file", err)
		return
	}
	defer f.Close()

	att, err := s.deps.Attachments.Put(ctx, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		fail(ctx, "send_file", err)
		return
	}
	msg, err := s.deps.Messages.Append(user, receiver, models.Payload{Attachment: &att})
	if err != nil {
		logger.Warn("attachment_orphaned", "url", att.URL, "error", err)
		fail(ctx, "send_file", err)
		return
	}
	_ = router.WriteJSONStatus(ctx, fasthttp.StatusCreated, msg)
}

func (s *Server) ReadHistory(ctx *fasthttp.RequestCtx) {
	user, ok := caller(ctx, queryArg(ctx, "user"))
	if !ok {
		return
	}
	limit, ok := s.historyLimit(ctx)
	if !ok {
		return
	}
	page, err := s.deps.Messages.History(user, router.Param(ctx, "peer"), queryArg(ctx, "cursor"), limit)
	if err != nil {
		fail(ctx, "read_history", err)
		return
	}
	if page.Messages == nil {
		page.Messages = []models.MessageView{}
	}
	_ = router.WriteJSON(ctx, page)
}

func (s *Server) DeleteConversation(ctx *fasthttp.RequestCtx) {
	user, ok := caller(ctx, queryArg(ctx, "user"))
	if !ok {
		return
	}
	n, err := s.deps.Messages.DeleteConversation(user, router.Param(ctx, "peer"))
	if err != nil {
		fail(ctx, "delete_conversation", err)
		return
	}
	_ = router.WriteJSON(ctx, deleteResponse{Deleted: n})
}

func (s *Server) MarkRead(ctx *fasthttp.RequestCtx) {
	user, ok := caller(ctx, queryArg(ctx, "user"))
	if !ok {
		return
	}
	c, err := s.deps.Unread.MarkRead(user, router.Param(ctx, "peer"))
	if err != nil {
		fail(ctx, "mark_read", err)
		return
	}
	_ = router.WriteJSON(ctx, c)
}
