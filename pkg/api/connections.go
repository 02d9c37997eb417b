package api

import (
	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/models"
	"alumnichat/pkg/router"

	"github.com/valyala/fasthttp"
)

type connectionRequestBody struct {
	From string `json:"from,omitempty"`
	To   string `json:"to" validate:"required"`
}

type respondBody struct {
	Responder string `json:"responder,omitempty"`
	Initiator string `json:"initiator" validate:"required"`
	Decision  string `json:"decision" validate:"required"`
}

type requestsResponse struct {
	Requests []models.ConnectionRequest `json:"requests"`
}

type connectionsResponse struct {
	Connections []string `json:"connections"`
}

func (s *Server) RequestConnection(ctx *fasthttp.RequestCtx) {
	var body connectionRequestBody
	if !decodeBody(ctx, &body) {
		return
	}
	user, ok := caller(ctx, body.From)
	if !ok {
		return
	}
	st, err := s.deps.Connections.Request(user, body.To)
	if err != nil {
		fail(ctx, "connection_request", err)
		return
	}
	_ = router.WriteJSON(ctx, st)
}

func (s *Server) RespondConnection(ctx *fasthttp.RequestCtx) {
	var body respondBody
	if !decodeBody(ctx, &body) {
		return
	}
	user, ok := caller(ctx, body.Responder)
	if !ok {
		return
	}
	d, valid := models.ParseDecision(body.Decision)
	if !valid {
		router.WriteError(ctx, chaterr.ErrInvalidDecision)
		return
	}
	st, err := s.deps.Connections.Respond(user, body.Initiator, d)
	if err != nil {
		fail(ctx, "connection_respond", err)
		return
	}
	_ = router.WriteJSON(ctx, st)
}

// ConnectionStatus reports the relationship between the caller and ?user=.
func (s *Server) ConnectionStatus(ctx *fasthttp.RequestCtx) {
	user, ok := caller(ctx, "")
	if !ok {
		return
	}
	st, err := s.deps.Connections.StatusOf(user, queryArg(ctx, "user"))
	if err != nil {
		fail(ctx, "connection_status", err)
		return
	}
	_ = router.WriteJSON(ctx, st)
}

func (s *Server) PendingConnections(ctx *fasthttp.RequestCtx) {
	user, ok := caller(ctx, "")
	if !ok {
		return
	}
	reqs, err := s.deps.Connections.Pending(user)
	if err != nil {
		fail(ctx, "connection_pending", err)
		return
	}
	_ = router.WriteJSON(ctx, requestsResponse{Requests: nonNil(reqs)})
}

func (s *Server) OutgoingConnections(ctx *fasthttp.RequestCtx) {
	user, ok := caller(ctx, "")
	if !ok {
		return
	}
	reqs, err := s.deps.Connections.Outgoing(user)
	if err != nil {
		fail(ctx, "connection_outgoing", err)
		return
	}
	_ = router.WriteJSON(ctx, requestsResponse{Requests: nonNil(reqs)})
}

func (s *Server) ListConnections(ctx *fasthttp.RequestCtx) {
	user, ok := caller(ctx, "")
	if !ok {
		return
	}
	peers, err := s.deps.Connections.Connections(user)
	if err != nil {
		fail(ctx, "connection_list", err)
		return
	}
	_ = router.WriteJSON(ctx, connectionsResponse{Connections: nonNil(peers)})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
