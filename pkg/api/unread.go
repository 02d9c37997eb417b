package api

import (
	"alumnichat/pkg/router"

	"github.com/valyala/fasthttp"
)

// ReadUnread returns the caller's per-sender badge counts and their total.
func (s *Server) ReadUnread(ctx *fasthttp.RequestCtx) {
	user, ok := caller(ctx, queryArg(ctx, "user"))
	if !ok {
		return
	}
	sum, err := s.deps.Unread.Summary(user)
	if err != nil {
		fail(ctx, "read_unread", err)
		return
	}
	_ = router.WriteJSON(ctx, sum)
}
