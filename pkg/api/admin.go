package api

import (
	"alumnichat/pkg/router"

	"github.com/valyala/fasthttp"
)

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) Healthz(ctx *fasthttp.RequestCtx) {
	_ = router.WriteJSON(ctx, healthResponse{Status: "ok"})
}

// Readyz fails once the store has been closed.
func (s *Server) Readyz(ctx *fasthttp.RequestCtx) {
	if !s.deps.DB.Ready() {
		_ = router.WriteJSONStatus(ctx, fasthttp.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	_ = router.WriteJSON(ctx, healthResponse{Status: "ready"})
}

func (s *Server) Stats(ctx *fasthttp.RequestCtx) {
	st, err := s.deps.DB.Stats()
	if err != nil {
		fail(ctx, "admin_stats", err)
		return
	}
	_ = router.WriteJSON(ctx, st)
}

// RunRetention runs one retention pass now.
func (s *Server) RunRetention(ctx *fasthttp.RequestCtx) {
	if s.deps.RunRetention == nil {
		router.WriteJSONError(ctx, fasthttp.StatusConflict, "retention is disabled", "retention_disabled")
		return
	}
	report, err := s.deps.RunRetention(ctx)
	if err != nil {
		fail(ctx, "admin_retention", err)
		return
	}
	_ = router.WriteJSON(ctx, report)
}
