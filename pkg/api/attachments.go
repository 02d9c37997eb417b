package api

import (
	"errors"
	"io"

	"alumnichat/pkg/attachments"
	"alumnichat/pkg/router"

	"github.com/valyala/fasthttp"
)

func (s *Server) ServeAttachment(ctx *fasthttp.RequestCtx) {
	if s.deps.Attachments == nil {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "not found", "not_found")
		return
	}
	rc, info, err := s.deps.Attachments.Open(ctx, router.Param(ctx, "name"))
	if errors.Is(err, attachments.ErrNotFound) {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "not found", "not_found")
		return
	}
	if err != nil {
		fail(ctx, "serve_attachment", err)
		return
	}
	defer rc.Close()

	ctx.Response.Header.Set("Content-Type", info.MimeType)
	ctx.Response.Header.Set("X-Content-Type-Options", "nosniff")
	ctx.Response.Header.Set("Cache-Control", "private, max-age=86400, immutable")
	if info.Name != "" {
		ctx.Response.Header.Set("Content-Disposition", "inline; filename=\""+info.Name+"\"")
	}
	if _, err := io.Copy(ctx, rc); err != nil {
		fail(ctx, "serve_attachment", err)
	}
}
