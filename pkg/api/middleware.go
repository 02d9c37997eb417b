package api

import (
	"runtime/debug"

	"alumnichat/pkg/auth"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/router"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

const requestIDKey = "request_id"

// requestID echoes the caller's X-Request-ID or assigns a new one.
func requestID(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := string(ctx.Request.Header.Peek(auth.HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		ctx.SetUserValue(requestIDKey, id)
		ctx.Response.Header.Set(auth.HeaderRequestID, id)
		next(ctx)
	}
}

func recoverPanic(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("handler_panic", "panic", rec, "path", string(ctx.Path()), "request_id", ctx.UserValue(requestIDKey), "stack", string(debug.Stack()))
				ctx.ResetBody()
				router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "internal error", "internal")
			}
		}()
		next(ctx)
	}
}
