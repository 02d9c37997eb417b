package api

import (
	"encoding/json"
	"strconv"
	"strings"

	"alumnichat/pkg/auth"
	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"
	"alumnichat/pkg/router"

	"github.com/valyala/fasthttp"
)

// caller resolves the identity of the request. claimed is a username the
// body or query says the caller is. On failure the response is written.
func caller(ctx *fasthttp.RequestCtx, claimed string) (string, bool) {
	user, ierr := auth.ResolveUser(ctx, strings.TrimSpace(claimed))
	if ierr != nil {
		auth.WriteIdentityError(ctx, ierr)
		return "", false
	}
	return user, true
}

// decodeBody unmarshals and validates a JSON request body.
func decodeBody(ctx *fasthttp.RequestCtx, v any) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		router.WriteError(ctx, chaterr.ErrBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		router.WriteJSONError(ctx, chaterr.ErrBadRequest.Code, "invalid json: "+err.Error(), chaterr.ErrBadRequest.Kind)
		return false
	}
	if err := models.ValidateStruct(v); err != nil {
		router.WriteJSONError(ctx, chaterr.ErrBadRequest.Code, err.Error(), chaterr.ErrBadRequest.Kind)
		return false
	}
	return true
}

// fail writes err, logging it when it is not a domain error.
func fail(ctx *fasthttp.RequestCtx, op string, err error) {
	if _, ok := chaterr.As(err); !ok {
		logger.Error(op+"_failed", "error", err, "path", string(ctx.Path()), "request_id", ctx.UserValue(requestIDKey))
	}
	router.WriteError(ctx, err)
}

func queryArg(ctx *fasthttp.RequestCtx, name string) string {
	return strings.TrimSpace(string(ctx.QueryArgs().Peek(name)))
}

func (s *Server) historyLimit(ctx *fasthttp.RequestCtx) (int, bool) {
	raw := queryArg(ctx, "limit")
	if raw == "" {
		return s.deps.HistoryLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "limit must be a positive integer", chaterr.ErrBadRequest.Kind)
		return 0, false
	}
	return n, true
}

func messageID(ctx *fasthttp.RequestCtx) (uint64, bool) {
	id, err := strconv.ParseUint(router.Param(ctx, "id"), 10, 64)
	if err != nil || id == 0 {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "invalid message id", chaterr.ErrBadRequest.Kind)
		return 0, false
	}
	return id, true
}
