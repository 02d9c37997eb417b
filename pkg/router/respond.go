package router

import (
	"encoding/json"

	"alumnichat/pkg/chaterr"

	"github.com/valyala/fasthttp"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// WriteJSON writes data as a JSON response with status 200.
func WriteJSON(ctx *fasthttp.RequestCtx, data any) error {
	ctx.Response.Header.Set("Content-Type", "application/json")
	return json.NewEncoder(ctx).Encode(data)
}

// WriteJSONStatus writes data as a JSON response with the given status.
func WriteJSONStatus(ctx *fasthttp.RequestCtx, status int, data any) error {
	ctx.SetStatusCode(status)
	return WriteJSON(ctx, data)
}

// WriteJSONError writes a JSON error response.
func WriteJSONError(ctx *fasthttp.RequestCtx, status int, message, kind string) {
	ctx.SetStatusCode(status)
	ctx.Response.Header.Set("Content-Type", "application/json")
	_ = json.NewEncoder(ctx).Encode(ErrorBody{Error: message, Kind: kind})
}

// WriteError maps err to its status and kind. Errors that are not domain
// errors are reported as internal without leaking their text.
func WriteError(ctx *fasthttp.RequestCtx, err error) {
	if e, ok := chaterr.As(err); ok {
		WriteJSONError(ctx, e.Code, err.Error(), e.Kind)
		return
	}
	WriteJSONError(ctx, fasthttp.StatusInternalServerError, "internal error", "internal")
}
