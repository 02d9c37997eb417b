package auth

import (
	"strings"

	"github.com/valyala/fasthttp"
)

const (
	HeaderAPIKey        = "X-API-Key"
	HeaderUserID        = "X-User-ID"
	HeaderUserSignature = "X-User-Signature"
	HeaderRoleName      = "X-Role-Name"
	HeaderRequestID     = "X-Request-ID"
)

// user value keys set on the request context
const (
	userValueUser = "auth_user"
)

func getHeader(ctx *fasthttp.RequestCtx, name string) string {
	return strings.TrimSpace(string(ctx.Request.Header.Peek(name)))
}

// ExtractAPIKey reads "Authorization: Bearer <key>" or X-API-Key.
func ExtractAPIKey(ctx *fasthttp.RequestCtx) string {
	if auth := getHeader(ctx, "Authorization"); auth != "" {
		parts := strings.Fields(auth)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return getHeader(ctx, HeaderAPIKey)
}

// RoleName returns the role the gateway assigned to the request.
func RoleName(ctx *fasthttp.RequestCtx) string {
	return strings.ToLower(getHeader(ctx, HeaderRoleName))
}

func hasPathPrefix(ctx *fasthttp.RequestCtx, prefix string) bool {
	return strings.HasPrefix(string(ctx.Path()), prefix)
}
