package auth

import (
	"net"
	"strings"

	"alumnichat/pkg/logger"
	"alumnichat/pkg/router"
	"alumnichat/pkg/telemetry"

	"github.com/valyala/fasthttp"
)

// AuthenticateRequestMiddleware applies CORS, the IP whitelist, API key
// roles and per-key rate limiting before the request reaches the router.
func AuthenticateRequestMiddleware(cfg SecConfig) router.Middleware {
	limiters := newLimiterPool(cfg.RPS, cfg.Burst)
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			logger.LogRequestFast(ctx)

			origin := string(ctx.Request.Header.Peek("Origin"))
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
				ctx.Response.Header.Set("Vary", "Origin")
				ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				ctx.Response.Header.Set("Access-Control-Max-Age", "600")
				ctx.Response.Header.Set("Access-Control-Allow-Headers", "Authorization,Content-Type,X-API-Key,X-User-ID,X-User-Signature")
				ctx.Response.Header.Set("Access-Control-Expose-Headers", "X-Role-Name,X-Request-ID")
			}
			if ctx.IsOptions() {
				ctx.SetStatusCode(fasthttp.StatusNoContent)
				return
			}

			if len(cfg.IPWhitelist) > 0 {
				ip := clientIP(ctx)
				if !ipWhitelisted(ip, cfg.IPWhitelist) {
					router.WriteJSONError(ctx, fasthttp.StatusForbidden, "forbidden", "forbidden")
					logger.Warn("request_blocked", "reason", "ip_not_whitelisted", "ip", ip, "path", string(ctx.Path()))
					return
				}
			}

			tr := telemetry.Track("auth.authenticate")
			role, key, hasAPIKey := authenticate(ctx, cfg)
			tr.Finish()
			logger.Debug("auth_check", "role", role.String(), "has_api_key", hasAPIKey)

			// the role header is never trusted from the client
			ctx.Request.Header.Set(HeaderRoleName, role.String())

			if isPublic(ctx) {
				ctx.Request.Header.Set(HeaderRoleName, RoleUnauth.String())
				next(ctx)
				return
			}

			if role == RoleUnauth || !hasAPIKey {
				router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "unauthorized", "unauthorized")
				logger.Warn("request_unauthorized", "path", string(ctx.Path()), "remote", ctx.RemoteAddr().String())
				return
			}

			if !roleAllowed(role, ctx) {
				router.WriteJSONError(ctx, fasthttp.StatusForbidden, "forbidden", "forbidden")
				logger.Warn("request_forbidden", "reason", role.String()+"_not_allowed", "path", string(ctx.Path()))
				return
			}

			if !limiters.Allow(key) {
				router.WriteJSONError(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded", "rate_limited")
				logger.Warn("rate_limited", "role", role.String(), "path", string(ctx.Path()))
				return
			}

			logger.Debug("request_allowed", "method", string(ctx.Method()), "path", string(ctx.Path()), "role", role.String())
			next(ctx)
		}
	}
}

func isPublic(ctx *fasthttp.RequestCtx) bool {
	if !ctx.IsGet() && !ctx.IsHead() {
		return false
	}
	switch string(ctx.Path()) {
	case "/healthz", "/readyz":
		return true
	}
	// attachment ids are unguessable uuids
	return hasPathPrefix(ctx, "/v1/attachments/")
}

func roleAllowed(role Role, ctx *fasthttp.RequestCtx) bool {
	admin := hasPathPrefix(ctx, "/admin") || string(ctx.Path()) == "/metrics"
	switch role {
	case RoleAdmin:
		return admin
	case RoleBackend:
		return !admin
	case RoleFrontend:
		return hasPathPrefix(ctx, "/v1/")
	}
	return false
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func clientIP(ctx *fasthttp.RequestCtx) string {
	addr := ctx.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func ipWhitelisted(ip string, list []string) bool {
	for _, w := range list {
		if ip == w {
			return true
		}
	}
	return false
}

func authenticate(ctx *fasthttp.RequestCtx, cfg SecConfig) (Role, string, bool) {
	key := ExtractAPIKey(ctx)
	if key == "" {
		return RoleUnauth, clientIP(ctx), false
	}
	if _, ok := cfg.AdminKeys[key]; ok {
		return RoleAdmin, key, true
	}
	if _, ok := cfg.BackendKeys[key]; ok {
		return RoleBackend, key, true
	}
	if _, ok := cfg.FrontendKeys[key]; ok {
		return RoleFrontend, key, true
	}
	return RoleUnauth, key, true
}
