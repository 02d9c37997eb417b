package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"alumnichat/pkg/config"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"
	"alumnichat/pkg/router"
	"alumnichat/pkg/telemetry"

	"github.com/valyala/fasthttp"
)

// caller role
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleFrontend:
		return "frontend"
	case RoleBackend:
		return "backend"
	case RoleAdmin:
		return "admin"
	default:
		return "unauth"
	}
}

// IdentityError describes why the caller's identity could not be resolved.
type IdentityError struct {
	Kind    string
	Message string
	Code    int
}

func (e *IdentityError) Error() string {
	return e.Message
}

var (
	ErrUserRequired       = &IdentityError{"user_required", "user required", fasthttp.StatusBadRequest}
	ErrInvalidUser        = &IdentityError{"invalid_user", "invalid user id", fasthttp.StatusBadRequest}
	ErrInvalidSignature   = &IdentityError{"invalid_signature", "missing or invalid user signature", fasthttp.StatusUnauthorized}
	ErrUserMismatch       = &IdentityError{"user_mismatch", "user does not match the authenticated identity", fasthttp.StatusForbidden}
	ErrBackendMissingUser = &IdentityError{"backend_missing_user", "X-User-ID required for backend requests", fasthttp.StatusBadRequest}
)

// WriteIdentityError writes e as a JSON error response.
func WriteIdentityError(ctx *fasthttp.RequestCtx, e *IdentityError) {
	router.WriteJSONError(ctx, e.Code, e.Message, e.Kind)
}

// CreateHMACSignature signs a user id with key.
func CreateHMACSignature(userID, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSignature checks signature against every configured signing key.
func VerifyHMACSignature(userID, signature string) bool {
	for k := range config.GetSigningKeys() {
		expected := CreateHMACSignature(userID, k)
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return true
		}
	}
	return false
}

// SecConfig is the gateway configuration.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
	AdminKeys      map[string]struct{}
}

// SecConfigFrom builds the gateway configuration from the server config.
func SecConfigFrom(cfg *config.Config) SecConfig {
	sec := SecConfig{
		AllowedOrigins: append([]string{}, cfg.Server.CORS.AllowedOrigins...),
		RPS:            cfg.Server.RateLimit.RPS,
		Burst:          cfg.Server.RateLimit.Burst,
		IPWhitelist:    append([]string{}, cfg.Server.IPWhitelist...),
		BackendKeys:    map[string]struct{}{},
		FrontendKeys:   map[string]struct{}{},
		AdminKeys:      map[string]struct{}{},
	}
	for _, k := range cfg.Server.APIKeys.Backend {
		sec.BackendKeys[k] = struct{}{}
	}
	for _, k := range cfg.Server.APIKeys.Frontend {
		sec.FrontendKeys[k] = struct{}{}
	}
	for _, k := range cfg.Server.APIKeys.Admin {
		sec.AdminKeys[k] = struct{}{}
	}
	return sec
}

// RequireSignedUser verifies X-User-Signature when present and records the
// signed user on the request. Frontend requests must be signed.
func RequireSignedUser(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		role := RoleName(ctx)
		userID := getHeader(ctx, HeaderUserID)
		sig := getHeader(ctx, HeaderUserSignature)

		// unauthenticated requests only reach public routes
		if role != "frontend" && role != "backend" && role != "admin" {
			next(ctx)
			return
		}
		if sig == "" && role != "frontend" {
			next(ctx)
			return
		}
		if sig == "" || userID == "" {
			logger.Warn("missing_signature_headers", "path", string(ctx.Path()), "remote", ctx.RemoteAddr().String())
			WriteIdentityError(ctx, ErrInvalidSignature)
			return
		}

		tr := telemetry.Track("auth.verify_signature")
		ok := VerifyHMACSignature(userID, sig)
		tr.Finish()
		if !ok {
			logger.Warn("invalid_signature", "user", userID, "remote", ctx.RemoteAddr().String(), "path", string(ctx.Path()))
			WriteIdentityError(ctx, ErrInvalidSignature)
			return
		}
		logger.Debug("signature_verified", "user", userID, "path", string(ctx.Path()))
		ctx.SetUserValue(userValueUser, userID)
		next(ctx)
	}
}

// ResolveUser returns the identity of the caller. claimed is a username named
// by the request body or query; when the caller is signed it must match.
// Backend callers without a signature assert the user through X-User-ID or
// claimed.
func ResolveUser(ctx *fasthttp.RequestCtx, claimed string) (string, *IdentityError) {
	if id, ok := ctx.UserValue(userValueUser).(string); ok && id != "" {
		if claimed != "" && claimed != id {
			logger.Warn("user_mismatch", "signed", id, "claimed", claimed, "path", string(ctx.Path()))
			return "", ErrUserMismatch
		}
		return id, nil
	}

	if RoleName(ctx) != "backend" {
		return "", ErrInvalidSignature
	}
	user := getHeader(ctx, HeaderUserID)
	switch {
	case user == "" && claimed == "":
		return "", ErrBackendMissingUser
	case user == "":
		user = claimed
	case claimed != "" && claimed != user:
		logger.Warn("user_mismatch", "header", user, "claimed", claimed, "path", string(ctx.Path()))
		return "", ErrUserMismatch
	}
	if !models.ValidUsername(user) {
		return "", ErrInvalidUser
	}
	return user, nil
}
