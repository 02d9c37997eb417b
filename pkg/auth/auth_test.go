package auth

import (
	"net"
	"testing"
	"time"

	"alumnichat/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newCtx(method, path string, headers map[string]string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, &net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 4000}, nil)
	return ctx
}

func testSec() SecConfig {
	return SecConfig{
		RPS:          100,
		Burst:        100,
		BackendKeys:  map[string]struct{}{"backend-key": {}},
		FrontendKeys: map[string]struct{}{"frontend-key": {}},
		AdminKeys:    map[string]struct{}{"admin-key": {}},
	}
}

func TestHMACSignatureRoundTrip(t *testing.T) {
	config.SetRuntime(&config.RuntimeConfig{SigningKeys: map[string]struct{}{"secret": {}}})
	t.Cleanup(func() { config.SetRuntime(nil) })

	sig := CreateHMACSignature("alice", "secret")
	assert.Len(t, sig, 64)
	assert.True(t, VerifyHMACSignature("alice", sig))
	assert.False(t, VerifyHMACSignature("bob", sig))
	assert.False(t, VerifyHMACSignature("alice", CreateHMACSignature("alice", "other")))
}

func TestExtractAPIKey(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"bearer", map[string]string{"Authorization": "Bearer k1"}, "k1"},
		{"header", map[string]string{HeaderAPIKey: "k2"}, "k2"},
		{"bearer wins", map[string]string{"Authorization": "bearer k1", HeaderAPIKey: "k2"}, "k1"},
		{"none", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := newCtx("GET", "/v1/unread", tc.headers)
			assert.Equal(t, tc.want, ExtractAPIKey(ctx))
		})
	}
}

func TestGatewayRoles(t *testing.T) {
	mw := AuthenticateRequestMiddleware(testSec())

	cases := []struct {
		name   string
		method string
		path   string
		key    string
		want   int
	}{
		{"health is public", "GET", "/healthz", "", fasthttp.StatusOK},
		{"attachment download is public", "GET", "/v1/attachments/abc", "", fasthttp.StatusOK},
		{"attachment upload is not", "POST", "/v1/attachments", "", fasthttp.StatusUnauthorized},
		{"missing key", "GET", "/v1/unread", "", fasthttp.StatusUnauthorized},
		{"unknown key", "GET", "/v1/unread", "nope", fasthttp.StatusUnauthorized},
		{"backend v1", "POST", "/v1/messages", "backend-key", fasthttp.StatusOK},
		{"backend admin", "GET", "/admin/stats", "backend-key", fasthttp.StatusForbidden},
		{"frontend v1", "GET", "/v1/connections", "frontend-key", fasthttp.StatusOK},
		{"frontend metrics", "GET", "/metrics", "frontend-key", fasthttp.StatusForbidden},
		{"admin stats", "GET", "/admin/stats", "admin-key", fasthttp.StatusOK},
		{"admin metrics", "GET", "/metrics", "admin-key", fasthttp.StatusOK},
		{"admin v1", "GET", "/v1/unread", "admin-key", fasthttp.StatusForbidden},
		{"preflight", "OPTIONS", "/v1/messages", "", fasthttp.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.key != "" {
				headers[HeaderAPIKey] = tc.key
			}
			ctx := newCtx(tc.method, tc.path, headers)
			mw(func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusOK) })(ctx)
			assert.Equal(t, tc.want, ctx.Response.StatusCode())
		})
	}
}

func TestGatewayOverwritesRoleHeader(t *testing.T) {
	mw := AuthenticateRequestMiddleware(testSec())
	ctx := newCtx("GET", "/v1/unread", map[string]string{HeaderAPIKey: "frontend-key", HeaderRoleName: "backend"})
	var seen string
	mw(func(ctx *fasthttp.RequestCtx) { seen = RoleName(ctx) })(ctx)
	assert.Equal(t, "frontend", seen)
}

func TestGatewayIPWhitelist(t *testing.T) {
	sec := testSec()
	sec.IPWhitelist = []string{"192.168.1.1"}
	mw := AuthenticateRequestMiddleware(sec)
	ctx := newCtx("GET", "/v1/unread", map[string]string{HeaderAPIKey: "backend-key"})
	mw(func(ctx *fasthttp.RequestCtx) {})(ctx)
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
}

func TestGatewayRateLimit(t *testing.T) {
	sec := testSec()
	sec.RPS = 0.001
	sec.Burst = 2
	mw := AuthenticateRequestMiddleware(sec)
	h := mw(func(ctx *fasthttp.RequestCtx) {})

	var codes []int
	for i := 0; i < 3; i++ {
		ctx := newCtx("GET", "/v1/unread", map[string]string{HeaderAPIKey: "backend-key"})
		h(ctx)
		codes = append(codes, ctx.Response.StatusCode())
	}
	assert.Equal(t, []int{200, 200, fasthttp.StatusTooManyRequests}, codes)
}

func TestLimiterPoolEvictsIdle(t *testing.T) {
	p := newLimiterPool(1, 1)
	defer p.Shutdown()
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	p.get("a")
	now = now.Add(time.Hour)
	p.get("b")
	p.evictIdle()

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.NotContains(t, p.m, "a")
	assert.Contains(t, p.m, "b")
}

func TestRequireSignedUser(t *testing.T) {
	config.SetRuntime(&config.RuntimeConfig{SigningKeys: map[string]struct{}{"secret": {}}})
	t.Cleanup(func() { config.SetRuntime(nil) })

	run := func(role string, headers map[string]string) (*fasthttp.RequestCtx, bool) {
		ctx := newCtx("GET", "/v1/unread", headers)
		ctx.Request.Header.Set(HeaderRoleName, role)
		called := false
		RequireSignedUser(func(*fasthttp.RequestCtx) { called = true })(ctx)
		return ctx, called
	}

	t.Run("frontend must sign", func(t *testing.T) {
		ctx, called := run("frontend", map[string]string{HeaderUserID: "alice"})
		assert.False(t, called)
		assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	})

	t.Run("frontend valid signature", func(t *testing.T) {
		ctx, called := run("frontend", map[string]string{
			HeaderUserID:        "alice",
			HeaderUserSignature: CreateHMACSignature("alice", "secret"),
		})
		require.True(t, called)
		user, ierr := ResolveUser(ctx, "")
		require.Nil(t, ierr)
		assert.Equal(t, "alice", user)
	})

	t.Run("forged signature", func(t *testing.T) {
		_, called := run("frontend", map[string]string{
			HeaderUserID:        "alice",
			HeaderUserSignature: CreateHMACSignature("bob", "secret"),
		})
		assert.False(t, called)
	})

	t.Run("backend may skip signing", func(t *testing.T) {
		_, called := run("backend", map[string]string{HeaderUserID: "alice"})
		assert.True(t, called)
	})
}

func TestResolveUser(t *testing.T) {
	signed := func(user string) *fasthttp.RequestCtx {
		ctx := newCtx("POST", "/v1/messages", nil)
		ctx.Request.Header.Set(HeaderRoleName, "frontend")
		ctx.SetUserValue(userValueUser, user)
		return ctx
	}
	backend := func(header string) *fasthttp.RequestCtx {
		h := map[string]string{}
		if header != "" {
			h[HeaderUserID] = header
		}
		ctx := newCtx("POST", "/v1/messages", h)
		ctx.Request.Header.Set(HeaderRoleName, "backend")
		return ctx
	}

	cases := []struct {
		name    string
		ctx     *fasthttp.RequestCtx
		claimed string
		want    string
		err     *IdentityError
	}{
		{"signed no claim", signed("alice"), "", "alice", nil},
		{"signed matching claim", signed("alice"), "alice", "alice", nil},
		{"signed sender mismatch", signed("alice"), "mallory", "", ErrUserMismatch},
		{"backend header", backend("bob"), "", "bob", nil},
		{"backend claim only", backend(""), "bob", "bob", nil},
		{"backend mismatch", backend("bob"), "carol", "", ErrUserMismatch},
		{"backend no user", backend(""), "", "", ErrBackendMissingUser},
		{"backend invalid user", backend("a:b"), "", "", ErrInvalidUser},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveUser(tc.ctx, tc.claimed)
			assert.Equal(t, tc.err, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
