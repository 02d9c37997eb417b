package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"alumnichat/pkg/api"
	"alumnichat/pkg/attachments"
	"alumnichat/pkg/auth"
	"alumnichat/pkg/config"
	"alumnichat/pkg/models"
	"alumnichat/pkg/router"
	"alumnichat/pkg/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const (
	backendKey  = "backend-key"
	frontendKey = "frontend-key"
	adminKey    = "admin-key"
	signingKey  = "signing-secret"
)

type harness struct {
	t *testing.T
	h fasthttp.RequestHandler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	config.SetRuntime(&config.RuntimeConfig{SigningKeys: map[string]struct{}{signingKey: {}}})
	t.Cleanup(func() { config.SetRuntime(nil) })

	clock := storetest.NewClock(time.Unix(1_700_000_000, 0))
	db := storetest.Open(t, "pebble", clock)
	att, err := attachments.NewFS(t.TempDir(), "", 1<<20)
	require.NoError(t, err)

	srv := api.New(api.NewDeps(db, att, 0))
	sec := auth.SecConfig{
		RPS:          1000,
		Burst:        1000,
		BackendKeys:  map[string]struct{}{backendKey: {}},
		FrontendKeys: map[string]struct{}{frontendKey: {}},
		AdminKeys:    map[string]struct{}{adminKey: {}},
	}
	return &harness{t: t, h: srv.Handler(sec)}
}

func (h *harness) serve(req *fasthttp.Request) *fasthttp.Response {
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(req, &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000}, nil)
	h.h(ctx)
	resp := &fasthttp.Response{}
	ctx.Response.CopyTo(resp)
	return resp
}

// do sends a backend request on behalf of user.
func (h *harness) do(method, path, user string, body any) *fasthttp.Response {
	h.t.Helper()
	req := &fasthttp.Request{}
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	req.Header.Set(auth.HeaderAPIKey, backendKey)
	if user != "" {
		req.Header.Set(auth.HeaderUserID, user)
	}
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}
	return h.serve(req)
}

func decode[T any](t *testing.T, resp *fasthttp.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body(), &v), string(resp.Body()))
	return v
}

func requireKind(t *testing.T, resp *fasthttp.Response, status int, kind string) {
	t.Helper()
	require.Equal(t, status, resp.StatusCode(), string(resp.Body()))
	assert.Equal(t, kind, decode[router.ErrorBody](t, resp).Kind)
}

func (h *harness) connect(a, b string) {
	h.t.Helper()
	resp := h.do("POST", "/v1/connections/requests", a, map[string]string{"to": b})
	require.Equal(h.t, 200, resp.StatusCode(), string(resp.Body()))
	resp = h.do("POST", "/v1/connections/respond", b, map[string]string{"initiator": a, "decision": "ACCEPT"})
	require.Equal(h.t, 200, resp.StatusCode(), string(resp.Body()))
}

func TestConnectionEndpoints(t *testing.T) {
	h := newHarness(t)

	resp := h.do("POST", "/v1/connections/requests", "alice", map[string]string{"to": "bob"})
	require.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, models.StatePending, decode[models.ConnectionStatus](t, resp).State)

	resp = h.do("GET", "/v1/connections/pending", "bob", nil)
	pending := decode[struct {
		Requests []models.ConnectionRequest `json:"requests"`
	}](t, resp)
	require.Len(t, pending.Requests, 1)
	assert.Equal(t, "alice", pending.Requests[0].Initiator)

	resp = h.do("GET", "/v1/connections/outgoing", "alice", nil)
	assert.Contains(t, string(resp.Body()), `"responder":"bob"`)

	resp = h.do("POST", "/v1/connections/respond", "alice", map[string]string{"initiator": "alice", "decision": "ACCEPT"})
	requireKind(t, resp, fasthttp.StatusForbidden, "not_responder")

	resp = h.do("POST", "/v1/connections/respond", "bob", map[string]string{"initiator": "alice", "decision": "maybe"})
	requireKind(t, resp, fasthttp.StatusBadRequest, "invalid_decision")

	resp = h.do("POST", "/v1/connections/respond", "bob", map[string]string{"initiator": "alice", "decision": "accept"})
	require.Equal(t, 200, resp.StatusCode())

	resp = h.do("GET", "/v1/connections/status?user=alice", "bob", nil)
	assert.Equal(t, models.StateConnected, decode[models.ConnectionStatus](t, resp).State)

	resp = h.do("GET", "/v1/connections", "alice", nil)
	assert.JSONEq(t, `{"connections":["bob"]}`, string(resp.Body()))

	resp = h.do("POST", "/v1/connections/requests", "bob", map[string]string{"to": "alice"})
	requireKind(t, resp, fasthttp.StatusConflict, "already_connected")
}

func TestMessagingFlow(t *testing.T) {
	h := newHarness(t)
	h.connect("alice", "bob")

	resp := h.do("POST", "/v1/messages", "alice", map[string]string{"receiver": "bob", "body": "  hi bob  "})
	require.Equal(t, fasthttp.StatusCreated, resp.StatusCode(), string(resp.Body()))
	msg := decode[models.Message](t, resp)
	require.NotNil(t, msg.Body)
	assert.Equal(t, "hi bob", *msg.Body)
	assert.Equal(t, "alice", msg.Sender)

	resp = h.do("GET", "/v1/unread", "bob", nil)
	assert.JSONEq(t, `{"counts":{"alice":1},"total":1}`, string(resp.Body()))

	path := fmt.Sprintf("/v1/messages/%d/reactions", msg.ID)
	resp = h.do("POST", path, "bob", map[string]string{"emoji": "❤️"})
	require.Equal(t, 200, resp.StatusCode(), string(resp.Body()))

	resp = h.do("GET", path, "alice", nil)
	groups := decode[struct {
		Groups []models.ReactionGroup `json:"groups"`
	}](t, resp)
	require.Len(t, groups.Groups, 1)
	assert.Equal(t, []string{"bob"}, groups.Groups[0].Reactors)
	assert.False(t, groups.Groups[0].Mine)

	resp = h.do("GET", "/v1/conversations/alice/messages", "bob", nil)
	page := decode[models.HistoryPage](t, resp)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "❤️", page.Messages[0].Reactions["bob"])
	assert.False(t, page.HasMore)

	resp = h.do("PUT", "/v1/conversations/alice/read", "bob", nil)
	require.Equal(t, 200, resp.StatusCode(), string(resp.Body()))
	resp = h.do("GET", "/v1/unread", "bob", nil)
	assert.JSONEq(t, `{"counts":{},"total":0}`, string(resp.Body()))

	resp = h.do("DELETE", path, "bob", nil)
	require.Equal(t, 200, resp.StatusCode())
	assert.JSONEq(t, fmt.Sprintf(`{"message_id":%d,"groups":[]}`, msg.ID), string(resp.Body()))

	resp = h.do("DELETE", "/v1/conversations/bob", "alice", nil)
	assert.JSONEq(t, `{"deleted":1}`, string(resp.Body()))

	resp = h.do("GET", "/v1/conversations/alice/messages", "bob", nil)
	assert.JSONEq(t, `{"messages":[],"has_more":false}`, string(resp.Body()))
}

func TestHistoryPaging(t *testing.T) {
	h := newHarness(t)
	h.connect("alice", "bob")
	for i := 0; i < 5; i++ {
		resp := h.do("POST", "/v1/messages", "alice", map[string]string{"receiver": "bob", "body": fmt.Sprintf("m%d", i)})
		require.Equal(t, fasthttp.StatusCreated, resp.StatusCode())
	}

	var bodies []string
	cursor := ""
	for {
		resp := h.do("GET", "/v1/conversations/alice/messages?limit=2&cursor="+cursor, "bob", nil)
		require.Equal(t, 200, resp.StatusCode(), string(resp.Body()))
		page := decode[models.HistoryPage](t, resp)
		for _, m := range page.Messages {
			bodies = append(bodies, *m.Body)
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4"}, bodies)

	resp := h.do("GET", "/v1/conversations/alice/messages?limit=zero", "bob", nil)
	requireKind(t, resp, fasthttp.StatusBadRequest, "bad_request")
}

func TestMessageErrors(t *testing.T) {
	h := newHarness(t)

	resp := h.do("POST", "/v1/messages", "alice", map[string]string{"receiver": "bob", "body": "hi"})
	requireKind(t, resp, fasthttp.StatusForbidden, "not_connected")

	h.connect("alice", "bob")

	cases := []struct {
		name   string
		body   any
		status int
		kind   string
	}{
		{"empty", map[string]string{"receiver": "bob", "body": "   "}, 400, "empty_payload"},
		{"both", map[string]any{"receiver": "bob", "body": "x", "attachment": map[string]string{"url": "https://x/y", "mime_type": "image/png"}}, 400, "invalid_payload"},
		{"self", map[string]string{"receiver": "alice", "body": "x"}, 400, "invalid_target"},
		{"missing receiver", map[string]string{"body": "x"}, 400, "bad_request"},
		{"sender mismatch", map[string]string{"sender": "mallory", "receiver": "bob", "body": "x"}, 403, "user_mismatch"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := h.do("POST", "/v1/messages", "alice", tc.body)
			requireKind(t, resp, tc.status, tc.kind)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := &fasthttp.Request{}
		req.Header.SetMethod("POST")
		req.SetRequestURI("/v1/messages")
		req.Header.Set(auth.HeaderAPIKey, backendKey)
		req.Header.Set(auth.HeaderUserID, "alice")
		req.SetBodyString("{")
		requireKind(t, h.serve(req), fasthttp.StatusBadRequest, "bad_request")
	})

	t.Run("unknown message", func(t *testing.T) {
		resp := h.do("POST", "/v1/messages/999/reactions", "alice", map[string]string{"emoji": "🔥"})
		requireKind(t, resp, fasthttp.StatusNotFound, "not_found")
	})

	t.Run("bad message id", func(t *testing.T) {
		resp := h.do("GET", "/v1/messages/abc/reactions", "alice", nil)
		requireKind(t, resp, fasthttp.StatusBadRequest, "bad_request")
	})

	t.Run("mark read without messages", func(t *testing.T) {
		resp := h.do("PUT", "/v1/conversations/bob/read", "alice", nil)
		requireKind(t, resp, fasthttp.StatusNotFound, "not_found")
	})

	t.Run("backend without user", func(t *testing.T) {
		resp := h.do("GET", "/v1/unread", "", nil)
		requireKind(t, resp, fasthttp.StatusBadRequest, "backend_missing_user")
	})
}

func TestFrontendSignedRequests(t *testing.T) {
	h := newHarness(t)

	frontend := func(user, sig string) *fasthttp.Response {
		req := &fasthttp.Request{}
		req.Header.SetMethod("GET")
		req.SetRequestURI("/v1/unread")
		req.Header.Set("Authorization", "Bearer "+frontendKey)
		req.Header.Set(auth.HeaderUserID, user)
		if sig != "" {
			req.Header.Set(auth.HeaderUserSignature, sig)
		}
		return h.serve(req)
	}

	resp := frontend("alice", auth.CreateHMACSignature("alice", signingKey))
	require.Equal(t, 200, resp.StatusCode(), string(resp.Body()))

	resp = frontend("alice", "")
	requireKind(t, resp, fasthttp.StatusUnauthorized, "invalid_signature")

	resp = frontend("alice", auth.CreateHMACSignature("bob", signingKey))
	requireKind(t, resp, fasthttp.StatusUnauthorized, "invalid_signature")
}

func TestSendFileAndServe(t *testing.T) {
	h := newHarness(t)
	h.connect("alice", "bob")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("receiver", "bob"))
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="notes.txt"`)
	hdr.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("remember the milk"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := &fasthttp.Request{}
	req.Header.SetMethod("POST")
	req.SetRequestURI("/v1/messages/file")
	req.Header.Set(auth.HeaderAPIKey, backendKey)
	req.Header.Set(auth.HeaderUserID, "alice")
	req.Header.SetContentType(mw.FormDataContentType())
	req.SetBody(buf.Bytes())

	resp := h.serve(req)
	require.Equal(t, fasthttp.StatusCreated, resp.StatusCode(), string(resp.Body()))
	msg := decode[models.Message](t, resp)
	require.NotNil(t, msg.Attachment)
	assert.Nil(t, msg.Body)
	assert.Equal(t, "text/plain", msg.Attachment.MimeType)
	assert.Equal(t, "notes.txt", msg.Attachment.Name)
	require.True(t, strings.HasPrefix(msg.Attachment.URL, "/v1/attachments/"))

	get := &fasthttp.Request{}
	get.Header.SetMethod("GET")
	get.SetRequestURI(msg.Attachment.URL)
	resp = h.serve(get)
	require.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, "remember the milk", string(resp.Body()))
	assert.Equal(t, "text/plain", string(resp.Header.ContentType()))

	get = &fasthttp.Request{}
	get.Header.SetMethod("GET")
	get.SetRequestURI("/v1/attachments/missing")
	resp = h.serve(get)
	assert.Equal(t, fasthttp.StatusNotFound, resp.StatusCode())
}

func TestOpsEndpoints(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := &fasthttp.Request{}
		req.SetRequestURI(path)
		resp := h.serve(req)
		assert.Equal(t, 200, resp.StatusCode(), path)
	}

	admin := func(method, path string) *fasthttp.Response {
		req := &fasthttp.Request{}
		req.Header.SetMethod(method)
		req.SetRequestURI(path)
		req.Header.Set(auth.HeaderAPIKey, adminKey)
		return h.serve(req)
	}

	h.connect("alice", "bob")
	h.do("POST", "/v1/messages", "alice", map[string]string{"receiver": "bob", "body": "x"})

	resp := admin("GET", "/admin/stats")
	require.Equal(t, 200, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), `"messages":1`)

	resp = admin("GET", "/metrics")
	require.Equal(t, 200, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "alumnichat_")

	resp = admin("POST", "/admin/jobs/purge")
	requireKind(t, resp, fasthttp.StatusConflict, "retention_disabled")

	resp = h.do("GET", "/admin/stats", "alice", nil)
	assert.Equal(t, fasthttp.StatusForbidden, resp.StatusCode())

	resp = h.do("GET", "/v1/nope", "alice", nil)
	requireKind(t, resp, fasthttp.StatusNotFound, "not_found")

	resp = h.do("GET", "/v1/reactions/palette", "alice", nil)
	assert.Contains(t, string(resp.Body()), "👍")
}

func TestRequestIDEchoed(t *testing.T) {
	h := newHarness(t)

	req := &fasthttp.Request{}
	req.SetRequestURI("/healthz")
	req.Header.Set(auth.HeaderRequestID, "req-123")
	resp := h.serve(req)
	assert.Equal(t, "req-123", string(resp.Header.Peek(auth.HeaderRequestID)))

	req = &fasthttp.Request{}
	req.SetRequestURI("/healthz")
	resp = h.serve(req)
	assert.Len(t, string(resp.Header.Peek(auth.HeaderRequestID)), 36)
}
