package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnichat/pkg/auth"
)

func TestBenchBody(t *testing.T) {
	assert.Equal(t, "bench 3 ", benchBody(3, 2))
	assert.Len(t, benchBody(3, 64), 64)
}

func TestConfigHeaders(t *testing.T) {
	cfg := &Config{}
	cfg.Server.APIKey = "frontend-key"
	cfg.User.Name = "alice"
	cfg.User.SigningKey = "sign-key"

	h := cfg.headers()
	assert.Equal(t, "Bearer frontend-key", h.Get("Authorization"))
	assert.Equal(t, "alice", h.Get(auth.HeaderUserID))
	assert.Equal(t, auth.CreateHMACSignature("alice", "sign-key"), h.Get(auth.HeaderUserSignature))

	cfg.User.Signature = "issued"
	assert.Equal(t, "issued", cfg.headers().Get(auth.HeaderUserSignature))
}

func TestBenchTargets(t *testing.T) {
	targets, err := benchTargets(benchConfig{
		BaseURL:  "http://chat.local/",
		Headers:  http.Header{"X-User-ID": {"alice"}},
		Peer:     "bob",
		RPS:      3,
		Duration: 2 * time.Second,
		Size:     32,
	})
	require.NoError(t, err)
	require.Len(t, targets, 6)

	seen := map[string]bool{}
	for _, tg := range targets {
		assert.Equal(t, "POST", tg.Method)
		assert.Equal(t, "http://chat.local/v1/messages", tg.URL)
		var body struct {
			Receiver string `json:"receiver"`
			Body     string `json:"body"`
		}
		require.NoError(t, json.Unmarshal(tg.Body, &body))
		assert.Equal(t, "bob", body.Receiver)
		assert.Len(t, body.Body, 32)
		seen[body.Body] = true
	}
	assert.Len(t, seen, 6)
}

func TestRunBenchAgainstServer(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies = map[string]bool{}
		users  = map[string]bool{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies[string(b)] = true
		users[r.Header.Get(auth.HeaderUserID)] = true
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	rep, err := runBench(benchConfig{
		BaseURL:  srv.URL,
		Headers:  http.Header{auth.HeaderUserID: {"alice"}},
		Peer:     "bob",
		RPS:      20,
		Duration: time.Second,
		Workers:  2,
		Size:     16,
	})
	require.NoError(t, err)
	require.Positive(t, rep.Requests)
	assert.Equal(t, int(rep.Requests), rep.StatusCodes["201"])
	assert.InDelta(t, 1.0, rep.SuccessRate, 0.0001)
	assert.Empty(t, rep.Errors)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]bool{"alice": true}, users)
	assert.NotEmpty(t, bodies)
	assert.LessOrEqual(t, len(bodies), int(rep.Requests))
}
