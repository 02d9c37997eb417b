package chatsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"alumnichat/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu           sync.Mutex
	msgs         map[string][]models.MessageView
	counts       map[string]int64
	peers        []string
	markReads    []string
	historyCalls int
	fail         error
	gates        map[string]chan struct{}
	// deaf gates ignore ctx, like a transport that only honours its own timeout
	deaf    bool
	entered chan string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		msgs:    map[string][]models.MessageView{},
		counts:  map[string]int64{},
		gates:   map[string]chan struct{}{},
		entered: make(chan string, 16),
	}
}

func (f *fakeSource) add(peer string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		body := fmt.Sprintf("%s-%d", peer, len(f.msgs[peer]))
		f.msgs[peer] = append(f.msgs[peer], models.MessageView{Message: models.Message{ID: uint64(len(f.msgs[peer]) + 1), Body: &body}})
	}
	f.counts[peer] += int64(n)
}

func (f *fakeSource) drop(peer string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[peer] = f.msgs[peer][:len(f.msgs[peer])-n]
}

// hold makes History for peer block until the returned channel is closed.
func (f *fakeSource) hold(peer string) chan struct{} {
	for len(f.entered) > 0 {
		<-f.entered
	}
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[peer] = gate
	f.mu.Unlock()
	return gate
}

func (f *fakeSource) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyCalls
}

func (f *fakeSource) History(ctx context.Context, peer, cursor string, limit int) (models.HistoryPage, error) {
	f.mu.Lock()
	f.historyCalls++
	gate := f.gates[peer]
	deaf := f.deaf
	f.mu.Unlock()

	select {
	case f.entered <- peer:
	default:
	}
	if gate != nil && deaf {
		<-gate
	} else if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.HistoryPage{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return models.HistoryPage{}, f.fail
	}
	out := append([]models.MessageView(nil), f.msgs[peer]...)
	return models.HistoryPage{Messages: out}, nil
}

func (f *fakeSource) UnreadCounts(ctx context.Context) (models.UnreadSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return models.UnreadSummary{}, f.fail
	}
	counts := map[string]int64{}
	var total int64
	for k, v := range f.counts {
		if v > 0 {
			counts[k] = v
			total += v
		}
	}
	return models.UnreadSummary{Counts: counts, Total: total}, nil
}

func (f *fakeSource) MarkRead(ctx context.Context, peer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReads = append(f.markReads, peer)
	f.counts[peer] = 0
	return nil
}

func (f *fakeSource) ConnectedPeers(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return append([]string(nil), f.peers...), nil
}

func (f *fakeSource) Send(ctx context.Context, peer string, p models.Payload) (models.Message, error) {
	if p.Body == "" {
		return models.Message{}, errors.New("empty")
	}
	f.add(peer, 1)
	f.mu.Lock()
	f.counts[peer]--
	f.mu.Unlock()
	return models.Message{Body: &p.Body}, nil
}

type render struct {
	peer   string
	n      int
	scroll bool
}

type fakeRenderer struct {
	mu      sync.Mutex
	convs   []render
	badges  []map[string]int64
	peerSet [][]string
}

func (r *fakeRenderer) RenderConversation(peer string, msgs []models.MessageView, scroll bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs = append(r.convs, render{peer, len(msgs), scroll})
}

func (r *fakeRenderer) RenderBadges(counts map[string]int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badges = append(r.badges, counts)
}

func (r *fakeRenderer) RenderPeers(peers []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peerSet = append(r.peerSet, peers)
}

func (r *fakeRenderer) conversations() []render {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]render(nil), r.convs...)
}

func (r *fakeRenderer) last() render {
	c := r.conversations()
	if len(c) == 0 {
		return render{}
	}
	return c[len(c)-1]
}

func (r *fakeRenderer) scrolls() int {
	n := 0
	for _, c := range r.conversations() {
		if c.scroll {
			n++
		}
	}
	return n
}

func (r *fakeRenderer) counts() (badges, peers int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.badges), len(r.peerSet)
}

// quiet returns a coordinator whose timers never fire during a test.
func quiet(t *testing.T) (*Coordinator, *fakeSource, *fakeRenderer) {
	src, r := newFakeSource(), &fakeRenderer{}
	c := New(src, r, Options{MessageInterval: time.Hour, PeerInterval: time.Hour})
	t.Cleanup(c.Stop)
	return c, src, r
}

func TestThreeMessagesArriveInOnePull(t *testing.T) {
	ctx := context.Background()

	t.Run("not viewing", func(t *testing.T) {
		c, src, r := quiet(t)
		src.add("alice", 3)

		require.NoError(t, c.RefreshBadges(ctx))
		require.NoError(t, c.RefreshConversation(ctx))
		assert.Empty(t, r.conversations())
		assert.Equal(t, map[string]int64{"alice": 3}, r.badges[len(r.badges)-1])

		c.Open(ctx, "alice")
		assert.Equal(t, []string{"alice"}, src.markReads)
		assert.Equal(t, []render{{"alice", 3, true}}, r.conversations())
		assert.Equal(t, map[string]int64{}, r.badges[len(r.badges)-1])
	})

	t.Run("viewing", func(t *testing.T) {
		c, src, r := quiet(t)
		c.Open(ctx, "alice")
		assert.Equal(t, render{"alice", 0, false}, r.last())

		src.add("alice", 3)
		require.NoError(t, c.RefreshConversation(ctx))
		assert.Equal(t, render{"alice", 3, true}, r.last())
		assert.Equal(t, 1, r.scrolls())
	})
}

func TestScrolledUpUserIsNotYanked(t *testing.T) {
	ctx := context.Background()
	c, src, r := quiet(t)
	src.add("bob", 5)
	c.Open(ctx, "bob")
	assert.Equal(t, render{"bob", 5, true}, r.last())

	c.OnScroll(300)
	src.add("bob", 1)
	require.NoError(t, c.RefreshConversation(ctx))
	assert.Equal(t, render{"bob", 6, false}, r.last())
	st, ok := c.ViewState()
	require.True(t, ok)
	assert.False(t, st.AutoScroll)

	c.OnScroll(10)
	require.NoError(t, c.RefreshConversation(ctx))
	assert.Equal(t, render{"bob", 6, false}, r.last(), "same count must not scroll")

	src.add("bob", 1)
	require.NoError(t, c.RefreshConversation(ctx))
	assert.Equal(t, render{"bob", 7, true}, r.last())
}

func TestFewerMessagesNeverScroll(t *testing.T) {
	ctx := context.Background()
	c, src, r := quiet(t)
	src.add("bob", 4)
	c.Open(ctx, "bob")

	src.drop("bob", 2)
	require.NoError(t, c.RefreshConversation(ctx))
	assert.Equal(t, render{"bob", 2, false}, r.last())

	src.add("bob", 1)
	require.NoError(t, c.RefreshConversation(ctx))
	assert.Equal(t, render{"bob", 3, true}, r.last())
}

func TestSendReenablesAutoScroll(t *testing.T) {
	ctx := context.Background()
	c, src, r := quiet(t)

	_, err := c.Send(ctx, models.Payload{Body: "hi"})
	assert.ErrorIs(t, err, ErrNoView)

	src.add("carol", 10)
	c.Open(ctx, "carol")
	c.OnScroll(1000)

	_, err = c.Send(ctx, models.Payload{Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, render{"carol", 11, true}, r.last())

	_, err = c.Send(ctx, models.Payload{})
	assert.Error(t, err)
}

func TestFailedRefreshKeepsState(t *testing.T) {
	ctx := context.Background()
	c, src, r := quiet(t)
	src.add("dave", 2)
	c.Open(ctx, "dave")
	before := r.conversations()
	badges, peers := r.counts()

	boom := errors.New("connection refused")
	src.setFail(boom)
	assert.ErrorIs(t, c.RefreshConversation(ctx), boom)
	assert.ErrorIs(t, c.RefreshBadges(ctx), boom)
	assert.ErrorIs(t, c.RefreshPeers(ctx), boom)

	assert.Equal(t, before, r.conversations())
	b2, p2 := r.counts()
	assert.Equal(t, badges, b2)
	assert.Equal(t, peers, p2)
	st, _ := c.ViewState()
	assert.Equal(t, 2, st.Rendered)

	src.setFail(nil)
	src.add("dave", 1)
	require.NoError(t, c.RefreshConversation(ctx))
	assert.Equal(t, render{"dave", 3, true}, r.last())
}

func TestOverlappingRefreshesCoalesce(t *testing.T) {
	ctx := context.Background()
	c, src, r := quiet(t)
	c.Open(ctx, "erin")
	base := src.calls()

	gate := src.hold("erin")

	done := make(chan error, 1)
	go func() { done <- c.RefreshConversation(ctx) }()
	require.Equal(t, "erin", <-src.entered)

	require.NoError(t, c.RefreshConversation(ctx))
	require.NoError(t, c.RefreshConversation(ctx))
	st, _ := c.ViewState()
	assert.True(t, st.Refreshing)

	src.add("erin", 2)
	close(gate)
	require.NoError(t, <-done)

	// the blocked run plus one follow-up for both overlapping calls
	assert.Equal(t, base+2, src.calls())
	convs := r.conversations()
	assert.Equal(t, []render{{"erin", 2, true}, {"erin", 2, false}}, convs[len(convs)-2:])
	st, _ = c.ViewState()
	assert.False(t, st.Refreshing)
}

func TestResponseForClosedViewIsDiscarded(t *testing.T) {
	ctx := context.Background()
	c, src, r := quiet(t)
	src.add("frank", 1)
	src.add("grace", 2)
	c.Open(ctx, "frank")

	gate := src.hold("frank")

	done := make(chan error, 1)
	go func() { done <- c.RefreshConversation(ctx) }()
	require.Equal(t, "frank", <-src.entered)

	c.Open(ctx, "grace")
	assert.Equal(t, render{"grace", 2, true}, r.last())

	src.add("frank", 5)
	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, render{"grace", 2, true}, r.last())

	st, ok := c.ViewState()
	require.True(t, ok)
	assert.Equal(t, "grace", st.Peer)
	assert.Equal(t, uint64(2), st.Generation)
}

func TestCloseStopsViewTask(t *testing.T) {
	src, r := newFakeSource(), &fakeRenderer{}
	c := New(src, r, Options{MessageInterval: 5 * time.Millisecond, PeerInterval: time.Hour})
	defer c.Stop()
	ctx := context.Background()

	c.Open(ctx, "alice")
	require.Eventually(t, func() bool { return src.calls() >= 3 }, time.Second, time.Millisecond)

	c.Open(ctx, "bob")
	require.Eventually(t, func() bool { return r.last().peer == "bob" }, time.Second, time.Millisecond)

	c.Close()
	_, ok := c.ViewState()
	assert.False(t, ok)
	n := src.calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, src.calls())
	convs := r.conversations()
	seenBob := false
	for _, rc := range convs {
		seenBob = seenBob || rc.peer == "bob"
		if seenBob {
			assert.Equal(t, "bob", rc.peer)
		}
	}
}

func TestSwitchDoesNotWaitForStuckPoll(t *testing.T) {
	src, r := newFakeSource(), &fakeRenderer{}
	c := New(src, r, Options{MessageInterval: 5 * time.Millisecond, PeerInterval: time.Hour})
	ctx := context.Background()
	src.add("slow", 1)
	src.add("fast", 2)
	c.Open(ctx, "slow")

	src.mu.Lock()
	src.deaf = true
	src.mu.Unlock()
	gate := src.hold("slow")
	release := time.AfterFunc(2*time.Second, func() { close(gate) })
	require.Equal(t, "slow", <-src.entered)

	start := time.Now()
	c.Open(ctx, "fast")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	last := r.last()
	assert.Equal(t, "fast", last.peer)
	assert.Equal(t, 2, last.n)

	if release.Stop() {
		close(gate)
	}
	c.Stop()
	assert.Equal(t, "fast", r.last().peer)
	st, ok := c.ViewState()
	assert.False(t, ok, "%+v", st)
}

func TestOpenAfterStopIsNoop(t *testing.T) {
	c, src, r := quiet(t)
	c.Stop()

	c.Open(context.Background(), "alice")
	_, ok := c.ViewState()
	assert.False(t, ok)
	assert.Zero(t, src.calls())
	assert.Empty(t, src.markReads)
	assert.Empty(t, r.conversations())
}

func TestStartRunsBadgeAndPeerLoops(t *testing.T) {
	src, r := newFakeSource(), &fakeRenderer{}
	src.peers = []string{"alice", "bob"}
	c := New(src, r, Options{MessageInterval: 5 * time.Millisecond, PeerInterval: 5 * time.Millisecond})
	c.Start(context.Background())

	require.Eventually(t, func() bool {
		b, p := r.counts()
		return b >= 2 && p >= 2
	}, time.Second, time.Millisecond)
	assert.Empty(t, r.conversations())

	c.Stop()
	b, p := r.counts()
	time.Sleep(30 * time.Millisecond)
	b2, p2 := r.counts()
	assert.Equal(t, b, b2)
	assert.Equal(t, p, p2)
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	o.applyDefaults()
	assert.Equal(t, DefaultMessageInterval, o.MessageInterval)
	assert.Equal(t, DefaultPeerInterval, o.PeerInterval)
	assert.Equal(t, float64(DefaultBottomThreshold), o.BottomThreshold)
	assert.NotNil(t, o.Now)
}
