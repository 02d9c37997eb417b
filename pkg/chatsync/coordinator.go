package chatsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultMessageInterval = 2 * time.Second
	DefaultPeerInterval    = 30 * time.Second
	DefaultBottomThreshold = 50
	historyPageSize        = 1000
)

// ErrNoView is returned by Send when no conversation is open.
var ErrNoView = errors.New("chatsync: no conversation is open")

type Options struct {
	MessageInterval time.Duration
	PeerInterval    time.Duration
	// BottomThreshold is how close to the bottom, in scroll units, still
	// counts as "at bottom".
	BottomThreshold float64
	Now             func() time.Time
}

func (o *Options) applyDefaults() {
	if o.MessageInterval <= 0 {
		o.MessageInterval = DefaultMessageInterval
	}
	if o.PeerInterval <= 0 {
		o.PeerInterval = DefaultPeerInterval
	}
	if o.BottomThreshold <= 0 {
		o.BottomThreshold = DefaultBottomThreshold
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// ViewState is a snapshot of the open conversation's tracking state.
type ViewState struct {
	Peer       string
	Generation uint64
	Rendered   int
	AutoScroll bool
	Refreshing bool
	AppliedAt  time.Time
}

// view is one opening of a conversation. It lives until the next Open or Close.
type view struct {
	peer       string
	gen        uint64
	cancel     context.CancelFunc
	done       chan struct{}
	rendered   int
	autoScroll bool
	appliedAt  time.Time
	running    bool
	pending    bool
}

// Coordinator owns the polling tasks of one client session.
type Coordinator struct {
	src  Source
	r    Renderer
	opts Options

	mu            sync.Mutex
	gen           uint64
	view          *view
	badgesApplied time.Time
	peersApplied  time.Time
	stopLoops     context.CancelFunc
	loops         *errgroup.Group
	stopped       bool
	// tasks counts view poll tasks, including replaced ones still draining.
	tasks sync.WaitGroup
}

func New(src Source, r Renderer, opts Options) *Coordinator {
	opts.applyDefaults()
	return &Coordinator{src: src, r: r, opts: opts}
}

// Start launches the badge and peer loops. They keep running whether or not
// a conversation is open, until Stop or ctx is done.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.loops != nil || c.stopped {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	c.stopLoops = cancel
	c.loops = g
	c.mu.Unlock()

	g.Go(func() error {
		every(gctx, c.opts.MessageInterval, func() { _ = c.RefreshBadges(gctx) })
		return nil
	})
	g.Go(func() error {
		every(gctx, c.opts.PeerInterval, func() { _ = c.RefreshPeers(gctx) })
		return nil
	})
}

// Stop closes the open view and ends every loop, including poll tasks of
// replaced views that are still finishing a request. Open after Stop is a
// no-op.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopped = true
	cancel, g := c.stopLoops, c.loops
	c.stopLoops, c.loops = nil, nil
	c.mu.Unlock()
	c.Close()
	if cancel != nil {
		cancel()
		_ = g.Wait()
	}
	c.tasks.Wait()
}

// Open switches the view to peer. The previous view's poll task is cancelled
// but not waited for: a request it still has in flight finishes in the
// background and its response is discarded. The conversation is then marked
// read, badges and peers are refreshed and the conversation is rendered. The
// new view's poll task ticks every MessageInterval until the next Open or
// Close.
func (c *Coordinator) Open(ctx context.Context, peer string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	vctx, cancel := context.WithCancel(context.Background())
	v := &view{peer: peer, cancel: cancel, done: make(chan struct{}), autoScroll: true}
	prev := c.view
	c.gen++
	v.gen = c.gen
	c.view = v
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		defer close(v.done)
		every(vctx, c.opts.MessageInterval, func() { _ = c.refreshView(vctx, v) })
	}()
	c.mu.Unlock()
	if prev != nil {
		prev.cancel()
	}

	logger.Debug("sync_view_opened", "peer", peer, "generation", v.gen)
	if err := c.src.MarkRead(ctx, peer); err != nil && !errors.Is(err, chaterr.ErrNotFound) {
		logger.Debug("sync_mark_read_failed", "peer", peer, "error", err)
	}
	_ = c.RefreshBadges(ctx)
	_ = c.RefreshPeers(ctx)
	_ = c.RefreshConversation(ctx)
}

// Close ends the open view and waits for its poll task to exit.
func (c *Coordinator) Close() {
	c.mu.Lock()
	prev := c.view
	if prev != nil {
		c.view = nil
		c.gen++
	}
	c.mu.Unlock()
	finish(prev)
}

func finish(v *view) {
	if v == nil {
		return
	}
	v.cancel()
	<-v.done
}

// OnScroll records how far the user is from the bottom of the list. Scrolling
// away disables auto-scroll; returning to the bottom enables it again.
func (c *Coordinator) OnScroll(distanceFromBottom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return
	}
	c.view.autoScroll = distanceFromBottom <= c.opts.BottomThreshold
}

// Send posts a message to the open conversation, re-enables auto-scroll and
// refreshes right away. Send errors are returned to the caller.
func (c *Coordinator) Send(ctx context.Context, p models.Payload) (models.Message, error) {
	c.mu.Lock()
	v := c.view
	if v == nil {
		c.mu.Unlock()
		return models.Message{}, ErrNoView
	}
	v.autoScroll = true
	c.mu.Unlock()

	msg, err := c.src.Send(ctx, v.peer, p)
	if err != nil {
		return models.Message{}, err
	}
	_ = c.RefreshConversation(ctx)
	return msg, nil
}

// ViewState returns the open view's tracking state; ok is false when no
// conversation is open.
func (c *Coordinator) ViewState() (ViewState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view
	if v == nil {
		return ViewState{}, false
	}
	return ViewState{
		Peer:       v.peer,
		Generation: v.gen,
		Rendered:   v.rendered,
		AutoScroll: v.autoScroll,
		Refreshing: v.running,
		AppliedAt:  v.appliedAt,
	}, true
}

// every runs fn every interval until ctx is done. A slow fn delays the next
// tick instead of overlapping it.
func every(ctx context.Context, interval time.Duration, fn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}
