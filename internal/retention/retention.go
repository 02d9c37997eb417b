// Package retention purges conversations that have been idle longer than the
// configured period, on a cron schedule.
package retention

import (
	"context"
	"errors"
	"sync"
	"time"

	"alumnichat/pkg/config"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/messages"

	"github.com/adhocore/gronx"
)

// ErrRunning is returned by RunOnce while another run is in progress.
var ErrRunning = errors.New("retention: a run is already in progress")

type Manager struct {
	cfg      config.RetentionConfig
	db       *store.DB
	msgs     *messages.Store
	lease    *FileLease
	mu       sync.Mutex
	running  bool
	lastRun  *Report
	wallTime func() time.Time
}

// New builds a manager; leaseDir holds the lease file shared between processes.
func New(cfg config.RetentionConfig, db *store.DB, msgs *messages.Store, leaseDir string) *Manager {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = config.Duration(5 * time.Minute)
	}
	return &Manager{cfg: cfg, db: db, msgs: msgs, lease: NewFileLease(leaseDir), wallTime: time.Now}
}

// Start runs the schedule loop until ctx is done. It returns immediately when
// retention is disabled.
func (m *Manager) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		logger.Info("retention_disabled")
		return
	}
	logger.Info("retention_enabled", "cron", m.cfg.Cron, "period", m.cfg.Period.String(), "dry_run", m.cfg.DryRun)
	go m.scheduleLoop(ctx)
}

func (m *Manager) scheduleLoop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(m.cfg.Cron, m.wallTime(), false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", m.cfg.Cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := next.Sub(m.wallTime())
		if wait < time.Second {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			if _, err := m.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunning) {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce runs one pass now, on the schedule or from the admin API.
func (m *Manager) RunOnce(ctx context.Context) (Report, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return Report{}, ErrRunning
	}
	m.running = true
	m.mu.Unlock()

	rep, err := m.run(ctx)

	m.mu.Lock()
	m.running = false
	if err == nil {
		m.lastRun = &rep
	}
	m.mu.Unlock()
	return rep, err
}

// LastRun returns the report of the last completed run.
func (m *Manager) LastRun() (Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastRun == nil {
		return Report{}, false
	}
	return *m.lastRun, true
}
