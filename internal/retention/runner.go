package retention

import (
	"context"
	"fmt"
	"time"

	"alumnichat/pkg/logger"
	"alumnichat/pkg/store/keys"

	"github.com/google/uuid"
)

// Report summarizes one retention run.
type Report struct {
	RunID    string   `json:"run_id"`
	DryRun   bool     `json:"dry_run"`
	Skipped  bool     `json:"skipped,omitempty"`
	Cutoff   int64    `json:"cutoff"`
	Scanned  int      `json:"scanned"`
	Eligible []string `json:"eligible"`
	Purged   int      `json:"purged"`
	Messages int      `json:"messages"`
	Failed   int      `json:"failed"`
}

const maxConsecutiveRenewFails = 3

func (m *Manager) run(ctx context.Context) (Report, error) {
	rep := Report{RunID: uuid.NewString(), DryRun: m.cfg.DryRun, Eligible: []string{}}
	ttl := m.cfg.LockTTL.Duration()

	owner := rep.RunID
	acq, err := m.lease.Acquire(owner, ttl)
	if err != nil {
		return rep, fmt.Errorf("lease acquire failed: %w", err)
	}
	if !acq {
		logger.Info("retention_lease_not_acquired", "run_id", rep.RunID)
		rep.Skipped = true
		return rep, nil
	}
	defer func() {
		if err := m.lease.Release(owner); err != nil {
			logger.Error("retention_lease_release_error", "error", err)
		}
	}()

	runCtx, abort := context.WithCancel(ctx)
	defer abort()
	go m.heartbeat(runCtx, abort, owner, ttl)

	rep.Cutoff = m.db.Now() - m.cfg.Period.Duration().Nanoseconds()
	logger.Info("retention_run_start", "run_id", rep.RunID, "dry_run", rep.DryRun)
	logger.AuditInfo("retention_audit_header", "run_id", rep.RunID, "started_at", m.wallTime().Format(time.RFC3339), "dry_run", rep.DryRun, "period", m.cfg.Period.String())

	pairs, err := m.db.Conversations()
	if err != nil {
		return rep, fmt.Errorf("list conversations: %w", err)
	}
	for _, pair := range pairs {
		if runCtx.Err() != nil {
			return rep, fmt.Errorf("retention run aborted: %w", runCtx.Err())
		}
		a, b, err := keys.ParsePair(pair)
		if err != nil {
			logger.Error("retention_invalid_pair", "pair", pair, "error", err)
			continue
		}
		conv, ok, err := m.db.Conversation(a, b)
		if err != nil || !ok {
			continue
		}
		rep.Scanned++
		if conv.LastSentAt >= rep.Cutoff {
			continue
		}
		rep.Eligible = append(rep.Eligible, pair)
		if rep.DryRun {
			logger.AuditInfo("retention_audit_item", "run_id", rep.RunID, "conversation", pair, "status", "dry_run")
			continue
		}
		n, err := m.msgs.Purge(pair)
		if err != nil {
			rep.Failed++
			logger.AuditInfo("retention_audit_item", "run_id", rep.RunID, "conversation", pair, "status", "failed", "error", err.Error())
			logger.Error("retention_purge_failed", "conversation", pair, "error", err)
			continue
		}
		rep.Purged++
		rep.Messages += n
		logger.AuditInfo("retention_audit_item", "run_id", rep.RunID, "conversation", pair, "status", "success", "messages", n)
	}

	logger.AuditInfo("retention_audit_footer", "run_id", rep.RunID, "scanned", rep.Scanned, "purged", rep.Purged)
	logger.Info("retention_run_complete", "run_id", rep.RunID, "scanned", rep.Scanned, "eligible", len(rep.Eligible), "purged", rep.Purged)
	return rep, nil
}

// heartbeat renews the lease and aborts the run after repeated failures.
func (m *Manager) heartbeat(ctx context.Context, abort context.CancelFunc, owner string, ttl time.Duration) {
	t := time.NewTicker(ttl / 3)
	defer t.Stop()
	fails := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := m.lease.Renew(owner, ttl); err != nil {
				fails++
				logger.Error("retention_lease_renew_failed", "error", err, "count", fails)
				if fails >= maxConsecutiveRenewFails {
					abort()
					return
				}
				continue
			}
			fails = 0
		}
	}
}
