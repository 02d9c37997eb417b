package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"alumnichat/pkg/logger"
)

type Step struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration_ms"`
}

// Trace times one operation; Mark splits it into steps.
type Trace struct {
	Name     string    `json:"name"`
	Start    time.Time `json:"start"`
	Steps    []Step    `json:"steps"`
	TotalMS  float64   `json:"total_ms"`
	lastMark time.Time
	done     bool
}

var slowThreshold atomic.Int64

var (
	OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "alumnichat",
		Name:      "operation_duration_seconds",
		Help:      "Duration of store and api operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"op"})

	MessagesAppended = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alumnichat",
		Name:      "messages_appended_total",
		Help:      "Messages appended, by payload kind.",
	}, []string{"kind"})

	ConversationsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "alumnichat",
		Name:      "conversations_deleted_total",
		Help:      "Conversations removed by a participant or by retention.",
	})

	ReactionChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alumnichat",
		Name:      "reaction_changes_total",
		Help:      "Reaction upserts and removals.",
	}, []string{"action"})

	ConnectionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alumnichat",
		Name:      "connection_transitions_total",
		Help:      "Connection state machine transitions.",
	}, []string{"transition"})

	MarkReads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "alumnichat",
		Name:      "mark_reads_total",
		Help:      "Conversations marked read.",
	})

	SyncRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alumnichat",
		Name:      "sync_refreshes_total",
		Help:      "Client sync refreshes by kind and result.",
	}, []string{"kind", "result"})
)

func init() {
	slowThreshold.Store(int64(200 * time.Millisecond))
	prometheus.MustRegister(OperationDuration, MessagesAppended, ConversationsDeleted, ReactionChanges, ConnectionTransitions, MarkReads, SyncRefreshes)
}

// SetSlowThreshold sets the duration above which finished traces are logged.
func SetSlowThreshold(d time.Duration) {
	if d > 0 {
		slowThreshold.Store(int64(d))
	}
}

// Track starts a new trace.
func Track(name string) *Trace {
	now := time.Now()
	return &Trace{Name: name, Start: now, lastMark: now}
}

// Mark records the elapsed duration since last mark.
func (tr *Trace) Mark(label string) {
	now := time.Now()
	delta := now.Sub(tr.lastMark).Seconds() * 1000
	tr.Steps = append(tr.Steps, Step{Name: label, Duration: delta})
	tr.lastMark = now
}

// Finish records the trace. Safe to call multiple times or via defer.
func (tr *Trace) Finish() {
	if tr.done {
		return
	}
	tr.done = true
	total := time.Since(tr.Start)
	tr.TotalMS = total.Seconds() * 1000

	var sum float64
	for _, s := range tr.Steps {
		sum += s.Duration
	}
	if remaining := tr.TotalMS - sum; remaining > 0.001 {
		tr.Steps = append(tr.Steps, Step{Name: "unmarked", Duration: remaining})
	}

	OperationDuration.WithLabelValues(tr.Name).Observe(total.Seconds())
	if total >= time.Duration(slowThreshold.Load()) {
		logger.Warn("slow_operation", "op", tr.Name, "total_ms", tr.TotalMS, "steps", tr.Steps)
	}
}
