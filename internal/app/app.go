package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/valyala/fasthttp"

	"alumnichat/internal/retention"
	"alumnichat/pkg/api"
	"alumnichat/pkg/attachments"
	"alumnichat/pkg/config"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/state"
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/kv"
	"alumnichat/pkg/telemetry"
)

// App groups server state and components.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string
	paths     state.Paths

	db        *store.DB
	att       attachments.Store
	deps      api.Deps
	retention *retention.Manager

	mu              sync.Mutex
	retentionCancel context.CancelFunc
	srvFast         *fasthttp.Server
	state           string
}

// New opens the store and the attachment backend and wires the services.
// It does not start the http server or the retention scheduler; Run does.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	if err := validateConfig(eff); err != nil {
		return nil, err
	}
	cfg := eff.Config

	telemetry.SetSlowThreshold(cfg.Telemetry.SlowThreshold.Duration())
	config.SetRuntime(config.RuntimeFrom(cfg))

	paths := state.PathsFor(filepath.Clean(eff.DBPath))
	if err := state.EnsureStateDirs(paths.DB); err != nil {
		return nil, err
	}

	engine, err := openEngine(cfg.Storage, paths.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store at %s: %w", cfg.Storage.Engine, paths.Store, err)
	}
	db, err := store.Open(engine, store.Options{
		Palette:      cfg.Chat.Reactions.Palette,
		MaxBodyBytes: int(cfg.Chat.MaxBodyBytes.Int64()),
	})
	if err != nil {
		_ = engine.Close()
		return nil, err
	}

	att, err := attachments.New(context.Background(), cfg.Attachments, paths.Attachments)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open attachment backend: %w", err)
	}

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		paths:     paths,
		db:        db,
		att:       att,
		state:     "initialized",
	}
	a.deps = api.NewDeps(db, att, cfg.Chat.HistoryLimit)
	a.retention = retention.New(cfg.Retention, db, a.deps.Messages, paths.Retention)
	if cfg.Retention.Enabled {
		a.deps.RunRetention = func(ctx context.Context) (any, error) {
			return a.retention.RunOnce(ctx)
		}
	}

	logger.LogConfigSummary("config_summary", []string{
		fmt.Sprintf("storage_engine: %s", engine.Name()),
		fmt.Sprintf("max_body: %s", humanize.IBytes(uint64(db.MaxBodyBytes()))),
		fmt.Sprintf("attachments: %s (max %s)", cfg.Attachments.Backend, cfg.Attachments.MaxSize),
		fmt.Sprintf("history_limit: %d", cfg.Chat.HistoryLimit),
		fmt.Sprintf("palette: %d emoji", len(db.Palette())),
		fmt.Sprintf("retention: %t", cfg.Retention.Enabled),
	})
	return a, nil
}

func openEngine(cfg config.StorageConfig, path string) (kv.Engine, error) {
	syncWrites := cfg.SyncWrites == nil || *cfg.SyncWrites
	switch cfg.Engine {
	case "", "pebble":
		return kv.OpenPebble(path, kv.PebbleOptions{SyncWrites: syncWrites})
	case "badger":
		return kv.OpenBadger(path, kv.BadgerOptions{SyncWrites: syncWrites, Logger: logger.Log})
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Engine)
	}
}

// Run starts the retention scheduler and the http server, then blocks until
// ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	rctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.retentionCancel = cancel
	a.state = "running"
	a.mu.Unlock()
	a.retention.Start(rctx)

	errCh := a.startHTTP()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Deps exposes the wired services.
func (a *App) Deps() api.Deps { return a.deps }

// State reports the lifecycle phase.
func (a *App) State() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
