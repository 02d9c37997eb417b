package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/go-playground/validator/v10"
)

const (
	defaultRateRPS          = 1000
	defaultRateBurst        = 1000
	defaultEngine           = "pebble"
	defaultMaxBodyBytes     = 16 * 1024
	defaultHistoryLimit     = 100
	defaultAttachmentsMax   = 10 * 1024 * 1024
	defaultAttachmentsURL   = "/v1/attachments"
	defaultMessageInterval  = 2 * time.Second
	defaultPeerInterval     = 30 * time.Second
	defaultBottomThreshold  = 50
	defaultRetentionCron    = "0 2 * * *" // daily at 02:00
	defaultRetentionPeriod  = 365 * 24 * time.Hour
	defaultRetentionLockTTL = 300 * time.Second
	minRetentionPeriod      = time.Hour
	defaultSlowThreshold    = 200 * time.Millisecond
	defaultLogLevel         = "info"
)

// ApplyDefaults fills every unset value.
func (c *Config) ApplyDefaults() {
	if c.Server.RateLimit.RPS <= 0 {
		c.Server.RateLimit.RPS = defaultRateRPS
	}
	if c.Server.RateLimit.Burst <= 0 {
		c.Server.RateLimit.Burst = defaultRateBurst
	}
	if c.Storage.Engine == "" {
		c.Storage.Engine = defaultEngine
	}
	if c.Storage.SyncWrites == nil {
		on := true
		c.Storage.SyncWrites = &on
	}
	if c.Chat.MaxBodyBytes <= 0 {
		c.Chat.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.Chat.HistoryLimit <= 0 {
		c.Chat.HistoryLimit = defaultHistoryLimit
	}
	if c.Attachments.Backend == "" {
		c.Attachments.Backend = "fs"
	}
	if c.Attachments.MaxSize <= 0 {
		c.Attachments.MaxSize = defaultAttachmentsMax
	}
	if c.Attachments.PublicURL == "" && c.Attachments.Backend == "fs" {
		c.Attachments.PublicURL = defaultAttachmentsURL
	}
	if c.Sync.MessageInterval <= 0 {
		c.Sync.MessageInterval = Duration(defaultMessageInterval)
	}
	if c.Sync.PeerInterval <= 0 {
		c.Sync.PeerInterval = Duration(defaultPeerInterval)
	}
	if c.Sync.BottomThreshold == 0 {
		c.Sync.BottomThreshold = defaultBottomThreshold
	}
	if c.Retention.Cron == "" {
		c.Retention.Cron = defaultRetentionCron
	}
	if c.Retention.Period <= 0 {
		c.Retention.Period = Duration(defaultRetentionPeriod)
	}
	if c.Retention.LockTTL <= 0 {
		c.Retention.LockTTL = Duration(defaultRetentionLockTTL)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Telemetry.SlowThreshold <= 0 {
		c.Telemetry.SlowThreshold = Duration(defaultSlowThreshold)
	}
}

// ValidateConfig sets defaults and fails fast on critical errors.
func ValidateConfig(eff EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}
	if strings.TrimSpace(eff.DBPath) == "" {
		return fmt.Errorf("database path is empty: set --db flag, ALUMNICHAT_DB_PATH env, or server.db_path in config")
	}
	cfg.ApplyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// TLS cert/key presence check if one is set
	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	if cfg.Attachments.Backend == "gcs" && strings.TrimSpace(cfg.Attachments.GCS.Bucket) == "" {
		return fmt.Errorf("attachments.gcs.bucket is required when attachments.backend is gcs")
	}

	if cfg.Retention.Enabled {
		if !gronx.New().IsValid(cfg.Retention.Cron) {
			return fmt.Errorf("invalid retention.cron: not a valid cron expression")
		}
		if cfg.Retention.Period.Duration() < minRetentionPeriod {
			return fmt.Errorf("retention.period %s is below the minimum of %s", cfg.Retention.Period, minRetentionPeriod)
		}
	}
	return nil
}
