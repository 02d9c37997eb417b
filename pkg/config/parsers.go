package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// EnvResult reports what the environment contributed.
type EnvResult struct {
	BackendKeys map[string]struct{}
	SigningKeys map[string]struct{}
	EnvUsed     bool
}

// EffectiveConfigResult is the single source the server runs with.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // flags, config, env or defaults
}

// ParseConfigFlags parses the process command line. Only three values can be
// given as flags; everything else lives in the config file or environment.
func ParseConfigFlags() Flags {
	f, err := ParseConfigFlagSet(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	return f
}

// ParseConfigFlagSet registers and parses the server flags on fs.
func ParseConfigFlagSet(fs *flag.FlagSet, args []string) (Flags, error) {
	addrPtr := fs.String("addr", ":8080", "HTTP listen address")
	dbPtr := fs.String("db", "./.database", "database path")
	cfgPtr := fs.String("config", "./config.yaml", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}, nil
}

// ParseConfigFile loads the config file; found is false when it does not exist.
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := LoadConfigFile(cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// ParseConfigEnvs loads ALUMNICHAT_* variables into a new Config.
func ParseConfigEnvs() (*Config, EnvResult) {
	return parseEnvs(os.Getenv)
}

func parseList(v string) []string {
	if v == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func splitAddr(cfg *Config, v string) {
	if h, p, err := net.SplitHostPort(v); err == nil {
		cfg.Server.Address = h
		if pi, err := strconv.Atoi(p); err == nil {
			cfg.Server.Port = pi
		}
		return
	}
	cfg.Server.Address = v
}

func parseEnvs(getenv func(string) string) (*Config, EnvResult) {
	names := []string{
		"SERVER_ADDR", "SERVER_ADDRESS", "SERVER_PORT", "DB_PATH",
		"TLS_CERT", "TLS_KEY", "CORS_ORIGINS", "RATE_RPS", "RATE_BURST", "IP_WHITELIST",
		"API_BACKEND_KEYS", "API_FRONTEND_KEYS", "API_ADMIN_KEYS", "SIGNING_KEYS",
		"STORAGE_ENGINE", "STORAGE_SYNC_WRITES",
		"CHAT_REACTIONS", "CHAT_MAX_BODY_BYTES", "CHAT_HISTORY_LIMIT",
		"ATTACHMENTS_BACKEND", "ATTACHMENTS_DIR", "ATTACHMENTS_PUBLIC_URL", "ATTACHMENTS_MAX_SIZE",
		"ATTACHMENTS_GCS_BUCKET", "ATTACHMENTS_GCS_PREFIX", "ATTACHMENTS_GCS_CREDENTIALS_FILE",
		"SYNC_MESSAGE_INTERVAL", "SYNC_PEER_INTERVAL", "SYNC_BOTTOM_THRESHOLD",
		"RETENTION_ENABLED", "RETENTION_CRON", "RETENTION_PERIOD", "RETENTION_DRY_RUN", "RETENTION_LOCK_TTL",
		"LOG_LEVEL", "LOG_AUDIT", "TELEMETRY_SLOW_THRESHOLD",
	}
	envs := make(map[string]string, len(names))
	envUsed := false
	for _, n := range names {
		v := getenv("ALUMNICHAT_" + n)
		envs[n] = v
		if v != "" {
			envUsed = true
		}
	}

	envCfg := &Config{}
	dur := func(v string) Duration {
		d, _ := ParseDuration(v)
		return d
	}
	size := func(v string) SizeBytes {
		s, _ := ParseSize(v)
		return s
	}

	if v := envs["SERVER_ADDR"]; v != "" {
		splitAddr(envCfg, v)
	} else {
		if host := envs["SERVER_ADDRESS"]; host != "" {
			envCfg.Server.Address = host
		}
		if port := envs["SERVER_PORT"]; port != "" {
			if pi, err := strconv.Atoi(port); err == nil {
				envCfg.Server.Port = pi
			}
		}
	}
	envCfg.Server.DBPath = envs["DB_PATH"]
	envCfg.Server.TLS.CertFile = envs["TLS_CERT"]
	envCfg.Server.TLS.KeyFile = envs["TLS_KEY"]
	envCfg.Server.CORS.AllowedOrigins = parseList(envs["CORS_ORIGINS"])
	if v := envs["RATE_RPS"]; v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envCfg.Server.RateLimit.RPS = f
		}
	}
	if v := envs["RATE_BURST"]; v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envCfg.Server.RateLimit.Burst = n
		}
	}
	envCfg.Server.IPWhitelist = parseList(envs["IP_WHITELIST"])
	envCfg.Server.APIKeys.Backend = parseList(envs["API_BACKEND_KEYS"])
	envCfg.Server.APIKeys.Frontend = parseList(envs["API_FRONTEND_KEYS"])
	envCfg.Server.APIKeys.Admin = parseList(envs["API_ADMIN_KEYS"])
	envCfg.Server.SigningKeys = parseList(envs["SIGNING_KEYS"])

	envCfg.Storage.Engine = strings.ToLower(strings.TrimSpace(envs["STORAGE_ENGINE"]))
	if v := envs["STORAGE_SYNC_WRITES"]; v != "" {
		b := parseBool(v)
		envCfg.Storage.SyncWrites = &b
	}

	envCfg.Chat.Reactions.Palette = parseList(envs["CHAT_REACTIONS"])
	envCfg.Chat.MaxBodyBytes = size(envs["CHAT_MAX_BODY_BYTES"])
	if v := envs["CHAT_HISTORY_LIMIT"]; v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envCfg.Chat.HistoryLimit = n
		}
	}

	envCfg.Attachments.Backend = strings.ToLower(strings.TrimSpace(envs["ATTACHMENTS_BACKEND"]))
	envCfg.Attachments.Dir = envs["ATTACHMENTS_DIR"]
	envCfg.Attachments.PublicURL = envs["ATTACHMENTS_PUBLIC_URL"]
	envCfg.Attachments.MaxSize = size(envs["ATTACHMENTS_MAX_SIZE"])
	envCfg.Attachments.GCS.Bucket = envs["ATTACHMENTS_GCS_BUCKET"]
	envCfg.Attachments.GCS.Prefix = envs["ATTACHMENTS_GCS_PREFIX"]
	envCfg.Attachments.GCS.CredentialsFile = envs["ATTACHMENTS_GCS_CREDENTIALS_FILE"]

	envCfg.Sync.MessageInterval = dur(envs["SYNC_MESSAGE_INTERVAL"])
	envCfg.Sync.PeerInterval = dur(envs["SYNC_PEER_INTERVAL"])
	if v := envs["SYNC_BOTTOM_THRESHOLD"]; v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envCfg.Sync.BottomThreshold = n
		}
	}

	envCfg.Retention.Enabled = parseBool(envs["RETENTION_ENABLED"])
	envCfg.Retention.Cron = envs["RETENTION_CRON"]
	envCfg.Retention.Period = dur(envs["RETENTION_PERIOD"])
	envCfg.Retention.DryRun = parseBool(envs["RETENTION_DRY_RUN"])
	envCfg.Retention.LockTTL = dur(envs["RETENTION_LOCK_TTL"])

	envCfg.Logging.Level = strings.TrimSpace(envs["LOG_LEVEL"])
	envCfg.Logging.Audit = parseBool(envs["LOG_AUDIT"])
	envCfg.Telemetry.SlowThreshold = dur(envs["TELEMETRY_SLOW_THRESHOLD"])

	rc := RuntimeFrom(envCfg)
	return envCfg, EnvResult{BackendKeys: rc.BackendKeys, SigningKeys: rc.SigningKeys, EnvUsed: envUsed}
}

// LoadEffectiveConfig picks a single source. If --config is set only the
// file is used; otherwise explicit --addr/--db override the file (or env)
// config; else the config file if present; else the environment.
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config, envRes EnvResult) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult
	if fileCfg == nil {
		fileCfg = &Config{}
	}
	if envCfg == nil {
		envCfg = &Config{}
	}

	if flags.Set["config"] {
		if !fileExists {
			return res, fmt.Errorf("config file %s not found", flags.Config)
		}
		res.Config = fileCfg
		res.Addr = fileCfg.Addr()
		res.DBPath = fileCfg.Server.DBPath
		res.Source = "config"
		return res, nil
	}

	base := envCfg
	if fileExists {
		base = fileCfg
	}

	if flags.Set["addr"] || flags.Set["db"] {
		out := *base
		if flags.Set["addr"] {
			splitAddr(&out, flags.Addr)
		}
		if flags.Set["db"] {
			out.Server.DBPath = flags.DB
		} else if strings.TrimSpace(out.Server.DBPath) == "" {
			out.Server.DBPath = flags.DB
		}
		res.Config = &out
		res.Addr = out.Addr()
		res.DBPath = out.Server.DBPath
		res.Source = "flags"
		return res, nil
	}

	res.Config = base
	switch {
	case fileExists:
		res.Source = "config"
	case envRes.EnvUsed:
		res.Source = "env"
	default:
		res.Source = "defaults"
	}
	if strings.TrimSpace(base.Server.DBPath) == "" {
		base.Server.DBPath = flags.DB
	}
	res.Addr = base.Addr()
	res.DBPath = base.Server.DBPath
	return res, nil
}
