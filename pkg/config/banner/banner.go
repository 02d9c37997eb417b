package banner

import (
	"fmt"
	"io"
	"os"
	"strings"

	"alumnichat/pkg/config"

	"github.com/dustin/go-humanize"
)

const banner = `
   _   _                  _      _           _
  /_\ | |_  _ _ __  _ _  (_)  __| |_  __ _ | |_
 / _ \| | || | '  \| ' \ | | / _| ' \/ _' ||  _|
/_/ \_\_|\_,_|_|_|_|_||_||_| \__|_||_\__,_| \__|
`

// PrintWithEff prints the banner and a production readiness summary.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	Fprint(os.Stdout, eff, version)
}

func Fprint(w io.Writer, eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Fprint(w, banner)
	fmt.Fprintln(w, "== Config =====================================================")
	fmt.Fprintf(w, "Listen:   %s\n", addr)
	fmt.Fprintf(w, "DB Path:  %s\n", eff.DBPath)
	if version != "" {
		fmt.Fprintf(w, "Version:  %s\n", version)
	}
	fmt.Fprintf(w, "Config:   %s\n", src)

	cfg := eff.Config
	if cfg == nil {
		cfg = &config.Config{}
	}

	fmt.Fprintln(w, "\n== Production? =================================================")
	keys := []struct {
		name string
		n    int
		hint string
	}{
		{"Backend", len(cfg.Server.APIKeys.Backend), "required for backend services"},
		{"Frontend", len(cfg.Server.APIKeys.Frontend), "required for client access"},
		{"Admin", len(cfg.Server.APIKeys.Admin), "required for admin tooling"},
	}
	for _, k := range keys {
		if k.n > 0 {
			fmt.Fprintf(w, "- %s API keys: OK (%d)\n", k.name, k.n)
		} else {
			fmt.Fprintf(w, "- %s API keys: MISSING (%s)\n", k.name, k.hint)
		}
	}
	if cfg.Server.TLS.CertFile != "" {
		fmt.Fprintln(w, "- TLS: enabled")
	} else {
		fmt.Fprintln(w, "- TLS: disabled")
	}

	engine := cfg.Storage.Engine
	if engine == "" {
		engine = "pebble"
	}
	fmt.Fprintf(w, "- Storage: %s\n", engine)

	att := cfg.Attachments.Backend
	if att == "" {
		att = "fs"
	}
	if cfg.Attachments.MaxSize > 0 {
		att += ", max " + humanize.IBytes(uint64(cfg.Attachments.MaxSize))
	}
	fmt.Fprintf(w, "- Attachments: %s\n", att)

	if n := len(cfg.Chat.Reactions.Palette); n > 0 {
		fmt.Fprintf(w, "- Reactions: %s\n", strings.Join(cfg.Chat.Reactions.Palette, " "))
	} else {
		fmt.Fprintln(w, "- Reactions: default palette")
	}

	if cfg.Retention.Enabled {
		info := "cron=" + cfg.Retention.Cron
		if cfg.Retention.Period > 0 {
			info += ", period=" + cfg.Retention.Period.String()
		}
		if cfg.Retention.DryRun {
			info += ", dry-run"
		}
		fmt.Fprintf(w, "- Retention: enabled (%s)\n", info)
	} else {
		fmt.Fprintln(w, "- Retention: disabled")
	}
	fmt.Fprintln(w)
}
