package banner

import (
	"bytes"
	"strings"
	"testing"

	"alumnichat/pkg/config"
)

func TestFprint(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.APIKeys.Backend = []string{"sk"}
	cfg.Retention.Enabled = true
	cfg.Retention.Cron = "0 2 * * *"
	var buf bytes.Buffer
	Fprint(&buf, config.EffectiveConfigResult{Config: cfg, Addr: ":8080", DBPath: "/data", Source: "config"}, "v1.2.3")
	out := buf.String()
	for _, want := range []string{
		"Listen:   :8080",
		"Version:  v1.2.3",
		"Backend API keys: OK (1)",
		"Frontend API keys: MISSING",
		"Storage: pebble",
		"Retention: enabled (cron=0 2 * * *)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q\n%s", want, out)
		}
	}
}
