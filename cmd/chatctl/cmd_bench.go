package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	vegeta "github.com/tsenart/vegeta/v12/lib"

	"alumnichat/pkg/auth"
	"alumnichat/pkg/models"
)

// benchConfig describes one load run against POST /v1/messages.
type benchConfig struct {
	BaseURL  string
	Headers  http.Header
	Peer     string
	RPS      int
	Duration time.Duration
	Workers  int
	Size     int
}

// benchReport is the summary printed after a run.
type benchReport struct {
	Requests    uint64         `json:"requests" yaml:"requests"`
	SuccessRate float64        `json:"success_rate" yaml:"success_rate"`
	Throughput  float64        `json:"throughput_rps" yaml:"throughput_rps"`
	Elapsed     string         `json:"elapsed" yaml:"elapsed"`
	Sent        string         `json:"sent" yaml:"sent"`
	Mean        string         `json:"mean" yaml:"mean"`
	P50         string         `json:"p50" yaml:"p50"`
	P90         string         `json:"p90" yaml:"p90"`
	P99         string         `json:"p99" yaml:"p99"`
	Max         string         `json:"max" yaml:"max"`
	StatusCodes map[string]int `json:"status_codes" yaml:"status_codes"`
	Errors      []string       `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// headers returns the identity headers requests are sent with.
func (c *Config) headers() http.Header {
	h := http.Header{"Content-Type": {"application/json"}}
	if c.Server.APIKey != "" {
		h.Set("Authorization", "Bearer "+c.Server.APIKey)
	}
	if c.User.Name != "" {
		h.Set(auth.HeaderUserID, c.User.Name)
	}
	sig := c.User.Signature
	if sig == "" && c.User.SigningKey != "" && c.User.Name != "" {
		sig = auth.CreateHMACSignature(c.User.Name, c.User.SigningKey)
	}
	if sig != "" {
		h.Set(auth.HeaderUserSignature, sig)
	}
	return h
}

func benchBody(i, size int) string {
	prefix := fmt.Sprintf("bench %d ", i)
	if size <= len(prefix) {
		return prefix
	}
	return prefix + strings.Repeat("x", size-len(prefix))
}

// benchTargets pre-generates one send per planned request so every message
// body is distinct.
func benchTargets(cfg benchConfig) ([]vegeta.Target, error) {
	n := cfg.RPS * int(cfg.Duration.Seconds())
	if n < 1 {
		n = 1
	}
	url := strings.TrimSuffix(cfg.BaseURL, "/") + "/v1/messages"
	targets := make([]vegeta.Target, 0, n)
	for i := 0; i < n; i++ {
		body, err := json.Marshal(struct {
			Receiver string `json:"receiver"`
			models.Payload
		}{Receiver: cfg.Peer, Payload: models.Payload{Body: benchBody(i+1, cfg.Size)}})
		if err != nil {
			return nil, err
		}
		targets = append(targets, vegeta.Target{Method: "POST", URL: url, Body: body, Header: cfg.Headers})
	}
	return targets, nil
}

func runBench(cfg benchConfig) (benchReport, error) {
	targets, err := benchTargets(cfg)
	if err != nil {
		return benchReport{}, err
	}
	targeter := vegeta.NewStaticTargeter(targets...)
	rate := vegeta.Rate{Freq: cfg.RPS, Per: time.Second}
	attacker := vegeta.NewAttacker(vegeta.Workers(uint64(cfg.Workers)))

	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, rate, cfg.Duration, "send_messages") {
		metrics.Add(res)
	}
	metrics.Close()
	return reportFrom(&metrics), nil
}

func reportFrom(m *vegeta.Metrics) benchReport {
	rep := benchReport{
		Requests:    m.Requests,
		SuccessRate: m.Success,
		Throughput:  m.Throughput,
		Elapsed:     (m.Duration + m.Wait).Round(time.Millisecond).String(),
		Sent:        humanize.IBytes(m.BytesOut.Total),
		Mean:        m.Latencies.Mean.String(),
		P50:         m.Latencies.P50.String(),
		P90:         m.Latencies.P90.String(),
		P99:         m.Latencies.P99.String(),
		Max:         m.Latencies.Max.String(),
		StatusCodes: make(map[string]int, len(m.StatusCodes)),
	}
	for code, n := range m.StatusCodes {
		rep.StatusCodes[code] = n
	}
	rep.Errors = append(rep.Errors, m.Errors...)
	sort.Strings(rep.Errors)
	return rep
}

func benchCmd() *cobra.Command {
	var (
		rps      int
		duration time.Duration
		workers  int
		size     int
	)
	cmd := &cobra.Command{
		Use:   "bench <peer>",
		Short: "Send messages to a connected peer at a fixed rate and report latency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rps <= 0 || workers <= 0 || duration <= 0 {
				return fmt.Errorf("--rps, --workers and --duration must be positive")
			}
			cfg, err := currentConfig()
			if err != nil {
				return err
			}
			if cfg.Server.BaseURL == "" {
				return fmt.Errorf("server.base_url is not set")
			}
			bc := benchConfig{
				BaseURL:  cfg.Server.BaseURL,
				Headers:  cfg.headers(),
				Peer:     args[0],
				RPS:      rps,
				Duration: duration,
				Workers:  workers,
				Size:     size,
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "sending to %s at %d msg/s for %s with %d workers\n", bc.Peer, rps, duration, workers)
			rep, err := runBench(bc)
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().IntVar(&rps, "rps", 50, "messages per second")
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "how long to run")
	cmd.Flags().IntVar(&workers, "workers", 4, "initial attack workers")
	cmd.Flags().IntVar(&size, "size", 64, "message body size in bytes")
	return cmd
}
