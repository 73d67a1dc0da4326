// Package cmd implements the CLI entrypoint: flag parsing, wiring every
// collaborator the coordinator needs, and the top-level run loop.
// Grounded on the teacher's cmd/root.go (flag-based CLI, usage banner,
// -json one-shot mode) and main.go (ExitCodeError unwrap pattern),
// narrowed to the modes spec.md actually describes.
package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ftahirops/sentinel/internal/alerts"
	"github.com/ftahirops/sentinel/internal/config"
	"github.com/ftahirops/sentinel/internal/coordinator"
	"github.com/ftahirops/sentinel/internal/llmclient"
	"github.com/ftahirops/sentinel/internal/metricsexport"
	"github.com/ftahirops/sentinel/internal/probe"
	"github.com/ftahirops/sentinel/internal/smtpnotify"
	"github.com/ftahirops/sentinel/internal/store"
	"github.com/ftahirops/sentinel/internal/thermal"
	"github.com/ftahirops/sentinel/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// defaultRetention is spec.md §4.4's retention_secs default; it is not
// one of the config.toml keys spec.md §6 exposes, so it stays a
// constant rather than a loaded field.
const defaultRetention = 86400 * time.Second

// defaultPromAddr mirrors the teacher's own -prom-addr default.
const defaultPromAddr = ":9100"

// ExitCodeError signals a non-zero exit code without calling os.Exit
// directly, so Run can be tested without terminating the test binary.
type ExitCodeError struct{ Code int }

func (e ExitCodeError) Error() string { return fmt.Sprintf("exit %d", e.Code) }

func printUsage() {
	fmt.Fprintf(os.Stderr, `sentinel v%s — host observability engine

Usage:
  sentinel [OPTIONS]

Modes:
  (default)    Interactive TUI, sampling on refresh_interval_ms from config.toml
  -json        Single JSON snapshot to stdout, then exit
  -version     Print version and exit

Options:
  -prom             Enable the Prometheus metrics endpoint
  -prom-addr ADDR   Prometheus listen address (default: %s)
`, Version, defaultPromAddr)
}

// Run parses flags and starts the application.
func Run() error {
	var (
		jsonMode    bool
		showVersion bool
		promEnabled bool
		promAddr    string
	)
	flag.BoolVar(&jsonMode, "json", false, "single JSON snapshot to stdout, then exit")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.BoolVar(&promEnabled, "prom", false, "enable the Prometheus metrics endpoint")
	flag.StringVar(&promAddr, "prom-addr", defaultPromAddr, "Prometheus listen address")
	flag.Usage = printUsage
	flag.Parse()

	if showVersion {
		fmt.Println(Version)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	creds, err := config.LoadCredentials()
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	dbPath, err := config.DBPath()
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.Open(dbPath, defaultRetention)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer st.Close()

	prober := probe.NewProber()

	if jsonMode {
		return runJSON(prober)
	}

	prober.Settle()

	detector := alerts.NewDetector(cfg.ToThresholds())
	thermalController := thermal.NewController(cfg.ToThermalConfig(creds.Present()))
	notifier := smtpnotify.New(smtpnotify.Config{
		User:      creds.SMTPUser,
		Password:  creds.SMTPPassword,
		Recipient: creds.SMTPRecipient,
	})

	state := newStateHolder(st)
	sinks := multiMetricsSink{state}
	if promEnabled {
		exporter := metricsexport.New()
		sinks = append(sinks, exporter)
		go serveMetrics(exporter, promAddr)
	}

	llmEvents := make(chan llmclient.Event, 64)
	llmClient := newLLMClient(creds)
	dispatcher := &autoAnalysisDispatcher{client: llmClient, store: st, state: state, events: llmEvents}

	coord := coordinator.New(coordinator.Config{
		Prober:               prober,
		RefreshInterval:      time.Duration(cfg.RefreshIntervalMs) * time.Millisecond,
		Detector:             detector,
		Store:                st,
		Thermal:              thermalController,
		Notifier:             notifier,
		Metrics:              sinks,
		AutoAnalysis:         dispatcher,
		AutoAnalysisInterval: time.Duration(cfg.AutoAnalysisIntervalSecs) * time.Second,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go coord.Run(ctx)

	m := tui.New(state, time.Duration(cfg.RefreshIntervalMs)*time.Millisecond, llmEvents)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// newLLMClient wires the LLM collaborator from whichever credential is
// present; a SENTINEL_LLM_API_KEY wins over OAuth token-file auth, and
// an absent endpoint env var disables the client entirely (Enabled()
// returns false, so the dispatcher's DispatchAutoAnalysis is a no-op).
func newLLMClient(creds config.Credentials) *llmclient.Client {
	endpoint := os.Getenv("SENTINEL_LLM_ENDPOINT")
	if endpoint == "" {
		return llmclient.New(llmclient.Config{})
	}
	return llmclient.New(llmclient.Config{
		Endpoint:       endpoint,
		Model:          os.Getenv("SENTINEL_LLM_MODEL"),
		APIKey:         creds.LLMAPIKey,
		OAuthTokenPath: os.Getenv("SENTINEL_LLM_TOKEN_PATH"),
	})
}

func serveMetrics(exporter *metricsexport.Exporter, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("sentinel: metrics server stopped: %v", err)
	}
}

// runJSON outputs a single snapshot to stdout and exits, mirroring the
// teacher's own -json one-shot mode.
func runJSON(prober *probe.Prober) error {
	prober.Settle()
	snap, procs, err := prober.Probe()
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"timestamp": time.Now().Format(time.RFC3339),
		"snapshot":  snap,
		"processes": procs,
	})
}
