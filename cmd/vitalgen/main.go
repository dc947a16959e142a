// Command vitalgen generates synthetic birth and death registrations against
// a running registration platform.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vitalgen/internal/auth"
	"vitalgen/internal/collector"
	"vitalgen/internal/config"
	"vitalgen/internal/core"
	"vitalgen/internal/gateway"
	"vitalgen/internal/generator"
	vhttp "vitalgen/internal/http"
	"vitalgen/internal/metrics"
	"vitalgen/internal/progress"
)

const (
	ExitSuccess = 0
	ExitFatal   = 1
	ExitError   = 2
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (defaults are used when empty)")
	output := flag.String("output", "text", "summary format: text, json")
	logFormat := flag.String("log-format", "text", "log format: text, json")
	quiet := flag.Bool("quiet", false, "only log warnings and errors")
	verbose := flag.Bool("verbose", false, "dump every request and response to stderr")
	seed := flag.Uint64("seed", 0, "random seed (0 = config value, or random)")
	concurrency := flag.Int("concurrency", 0, "max work units in flight (0 = config value)")
	rps := flag.Int("rps", -1, "max work units started per second (0 = unlimited, -1 = config value)")
	locations := flag.String("locations", "", "comma separated district ids or names (empty = config value)")
	metricsAddr := flag.String("metrics-addr", "", "serve prometheus metrics on this address")
	flag.Parse()

	if *output != "text" && *output != "json" {
		fmt.Fprintf(os.Stderr, "error: --output must be 'text' or 'json', got %q\n", *output)
		os.Exit(ExitError)
	}
	if *logFormat != "text" && *logFormat != "json" {
		fmt.Fprintf(os.Stderr, "error: --log-format must be 'text' or 'json', got %q\n", *logFormat)
		os.Exit(ExitError)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(ExitError)
		}
	}

	// CLI flags override config file values
	if *seed != 0 {
		cfg.Run.Seed = *seed
	}
	if *concurrency > 0 {
		cfg.Run.Concurrency = *concurrency
	}
	if *rps >= 0 {
		cfg.Run.RPS = *rps
	}
	if *locations != "" {
		cfg.Run.Locations = splitList(*locations)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid configuration:\n%v\n", err)
		os.Exit(ExitError)
	}

	logger := newLogger(*logFormat, *quiet)
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = serveMetrics(cfg.Metrics.Addr, reg, logger)
	}

	var debugLogger *vhttp.DebugLogger
	if *verbose {
		debugLogger = vhttp.NewDebugLogger(os.Stderr)
	}
	transport := vhttp.NewClient(&http.Client{Timeout: cfg.Platform.RequestTimeout}, debugLogger)

	rnd := core.NewRand(cfg.Run.Seed)
	platform := gateway.NewClient(gateway.Config{
		GatewayURL:       cfg.Platform.GatewayURL,
		UserMgntURL:      cfg.Platform.UserMgntURL,
		CountryConfigURL: cfg.Platform.CountryConfigURL,
		Password:         cfg.Admin.UserPassword,
	}, transport, gateway.NewFaker(rnd.Seed()), gateway.WithLogger(logger))
	authn := auth.NewClient(cfg.Platform.AuthURL, cfg.Admin.VerificationCode, transport)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	interrupted := watchSignals(sigCh, cancel, logger)

	coll := collector.NewCollector()
	prog := progress.NewProgress(coll, logger)
	prog.Start()

	gen := generator.New(cfg, platform, authn,
		generator.WithRand(rnd),
		generator.WithLogger(logger),
		generator.WithMetrics(m),
		generator.WithCollector(coll),
		generator.WithProgress(prog),
	)
	summary, runErr := gen.Run(ctx)

	prog.Stop()
	coll.Close()
	cancel()
	if metricsServer != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		done()
	}

	computed := coll.Compute()
	if *output == "json" {
		collector.FormatJSON(os.Stdout, computed, summary.Units)
	} else {
		collector.FormatText(os.Stdout, computed, summary.Units)
		fmt.Fprintf(os.Stdout, "\nSeed: %d\n", summary.Seed)
		if len(summary.SkippedLocations) > 0 {
			fmt.Fprintf(os.Stdout, "Skipped locations (no CRVS office): %s\n", strings.Join(summary.SkippedLocations, ", "))
		}
	}
	if dropped := coll.DroppedEvents(); dropped > 0 {
		logger.Warn("events dropped by collector", "count", dropped)
	}

	if interrupted.Load() {
		os.Exit(ExitSuccess)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("generation failed", "error", runErr)
		os.Exit(ExitFatal)
	}
	os.Exit(ExitSuccess)
}

// watchSignals cancels the run on the first signal from sigCh. The returned
// flag is set before cancel is called.
func watchSignals(sigCh <-chan os.Signal, cancel context.CancelFunc, logger *slog.Logger) *atomic.Bool {
	var interrupted atomic.Bool
	go func() {
		if _, ok := <-sigCh; !ok {
			return
		}
		interrupted.Store(true)
		logger.Warn("received interrupt signal, shutting down")
		cancel()
	}()
	return &interrupted
}

func newLogger(format string, quiet bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if quiet {
		opts.Level = slog.LevelWarn
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
