package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/verdin/sagecycle/audit"
	"github.com/verdin/sagecycle/config"
	"github.com/verdin/sagecycle/providers"
	"github.com/verdin/sagecycle/retention"
	"github.com/verdin/sagecycle/telemetry"
	"github.com/verdin/sagecycle/types"
)

var (
	daemonInterval    time.Duration
	daemonMetricsAddr string
	daemonDryRun      bool
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run periodic retention cleanup",
	Long: `Run sagecycle as a long-lived janitor: a retention cleanup pass on a
fixed interval, Prometheus metrics on /metrics, and graceful shutdown
on SIGINT/SIGTERM.

Each pass behaves exactly like 'sagecycle cleanup': strict eligibility,
per-item fault isolation, journal entries for every decision.`,
	Example: `  sagecycle daemon                       # Clean every hour
  sagecycle daemon --interval 15m        # Shorter cadence
  sagecycle daemon --dry-run             # Observe-only janitor
  sagecycle daemon --metrics-addr :2112  # Custom metrics port`,
	RunE: runDaemonCmd,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", time.Hour, "Cleanup interval")
	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", ":2112", "Metrics HTTP listen address")
	daemonCmd.Flags().BoolVar(&daemonDryRun, "dry-run", false, "Evaluate and report without deleting")
}

func runDaemonCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	ctx := cmd.Context()

	metrics, err := telemetry.NewProvider(ctx, telemetry.ProviderConfig{
		ServiceName:   "sagecycle",
		TraceEndpoint: cfg.OTEL.TraceEndpoint,
		Insecure:      cfg.OTEL.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() { _ = metrics.Shutdown(context.Background()) }()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	journal := openJournal(cfg, log)
	if journal != nil {
		defer func() { _ = journal.Close() }()
	}

	engine := retention.NewEngine(log, journal, metrics)

	log.Info().
		Str("region", cfg.Region).
		Str("project", cfg.Project).
		Dur("interval", daemonInterval).
		Bool("dry_run", daemonDryRun).
		Msg("daemon starting")

	var g run.Group

	// Periodic cleanup.
	loopCtx, loopCancel := context.WithCancel(ctx)
	g.Add(func() error {
		ticker := time.NewTicker(daemonInterval)
		defer ticker.Stop()

		daemonPass(loopCtx, cfg, provider, engine, journal, log)
		for {
			select {
			case <-ticker.C:
				daemonPass(loopCtx, cfg, provider, engine, journal, log)
			case <-loopCtx.Done():
				return loopCtx.Err()
			}
		}
	}, func(error) {
		loopCancel()
	})

	// Metrics listener.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handleHealthz)
	server := &http.Server{Addr: daemonMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	g.Add(func() error {
		log.Info().Str("addr", daemonMetricsAddr).Msg("starting metrics server")
		return server.ListenAndServe()
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})

	// Signals.
	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) || errors.Is(err, context.Canceled) {
		log.Info().Msg("daemon stopped")
		return nil
	}
	return err
}

// daemonPass runs one cleanup sweep across all configured types. Pass
// failures are logged, never fatal: the daemon outlives a bad interval.
func daemonPass(
	ctx context.Context,
	cfg *config.Config,
	provider providers.Provider,
	engine *retention.Engine,
	journal *audit.Journal,
	log *telemetry.Logger,
) {
	start := time.Now().UTC()
	runResult := retention.NewRunResult(cfg.Project, daemonDryRun, start)

	for rt := range cfg.Retention {
		policy, err := cfg.PolicyFor(rt, -1)
		if err != nil {
			log.Error().Err(err).Str("resource_type", string(rt)).Msg("cleanup pass failed")
			continue
		}
		lister, err := provider.Lister(rt)
		if err != nil {
			log.Error().Err(err).Str("resource_type", string(rt)).Msg("cleanup pass failed")
			continue
		}
		deleter, err := provider.Deleter(rt)
		if err != nil {
			log.Error().Err(err).Str("resource_type", string(rt)).Msg("cleanup pass failed")
			continue
		}

		filter := types.ResourceFilter{Project: cfg.Project, Type: rt}
		result, err := engine.Cleanup(ctx, rt, policy,
			func(ctx context.Context) ([]types.Resource, error) { return lister.List(ctx, filter) },
			deleter.Delete,
			time.Now().UTC(),
			daemonDryRun,
		)
		if err != nil {
			log.Error().Err(err).Str("resource_type", string(rt)).Msg("cleanup pass failed")
			continue
		}
		runResult.Add(result)
	}

	runResult.FinishedAt = time.Now().UTC()
	log.Info().
		Int("affected", runResult.TotalAffected()).
		Int("failed", runResult.TotalFailed()).
		Dur("took", runResult.FinishedAt.Sub(start)).
		Msg("cleanup sweep complete")

	// Old journal files follow the same hygiene as everything else.
	if journal != nil {
		if _, err := audit.Sweep(cfg.JournalDir, 30); err != nil {
			log.Warn().Err(err).Msg("journal sweep failed")
		}
	}
}

// handleHealthz answers liveness probes.
func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
