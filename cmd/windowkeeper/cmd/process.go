package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/solatis/windowkeeper/internal/core/config"
	"github.com/solatis/windowkeeper/internal/core/dashboard"
	"github.com/solatis/windowkeeper/internal/core/logging"
	"github.com/solatis/windowkeeper/internal/core/server"
	"github.com/solatis/windowkeeper/internal/pipeline"
	"github.com/solatis/windowkeeper/internal/rules"
	"github.com/solatis/windowkeeper/internal/types"
	"github.com/solatis/windowkeeper/internal/window"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Evaluate a stream of observations and emit condition snapshots",
	Long: `Reads JSONL observations from --input (default stdin), evaluates them against the
loaded rules and writes one JSON snapshot per touched rule and batch to stdout.

Rules come from --rules-file or, when it is not given, from the dashboard; in the
latter case they are marked synchronized once the stream has been processed.`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().String("rules-file", "", "JSON file with component rules (default: fetch from dashboard)")
	processCmd.Flags().String("input", "-", "observation JSONL file, - for stdin")
	processCmd.Flags().String("host", "0.0.0.0", "gRPC health server host")
	processCmd.Flags().Int("port", 50052, "gRPC health server port")
	processCmd.Flags().String("metrics-addr", ":9090", "metrics listen address, empty to disable")
	processCmd.Flags().Int("workers", 4, "engine workers")
	processCmd.Flags().Bool("no-health", false, "do not start the gRPC health server")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := logging.FromContext(ctx)

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyProcessFlags(cmd, cfg)

	rt, err := openBackends(ctx, cfg, dbURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warnw("Failed to close state backends", "error", err)
		}
	}()

	rulesFile, _ := cmd.Flags().GetString("rules-file")
	var client *dashboard.Client
	var defs []types.ComponentRules
	if rulesFile != "" {
		defs, err = readRulesFile(rulesFile)
	} else {
		client, err = newDashboardClient(cfg)
		if err == nil {
			defs, err = client.ActiveComponentRules(ctx)
		}
	}
	if err != nil {
		return err
	}

	buffer := pipeline.NewFragmentBuffer()
	loaded, err := loadRules(ctx, defs, buffer, rt.stats)
	if err != nil {
		return err
	}

	input, err := openInput(cmd)
	if err != nil {
		return err
	}
	defer input.Close()

	shutdown, err := startServers(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Warnw("Failed to stop servers", "error", err)
		}
	}()

	engine := pipeline.NewEngine(
		pipeline.NewCollector(loaded, buffer, rt.stats),
		pipeline.NewDispatcher(
			cfg.Engine.Workers,
			pipeline.NewPersister(rt.store, window.NewEvaluator(cfg.Engine.ReorderTolerance)),
			pipeline.NewJSONLEmitter(os.Stdout),
		),
	)

	log.Infow("Starting windowkeeper", "version", Version, "rules", len(loaded), "workers", cfg.Engine.Workers)
	stats, err := engine.Run(ctx, pipeline.NewObservationReader(input, cfg.Engine.MaxBatchSize))
	log.Infow("Processing finished",
		"batches", stats.Batches,
		"observations", stats.Observations,
		"snapshots", stats.Snapshots,
	)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	if horizon := baselineHorizon(loaded); horizon > 0 && stats.Observations > 0 {
		pruned, err := rt.stats.Prune(ctx, stats.Latest-horizon)
		if err != nil {
			log.Warnw("Failed to prune baseline observations", "error", err)
		} else {
			log.Debugw("Pruned baseline observations", "rows", pruned)
		}
	}

	if client != nil {
		if err := client.MarkRulesSynchronized(ctx, rules.RuleIDs(loaded)); err != nil {
			return err
		}
		log.Infow("Rules marked synchronized", "rules", len(loaded))
	}
	return nil
}

// applyProcessFlags overrides configuration with flags set on the command line.
func applyProcessFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	}
	if cmd.Flags().Changed("workers") {
		if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
			cfg.Engine.Workers = workers
		}
	}
}

func openInput(cmd *cobra.Command) (io.ReadCloser, error) {
	path, _ := cmd.Flags().GetString("input")
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

// startServers starts the health and metrics endpoints and returns the
// function stopping both.
func startServers(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (func(context.Context) error, error) {
	log := logging.FromContext(ctx)
	var stops []func(context.Context) error

	if cfg.MetricsAddr != "" {
		stopMetrics, err := server.NewMetricsServer(cfg.MetricsAddr).Start(ctx)
		if err != nil {
			return nil, err
		}
		stops = append(stops, stopMetrics)
	}

	if noHealth, _ := cmd.Flags().GetBool("no-health"); !noHealth {
		health, err := server.NewGRPCServer(cfg)
		if err == nil {
			err = health.Listen()
		}
		if err != nil {
			for _, stop := range stops {
				_ = stop(ctx)
			}
			return nil, err
		}
		go func() {
			if err := health.Start(ctx); err != nil {
				log.Errorw("Health server failed", "error", err)
			}
		}()
		health.SetServing(true)
		log.Infow("Health server listening", "addr", health.Addr())
		stops = append(stops, health.Shutdown)
	}

	return func(ctx context.Context) error {
		var err error
		for _, stop := range stops {
			err = multierr.Append(err, stop(ctx))
		}
		return err
	}, nil
}
