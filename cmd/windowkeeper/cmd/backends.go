package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"go.uber.org/multierr"

	"github.com/solatis/windowkeeper/internal/core/config"
	"github.com/solatis/windowkeeper/internal/core/dashboard"
	"github.com/solatis/windowkeeper/internal/core/db"
	"github.com/solatis/windowkeeper/internal/core/logging"
	"github.com/solatis/windowkeeper/internal/core/store"
	"github.com/solatis/windowkeeper/internal/pipeline"
	"github.com/solatis/windowkeeper/internal/rules"
	"github.com/solatis/windowkeeper/internal/types"
)

// statistics is a baseline repository the collector can also feed.
type statistics interface {
	rules.StatisticsRepository
	pipeline.ObservationRecorder
	Prune(ctx context.Context, before int64) (int64, error)
}

// backends holds the state backends of one command invocation.
type backends struct {
	store   store.Store
	stats   statistics
	sql     *store.SQLStore
	closers []io.Closer
}

func (r *backends) Close() error {
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i].Close())
	}
	return err
}

// openDatabase opens dbURL and refuses to run against pending migrations.
func openDatabase(ctx context.Context, dbURL string) (*sqlx.DB, *db.Queries, error) {
	database, err := db.OpenContext(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	pending, err := db.Pending(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	if len(pending) > 0 {
		database.Close()
		return nil, nil, fmt.Errorf("migration %s not applied - run 'windowkeeper migrate' first", pending[0])
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}

// openBackends builds the state store selected by cfg. Baselines go to the
// database when one is configured and stay in memory otherwise.
func openBackends(ctx context.Context, cfg *config.Config, dbURL string) (*backends, error) {
	log := logging.FromContext(ctx)
	rt := &backends{}

	var queries *db.Queries
	if dbURL != "" {
		database, q, err := openDatabase(ctx, dbURL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, database)
		queries = q
	}

	var backend store.Store
	switch cfg.State.Backend {
	case config.BackendSQL:
		if queries == nil {
			return nil, fmt.Errorf("--db-url required for the %s state backend", cfg.State.Backend)
		}
		rt.sql = store.NewSQLStore(queries)
		backend = rt.sql
	case config.BackendRedis:
		client := store.NewRedisClient(cfg.State.RedisAddr, cfg.State.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			_ = rt.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.State.RedisAddr, err)
		}
		rt.closers = append(rt.closers, client)
		backend = store.NewRedisStore(client, cfg.State.RedisKeyPrefix)
	case config.BackendMemory:
		backend = store.NewMemoryStore()
	default:
		_ = rt.Close()
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}

	// a cache in front of process memory buys nothing
	if cfg.State.CacheSize > 0 && cfg.State.Backend != config.BackendMemory {
		cached, err := store.NewCachedStore(backend, cfg.State.CacheSize)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		backend = cached
	}
	rt.store = backend

	if queries != nil {
		rt.stats = store.NewSQLStatistics(queries)
	} else {
		rt.stats = store.NewMemoryStatistics()
	}

	log.Infow("State store ready",
		"backend", cfg.State.Backend,
		"cache_size", cfg.State.CacheSize,
		"database", dbURL != "",
	)
	return rt, nil
}

// readRulesFile loads rule definitions from a JSON array of component rules.
func readRulesFile(path string) ([]types.ComponentRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var defs []types.ComponentRules
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return defs, nil
}

// newDashboardClient builds the dashboard client from cfg and the environment.
func newDashboardClient(cfg *config.Config) (*dashboard.Client, error) {
	if cfg.Dashboard.URL == "" {
		return nil, fmt.Errorf("no rules source: pass --rules-file or configure dashboard.url")
	}
	token, err := config.DashboardToken()
	if err != nil {
		return nil, err
	}
	return dashboard.NewClient(cfg.Dashboard.URL, token, cfg.Dashboard.RequestTimeout)
}

// loadRules validates defs. Rejected rules are logged one by one and
// skipped; it fails only when nothing loads out of a non-empty input.
func loadRules(ctx context.Context, defs []types.ComponentRules, recorder rules.FragmentRecorder, stats rules.StatisticsRepository) ([]*rules.Rule, error) {
	log := logging.FromContext(ctx)
	loaded, err := rules.Load(defs, recorder, stats)
	for _, e := range multierr.Errors(err) {
		log.Warnw("Rejected rule", "error", e)
	}
	if len(loaded) == 0 && err != nil {
		return nil, fmt.Errorf("no valid rules: %w", err)
	}
	log.Infow("Rules loaded", "rules", len(loaded), "rejected", len(multierr.Errors(err)))
	return loaded, nil
}

// baselineHorizon returns the longest statistics baseline among loaded, in seconds.
func baselineHorizon(loaded []*rules.Rule) int64 {
	var horizon int64
	for _, r := range loaded {
		for _, c := range r.Conditions {
			if c.Record.IsStatistics() && c.Record.TimeLimit > horizon {
				horizon = c.Record.TimeLimit
			}
		}
	}
	return horizon
}
