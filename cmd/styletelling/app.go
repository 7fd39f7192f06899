package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/config"
	"github.com/allbravos/styletelling-ai/internal/db"
	dbBadger "github.com/allbravos/styletelling-ai/internal/db/badger"
	dbValkey "github.com/allbravos/styletelling-ai/internal/db/valkey"
	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/domain/envelope"
	"github.com/allbravos/styletelling-ai/internal/domain/exclusion"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
	logpkg "github.com/allbravos/styletelling-ai/internal/logger"
	"github.com/allbravos/styletelling-ai/internal/metrics"
	"github.com/allbravos/styletelling-ai/internal/prompts"
	budgetrepo "github.com/allbravos/styletelling-ai/internal/repository/budget"
	catalogrepo "github.com/allbravos/styletelling-ai/internal/repository/catalog"
	"github.com/allbravos/styletelling-ai/internal/repository/envcache"
	"github.com/allbravos/styletelling-ai/internal/transport/langchain"
	"github.com/allbravos/styletelling-ai/internal/transport/openai"
	"github.com/allbravos/styletelling-ai/internal/usecase/composition"
	healthuc "github.com/allbravos/styletelling-ai/internal/usecase/health"
	"github.com/allbravos/styletelling-ai/internal/usecase/occasion"
	oracleuc "github.com/allbravos/styletelling-ai/internal/usecase/oracle"
	"github.com/allbravos/styletelling-ai/internal/usecase/pipeline"
	"github.com/allbravos/styletelling-ai/internal/usecase/ranking"
	"github.com/allbravos/styletelling-ai/internal/usecase/scoring"
	"github.com/allbravos/styletelling-ai/internal/usecase/selection"
	usageuc "github.com/allbravos/styletelling-ai/internal/usecase/usage"
)

// catalogSource is a pipeline catalog that can report its health.
type catalogSource interface {
	pipeline.Catalog
	healthuc.Pinger
}

// app is the composition root shared by every command.
type app struct {
	env      string
	cfg      config.Config
	logger   *zap.Logger
	registry *taxonomy.Registry
	store    db.Store
	oracle   *oracleuc.Router
	pipeline *pipeline.Service
	health   *healthuc.Service
	usage    *usageuc.Service
	closers  []func()
}

// appOptions vary the root per command.
type appOptions struct {
	// logEnv overrides the logger environment; empty uses the config env.
	logEnv string
	source envelope.Source
}

func newApp(ctx context.Context, cmd *cli.Command, opts appOptions) (*app, error) {
	if err := loadDotEnv(cmd.String("env-file")); err != nil {
		return nil, err
	}

	env := cmd.String("env")
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logEnv := opts.logEnv
	if logEnv == "" {
		logEnv = env
	}
	logger, err := logpkg.NewLogger(logEnv, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{env: env, cfg: cfg, logger: logger, registry: taxonomy.Default()}
	if err := a.build(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// loadDotEnv loads path when it exists; real environment variables win.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (a *app) build(ctx context.Context, opts appOptions) error {
	cfg := a.cfg

	metrics.RegisterOracleMetrics()
	metrics.RegisterPipelineMetrics()

	store, err := openStore(cfg.Database, a.logger)
	if err != nil {
		return err
	}
	a.store = store
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}
	a.logger.Info("Connected to store", zap.String("driver", cfg.Database.Driver))

	// One tracker per process, shared by every stage scorer and the usage report.
	budget := oracleuc.NewBudgetTracker(cfg.Storage.KeyPrefix, cfg.Oracle.ProviderName(), oracleuc.BudgetLimits{
		DailyTokens:   cfg.Oracle.Budget.DailyTokenLimit,
		MonthlyTokens: cfg.Oracle.Budget.MonthlyTokenLimit,
		Action:        budgetAction(cfg.Oracle.Budget.Action),
	}, a.logger)
	budget.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))

	router, err := buildOracle(cfg.Oracle, budget, a.logger)
	if err != nil {
		return err
	}
	a.oracle = router

	templates, err := prompts.Load(cfg.Prompts.Dir)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	scorer, err := scoring.NewScorer(router, a.registry, templates, cfg.Pipeline.Workers, a.logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, scorer.Close)

	catalog, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Analyzer: occasion.NewAnalyzer(router, templates.Context(), a.logger),
		Rules:    exclusion.Default(),
		Selector: selection.NewSelector(router, a.registry, templates.Selection(), a.logger),
		Scorer:   scorer,
		Composer: composition.NewComposer(router, a.registry, templates.Composition(), cfg.Pipeline.MinValueScore, a.logger),
		Catalog:  catalog,
		Ranker: ranking.NewRanker(a.registry, ranking.Options{
			MinCategoryWeight: cfg.Pipeline.MinCategoryWeight,
			PerCategoryLimit:  cfg.Pipeline.PerCategoryLimit,
			MaxProducts:       cfg.Pipeline.MaxProducts,
		}),
	}
	// Leave Cache a nil interface when disabled, not a typed nil *envcache.Cache.
	if cfg.Cache.IsEnabled() {
		deps.Cache = envcache.New(store, cfg.Storage.KeyPrefix, cfg.Cache.TTL(), metrics.EnvelopeCacheTotal, a.logger)
	}

	a.pipeline = pipeline.New(deps, pipeline.Options{
		CacheEnabled:      cfg.Cache.IsEnabled(),
		SkipDegraded:      cfg.Cache.SkipDegraded,
		MinCategoryWeight: cfg.Pipeline.MinCategoryWeight,
		Source:            opts.source,
	}, a.logger)
	a.health = healthuc.New(store, router, catalog)
	a.usage = usageuc.New(budget)

	a.logger.Info("Pipeline ready",
		zap.String("oracle_provider", cfg.Oracle.Provider),
		zap.String("oracle_model", cfg.Oracle.Model),
		zap.String("catalog_driver", cfg.Catalog.Driver),
		zap.Bool("cache_enabled", cfg.Cache.IsEnabled()),
	)
	return nil
}

func openStore(cfg config.DatabaseConfig, logger *zap.Logger) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		store, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	case config.DriverBadger:
		store, err = dbBadger.NewStore(dbBadger.Config{Path: cfg.Path}, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}
	return store, nil
}

func (a *app) openCatalog(ctx context.Context) (catalogSource, error) {
	cfg := a.cfg.Catalog
	switch cfg.Driver {
	case config.CatalogPostgres:
		pg, err := catalogrepo.NewPostgres(ctx, cfg.DSN, a.registry, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		return pg, nil
	default:
		f, err := catalogrepo.LoadFile(cfg.Path, a.registry)
		if err != nil {
			return nil, err
		}
		a.logger.Info("Catalog loaded", zap.String("path", cfg.Path), zap.Int("products", f.Len()))
		return f, nil
	}
}

// buildOracle assembles adapter -> instrumented scorer per model and routes
// stages with a model override to their own chain.
func buildOracle(cfg config.OracleConfig, budget oracleuc.BudgetChecker, logger *zap.Logger) (*oracleuc.Router, error) {
	costs := oracleuc.DefaultCosts().Merge(costOverrides(cfg.Costs))

	build := func(model string) (domain.TextScorer, error) {
		base, err := newAdapter(cfg, model, logger)
		if err != nil {
			return nil, err
		}
		return oracleuc.NewInstrumentedScorer(
			base, cfg.ProviderName(), model, cfg.Timeout(), budget, costs, logger,
		), nil
	}

	fallback, err := build(cfg.Model)
	if err != nil {
		return nil, err
	}
	stages := make(map[string]domain.TextScorer, len(cfg.StageModels))
	for stage, model := range cfg.StageModels {
		if model == "" || model == cfg.Model {
			continue
		}
		s, err := build(model)
		if err != nil {
			return nil, err
		}
		stages[stage] = s
		logger.Info("Oracle stage override", zap.String("stage", stage), zap.String("model", model))
	}
	return oracleuc.NewRouter(fallback, stages), nil
}

func newAdapter(cfg config.OracleConfig, model string, logger *zap.Logger) (domain.TextScorer, error) {
	temperature := 0.0
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	switch cfg.Provider {
	case config.ProviderLangchain:
		s, err := langchain.NewScorer(&langchain.Config{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			Model:        model,
			Temperature:  temperature,
			SystemPrompt: cfg.SystemPrompt,
			Attempts:     cfg.Retries + 1,
			Provider:     cfg.ProviderName(),
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("langchain oracle: %w", err)
		}
		return s, nil
	default:
		return openai.NewScorer(&openai.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        model,
			Temperature:  float32(temperature),
			SystemPrompt: cfg.SystemPrompt,
			Retries:      cfg.Retries,
			Provider:     cfg.ProviderName(),
			Logger:       logger,
		}), nil
	}
}

func budgetAction(s string) oracleuc.BudgetAction {
	if s == string(oracleuc.BudgetActionReject) {
		return oracleuc.BudgetActionReject
	}
	return oracleuc.BudgetActionWarn
}

func costOverrides(in map[string]config.CostConfig) oracleuc.CostTable {
	out := make(oracleuc.CostTable, len(in))
	for model, c := range in {
		out[model] = oracleuc.ModelCost{InputPerMillion: c.InputPerMillion, OutputPerMillion: c.OutputPerMillion}
	}
	return out
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}
