package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"credit-decision-engine/internal/audit"
	"credit-decision-engine/internal/bureau"
	"credit-decision-engine/internal/config"
	"credit-decision-engine/internal/decision"
	"credit-decision-engine/internal/inference"
	"credit-decision-engine/internal/llm"
	"credit-decision-engine/internal/metrics"
	"credit-decision-engine/internal/rules"
	"credit-decision-engine/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// pipeline bundles the wired decision components for one process.
type pipeline struct {
	ruleStore  *rules.CachedStore
	decisions  decision.Store
	aggregator *bureau.Aggregator
	service    *decision.Service
	inferrer   *inference.Engine
	registry   *prometheus.Registry
}

// buildPipeline wires stores, bureau clients, the provider, and the decision
// core. The returned closer releases the database pool when one was opened.
func (a *App) buildPipeline(ctx context.Context) (*pipeline, func(), error) {
	closer := func() {}

	var (
		ruleStore     rules.Store
		decisionStore decision.Store
	)
	if a.Config.Database.DSN != "" {
		pool, err := storage.NewPool(ctx, a.Config.Database)
		if err != nil {
			return nil, nil, err
		}
		closer = pool.Close
		ruleStore = rules.NewPostgresStore(pool)
		decisionStore = decision.NewPostgresStore(pool)
	} else {
		a.Logger.Warn().Msg("database.dsn not configured; using in-memory stores")
		ruleStore = rules.NewMemoryStore()
		decisionStore = decision.NewMemoryStore()
	}

	cached := rules.NewCachedStore(ruleStore)
	if err := rules.Seed(ctx, cached, a.Logger); err != nil {
		closer()
		return nil, nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	checkers := make([]bureau.Checker, 0, len(a.Config.Bureaus))
	for _, bc := range a.Config.Bureaus {
		checkers = append(checkers, bureau.NewClient(bureau.ClientOptions{
			Name:    bc.Name,
			BaseURL: bc.BaseURL,
			APIKey:  bc.APIKey,
			Timeout: bc.RequestTimeout,
		}, a.Logger))
	}
	aggregator := bureau.NewAggregator(checkers, a.Logger)

	var provider llm.ChatProvider
	if a.Config.LLM.Enabled {
		p, err := llm.NewProvider(a.Config.LLM.Provider, llm.Options{
			BaseURL:     a.Config.LLM.BaseURL,
			APIKey:      a.Config.LLM.APIKey,
			Temperature: a.Config.LLM.Temperature,
			Timeout:     a.Config.LLM.RequestTimeout,
		}, a.Logger)
		if err != nil {
			closer()
			return nil, nil, err
		}
		provider = p
	}

	engine := decision.NewRuleEngine(cached, a.Logger)
	reasoner := decision.NewReasoner(cached, a.Logger)
	evaluator := decision.NewLLMEvaluator(provider, cached, a.Config.LLM.Model, a.Config.LLM.Enabled, a.Logger)
	combinator := decision.NewCombinator(engine, evaluator, a.Config.Decision.Mode, a.Logger)

	var auditor audit.Recorder
	if a.Config.Audit.Enabled {
		auditor = audit.NewWebhookRecorder(a.Config.Audit.BaseURL, a.Config.Audit.RequestTimeout, a.Logger)
	}

	svc := decision.NewService(decisionStore, combinator, reasoner, auditor, m, a.Config.Decision.Mode, a.Logger)

	var inferrer *inference.Engine
	if a.Config.Inference.Enabled {
		inferrer = inference.New(inference.Options{
			Provider:  provider,
			RuleStore: cached,
			Decisions: decisionStore,
			Metrics:   m,
			Model:     a.Config.LLM.Model,
			Enabled:   true,
		}, a.Logger)
	}

	return &pipeline{
		ruleStore:  cached,
		decisions:  decisionStore,
		aggregator: aggregator,
		service:    svc,
		inferrer:   inferrer,
		registry:   registry,
	}, closer, nil
}
