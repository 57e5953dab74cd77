// File: internal/application/engine.go
package application

import (
	"fmt"

	"github.com/rs/zerolog"

	"negotiation-agent/internal/config"
	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
	"negotiation-agent/internal/domain/ports/repository"
	"negotiation-agent/internal/infra/adapters/ai"
	"negotiation-agent/internal/infra/adapters/catalog"
	"negotiation-agent/internal/infra/market"
	red "negotiation-agent/internal/infra/redis"
	"negotiation-agent/internal/negotiation"
)

// Engine is the decision core assembled from config, shared by the server
// and the simulator.
type Engine struct {
	Orchestrator *negotiation.Orchestrator
	Renderer     *negotiation.ResponseRenderer
	Handoff      *negotiation.HandoffDetector
	Market       adapter.MarketDataProvider
	Lexicon      negotiation.Lexicon
	Categories   negotiation.CategoryTable
}

type EngineDeps struct {
	AI        adapter.AIServiceAdapter // nil runs the heuristic chain only
	Cache     red.RedisClient          // optional market cache
	Decisions repository.DecisionLogRepository
	Observer  negotiation.Observer
	Logger    *zerolog.Logger
}

func NewEngine(cfg *config.Config, d EngineDeps) (*Engine, error) {
	if d.Logger == nil {
		nop := zerolog.Nop()
		d.Logger = &nop
	}
	lex, table, err := loadTables(cfg.Negotiation)
	if err != nil {
		return nil, err
	}
	currency := cfg.Negotiation.Currency
	templates := negotiation.DefaultTemplates()
	if err := templates.Validate(); err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}

	engine := negotiation.NewHeuristicEngine(lex,
		negotiation.NewTacticSelector(cfg.Negotiation.AggressiveAbove, cfg.Negotiation.CollaborativeFrom),
		templates, currency, cfg.Negotiation.PhaseWindow)

	var provider adapter.MarketDataProvider = market.NewLocalProvider(negotiation.NewMarketEstimator(table, nil))
	if d.Cache != nil {
		provider = red.NewCachedMarketProvider(provider, d.Cache, cfg.Redis.TTL, d.Logger)
	}

	var (
		stages    []negotiation.Stage
		enhancer  *negotiation.Enhancer
		completer adapter.TextCompleter
	)
	if d.AI != nil {
		agent := ai.NewLLMAgent(d.AI, cfg.AI.AgentModel, currency, cfg.AI.HistoryTokenBudget, ai.NewTokenCounter())
		stages = append(stages, negotiation.NewAgentStage(agent, cfg.AI.ConfidenceThreshold))
		completer = ai.NewLLMCompleter(d.AI, cfg.AI.CompletionModel)
		enhancer = negotiation.NewEnhancer(completer, lex, currency)
	}
	stages = append(stages, negotiation.NewHeuristicStage(engine))

	orch := negotiation.NewOrchestrator(negotiation.OrchestratorConfig{
		StageTimeout:   cfg.AI.AgentTimeout,
		EnhanceTimeout: cfg.AI.EnhancementTimeout,
		MarketTimeout:  cfg.AI.MarketTimeout,
	}, engine, stages, enhancer, provider, d.Decisions, d.Observer, d.Logger)

	return &Engine{
		Orchestrator: orch,
		Renderer:     negotiation.NewResponseRenderer(completer, lex, templates, currency, cfg.AI.RenderTimeout, d.Logger),
		Handoff:      negotiation.NewHandoffDetector(lex),
		Market:       provider,
		Lexicon:      lex,
		Categories:   table,
	}, nil
}

func loadTables(cfg config.NegotiationConfig) (negotiation.Lexicon, negotiation.CategoryTable, error) {
	lex := negotiation.DefaultLexicon()
	if cfg.LexiconPath != "" {
		l, err := negotiation.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return lex, negotiation.CategoryTable{}, fmt.Errorf("lexicon: %w", err)
		}
		lex = l
	}
	table := negotiation.DefaultCategoryTable()
	if cfg.CategoriesPath != "" {
		t, err := negotiation.LoadCategoryTable(cfg.CategoriesPath)
		if err != nil {
			return lex, table, fmt.Errorf("categories: %w", err)
		}
		table = t
	}
	return lex, table, nil
}

// NewCatalog registers the configured verified products.
func NewCatalog(cfg config.NegotiationConfig, table negotiation.CategoryTable, logger *zerolog.Logger) (*catalog.Catalog, error) {
	products := make([]model.Product, 0, len(cfg.Products))
	for _, p := range cfg.Products {
		products = append(products, model.Product{
			Reference:   p.Reference,
			Title:       p.Title,
			ListedPrice: p.ListedPrice,
			Category:    p.Category,
			Condition:   p.Condition,
			Location:    p.Location,
			Seller:      p.Seller,
			Platform:    p.Platform,
		})
	}
	return catalog.New(products, table, logger)
}
