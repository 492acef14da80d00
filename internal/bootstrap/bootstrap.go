// Package bootstrap wires stores, collaborators and services. The HTTP
// server and lorectl share it so both run the same compiler graph.
package bootstrap

import (
	"github.com/Harshitk-cp/lorekeeper/internal/config"
	"github.com/Harshitk-cp/lorekeeper/internal/domain"
	"github.com/Harshitk-cp/lorekeeper/internal/embedding"
	"github.com/Harshitk-cp/lorekeeper/internal/llm"
	"github.com/Harshitk-cp/lorekeeper/internal/service"
	"github.com/Harshitk-cp/lorekeeper/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Stores struct {
	Users        domain.UserStore
	Entries      domain.EntryStore
	Symbols      domain.SymbolStore
	Entities     domain.EntityStore
	Dependencies domain.DependencyStore
	Beliefs      domain.BeliefEvolutionStore
	Diffs        domain.NarrativeDiffStore
}

func NewStores(db *pgxpool.Pool) Stores {
	return Stores{
		Users:        store.NewUserStore(db),
		Entries:      store.NewEntryStore(db),
		Symbols:      store.NewSymbolStore(db),
		Entities:     store.NewEntityStore(db),
		Dependencies: store.NewDependencyStore(db),
		Beliefs:      store.NewBeliefEvolutionStore(db),
		Diffs:        store.NewNarrativeDiffStore(db),
	}
}

type Clients struct {
	LLM       domain.LLMClient
	Embedding domain.EmbeddingClient
}

// NewClients builds the configured collaborators. A client that fails to
// initialize is left nil and the compiler runs without it.
func NewClients(logger *zap.Logger) Clients {
	var c Clients

	llmProvider := config.LLMProvider()
	llmClient, err := llm.NewClient(llmProvider, config.LLMAPIKey(), config.LLMModel())
	if err != nil {
		logger.Warn("LLM client initialization failed", zap.String("provider", llmProvider), zap.Error(err))
	} else {
		c.LLM = llmClient
		logger.Info("LLM client initialized", zap.String("provider", llmProvider))
	}

	embeddingProvider := config.EmbeddingProvider()
	embeddingClient, err := embedding.NewClient(embeddingProvider, config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("Embedding client initialization failed", zap.String("provider", embeddingProvider), zap.Error(err))
	} else {
		c.Embedding = embeddingClient
		logger.Info("Embedding client initialized", zap.String("provider", embeddingProvider))
	}

	return c
}

type Services struct {
	Stores Stores

	Graph       *service.DependencyGraph
	Symbols     *service.SymbolTable
	Compiler    *service.CompilerService
	Incremental *service.IncrementalCompiler
	Promotion   *service.PromotionService
	Entries     *service.EntryService
	Recall      *service.RecallService
	Beliefs     *service.BeliefEvolutionService
	Diffs       *service.NarrativeDiffService
	Auditor     *service.InvariantAuditor
	Worker      *service.RecompileWorker
}

// New builds the service graph. Limits come from config.
func New(st Stores, clients Clients, logger *zap.Logger) *Services {
	graph := service.NewDependencyGraph(st.Dependencies, logger)
	graph.SetLimits(config.MaxDependencyDepth(), config.MaxAffectedEntries())

	symbols := service.NewSymbolTable(st.Symbols, st.Entities, logger)
	resolver := service.NewEntityResolutionService(st.Entities, clients.Embedding, logger)

	compiler := service.NewCompilerService(st.Entries, symbols, graph, logger)
	incremental := service.NewIncrementalCompiler(st.Entries, graph, logger)
	incremental.SetConcurrency(config.IncrementalConcurrency())

	compiler.SetResolver(resolver)
	incremental.SetResolver(resolver)
	if clients.LLM != nil {
		compiler.SetExtractor(clients.LLM)
		compiler.SetEnricher(clients.LLM)
		incremental.SetExtractor(clients.LLM)
		incremental.SetEnricher(clients.LLM)
	}
	if clients.Embedding != nil {
		compiler.SetEmbeddingClient(clients.Embedding)
	}

	beliefs := service.NewBeliefEvolutionService(st.Beliefs, st.Entries, logger)
	auditor := service.NewInvariantAuditor(st.Entries, logger)
	compiler.AddHook(beliefs)
	compiler.AddHook(auditor)

	worker := service.NewRecompileWorker(st.Entries, incremental, logger)
	worker.SetInterval(config.RecompileInterval())
	worker.SetBatchSize(config.RecompileBatchSize())

	return &Services{
		Stores:      st,
		Graph:       graph,
		Symbols:     symbols,
		Compiler:    compiler,
		Incremental: incremental,
		Promotion:   service.NewPromotionService(st.Entries, incremental, logger),
		Entries:     service.NewEntryService(st.Entries, logger),
		Recall:      service.NewRecallService(st.Entries, clients.Embedding, logger),
		Beliefs:     beliefs,
		Diffs:       service.NewNarrativeDiffService(st.Diffs, st.Entries, logger),
		Auditor:     auditor,
		Worker:      worker,
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.UserStore            = (*store.UserStore)(nil)
	_ domain.EntryStore           = (*store.EntryStore)(nil)
	_ domain.SymbolStore          = (*store.SymbolStore)(nil)
	_ domain.EntityStore          = (*store.EntityStore)(nil)
	_ domain.DependencyStore      = (*store.DependencyStore)(nil)
	_ domain.BeliefEvolutionStore = (*store.BeliefEvolutionStore)(nil)
	_ domain.NarrativeDiffStore   = (*store.NarrativeDiffStore)(nil)
	_ domain.EmbeddingClient      = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient      = (*embedding.MockClient)(nil)
	_ domain.LLMClient            = (*llm.OpenAIClient)(nil)
	_ domain.LLMClient            = (*llm.AnthropicClient)(nil)
	_ domain.LLMClient            = (*llm.MockClient)(nil)
)
