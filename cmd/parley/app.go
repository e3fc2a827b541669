package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/parleyhq/parley/internal/closure"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/delivery"
	"github.com/parleyhq/parley/internal/embeddings"
	"github.com/parleyhq/parley/internal/engine"
	"github.com/parleyhq/parley/internal/guardrail"
	"github.com/parleyhq/parley/internal/intake"
	"github.com/parleyhq/parley/internal/lock"
	"github.com/parleyhq/parley/internal/notify"
	"github.com/parleyhq/parley/internal/perception"
	"github.com/parleyhq/parley/internal/planner"
	"github.com/parleyhq/parley/internal/prompts"
	"github.com/parleyhq/parley/internal/repository"
	"github.com/parleyhq/parley/internal/retrieval"
	"github.com/parleyhq/parley/internal/search/qdrant"
	"github.com/parleyhq/parley/internal/toolexec"
	"github.com/parleyhq/parley/internal/toolexec/tools"
	"github.com/parleyhq/parley/pkg/llm"
	"github.com/parleyhq/parley/pkg/llm/openai"
)

// app bundles the wired components serve and tick share.
type app struct {
	cfg      *config.Config
	store    *repository.Store
	engine   *engine.Engine
	intake   *intake.Service
	delivery *delivery.Registry

	redisClient *redis.Client
}

// buildApp wires the full engine from config. The file storage driver runs
// single-node with in-memory locks; the supabase driver coordinates through
// Redis so multiple engine instances can share the conversation queue.
func buildApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	switch cfg.Storage.Driver {
	case "", "file":
		fs, err := repository.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		a.store = fs.Store()
	case "supabase":
		ss, err := repository.NewSupabaseStore(repository.SupabaseConfig{
			URL:    cfg.Supabase.URL,
			APIKey: cfg.Supabase.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("open supabase store: %w", err)
		}
		a.store = ss.Store()
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}

	var locks lock.Coordinator
	var notifier notify.Notifier
	if cfg.Storage.Driver == "supabase" {
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		locks = lock.NewRedisCoordinator(a.redisClient, uuid.New().String(), lock.DefaultTTL)
		notifier = notify.NewRedisNotifier(a.redisClient, notify.DefaultChannel)
	} else {
		locks = lock.NewMemoryCoordinator(lock.DefaultTTL)
		notifier = notify.Noop{}
	}

	gateway := llm.WithRetry(openai.New(&llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}), llm.DefaultRetryPolicy())

	budgeter, err := prompts.New(cfg.LLM.Model, cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve)
	if err != nil {
		return nil, fmt.Errorf("create prompt budgeter: %w", err)
	}

	embedder := embeddings.New(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		APIKey:  cfg.Embeddings.APIKey,
		Model:   cfg.Embeddings.Model,
	})
	searcher, err := qdrant.New(qdrant.Config{
		URL:            cfg.Qdrant.URL,
		CollectionName: cfg.Qdrant.Collection,
		APIKey:         cfg.Qdrant.APIKey,
	}, embedder)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	registry := toolexec.NewRegistry()
	registry.Register(tools.NewFetchURL())
	if cfg.Brave.APIKey != "" {
		registry.Register(tools.NewWebSearch(cfg.Brave.APIKey))
	} else {
		slog.Warn("web_search tool disabled (no Brave API key)")
	}

	retriever := retrieval.NewRetriever(searcher)
	a.delivery = delivery.NewRegistry()

	a.engine = engine.New(engine.Options{
		Store:      a.store,
		Locks:      locks,
		Classifier: perception.New(gateway, a.store.Messages, budgeter),
		Closer:     closure.New(gateway, budgeter, slog.Default()),
		Retriever:  retriever,
		Selector:   retrieval.NewSelector(gateway, budgeter),
		Planner:    planner.New(gateway, budgeter),
		Guard: guardrail.NewPipeline(
			guardrail.NewCompanyChecker(gateway, budgeter),
			guardrail.NewConfidenceScorer(gateway),
			retriever,
			gateway,
			slog.Default(),
		),
		Executor:      registry,
		Delivery:      a.delivery,
		Notifier:      notifier,
		Gateway:       gateway,
		Budgeter:      budgeter,
		Logger:        slog.Default(),
		MaxConcurrent: cfg.Engine.MaxConcurrent,
	})
	a.intake = intake.New(a.store, slog.Default())

	return a, nil
}

func (a *app) close() {
	if a.redisClient != nil {
		a.redisClient.Close()
	}
}
