package app

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/doeshing/promptmate/internal/application/doctor"
	"github.com/doeshing/promptmate/internal/application/elicit"
	"github.com/doeshing/promptmate/internal/application/intent"
	"github.com/doeshing/promptmate/internal/application/rag"
	"github.com/doeshing/promptmate/internal/application/routing"
	"github.com/doeshing/promptmate/internal/application/session"
	"github.com/doeshing/promptmate/internal/application/synth"
	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/infrastructure/ai"
	"github.com/doeshing/promptmate/internal/infrastructure/config"
	"github.com/doeshing/promptmate/internal/infrastructure/embedding"
	"github.com/doeshing/promptmate/internal/infrastructure/storage"
	"github.com/doeshing/promptmate/internal/infrastructure/vectorindex"
	"github.com/doeshing/promptmate/internal/pkg/logger"
	"github.com/doeshing/promptmate/internal/ports"
)

// Options controls container construction.
type Options struct {
	ConfigPath string
	Verbose    bool
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config       domain.Config
	ConfigLoader *config.FileLoader
	Logger       ports.Logger
	Store        *storage.SQLiteStore
	Registry     *ai.Registry
	Router       *routing.Router
	Parser       *intent.Parser
	Elicitor     *elicit.Elicitor
	Synthesizer  *synth.Synthesizer
	RAG          *rag.Manager
	Sessions     *session.Service
	Doctor       *doctor.Service

	closers []func() error
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	var log *logger.StdLogger
	if opts.Verbose {
		log = logger.NewStd(true)
	} else {
		log = logger.NewWithLevel(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	c := &Container{
		Config:       cfg,
		ConfigLoader: cfgLoader,
		Logger:       log,
		Store:        store,
		closers:      []func() error{store.Close},
	}

	c.Registry = ai.NewFactory(log).Build(ctx, cfg.Providers)
	c.Router = routing.NewRouter(c.Registry, cfg.Routing, log)
	settings := c.Router.Settings()

	c.Parser = intent.NewParser(c.Router, log, settings.BatchConcurrency)
	c.Elicitor = elicit.NewElicitor(c.Router, cfg.GetMaxQuestions(), log)
	c.Synthesizer = synth.NewSynthesizer(cfg.GetTokenBudget(), log)

	c.RAG, err = c.buildRAG(cfg, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Sessions = &session.Service{
		Sessions:         store,
		History:          store,
		Messages:         store,
		Usage:            store,
		Instructions:     store,
		Router:           c.Router,
		Parser:           c.Parser,
		Elicitor:         c.Elicitor,
		Synthesizer:      c.Synthesizer,
		RAGTopK:          cfg.GetRAGTopK(),
		RAGMinSimilarity: cfg.GetRAGMinSimilarity(),
		Logger:           log,
	}
	if c.RAG.Enabled() {
		c.Sessions.RAG = c.RAG
	}

	c.Doctor = &doctor.Service{
		ConfigProvider: cfgLoader,
		Registry:       c.Registry,
		Store:          store,
		Retrieval:      c.RAG,
	}
	return c, nil
}

// buildRAG wires the OpenAI embedder when an OpenAI key resolves. Without one
// retrieval stays disabled and the pipeline runs without memory.
func (c *Container) buildRAG(cfg domain.Config, log ports.Logger) (*rag.Manager, error) {
	index, err := vectorindex.NewFlatIndex(cfg.RAG.Dimension, cfg.RAG.MaxCachedPartitions)
	if err != nil {
		return nil, err
	}
	opts := rag.Options{EmbeddingModel: cfg.RAG.EmbeddingModel, Window: cfg.GetMemoryWindow()}

	key, baseURL := openAICredentials(cfg)
	if key == "" {
		log.Info("retrieval disabled", map[string]interface{}{"reason": "no openai api key"})
		return rag.NewManager(nil, index, c.Store, opts, log), nil
	}

	base, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		APIKey:     key,
		BaseURL:    baseURL,
		Model:      cfg.RAG.EmbeddingModel,
		Dimension:  cfg.RAG.Dimension,
		MaxRetries: 2,
	})
	if err != nil {
		return nil, err
	}
	cached, err := embedding.NewCachedEmbedder(base, embedding.CacheConfig{
		TTL:        cfg.GetEmbeddingCacheTTL(),
		MaxEntries: cfg.RAG.CacheMaxEntries,
	})
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, func() error { cached.Close(); return nil })
	return rag.NewManager(cached, index, c.Store, opts, log), nil
}

func openAICredentials(cfg domain.Config) (string, string) {
	for _, def := range cfg.Providers {
		if def.ResolveKind() != domain.ProviderKindOpenAI {
			continue
		}
		env := def.AuthEnvVar
		if env == "" {
			env = domain.DefaultAuthEnvVar(domain.ProviderKindOpenAI)
		}
		if key := os.Getenv(env); key != "" {
			return key, def.BaseURL
		}
	}
	return os.Getenv(domain.DefaultAuthEnvVar(domain.ProviderKindOpenAI)), ""
}

// Entitlement returns the configured local entitlement with this month's
// recorded usage applied.
func (c *Container) Entitlement(ctx context.Context) *domain.Entitlement {
	ent := c.Config.Entitlement
	ent.AllowedModels = append([]string(nil), ent.AllowedModels...)
	if ent.UserID == "" {
		return &ent
	}
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	used, err := c.Store.UsageSince(ctx, ent.UserID, monthStart)
	if err != nil {
		c.Logger.Warn("usage lookup failed", map[string]interface{}{"user_id": ent.UserID, "error": err.Error()})
		return &ent
	}
	if used > ent.CurrentUsage {
		ent.CurrentUsage = used
	}
	return &ent
}

// Close releases the database and caches.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
