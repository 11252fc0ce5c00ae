// Package bootstrap builds every long-lived client and component once at
// start-up and hands them to the entry points.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
	"gorm.io/gorm"

	"github/itish2003/ragchat/agent"
	"github/itish2003/ragchat/config"
	"github/itish2003/ragchat/controller"
	"github/itish2003/ragchat/logger"
	"github/itish2003/ragchat/metrics"
	"github/itish2003/ragchat/services"
	"github/itish2003/ragchat/storage"
	"github/itish2003/ragchat/tools"
)

type Container struct {
	Config  *config.Config
	Log     logger.ILogger
	Metrics *metrics.Recorder

	Documents storage.DocumentStore
	Memory    storage.MemoryStore

	Ingest    *services.IngestService
	Retrieval *services.RetrievalService
	Indexer   *services.FileIndexingService
	Tools     *tools.Registry
	Agent     *agent.Controller
	Chat      services.ChatService

	ChatController *controller.ChatController

	closers []func() error
}

// NewContainer wires the stack selected by cfg. Callers must Close it.
func NewContainer(ctx context.Context, cfg *config.Config, log logger.ILogger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Log:     log,
		Metrics: metrics.NewRecorder(),
	}

	if err := services.ConfigurePDFLicense(cfg.Ingest.UnidocLicenseKey); err != nil {
		log.Warn("BOOTSTRAP", "PDF processing will fail", map[string]interface{}{"error": err.Error()})
	}

	geminiClient, err := agent.NewGeminiClient(ctx, cfg.AI.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	log.Info("BOOTSTRAP", "Connected to Google Gemini", map[string]interface{}{"model": cfg.AI.LLMModel})

	if err := c.initStores(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	embedder := newEmbedder(cfg.AI, geminiClient)

	c.Ingest = services.NewIngestService(c.Documents, embedder, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, log)
	c.Indexer = services.NewFileIndexingService(c.Ingest, log)
	c.Retrieval = services.NewRetrievalService(embedder, []services.RetrievalStrategy{
		services.NewStructuredStrategy(c.Documents, c.Memory),
		services.NewSubstringStrategy(c.Documents, c.Memory, cfg.Retrieval.MemoryRecentLimit),
	}, cfg.Retrieval.TopK, log, c.Metrics)

	c.Tools = tools.NewRegistry(tools.NewRAGTool(c.Retrieval, services.FormatContext, cfg.Retrieval.TopK))
	if cfg.Search.TavilyAPIKey != "" {
		log.Info("BOOTSTRAP", "Registering web search tool (Tavily API key found)", nil)
		c.Tools.Register(tools.NewWebSearchTool(
			cfg.Search.TavilyAPIKey,
			tools.WithEndpoint(cfg.Search.TavilyURL),
			tools.WithMaxResults(cfg.Search.MaxResults),
		))
	}

	c.Agent = agent.NewController(
		agent.NewGeminiLLM(geminiClient, cfg.AI.LLMModel),
		c.Tools,
		log,
		agent.WithMaxIterations(cfg.AI.MaxRoutingIterations),
		agent.WithMetrics(c.Metrics),
	)
	c.Chat = services.NewChatService(c.Agent, c.Memory, log, c.Metrics)
	c.ChatController = controller.NewChatController(c.Chat, c.Ingest, c.Retrieval, cfg.Retrieval.TopK, log)
	return c, nil
}

func newEmbedder(cfg config.AIConfig, client *genai.Client) services.Embedder {
	if cfg.EmbeddingProvider == "ollama" {
		return services.NewOllamaEmbedder(&http.Client{Timeout: 30 * time.Second}, cfg.OllamaBaseURL, cfg.OllamaEmbeddingModel)
	}
	return services.NewGeminiEmbedder(client, cfg.EmbeddingModel)
}

func (c *Container) initStores(ctx context.Context) error {
	cfg := c.Config
	var db *gorm.DB
	gormDB := func() (*gorm.DB, error) {
		if db != nil {
			return db, nil
		}
		var err error
		db, err = storage.NewGormDB(cfg.Database.Connection)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		return db, nil
	}

	switch cfg.App.StoreBackend {
	case "postgres":
		d, err := gormDB()
		if err != nil {
			return err
		}
		c.Documents = storage.NewPostgresDocumentStore(d)
	case "chroma":
		store, client, err := storage.NewChromaDocumentStore(ctx, cfg.Chroma.URL, cfg.Chroma.Collection)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, client.Close)
		c.Documents = store
	default:
		store, err := storage.NewEmbeddedDocumentStore(cfg.App.EmbeddedStorePath)
		if err != nil {
			return err
		}
		c.Documents = store
	}

	switch cfg.App.MemoryBackend {
	case "postgres":
		d, err := gormDB()
		if err != nil {
			return err
		}
		c.Memory = storage.NewPostgresMemoryStore(d)
	case "redis":
		client, err := storage.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, client.Close)
		c.Memory = storage.NewRedisMemoryStore(client, cfg.Redis.Key)
	default:
		c.Memory = storage.NewEmbeddedMemoryStore()
	}

	c.Log.Info("BOOTSTRAP", "Stores ready", map[string]interface{}{
		"documents": cfg.App.StoreBackend,
		"memory":    cfg.App.MemoryBackend,
	})
	return nil
}

// Close releases backend connections in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("closing container: %w", errors.Join(errs...))
	}
	return nil
}
