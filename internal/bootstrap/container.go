package bootstrap

import (
	"context"
	"log"
	"time"

	"book-agent-be/internal/config"
	"book-agent-be/internal/controller"
	"book-agent-be/internal/pkg/logger"
	"book-agent-be/pkg/agent"
	"book-agent-be/pkg/agent/rules"
	"book-agent-be/pkg/embedding"
	"book-agent-be/pkg/events"
	"book-agent-be/pkg/llm"
	"book-agent-be/pkg/llm/ollama"
	"book-agent-be/pkg/memory"
	"book-agent-be/pkg/resolver"
	"book-agent-be/pkg/search"
	"book-agent-be/pkg/vectorindex"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController
	BookController controller.IBookController

	// Background Services (Exposed for main.go to run)
	EventRecorder *events.Recorder

	Logger logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	publisher := events.NewPublisher(pubSub, cfg.Events.RecommendationTopic)
	recorder := events.NewRecorder(pubSub, cfg.Events.RecommendationTopic, sysLogger)

	// 3. Catalog and vector index artifacts
	catalog, err := search.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load catalog: %v", err)
	}
	log.Printf("[INFO] Catalog loaded: %d books", catalog.Len())

	index, err := vectorindex.LoadJSON(cfg.Catalog.VectorsPath, cfg.Ai.EmbeddingDim)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load vector index: %v", err)
	}
	log.Printf("[INFO] Vector index loaded: %d vectors (dim %d)", index.Len(), cfg.Ai.EmbeddingDim)

	// 4. AI Providers
	embedder := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	llmProvider := ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.LLMModel)
	log.Printf("[INFO] Using Ollama at %s (embeddings: %s, llm: %s)",
		cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.LLMModel)

	// 5. Session Memory (Redis with in-process degradation)
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	ttl := time.Duration(cfg.Session.TTLHours) * time.Hour
	contextStore := memory.NewContextStore(memory.NewRedisKV(rdb), sysLogger, ttl, cfg.Session.MaxContextMessages)

	// 6. Domain Services
	ruleSet := rules.Default()
	analyzer := agent.NewAnalyzer(ruleSet)
	refiner := llm.NewQueryRefiner(llmProvider)
	responder := llm.NewResponseGenerator(llmProvider)
	cache := search.NewResultCache(256, 5*time.Minute)
	engine := search.NewEngine(catalog, embedder, index, refiner, cache, ruleSet, sysLogger)
	bookResolver := resolver.NewResolver(resolver.NewParser(ruleSet), catalog, sysLogger)

	bookAgent := agent.NewAgent(
		contextStore,
		analyzer,
		engine,
		bookResolver,
		responder,
		publisher,
		sysLogger,
		cfg.Session.MaxContextMessages,
	)

	// 7. Controllers
	return &Container{
		ChatController: controller.NewChatController(bookAgent, contextStore, cfg.Session.ClearAllToken),
		BookController: controller.NewBookController(engine, catalog, index),

		EventRecorder: recorder,
		Logger:        sysLogger,
	}
}
