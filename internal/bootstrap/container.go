package bootstrap

import (
	"fmt"

	"canvas-rag-be/internal/config"
	"canvas-rag-be/internal/controller"
	"canvas-rag-be/internal/pkg/logger"
	"canvas-rag-be/internal/service"
	"canvas-rag-be/internal/vault"
	"canvas-rag-be/pkg/llm"
	"canvas-rag-be/pkg/llm/factory"
	"canvas-rag-be/pkg/llm/openai"

	pktNats "canvas-rag-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventTopic is the in-process topic canvas events travel on before the
// relay forwards them.
const EventTopic = "canvas_events"

type Container struct {
	// Controllers
	CanvasController controller.ICanvasController

	// Services (the CLI calls the canvas service directly)
	CanvasService service.ICanvasService

	// Background Services (Exposed for main.go to run)
	EventRelayService service.IEventRelayService

	Logger logger.ILogger

	closers []func()
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(logger.Options{
		FilePath:   cfg.App.LogFilePath,
		Level:      cfg.App.LogLevel,
		Production: cfg.App.Environment == "production",
	})
	return newContainer(cfg, sysLogger)
}

func newContainer(cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Logger: sysLogger}

	store, err := vault.New(cfg.Vault.Root, sysLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "Vault opened", map[string]interface{}{"root": store.Root()})

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	// NATS is optional; without it events are only logged.
	var sink service.EventSink
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			sink = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 4. Services
	var llmProvider llm.LLMProvider
	if cfg.Ai.Enabled {
		llmProvider, err = factory.NewLLMProvider(cfg.Ai.LLMProvider, openai.Config{
			BaseURL:        cfg.Ai.BaseURL,
			APIKey:         cfg.Ai.APIKey,
			Model:          cfg.Ai.LLMModel,
			Temperature:    cfg.Ai.Temperature,
			MaxTokens:      cfg.Ai.MaxTokens,
			AttemptTimeout: cfg.Ai.AttemptTimeout,
			Retry: llm.RetryPolicy{
				MaxAttempts: cfg.Ai.MaxAttempts,
				BaseDelay:   cfg.Ai.BaseDelay,
				MaxDelay:    cfg.Ai.MaxDelay,
				MinDelay:    cfg.Ai.MinDelay,
				Jitter:      llm.DefaultRetryPolicy().Jitter,
			},
		}, sysLogger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
		}
		sysLogger.Info("BOOTSTRAP", "Using LLM Provider", map[string]interface{}{
			"provider": cfg.Ai.LLMProvider,
			"model":    cfg.Ai.LLMModel,
		})
	} else {
		sysLogger.Info("BOOTSTRAP", "AI is disabled (set AI_ENABLED=true to enable ask)", nil)
	}

	publisherService := service.NewPublisherService(EventTopic, pubSub)
	c.EventRelayService = service.NewEventRelayService(pubSub, EventTopic, sink, sysLogger)
	c.CanvasService = service.NewCanvasService(
		store,
		llmProvider,
		publisherService,
		service.NewRequestGuard(),
		cfg,
		sysLogger,
	)

	// 5. Controllers
	c.CanvasController = controller.NewCanvasController(c.CanvasService, cfg.App.JWTSecret)

	return c, nil
}

// Close releases the event bus and broker connection.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
	_ = c.Logger.Sync()
}
