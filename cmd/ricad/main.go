package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RICA-Assistant/internal/api"
	"RICA-Assistant/internal/bridge"
	"RICA-Assistant/internal/bridge/telegram"
	"RICA-Assistant/internal/config"
	"RICA-Assistant/internal/knowledge"
	"RICA-Assistant/internal/llm"
	"RICA-Assistant/internal/llm/groq"
	"RICA-Assistant/internal/observability/alerting"
	"RICA-Assistant/internal/resolver"
	"RICA-Assistant/pkg/logger"
	"RICA-Assistant/sdk/go/rica"
)

// main 是 RICA 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("ricad 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("RICA_CONFIG")
	if configPath == "" {
		if _, err := os.Stat("configs/rica.yaml"); err == nil {
			configPath = "configs/rica.yaml"
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Conversation: logger.ConversationConfig{
			Enabled:    cfg.Logging.Conversation.Enabled,
			Path:       cfg.Logging.Conversation.Path,
			MaxSizeMB:  cfg.Logging.Conversation.MaxSizeMB,
			MaxBackups: cfg.Logging.Conversation.MaxBackups,
			MaxAgeDays: cfg.Logging.Conversation.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	llmClient, err := createLLMClient(cfg)
	if err != nil {
		return err
	}

	res, err := createResolver(cfg, llmClient)
	if err != nil {
		return err
	}

	var dispatcher api.UpdateDispatcher
	if cfg.Bridge.Enabled {
		queue, err := createQueue(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := queue.Close(); err != nil {
				logger.L().Warn("关闭更新队列失败", slog.Any("error", err))
			}
		}()

		sender, err := telegram.NewClient(telegram.Config{
			Token:   cfg.Bridge.Token,
			APIBase: cfg.Bridge.BotAPIBase,
		})
		if err != nil {
			return err
		}

		askClient, err := rica.NewClient(cfg.Bridge.AskBase, nil)
		if err != nil {
			return err
		}

		processor := bridge.NewProcessor(askClient, sender, queue,
			bridge.WithWorkerCount(cfg.Bridge.Queue.Workers),
			bridge.WithAskTimeout(cfg.Bridge.AskTimeout()),
			bridge.WithProcessorLogger(logger.Named("bridge")),
			bridge.WithAlertDispatcher(alerting.NewFanout(&alerting.LogNotifier{})),
		)

		processorCtx, processorCancel := context.WithCancel(ctx)
		defer processorCancel()

		go func() {
			if err := processor.Start(processorCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("桥接处理器异常退出", slog.Any("error", err))
			}
		}()

		dispatcher = bridge.NewDispatcher(queue)
	}

	server := api.NewServer(cfg.Server.Address(), res, dispatcher)
	logger.L().Info("RICA API 启动",
		slog.String("address", cfg.Server.Address()),
		slog.Bool("bridge", cfg.Bridge.Enabled),
	)

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func createLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "", "groq":
		return groq.NewClient(groq.Config{
			APIKey:  cfg.LLM.Groq.APIKey,
			BaseURL: cfg.LLM.Groq.BaseURL,
			Model:   cfg.LLM.Groq.Model,
			Timeout: cfg.LLM.Groq.Timeout(),
		})
	default:
		return nil, fmt.Errorf("未知的大模型 provider: %s", cfg.LLM.Provider)
	}
}

func createResolver(cfg *config.Config, llmClient llm.Client) (*resolver.Resolver, error) {
	opts := []resolver.Option{
		resolver.WithDefaultInquirer(cfg.Resolver.DefaultInquirer),
		resolver.WithReviewStage(cfg.Resolver.ReviewEnabled()),
	}
	if timeout := cfg.LLM.Groq.Timeout(); timeout > 0 {
		opts = append(opts, resolver.WithLLMTimeout(timeout))
	}
	if cfg.Resolver.KnowledgeSource != "" {
		provider, err := knowledge.LoadStaticProvider(cfg.Resolver.KnowledgeSource, cfg.Resolver.MaxKnowledge)
		if err != nil {
			return nil, err
		}
		opts = append(opts, resolver.WithKnowledgeProvider(provider))
	}
	return resolver.New(llmClient, opts...), nil
}

func createQueue(cfg *config.Config) (bridge.Queue, error) {
	switch cfg.Bridge.Queue.Driver {
	case "", "memory":
		return bridge.NewMemoryQueue(1024), nil
	case "redis":
		return bridge.NewRedisQueue(bridge.RedisQueueConfig{
			Address:   cfg.Bridge.Queue.Redis.Address,
			Password:  cfg.Bridge.Queue.Redis.Password,
			DB:        cfg.Bridge.Queue.Redis.DB,
			Queue:     cfg.Bridge.Queue.Redis.Queue,
			BlockWait: time.Duration(cfg.Bridge.Queue.Redis.BlockWait) * time.Second,
		})
	case "rabbitmq":
		return bridge.NewRabbitMQQueue(bridge.RabbitMQConfig{
			URL:        cfg.Bridge.Queue.RabbitMQ.URL,
			Queue:      cfg.Bridge.Queue.RabbitMQ.Queue,
			Prefetch:   cfg.Bridge.Queue.RabbitMQ.Prefetch,
			Durable:    cfg.Bridge.Queue.RabbitMQ.Durable,
			AutoDelete: cfg.Bridge.Queue.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的队列驱动: %s", cfg.Bridge.Queue.Driver)
	}
}
