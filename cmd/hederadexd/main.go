package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"HederaDEX-Agent/internal/api"
	"HederaDEX-Agent/internal/app"
	"HederaDEX-Agent/internal/config"
	"HederaDEX-Agent/internal/observability/alerting"
	"HederaDEX-Agent/internal/observability/metrics"
	"HederaDEX-Agent/internal/task"
	"HederaDEX-Agent/pkg/logger"
)

// main 是 HederaDEX 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("hederadexd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(config.ResolvePath())
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	defer logger.Sync()

	collector := metrics.New()

	application, err := app.New(ctx, cfg, collector)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.CheckNetworks(ctx); err != nil {
		// 未配置完整的网络在请求时返回 CONFIGURATION_ERROR，这里只提示。
		logger.L().Warn("部分网络配置不完整", slog.Any("error", err))
	}

	queue, err := newQueue(ctx, cfg.Queue)
	if err != nil {
		return err
	}

	store := task.NewMemoryStore()
	jobs := task.NewService(store, queue, cfg.Queue.MaxRetries)
	defer func() {
		if err := jobs.Close(); err != nil {
			logger.L().Error("关闭作业服务失败", slog.Any("error", err))
		}
	}()

	processor := task.NewProcessor(task.NewDexExecutor(application.Dex), store, queue, queue,
		task.WithWorkerCount(cfg.Queue.Workers),
		task.WithProcessorLogger(logger.Named("task")),
		task.WithAlertDispatcher(newAlerts(cfg.Alerting)),
		task.WithJobObserver(collector),
	)

	processorCtx, processorCancel := context.WithCancel(ctx)
	defer processorCancel()
	go func() {
		if err := processor.Start(processorCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("作业处理器异常退出", slog.Any("error", err))
		}
	}()

	opts := api.Options{
		Address:         cfg.Server.Address,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RatePerMinute:   cfg.Server.RatePerMinute,
	}
	if cfg.Server.MetricsAddress != "" {
		go func() {
			if err := collector.StartServer(ctx, cfg.Server.MetricsAddress); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("指标服务异常退出", slog.Any("error", err))
			}
		}()
	} else {
		opts.Metrics = collector.Handler()
	}

	server := api.NewServer(opts, api.Dependencies{
		Jobs:     jobs,
		Dex:      application.Dex,
		Metadata: application.Metadata,
		Chain:    application.Chains,
		Observer: collector,
	})
	logger.L().Info("hederadexd 已启动",
		slog.String("network", cfg.Network),
		slog.String("queue", cfg.Queue.Driver),
		slog.Int("workers", cfg.Queue.Workers),
	)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newQueue(ctx context.Context, cfg config.QueueConfig) (task.Queue, error) {
	switch cfg.Driver {
	case "", "memory":
		return task.NewMemoryQueue(cfg.BufferSize), nil
	case "redis":
		return task.NewRedisQueue(ctx, task.RedisQueueConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Queue:     cfg.Redis.Queue,
			BlockWait: cfg.Redis.BlockWait,
		})
	case "rabbitmq":
		return task.NewRabbitMQQueue(task.RabbitMQConfig{
			URL:      cfg.RabbitMQ.URL,
			Queue:    cfg.RabbitMQ.Queue,
			Prefetch: cfg.RabbitMQ.Prefetch,
			Durable:  cfg.RabbitMQ.Durable,
		})
	default:
		return nil, fmt.Errorf("未知的队列驱动: %s", cfg.Driver)
	}
}

func newAlerts(cfg config.AlertingConfig) alerting.Dispatcher {
	notifiers := []alerting.Notifier{alerting.LogNotifier{}}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, &alerting.WebhookNotifier{
			URL:    cfg.WebhookURL,
			Client: &http.Client{Timeout: cfg.Timeout},
		})
	}
	return alerting.NewFanout(notifiers...)
}
