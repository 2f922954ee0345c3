package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowforge-io/flowforge/internal/application/orchestrator"
	"github.com/flowforge-io/flowforge/internal/application/workers"
	"github.com/flowforge-io/flowforge/internal/config"
	"github.com/flowforge-io/flowforge/internal/engine/compiler"
	"github.com/flowforge-io/flowforge/internal/engine/execution"
	"github.com/flowforge-io/flowforge/internal/engine/executor"
	"github.com/flowforge-io/flowforge/internal/engine/optimizer"
	"github.com/flowforge-io/flowforge/internal/engine/resources"
	"github.com/flowforge-io/flowforge/internal/engine/validator"
	memevents "github.com/flowforge-io/flowforge/pkg/adapters/events/memory"
	redisevents "github.com/flowforge-io/flowforge/pkg/adapters/events/redis"
	"github.com/flowforge-io/flowforge/pkg/adapters/metrics/prometheus"
	"github.com/flowforge-io/flowforge/pkg/adapters/nodes"
	"github.com/flowforge-io/flowforge/pkg/adapters/nodes/anthropic"
	"github.com/flowforge-io/flowforge/pkg/api/grpc"
	"github.com/flowforge-io/flowforge/pkg/api/http"
	"github.com/flowforge-io/flowforge/pkg/api/websocket"
	"github.com/flowforge-io/flowforge/pkg/domain"
	"github.com/flowforge-io/flowforge/pkg/ports"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting flowforge engine",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Initialize Redis client
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	metricsCollector := prometheus.NewCollector()

	// Event plumbing: in-process bus, plus Redis durability when enabled.
	eventBus := memevents.NewBus(logger)

	var eventStore ports.EventStore
	if cfg.Events.UseRedis {
		eventStore = redisevents.NewStore(redisClient, cfg.Events.StoreTTL, logger)
	} else {
		eventStore = memevents.NewStore()
	}

	var relay *redisevents.Relay
	if cfg.Events.RelayToRedis {
		relay = redisevents.NewRelay(redisClient, eventBus, logger)
	}

	// Node executors
	registry := nodes.NewRegistry(logger)
	passthrough := nodes.NewPassthrough()
	registry.Register(domain.NodeTypeInput, passthrough)
	registry.Register(domain.NodeTypeOutput, passthrough)
	registry.Register(domain.NodeTypeTransform, nodes.NewTransform())
	registry.Register(domain.NodeTypeTool, nodes.NewTool(cfg.Timeouts.ToolRequestTimeout, logger))
	registry.Register(domain.NodeTypeRetrieval, nodes.NewRetrieval(redisClient, logger))

	if cfg.LLM.APIKey != "" {
		llmClient, err := anthropic.NewClient(cfg.LLM.APIKey, logger)
		if err != nil {
			logger.Fatal("failed to create LLM client", zap.Error(err))
		}
		registry.Register(domain.NodeTypeLLM, llmClient)
	} else {
		logger.Warn("LLM_API_KEY not set, llm nodes will fail to execute")
	}

	// Engine components
	contextManager := execution.NewContextManager(logger)
	resourceManager := resources.NewManager(resources.Limits{
		TotalMemoryMB:   cfg.Engine.TotalMemoryMB,
		TotalCPUPercent: cfg.Engine.TotalCPUPercent,
		TotalTokens:     cfg.Engine.TotalTokens,
	}, logger)

	dagExecutor := executor.New(
		contextManager,
		resourceManager,
		eventBus,
		eventStore,
		registry,
		metricsCollector,
		logger,
	)

	orchestratorMgr := orchestrator.NewManager(
		validator.New(),
		compiler.New(),
		optimizer.New(resourceManager, metricsCollector, logger),
		dagExecutor,
		eventStore,
		logger,
	)

	// Background workers
	healthMonitor := workers.NewHealthMonitor(
		contextManager,
		resourceManager,
		metricsCollector,
		cfg.Timeouts.HealthCheckInterval,
		logger,
	)
	healthMonitor.Start()

	janitor := workers.NewJanitor(eventStore, cfg.Events.Retention, cfg.Events.SweepInterval, logger)
	janitor.Start()

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:         cfg.HTTPPort,
		Orchestrator: orchestratorMgr,
		Health:       healthMonitor,
		Logger:       logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("flowforge engine started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := orchestratorMgr.Shutdown(shutdownCtx); err != nil {
		logger.Error("orchestrator shutdown error", zap.Error(err))
	}

	janitor.Stop()
	healthMonitor.Stop()

	if relay != nil {
		if err := relay.Close(); err != nil {
			logger.Error("relay close error", zap.Error(err))
		}
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}

	logger.Info("flowforge engine shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
