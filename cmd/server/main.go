package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/rl1809/item-stock/internal/adapter/broker"
	"github.com/rl1809/item-stock/internal/adapter/handler"
	"github.com/rl1809/item-stock/internal/adapter/handler/rpc"
	"github.com/rl1809/item-stock/internal/adapter/storage"
	"github.com/rl1809/item-stock/internal/config"
	"github.com/rl1809/item-stock/internal/core/service"
	"github.com/rl1809/item-stock/internal/logger"
	"github.com/rl1809/item-stock/internal/observability"
	"github.com/rl1809/item-stock/internal/port"
)

func main() {
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	appLogger, err := logger.New(cfg.Logger, cfg.Server.AppEnv)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, shutdownTracing, err := observability.SetupTracing(ctx, cfg.Otel)
	if err != nil {
		appLogger.Warn("tracing disabled", zap.Error(err))
		tp = otel.GetTracerProvider()
	}

	// Initialize item store
	repo, closeRepo := openRepository(ctx, cfg.Database, appLogger)
	defer closeRepo()

	// Initialize Redis
	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		appLogger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	}

	var locker port.Locker = storage.NewLocalLocker()
	var redisAdapter *storage.RedisAdapter
	if rdb != nil {
		redisAdapter = storage.NewRedisAdapter(rdb, cfg.Redis.LockTTL)
	}
	if cfg.Redis.LockBackend == config.LockRedis {
		locker = redisAdapter
	}
	appLogger.Info("item locks ready", zap.String("backend", cfg.Redis.LockBackend))

	// Initialize service
	itemService := service.NewItemService(repo, locker, appLogger,
		service.WithTimeout(cfg.Database.OperationTimeout),
	)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	rpc.RegisterItemServiceServer(grpcServer, handler.NewGRPCHandler(itemService, appLogger))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCPort)
	if err != nil {
		appLogger.Fatal("failed to listen", zap.String("addr", cfg.Server.GRPCPort), zap.Error(err))
	}

	go func() {
		appLogger.Info("gRPC server listening", zap.String("addr", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	handler.NewHTTPHandler(itemService, appLogger).RegisterRoutes(app)

	go func() {
		appLogger.Info("HTTP server listening", zap.String("addr", cfg.Server.HTTPPort))
		if err := app.Listen(cfg.Server.HTTPPort); err != nil {
			appLogger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Start increment stock listener
	var wg sync.WaitGroup
	var closers []func() error
	if cfg.Kafka.Enabled {
		reader, err := broker.NewReader(broker.ReaderConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.InTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		if err != nil {
			appLogger.Fatal("failed to create kafka reader", zap.Error(err))
		}
		success, err := broker.NewWriter(broker.WriterConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.OutTopic,
			ClientID: cfg.Otel.ServiceName,
		}, tp)
		if err != nil {
			appLogger.Fatal("failed to create kafka writer", zap.String("topic", cfg.Kafka.OutTopic), zap.Error(err))
		}
		failure, err := broker.NewWriter(broker.WriterConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.ErrorTopic,
			ClientID: cfg.Otel.ServiceName,
		}, tp)
		if err != nil {
			appLogger.Fatal("failed to create kafka writer", zap.String("topic", cfg.Kafka.ErrorTopic), zap.Error(err))
		}
		closers = append(closers, reader.Close, success.Close, failure.Close)

		listener := handler.NewKafkaHandler(itemService, success, failure, redisAdapter, appLogger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			listener.Start(ctx, reader)
		}()
		appLogger.Info("connected to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.InTopic))
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down...")

	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		appLogger.Error("HTTP server shutdown error", zap.Error(err))
	}
	appLogger.Info("HTTP server stopped")

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	appLogger.Info("gRPC server stopped")

	// Stop the listener and wait for the in-flight message
	cancel()
	wg.Wait()
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			appLogger.Error("failed to close kafka client", zap.Error(err))
		}
	}
	appLogger.Info("listener stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		appLogger.Error("failed to shutdown tracing", zap.Error(err))
	}
	appLogger.Info("connections closed")
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig, appLogger *zap.Logger) (port.ItemRepository, func()) {
	if cfg.Driver == config.DriverMemory {
		appLogger.Warn("using in-memory item store, data is lost on restart")
		return storage.NewMemoryAdapter(), func() {}
	}

	db, err := storage.OpenSQL(ctx, cfg.Driver, cfg.DSN, storage.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})
	if err != nil {
		appLogger.Fatal("failed to connect database", zap.String("driver", cfg.Driver), zap.Error(err))
	}

	adapter := storage.NewSQLAdapter(db)
	if err := adapter.EnsureSchema(ctx); err != nil {
		appLogger.Fatal("failed to ensure schema", zap.Error(err))
	}
	appLogger.Info("connected to database", zap.String("driver", cfg.Driver))
	return adapter, func() { db.Close() }
}
