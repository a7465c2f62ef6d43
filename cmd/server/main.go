package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/anemia-history/internal/adapter/handler"
	"github.com/rl1809/anemia-history/internal/adapter/handler/pb"
	"github.com/rl1809/anemia-history/internal/adapter/messaging"
	"github.com/rl1809/anemia-history/internal/adapter/prediction"
	"github.com/rl1809/anemia-history/internal/adapter/storage"
	"github.com/rl1809/anemia-history/internal/config"
	"github.com/rl1809/anemia-history/internal/core/service"
	"github.com/rl1809/anemia-history/internal/port"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "anemia-history",
	Short:         "CBC anemia check intake and history service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.Log, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	mirror, closeMirror, err := openMirror(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeMirror()

	store := service.NewRecordStore(mirror, logger.Named("store"))
	if _, err := store.Load(ctx); err != nil {
		// A corrupt mirror must not be replaced by an empty History.
		return fmt.Errorf("refusing to start: %w", err)
	}

	var events port.EventPublisher = messaging.NopPublisher{}
	if len(cfg.Events.Kafka.Brokers) > 0 {
		kafka := messaging.NewKafkaPublisher(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic, logger.Named("events"))
		defer kafka.Close()
		events = kafka
		logger.Info("publishing record events",
			zap.Strings("brokers", cfg.Events.Kafka.Brokers),
			zap.String("topic", cfg.Events.Kafka.Topic))
	}

	predictor := prediction.NewClient(cfg.Prediction.URL, cfg.Prediction.Timeout)
	intake := service.NewIntakeService(predictor, store, events, logger.Named("intake"))
	history := service.NewHistoryService(store, events, logger.Named("history"))

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.NewHTTPHandler(intake, history, logger.Named("http")).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var (
		grpcServer *grpc.Server
		grpcLis    net.Listener
	)
	if cfg.GRPC.Addr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err)
		}
		grpcServer = grpc.NewServer(grpc.ForceServerCodec(pb.Codec{}))
		pb.RegisterHistoryServiceServer(grpcServer, handler.NewGRPCHandler(intake, history, logger.Named("grpc")))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcServer != nil {
		g.Go(func() error {
			logger.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Addr))
			if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown", zap.Error(err))
		}
		logger.Info("HTTP server stopped")

		if grpcServer != nil {
			grpcServer.GracefulStop()
			logger.Info("gRPC server stopped")
		}
		return nil
	})

	return g.Wait()
}

func openMirror(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (port.HistoryMirror, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, noop, fmt.Errorf("failed to connect redis: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		return storage.NewRedisMirror(rdb, cfg.Redis.Name), func() { rdb.Close() }, nil

	case config.BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect mysql: %w", err)
		}
		db.SetMaxOpenConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("failed to ping mysql: %w", err)
		}
		mirror := storage.NewMySQLMirror(db, cfg.MySQL.Name)
		if err := mirror.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		logger.Info("connected to mysql")
		return mirror, func() { db.Close() }, nil

	case config.BackendS3:
		client, err := storage.NewS3Client(ctx, cfg.S3.Endpoint)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using s3 history", zap.String("bucket", cfg.S3.Bucket), zap.String("key", cfg.S3.Key))
		return storage.NewS3Mirror(client, cfg.S3.Bucket, cfg.S3.Key), noop, nil
	}

	logger.Info("using file history", zap.String("path", cfg.File.Path))
	return storage.NewFileMirror(cfg.File.Path), noop, nil
}
