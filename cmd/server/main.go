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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/nft-marketplace/internal/adapter/handler"
	"github.com/rl1809/nft-marketplace/internal/adapter/handler/pb"
	"github.com/rl1809/nft-marketplace/internal/adapter/payment"
	"github.com/rl1809/nft-marketplace/internal/adapter/registry"
	"github.com/rl1809/nft-marketplace/internal/adapter/storage"
	"github.com/rl1809/nft-marketplace/internal/config"
	"github.com/rl1809/nft-marketplace/internal/core/domain"
	"github.com/rl1809/nft-marketplace/internal/core/service"
	"github.com/rl1809/nft-marketplace/internal/metrics"
	"github.com/rl1809/nft-marketplace/internal/port"
	"github.com/rl1809/nft-marketplace/internal/worker"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "marketplace",
		Short: "Peer-to-peer NFT listing and exchange ledger",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (toml, yaml or json)")
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC marketplace servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, newLogger(cfg))
		},
	}

	flags := cmd.Flags()
	flags.String("http-addr", "", "HTTP listen address")
	flags.String("grpc-addr", "", "gRPC listen address")
	flags.String("store-driver", "", "ledger store: memory, redis or mysql")
	flags.String("registry-driver", "", "asset registry: memory or redis")
	flags.String("log-level", "", "log level")
	for flag, key := range map[string]string{
		"http-addr":       "http_addr",
		"grpc-addr":       "grpc_addr",
		"store-driver":    "store_driver",
		"registry-driver": "registry_driver",
		"log-level":       "log_level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	return cmd
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("module", "marketplace").Logger()
}

// backends holds the adapters selected by config.
type backends struct {
	store      port.LedgerStore
	registry   port.AssetRegistry
	payout     port.Payout
	cache      port.CacheRepository
	publishers []port.EventPublisher
	closers    []func() error
}

func openBackends(ctx context.Context, cfg config.Config, logger zerolog.Logger) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: cfg.RedisPoolSize,
		})
		b.closers = append(b.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	}

	switch cfg.StoreDriver {
	case "memory":
		b.store = storage.NewMemoryStore()
		b.payout = payment.NewWallet()
	case "redis":
		redisAdapter := storage.NewRedisAdapter(rdb)
		b.store = redisAdapter
		b.payout = redisAdapter
		b.cache = redisAdapter
		b.publishers = append(b.publishers, redisAdapter)
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect mysql: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		b.closers = append(b.closers, db.Close)

		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping mysql: %w", err)
		}
		logger.Info().Msg("connected to mysql")

		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		b.store = mysqlAdapter
		b.payout = mysqlAdapter
		b.publishers = append(b.publishers, mysqlAdapter)
	}

	switch cfg.RegistryDriver {
	case "memory":
		b.registry = registry.NewMemoryRegistry()
	case "redis":
		b.registry = registry.NewRedisRegistry(rdb)
	}

	// Idempotency keys and pub/sub live in redis whenever it is available.
	if rdb != nil && cfg.StoreDriver != "redis" {
		redisAdapter := storage.NewRedisAdapter(rdb)
		b.cache = redisAdapter
		b.publishers = append(b.publishers, redisAdapter)
	}

	return b, nil
}

func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close connections")
		}
		logger.Info().Msg("connections closed")
	}()

	m := metrics.PrometheusMetrics(cfg.MetricsNamespace)

	marketplace := service.NewMarketplaceService(
		domain.Address(cfg.MarketplaceAddress),
		b.store,
		b.registry,
		b.payout,
		cfg.QueueSize,
		service.WithLogger(logger.With().Str("component", "ledger").Logger()),
		service.WithMetrics(m),
	)

	pool := worker.NewPool(marketplace.GetEventQueue(), b.publishers, logger.With().Str("component", "worker").Logger(), m)
	pool.Start(cfg.Workers)
	logger.Info().Int("workers", cfg.Workers).Msg("started workers")

	grpcServer := grpc.NewServer()
	pb.RegisterMarketplaceServiceServer(grpcServer, handler.NewGRPCHandler(marketplace, b.cache, logger))

	mux := http.NewServeMux()
	handler.NewHTTPHandler(marketplace, b.cache, logger).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP shutdown failed")
		}
		logger.Info().Msg("HTTP server stopped")

		grpcServer.GracefulStop()
		logger.Info().Msg("gRPC server stopped")
		return nil
	})

	err = g.Wait()

	marketplace.Close()
	pool.Wait()
	logger.Info().Msg("workers stopped")

	return err
}
