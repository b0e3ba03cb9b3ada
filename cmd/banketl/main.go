package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	rediscache "github.com/mehmetymw/banketl/internal/cache/redis"
	"github.com/mehmetymw/banketl/internal/config"
	"github.com/mehmetymw/banketl/internal/extract"
	"github.com/mehmetymw/banketl/internal/pipeline"
	"github.com/mehmetymw/banketl/internal/progress"
	"github.com/mehmetymw/banketl/internal/sink/csvfile"
	"github.com/mehmetymw/banketl/internal/sink/kafka"
	"github.com/mehmetymw/banketl/internal/sink/sqlstore"
	"github.com/mehmetymw/banketl/internal/transform"
	"github.com/mehmetymw/banketl/internal/types"
)

func main() {
	zapConfig := zap.NewProductionConfig()
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	zapConfig.Level = level
	base, _ := zapConfig.Build()

	runID := uuid.NewString()
	logger := base.With(zap.String("run_id", runID))
	defer logger.Sync()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if l, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		level.SetLevel(l)
	} else {
		logger.Warn("Unknown log level, keeping info", zap.String("level", cfg.Log.Level))
	}
	logger.Info("Configuration loaded",
		zap.String("url", cfg.Source.URL),
		zap.String("rates", cfg.Rates.Path),
		zap.String("csv_path", cfg.Output.CSVPath),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("table", cfg.Store.Table),
		zap.Bool("kafka", cfg.KafkaEnabled()),
		zap.Bool("cache", cfg.CacheEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, runID, logger); err != nil {
		logger.Fatal("ETL run failed", zap.Error(err))
	}
	logger.Info("ETL run complete")
}

// run owns every resource so that deferred releases happen on all exit
// paths before main decides the exit code.
func run(ctx context.Context, cfg config.Config, runID string, logger *zap.Logger) error {
	trail, err := progress.Open(cfg.Log.ProgressFile)
	if err != nil {
		return types.ErrFile("open progress log", err)
	}
	defer trail.Close()

	var cache extract.PageCache
	if cfg.CacheEnabled() {
		pc := rediscache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.TTL, logger)
		defer pc.Close()
		if err := pc.Ping(ctx); err != nil {
			logger.Warn("Redis unavailable, fetching without cache", zap.Error(err))
		} else {
			cache = pc
		}
	}

	var publishers []types.Sink
	if cfg.KafkaEnabled() {
		publishers = append(publishers, kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Store.Table, runID, logger))
	}

	openStore := func(ctx context.Context) (pipeline.Store, error) {
		return sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.Store.Table, logger)
	}

	pl := pipeline.NewPipeline(cfg,
		extract.New(cfg.Source.Timeout, cfg.Source.UserAgent, cache, logger),
		transform.New(cfg.Rates, cfg.Source.Columns[1], logger),
		csvfile.New(cfg.Output.CSVPath, logger),
		openStore,
		publishers,
		trail,
		os.Stdout,
		logger,
	)
	defer func() {
		if err := pl.Close(); err != nil {
			logger.Error("Failed to close pipeline", zap.Error(err))
		}
	}()

	if err := pl.Run(ctx); err != nil {
		logger.Error("Pipeline aborted", zap.String("last_stage", pl.Stage()), zap.Error(err))
		return err
	}
	return nil
}
