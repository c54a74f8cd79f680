package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ressKim-io/stance-classifier/internal/adapter/client"
	"github.com/ressKim-io/stance-classifier/internal/adapter/http/router"
	"github.com/ressKim-io/stance-classifier/internal/adapter/repository/postgres"
	rediscache "github.com/ressKim-io/stance-classifier/internal/adapter/repository/redis"
	"github.com/ressKim-io/stance-classifier/internal/adapter/tabular"
	"github.com/ressKim-io/stance-classifier/internal/adapter/tokenizer"
	"github.com/ressKim-io/stance-classifier/internal/domain/service"
	"github.com/ressKim-io/stance-classifier/internal/infrastructure/cache"
	"github.com/ressKim-io/stance-classifier/internal/infrastructure/config"
	"github.com/ressKim-io/stance-classifier/internal/infrastructure/database"
	"github.com/ressKim-io/stance-classifier/internal/infrastructure/logger"
	"github.com/ressKim-io/stance-classifier/internal/infrastructure/metrics"
	"github.com/ressKim-io/stance-classifier/internal/infrastructure/progress"
	"github.com/ressKim-io/stance-classifier/internal/usecase"
)

func main() {
	cmd.Flags().String("config", "", "path to a stance.yaml file (default: ./stance.yaml or ./configs/stance.yaml)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:           "stance",
	Short:         "Classify whether tweets take a position on a political issue",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runE,
}

func runE(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	// Initialize logger
	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	m := metrics.New()
	state := usecase.NewRunState()
	mlClient := client.NewMLClient(cfg.Classifier.BaseURL, cfg.Classifier.Timeout)

	// Initialize database (optional, but fatal once enabled)
	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil && sqlDB != nil {
				_ = sqlDB.Close()
			}
		}()
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("Connected to database")
	}

	// Initialize Redis (optional, continue without it)
	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedisClient(&cfg.Cache)
		if err != nil {
			log.Warn("Failed to connect to Redis, continuing without cache", zap.Error(err))
			redisClient = nil
		} else {
			defer func() { _ = redisClient.Close() }()
			log.Info("Connected to Redis")
		}
	}

	// Status listener
	if cfg.Metrics.ListenAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr: cfg.Metrics.ListenAddr,
			Handler: router.Setup(router.Dependencies{
				DB:       db,
				Redis:    redisClient,
				Model:    mlClient,
				State:    state,
				Registry: m.Registry(),
				Logger:   log,
			}),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			log.Info("Starting status listener", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Status listener failed", zap.Error(err))
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("Status listener forced to shutdown", zap.Error(err))
			}
		}()
	}

	observers := usecase.MultiObserver{state}
	if cfg.Progress.Enabled {
		observers = append(observers, progress.New(os.Stderr, cfg.Progress.Width))
	}

	// Classifier adapter: the model is loaded here, once
	classifier, err := newClassifier(ctx, cfg, mlClient, m, observers, log)
	if err != nil {
		return err
	}

	opts := []usecase.Option{
		usecase.WithLogger(log),
		usecase.WithMetrics(m),
		usecase.WithObserver(observers),
		usecase.WithColumns(cfg.Output.LabelColumn, cfg.Output.ScoreColumn),
		usecase.WithNormalization(cfg.Classifier.NormalizeUnicode),
	}
	if cfg.Output.ParquetPath != "" {
		opts = append(opts, usecase.WithParquet(tabular.NewParquetWriter(cfg.Output.ScoreColumn)))
	}
	if redisClient != nil {
		scope := rediscache.Scope{
			Model:    cfg.Classifier.Model,
			Template: service.StanceHypothesisTemplate,
			Labels:   service.StanceLabels,

			Truncation: cfg.Classifier.Truncation,
			MaxTokens:  classifier.MaxTokens(),
			Tokenizer:  cfg.Classifier.TokenizerFile,
		}
		opts = append(opts, usecase.WithCache(rediscache.NewResultCache(redisClient, scope, cfg.Cache.TTL)))
	}
	if db != nil {
		opts = append(opts, usecase.WithRepository(postgres.NewClassificationRepository(db)))
	}

	var naValues []string
	if len(cfg.Input.NAValues) > 0 {
		naValues = cfg.Input.NAValues
	}

	uc := usecase.NewStanceUsecase(
		tabular.NewLoader(cfg.Input.TextColumn, naValues, log),
		classifier,
		tabular.NewCSVWriter(cfg.Output.WriteIndex),
		opts...,
	)

	output, runErr := uc.Run(ctx, &usecase.RunInput{
		InputPath:   cfg.Input.Path,
		OutputPath:  cfg.Output.Path,
		ParquetPath: cfg.Output.ParquetPath,
		TextColumn:  cfg.Input.TextColumn,
	})

	if cfg.Metrics.TextfilePath != "" {
		if err := m.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			log.Warn("Failed to write metrics textfile", zap.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(os.Stdout, "classified %d of %d rows (%d dropped, %d cached) into %s\n",
		output.RowsClassified, output.RowsRead, output.RowsDropped, output.CacheHits, cfg.Output.Path)
	return nil
}

func newClassifier(ctx context.Context, cfg *config.Config, mlClient *client.MLClient, m *metrics.Metrics, observer usecase.RunObserver, log *zap.Logger) (*client.ZeroShotClassifier, error) {
	device, err := service.ParseDevice(cfg.Classifier.Device)
	if err != nil {
		return nil, err
	}
	truncation, err := service.ParseTruncationPolicy(cfg.Classifier.Truncation)
	if err != nil {
		return nil, err
	}

	opts := client.ZeroShotOptions{
		Model:      cfg.Classifier.Model,
		Device:     device,
		BatchSize:  cfg.Classifier.BatchSize,
		Truncation: truncation,
		MaxTokens:  cfg.Classifier.MaxTokens,
		OnBatch: func(size int, elapsed time.Duration) {
			m.ObserveBatch(size, elapsed)
			observer.RowsClassified(size, elapsed)
		},
		Logger: log,
	}

	if cfg.Classifier.TokenizerFile != "" {
		tk, err := tokenizer.FromFile(cfg.Classifier.TokenizerFile)
		if err != nil {
			return nil, err
		}
		opts.Tokenizer = tk
	}

	classifier, err := client.NewZeroShotClassifier(ctx, mlClient, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}
	return classifier, nil
}
