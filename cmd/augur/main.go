package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chclient "augur/internal/adapters/clickhouse"
	"augur/internal/adapters/config"
	"augur/internal/adapters/errors/noop"
	"augur/internal/adapters/errors/sentry"
	"augur/internal/adapters/kafka"
	pgclient "augur/internal/adapters/postgres"
	redisclient "augur/internal/adapters/redis"
	"augur/internal/confluence"
	domainsignal "augur/internal/domain/signal"
	"augur/internal/engine"
	"augur/internal/events"
	"augur/internal/indicators"
	"augur/internal/learner"
	"augur/internal/metrics"
	"augur/internal/ml"
	chrepo "augur/internal/repository/clickhouse"
	pgrepo "augur/internal/repository/postgres"
	redisrepo "augur/internal/repository/redis"
	"augur/internal/scoring"
	"augur/internal/smc"
	"augur/internal/tracker"
	"augur/internal/workers"
	"augur/internal/workers/analysis"
	"augur/pkg/errors"
	"augur/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	// Databases
	pg, err := pgclient.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()

	ch, err := chclient.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer ch.Close()

	rds, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rds.Close()

	// Repositories
	bars := chrepo.NewBarRepository(ch.Conn())
	elements := pgrepo.NewElementRepository(pg.DB())
	predictions := pgrepo.NewPredictionRepository(pg.DB())
	retrainings := pgrepo.NewRetrainingRepository(pg.DB())
	sentimentCache := redisrepo.NewSentimentCache(rds.Client(), 0)

	metrics.RegisterCustomCollector(
		metrics.NewCustomCollector(log, pg.DB(), ch.Conn(), rds.Client()))

	// Messaging
	producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
	defer producer.Close()
	publisher := events.NewPublisher(producer)

	// Optional ML ensemble
	var classifier *ml.SentimentClassifier
	if cfg.Model.Path != "" {
		classifier, err = ml.NewSentimentClassifier(cfg.Model.Path, cfg.Model.Version)
		if err != nil {
			log.Warnf("Failed to load sentiment model, running rule-based: %v", err)
		} else {
			defer classifier.Close()
		}
	}

	// Engine
	engineCfg := engine.Config{
		BarCount: cfg.Engine.BarCount,
		Weights: engine.Weights{
			SMC:        cfg.Engine.WeightSMC,
			Indicators: cfg.Engine.WeightIndicators,
			ML:         cfg.Engine.WeightML,
			Confluence: cfg.Engine.WeightConfluence,
		},
		Threshold: engine.ThresholdPolicy{
			Base: cfg.Engine.ThresholdBase,
			Min:  cfg.Engine.ThresholdMin,
			Max:  cfg.Engine.ThresholdMax,
		},
		KeyLevelCount: 3,
	}

	var predictor engine.EnsemblePredictor
	if classifier != nil {
		predictor = classifier
	}

	eng, err := engine.New(
		engineCfg,
		bars,
		elements,
		smc.NewDetector(smc.DefaultConfig()),
		scoring.NewScorer(scoring.DefaultConfig()),
		confluence.NewDetector(confluence.DefaultConfig()),
		indicators.NewBank(0),
		engine.DefaultAggregator(),
		predictor,
		publisher,
		sentimentCache,
	)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	// Prediction tracking and continuous learning
	trk := tracker.New(tracker.Config{
		DeadBand:     cfg.Tracker.DeadBand,
		PendingBatch: cfg.Tracker.PendingBatch,
	}, predictions, publisher)

	var swapper learner.ModelSwapper
	if classifier != nil {
		swapper = classifier
	}
	lrn := learner.New(learner.Config{
		RetrainInterval:        cfg.Learner.RetrainInterval,
		AccuracyFloor:          cfg.Learner.AccuracyFloor,
		AccuracyWindow:         cfg.Learner.AccuracyWindow,
		MinVerifiedForAccuracy: cfg.Learner.MinVerifiedForAccuracy,
		NewSamplesThreshold:    cfg.Learner.NewSamplesThreshold,
		MinTrainingSamples:     cfg.Learner.MinTrainingSamples,
	}, trk, predictions, retrainings,
		ml.NewCommandTrainer(cfg.Model.TrainCommand, cfg.Model.WorkDir), swapper)

	// Workers
	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(analysis.NewEvaluationWorker(
		eng, trk, cfg.App.Symbols, domainsignal.DefaultTimeframes,
		cfg.Workers.EvaluationInterval, cfg.Workers.EvaluationRate))
	scheduler.RegisterWorker(analysis.NewVerificationWorker(
		trk, bars, cfg.App.Symbols,
		cfg.Workers.VerificationInterval, cfg.Learner.AccuracyWindow))
	scheduler.RegisterWorker(analysis.NewRetrainingWorker(
		lrn, publisher, cfg.App.Symbols, cfg.Workers.RetrainCheckInterval))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	metricsSrv := startMetricsServer(cfg, log)

	log.Infow("System initialized",
		"symbols", cfg.App.Symbols,
		"model_version", eng.ModelVersion(),
	)

	waitForShutdown(ctx, cancel, scheduler, metricsSrv, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// startMetricsServer exposes Prometheus metrics when enabled
func startMetricsServer(cfg *config.Config, log *logger.Logger) *http.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	go func() {
		log.Infow("Metrics server listening", "addr", cfg.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()
	return srv
}

// waitForShutdown waits for a signal and performs graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, scheduler *workers.Scheduler, metricsSrv *http.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Worker shutdown incomplete: %v", err)
	}

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Metrics server shutdown failed: %v", err)
		}
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
