// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"matching-workers/internal/common/camunda"
	"matching-workers/internal/common/config"
	"matching-workers/internal/common/database"
	"matching-workers/internal/common/errors"
	"matching-workers/internal/common/logger"
	"matching-workers/internal/common/observability"

	ag "matching-workers/internal/workers/matching/aggregate-group"
	mg "matching-workers/internal/workers/matching/match-groups"
	mr "matching-workers/internal/workers/matching/match-restaurants"
	np "matching-workers/internal/workers/matching/normalize-preferences"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Camunda client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Camunda client initialization")

	if err != nil {
		zapLog.Fatal("camunda client failed after retries", zap.Error(err))
	}
	zapLog.Info("Camunda client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Register the four pipeline workers ---

	errHandler := errors.NewErrorHandler(log)
	var workers []*camunda.CamundaWorker

	if config.IsWorkerEnabled(cfg, np.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, np.TaskType)
		handler := np.NewHandler(
			&np.Config{
				DefaultWeights: cfg.Matching.DefaultWeights,
				CacheTTL:       time.Duration(cfg.Matching.VectorCacheTTL) * time.Second,
				Timeout:        config.GetDuration(wcfg.Timeout),
			},
			pg.DB, redis.Client, log,
		)
		workers = append(workers, startWorker(camundaClient, np.TaskType, wcfg, handler, errHandler, zapLog))
	}

	if config.IsWorkerEnabled(cfg, mg.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, mg.TaskType)
		handler := mg.NewHandler(
			&mg.Config{
				Timeout: config.GetDuration(wcfg.Timeout),
			},
			pg.DB, redis.Client, log,
		).WithObservability(obs)
		workers = append(workers, startWorker(camundaClient, mg.TaskType, wcfg, handler, errHandler, zapLog))
	}

	if config.IsWorkerEnabled(cfg, ag.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, ag.TaskType)
		handler := ag.NewHandler(
			&ag.Config{
				CacheTTL: time.Duration(cfg.Matching.ProfileCacheTTL) * time.Second,
				Timeout:  config.GetDuration(wcfg.Timeout),
			},
			pg.DB, redis.Client, log,
		)
		workers = append(workers, startWorker(camundaClient, ag.TaskType, wcfg, handler, errHandler, zapLog))
	}

	if config.IsWorkerEnabled(cfg, mr.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, mr.TaskType)
		handler := mr.NewHandler(
			&mr.Config{
				RestaurantIndex: cfg.Database.Elasticsearch.RestaurantIndex,
				MaxDistanceKm:   cfg.Matching.MaxDistanceKm,
				PersistMatches:  cfg.Matching.PersistMatches,
				Timeout:         config.GetDuration(wcfg.Timeout),
			},
			pg.DB, esClient.Client, log,
		)
		workers = append(workers, startWorker(camundaClient, mr.TaskType, wcfg, handler, errHandler, zapLog))
	}

	zapLog.Info("All matching workers registered successfully", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := camundaClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		zapLog.Info("Health/Metrics server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, w := range workers {
		if w != nil {
			w.Stop(stopCtx)
		}
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Camunda client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client *camunda.Client, taskType string, wcfg config.WorkerConfig, handler camunda.JobHandler, errHandler *errors.ErrorHandler, log *zap.Logger) *camunda.CamundaWorker {
	w := camunda.NewWorker(
		client.GetClient(),
		taskType,
		wcfg.MaxJobsActive,
		config.GetDuration(wcfg.Timeout),
		handler,
		errHandler,
		log,
	)
	w.Start()

	log.Info("worker registered",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return w
}
