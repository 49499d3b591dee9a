// cmd/lifecycle-manager/main.go
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

	"jobcore/internal/cascade"
	"jobcore/internal/common/aws"
	"jobcore/internal/common/camunda"
	"jobcore/internal/common/config"
	"jobcore/internal/common/database"
	"jobcore/internal/common/logger"
	"jobcore/internal/common/observability"
	"jobcore/internal/common/zoho"
	"jobcore/internal/dispatch"
	"jobcore/internal/jobstore"
	"jobcore/internal/ledger"
	"jobcore/internal/lifecycle"
	"jobcore/internal/moderation"
	"jobcore/internal/translate"
	"jobcore/pkg/registry"

	aj "jobcore/internal/workers/job/archive-jobs"
	cj "jobcore/internal/workers/job/create-job"
	hc "jobcore/internal/workers/job/hire-candidates"
	rj "jobcore/internal/workers/job/republish-job"
	uj "jobcore/internal/workers/job/update-job"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting lifecycle manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("lifecycle-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

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

	// --- Task registry ---
	if cfg.Registry.Path != "" {
		reg, rErr := registry.LoadRegistry(cfg.Registry.Path)
		if rErr != nil {
			zapLog.Fatal("task registry load failed", zap.Error(rErr))
		}
		for _, taskType := range []string{cj.TaskType, uj.TaskType, hc.TaskType, aj.TaskType, rj.TaskType} {
			if _, ok := reg.FindByTaskType(taskType); !ok {
				zapLog.Fatal("task type missing from registry", zap.String("taskType", taskType))
			}
		}
		zapLog.Info("Task registry validated", zap.Int("activities", len(reg.Activities)))
	}

	// --- Outbound integrations ---
	opts := dispatch.Options{
		FromEmail:    cfg.Integrations.AWS.SES.FromEmail,
		TopicARN:     cfg.Integrations.AWS.SNS.TopicARN,
		EmailEnabled: cfg.Integrations.AWS.SES.Enabled,
		PushEnabled:  cfg.Integrations.AWS.SNS.Enabled,
		Search:       dispatch.NewESIndexer(esClient, cfg.Database.Elasticsearch.JobIndex),
	}

	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, sErr := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if sErr != nil {
			zapLog.Fatal("ses client failed", zap.Error(sErr))
		}
		opts.SES = sesClient
	}
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, sErr := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if sErr != nil {
			zapLog.Fatal("sns client failed", zap.Error(sErr))
		}
		opts.SNS = snsClient
	}
	if cfg.Integrations.Zoho.APIKey != "" {
		opts.CRM = zoho.NewCRMClient(cfg.Integrations.Zoho.APIKey, cfg.Integrations.Zoho.AuthToken)
	}

	zapLog.Info("All external service clients initialized")

	// --- Domain wiring ---
	pricing := ledger.NewResolver(pg.DB, redis.Client, cfg.Pricing.CacheTTL, log)
	store := jobstore.New(pg.DB, log)
	entitlements := ledger.New(pg.DB, redis.Client, pricing, store, log)
	conversations := cascade.New(pg.DB, log)
	dispatcher := dispatch.New(pg.DB, log, opts)
	translator := translate.NewHTTPTranslator(cfg.Translation)
	screener := moderation.NewScreener(cfg.Moderation.WordlistPath)

	engine := lifecycle.NewEngine(
		store, entitlements, conversations, dispatcher,
		translator, screener, obs, cfg.Lifecycle, log,
	)

	// --- Register lifecycle workers ---
	var workers []*camunda.CamundaWorker

	register := func(taskType string, handler camunda.JobHandler) {
		wcfg := cfg.Workers[taskType]
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		w := camunda.NewWorker(zeebeClient.GetClient(), taskType, wcfg.MaxJobsActive, handler, zapLog)
		w.Start()
		workers = append(workers, w)
	}

	cjCfg := cj.LoadConfig()
	cjCfg.Timeout = timeoutFor(cfg, cj.TaskType, cjCfg.Timeout)
	register(cj.TaskType, cj.NewHandler(cjCfg, engine, log))

	ujCfg := uj.LoadConfig()
	ujCfg.Timeout = timeoutFor(cfg, uj.TaskType, ujCfg.Timeout)
	register(uj.TaskType, uj.NewHandler(ujCfg, engine, log))

	hcCfg := hc.LoadConfig()
	hcCfg.Timeout = timeoutFor(cfg, hc.TaskType, hcCfg.Timeout)
	register(hc.TaskType, hc.NewHandler(hcCfg, engine, log))

	ajCfg := aj.LoadConfig()
	ajCfg.Timeout = timeoutFor(cfg, aj.TaskType, ajCfg.Timeout)
	register(aj.TaskType, aj.NewHandler(ajCfg, engine, log))

	rjCfg := rj.LoadConfig()
	rjCfg.Timeout = timeoutFor(cfg, rj.TaskType, rjCfg.Timeout)
	register(rj.TaskType, rj.NewHandler(rjCfg, engine, log))

	zapLog.Info("All lifecycle workers registered", zap.Int("count", len(workers)))

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
			rctx, rcancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer rcancel()

			status := "ready"
			code := http.StatusOK
			if err := zeebeClient.HealthCheck(rctx); err != nil {
				status, code = "zeebe unavailable", http.StatusServiceUnavailable
			} else if err := pg.Ping(rctx); err != nil {
				status, code = "postgres unavailable", http.StatusServiceUnavailable
			}

			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{
				"status": status,
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	// Fire-and-forget notifications still in flight get to finish.
	dispatcher.Wait()

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Lifecycle manager stopped gracefully")
}

// Per-worker configured timeout, falling back to the package default.
func timeoutFor(cfg *config.Config, taskType string, fallback time.Duration) time.Duration {
	if wcfg, ok := cfg.Workers[taskType]; ok && wcfg.Timeout > 0 {
		return time.Duration(wcfg.Timeout) * time.Millisecond
	}
	return fallback
}

