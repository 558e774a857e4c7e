// cmd/creative-service/main.go
package main

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"adforge/internal/pkg/aiclient"
	"adforge/internal/pkg/bootstrap"
	"adforge/internal/pkg/logger"
	"adforge/internal/pkg/mq"
	"adforge/internal/pkg/redis"
	"adforge/internal/service/creative/application"
	"adforge/internal/service/creative/infrastructure"
	"adforge/internal/service/creative/infrastructure/adapter"
	"adforge/internal/service/creative/infrastructure/rule"
	"adforge/internal/service/creative/interfaces"
)

const (
	serviceName   = "creative-service"
	servicePort   = 8080
	consumerGroup = "creative-pipeline"
)

// main is the composition root: it builds every adapter, wires them into the
// application service, and hands lifecycle control to bootstrap.
func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) ([]bootstrap.Worker, func()) {
			cfg := appCtx.Config
			tracer := otel.Tracer(serviceName)

			db, err := infrastructure.NewDB(cfg.Infra.MysqlDSN)
			if err != nil {
				logger.Logger.Fatal().Err(err).Msg("Failed to connect to mysql")
			}

			redisClient, err := redis.NewClient(cfg.Infra.RedisAddr)
			if err != nil {
				logger.Logger.Fatal().Err(err).Msg("Failed to connect to redis")
			}

			store, err := adapter.NewGCSObjectStore(context.Background(), cfg.Infra.GCSBucket)
			if err != nil {
				logger.Logger.Fatal().Err(err).Msg("Failed to open gcs bucket")
			}

			gateExpr := cfg.App.ApprovalRule
			if gateExpr == "" {
				gateExpr = rule.ThresholdExpression(cfg.App.ApprovalThreshold)
			}
			approvalRule, err := rule.NewCELApprovalRule(gateExpr)
			if err != nil {
				logger.Logger.Fatal().Err(err).Msg("Invalid approval rule expression")
			}

			runner := aiclient.New(aiclient.Config{
				RequestsPerMinute: cfg.AI.RequestsPerMinute,
				MaxRetries:        cfg.AI.MaxRetries,
				DefaultBackoff:    time.Duration(cfg.AI.DefaultBackoffSec) * time.Second,
				CallTimeout:       time.Duration(cfg.AI.CallTimeoutSec) * time.Second,
			}, tracer, aiclient.WithClassifier(adapter.QuotaClassifier))
			openaiClient := adapter.NewOpenAIClient(cfg.AI.APIKey, cfg.AI.BaseURL)

			requestWriter := mq.NewWriter(cfg.Infra.KafkaAddrs, adapter.TopicRunRequested)
			lifecycleWriter := mq.NewWriter(cfg.Infra.KafkaAddrs, adapter.TopicRunLifecycle)

			service := application.NewCreativeApplicationService(
				application.Ports{
					Analyzer:  adapter.NewOpenAIVisionAnalyzer(openaiClient, runner, cfg.AI.VisionModel),
					Adapter:   adapter.NewOpenAITextAdapter(openaiClient, runner, cfg.AI.TextModel),
					Generator: adapter.NewOpenAIImageGenerator(openaiClient, runner, cfg.AI.ImageModel),
					ReviewerA: adapter.NewOpenAIReviewer("reviewer-a", openaiClient, runner, cfg.AI.ReviewerAModel),
					ReviewerB: adapter.NewOpenAIReviewer("reviewer-b", openaiClient, runner, cfg.AI.ReviewerBModel),
					Rule:      approvalRule,
					Ranker:    adapter.DeterministicImageRanker{},
					Store:     store,
					Locker:    adapter.NewRedisRunLocker(redisClient),
					Requests:  adapter.NewKafkaRunRequestProducer(requestWriter),
					Lifecycle: adapter.NewKafkaLifecyclePublisher(lifecycleWriter),
				},
				application.Repositories{
					Runs:     infrastructure.NewGormAdRunRepository(db),
					Ads:      infrastructure.NewGormGeneratedAdRepository(db),
					Hooks:    infrastructure.NewGormHookRepository(db),
					Products: infrastructure.NewGormProductRepository(db),
				},
				tracer,
				cfg.App.GenerationCount,
				time.Duration(cfg.App.RunTimeoutSec)*time.Second,
			)

			interfaces.NewCreativeHandler(service).RegisterRoutes(appCtx.Mux)

			reader := mq.NewReader(cfg.Infra.KafkaAddrs, consumerGroup, adapter.TopicRunRequested)
			consumer := interfaces.NewRunRequestedConsumer(reader, service)

			cleanup := func() {
				requestWriter.Close()
				lifecycleWriter.Close()
				store.Close()
				redisClient.Close()
			}
			return []bootstrap.Worker{consumer}, cleanup
		},
	})
}
