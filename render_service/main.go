package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"storyreel/common"
	"storyreel/config"
	"storyreel/jobs"
	"storyreel/logging"
	"storyreel/render_service/app/api"
	"storyreel/render_service/app/kafka"
	"storyreel/render_service/app/queue"
	"storyreel/render_service/app/services"
	"storyreel/video"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// run keeps every exit path inside one frame so deferred cleanup runs.
func run() error {
	configPath := flag.String("config", "storyreel.yaml", "YAML config file (optional)")
	batchMode := flag.Bool("batch", false, "Run in batch mode (render every project in the input directory)")
	kafkaMode := flag.Bool("kafka", false, "Run in Kafka consumer mode (consume render requests from Kafka)")
	amqpMode := flag.Bool("amqp", false, "Run in RabbitMQ consumer mode (consume render requests from a queue)")
	cronMode := flag.Bool("cron", false, "Sweep the input directory on the configured batch schedule")
	apiPort := flag.String("port", "", "API server port (overrides config, e.g. :8081)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	log.Println("🎬 Render Service - Starting...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *apiPort != "" {
		cfg.HTTP.Port = *apiPort
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	renderer, err := video.NewRenderer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}

	var store jobs.Store
	if rs, err := jobs.NewRedisStore(cfg.Redis); err != nil {
		log.Printf("Redis unavailable (%v), tracking jobs in memory", err)
		store = jobs.NewMemoryStore()
	} else {
		log.Printf("Redis job store at %s", cfg.Redis.Addr)
		defer rs.Close()
		store = rs
	}

	var objects common.ObjectStore
	if s3, err := common.NewS3(context.Background(), cfg.S3); err != nil {
		log.Printf("S3 client not initialized (%v), remote artifacts disabled", err)
	} else {
		objects = s3
	}

	proc := services.NewRenderProcessor(cfg, renderer, store, objects, logger)

	if *batchMode {
		log.Println("📁 Running in BATCH mode")
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if err := proc.ProcessFromDirectory(ctx, cfg.Paths.Input); err != nil {
			return fmt.Errorf("batch processing failed: %w", err)
		}
		return nil
	}

	if *kafkaMode {
		log.Println("📨 Running in KAFKA consumer mode")
		log.Printf("🔗 Kafka Brokers: %v", cfg.Kafka.Brokers)
		log.Printf("📋 Topic: %s", cfg.Kafka.Topic)
		log.Printf("👥 Consumer Group: %s", cfg.Kafka.GroupID)

		if err := kafka.StartConsumerWithGracefulShutdown(cfg.Kafka, proc, logger); err != nil {
			return fmt.Errorf("kafka consumer failed: %w", err)
		}
		return nil
	}

	if *amqpMode {
		log.Println("🐇 Running in RABBITMQ consumer mode")
		log.Printf("📋 Queue: %s", cfg.RabbitMQ.Queue)

		if err := queue.StartConsumerWithGracefulShutdown(cfg.RabbitMQ, proc, logger); err != nil {
			return fmt.Errorf("rabbitmq consumer failed: %w", err)
		}
		return nil
	}

	if *cronMode {
		if cfg.Schedule.BatchCron == "" {
			return errors.New("-cron needs schedule.batch_cron or BATCH_CRON")
		}
		sched := services.NewBatchScheduler(proc, cfg.Paths.Input)
		if err := sched.Start(cfg.Schedule.BatchCron); err != nil {
			return fmt.Errorf("failed to start cron: %w", err)
		}
		defer sched.Stop()
		log.Printf("⏰ Cron Schedule: %s", cfg.Schedule.BatchCron)
	}

	log.Println("🌐 Running in API mode")

	router := api.NewServer(proc).NewRouter()

	log.Printf("🚀 API Server listening on %s", cfg.HTTP.Port)
	log.Println("📌 Endpoints:")
	log.Println("   POST /api/render      - Queue a render")
	log.Println("   GET  /api/render/:id  - Job status")
	log.Println("   GET  /health          - Health check")

	if err := router.Run(cfg.HTTP.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
