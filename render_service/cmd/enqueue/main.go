// Command enqueue publishes a render request JSON file to the RabbitMQ
// render queue.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"storyreel/config"
	sharedAMQP "storyreel/shared/amqp"
	"storyreel/shared/types"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "storyreel.yaml", "YAML config file (optional)")
	requestPath := flag.String("request", "", "Render request JSON file")
	flag.Parse()

	_ = godotenv.Load()

	if *requestPath == "" {
		return errors.New("-request is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := os.ReadFile(*requestPath)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	var req types.RenderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("invalid request JSON: %w", err)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	pub, err := sharedAMQP.NewPublisher(cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, cfg.RabbitMQ.Queue, data); err != nil {
		return err
	}
	log.Printf("📤 Queued %s on %s", *requestPath, cfg.RabbitMQ.Queue)
	return nil
}
