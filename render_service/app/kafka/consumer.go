package kafka

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"storyreel/config"
	"storyreel/logging"
	"storyreel/render_service/app/services"
	sharedKafka "storyreel/shared/kafka"
)

// NewConsumer creates a render request consumer on the shared consumer group.
func NewConsumer(cfg config.KafkaConfig, proc *services.RenderProcessor, logger logging.Logger) (*sharedKafka.Consumer, error) {
	return sharedKafka.NewConsumer(sharedKafka.ConsumerConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
		Handler: services.NewRequestHandler(proc),
		Log:     logger,
	})
}

// StartConsumerWithGracefulShutdown consumes until SIGINT or SIGTERM.
func StartConsumerWithGracefulShutdown(cfg config.KafkaConfig, proc *services.RenderProcessor, logger logging.Logger) error {
	consumer, err := NewConsumer(cfg, proc, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		consumer.Close()
		return err
	}

	<-ctx.Done()
	log.Println("Received termination signal")

	// Let an in-flight render notice cancellation before closing the group.
	time.Sleep(2 * time.Second)

	return consumer.Close()
}
