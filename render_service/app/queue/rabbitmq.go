package queue

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"storyreel/config"
	"storyreel/logging"
	"storyreel/render_service/app/services"
	sharedAMQP "storyreel/shared/amqp"
)

// StartConsumerWithGracefulShutdown consumes the render queue until SIGINT
// or SIGTERM.
func StartConsumerWithGracefulShutdown(cfg config.RabbitMQConfig, proc *services.RenderProcessor, logger logging.Logger) error {
	consumer, err := sharedAMQP.NewConsumer(cfg.URL, cfg.Queue, services.NewRequestHandler(proc), logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = consumer.Run(ctx)
	log.Println("RabbitMQ consumer stopped")
	return err
}
