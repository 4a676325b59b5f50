package services

import (
	"context"
	"errors"

	"storyreel/jobs"
	"storyreel/shared/kafka"
	"storyreel/shared/types"
)

// NewRequestHandler adapts the processor to queue consumers. Invalid
// requests are marked and dropped. Render failures and requests whose output
// is locked by another render are left unmarked. RabbitMQ requeues those
// once. On Kafka an unmarked offset is skipped as soon as a later message on
// the same partition is marked, so Kafka redelivers it only when the session
// ends first.
func NewRequestHandler(p *RenderProcessor) *kafka.TypedMessageHandler[types.RenderRequest] {
	return &kafka.TypedMessageHandler[types.RenderRequest]{
		Validate: func(req *types.RenderRequest) bool {
			if err := req.Validate(); err != nil {
				p.log.Warnw("skipping invalid render request", "error", err)
				return false
			}
			return true
		},
		Process: func(ctx context.Context, req *types.RenderRequest) error {
			job, err := p.Process(ctx, *req)
			if errors.Is(err, jobs.ErrLocked) {
				p.log.Warnw("output busy, leaving request for redelivery", "output", req.OutputPath)
				return err
			}
			if err != nil {
				return err
			}
			p.log.Infow("render request handled", "job", job.ID, "status", job.Status)
			return nil
		},
		AlwaysMark: true,
		Log:        p.log,
	}
}
