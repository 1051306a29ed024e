package main

import (
	"context"

	"github.com/turtacn/smartscanon/internal/application/canonicalization"
	"github.com/turtacn/smartscanon/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/prometheus"
	dto "github.com/turtacn/smartscanon/pkg/types/canon"
	"github.com/turtacn/smartscanon/pkg/types/common"
)

// resultPublisher is satisfied by *kafka.Producer.
type resultPublisher interface {
	PublishResult(ctx context.Context, res *dto.JobResult) error
}

// jobHandler runs queued batch jobs and publishes their results.
type jobHandler struct {
	svc     canonicalization.Service
	results resultPublisher
	metrics *prometheus.CanonMetrics
	logger  logging.Logger
}

// Handle decodes one job, runs it and publishes the result. Undecodable
// messages are not retried; a failed publish is, so the job runs again.
func (h *jobHandler) Handle(ctx context.Context, msg *common.Message) error {
	err := h.handle(ctx, msg)
	h.metrics.RecordJob(msg.Topic, err)
	return err
}

func (h *jobHandler) handle(ctx context.Context, msg *common.Message) error {
	job, err := kafka.DecodeJob(msg)
	if err != nil {
		h.logger.Error("dropping undecodable job",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		return nil
	}

	res := h.svc.RunJob(ctx, job)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.results.PublishResult(ctx, res); err != nil {
		return err
	}
	h.logger.Debug("job result published",
		logging.String("job_id", job.JobID.String()),
		logging.String("kind", string(job.Kind)))
	return nil
}

//Personal.AI order the ending
