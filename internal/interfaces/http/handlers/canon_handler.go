package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/smartscanon/internal/application/canonicalization"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/pkg/errors"
	dto "github.com/turtacn/smartscanon/pkg/types/canon"
)

// JobEnqueuer hands an async batch to the queue workers.
type JobEnqueuer interface {
	PublishJob(ctx context.Context, job *dto.Job) error
}

// CanonHandler serves the pattern, reaction, compare and batch endpoints.
type CanonHandler struct {
	svc     canonicalization.Service
	jobs    JobEnqueuer
	logger  logging.Logger
	maxBody int64
}

// NewCanonHandler creates a CanonHandler. jobs may be nil, in which case
// async batches are rejected.
func NewCanonHandler(svc canonicalization.Service, jobs JobEnqueuer, logger logging.Logger, maxBody int64) *CanonHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CanonHandler{svc: svc, jobs: jobs, logger: logger.Named("canon_handler"), maxBody: maxBody}
}

// RegisterRoutes mounts the canonicalization endpoints on r.
func (h *CanonHandler) RegisterRoutes(r chi.Router) {
	r.Post("/patterns/canonicalize", h.CanonicalizePattern)
	r.Post("/patterns/compare", h.Compare)
	r.Post("/reactions/canonicalize", h.CanonicalizeReaction)
	r.Post("/batch", h.Batch)
}

// CanonicalizePattern handles POST /api/v1/patterns/canonicalize.
func (h *CanonHandler) CanonicalizePattern(w http.ResponseWriter, r *http.Request) {
	var req dto.PatternRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	resp, err := h.svc.CanonicalizePattern(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeData(w, r, http.StatusOK, resp)
}

// CanonicalizeReaction handles POST /api/v1/reactions/canonicalize.
func (h *CanonHandler) CanonicalizeReaction(w http.ResponseWriter, r *http.Request) {
	var req dto.ReactionRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	resp, err := h.svc.CanonicalizeReaction(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeData(w, r, http.StatusOK, resp)
}

// Compare handles POST /api/v1/patterns/compare.
func (h *CanonHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req dto.CompareRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	resp, err := h.svc.Compare(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeData(w, r, http.StatusOK, resp)
}

// Batch handles POST /api/v1/batch. Synchronous batches return every result;
// async batches are published as one job and answered with 202 and its id.
func (h *CanonHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if !req.Async {
		resp, err := h.svc.CanonicalizeBatch(r.Context(), &req)
		if err != nil {
			writeAppError(w, r, h.logger, err)
			return
		}
		writeData(w, r, http.StatusOK, resp)
		return
	}

	if h.jobs == nil {
		writeAppError(w, r, h.logger, errors.New(errors.ErrCodeFeatureDisabled, "async batches need the message queue"))
		return
	}
	if err := req.Validate(h.svc.Config().BatchLimit); err != nil {
		writeAppError(w, r, h.logger, errors.InvalidParam(err.Error()))
		return
	}
	job := dto.NewJob(jobKind(req.Items), req.Items, req.Options)
	if err := h.jobs.PublishJob(r.Context(), job); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	h.logger.Info("batch enqueued",
		logging.String("job_id", job.JobID.String()),
		logging.Int("items", len(job.Items)))
	writeData(w, r, http.StatusAccepted, &dto.BatchResponse{JobID: job.JobID.String()})
}

// jobKind routes a job to the reaction topic only when every item is a
// reaction; the worker handles mixed jobs either way.
func jobKind(items []dto.BatchItem) dto.Kind {
	for _, it := range items {
		if it.Kind != dto.KindReaction {
			return dto.KindPattern
		}
	}
	return dto.KindReaction
}

//Personal.AI order the ending
