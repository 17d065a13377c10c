package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/apperrors"
	"github.com/threecubed/seo-engine/pkg/services"
)

// ProcessRequest for POST /api/process. Form webhooks post the submission id
// alongside form fields we ignore. Async callers get an immediate 202 and
// follow up via GET /api/submissions/{id}/status.
type ProcessRequest struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Async        bool      `json:"async,omitempty"`
}

// ProcessResponse for POST /api/process
type ProcessResponse struct {
	SubmissionID uuid.UUID `json:"submission_id"`
}

// ProcessHandler handles pipeline trigger and reprocessing HTTP requests.
type ProcessHandler struct {
	processor *services.Processor
	batch     *services.BatchProcessor
	logger    *zap.Logger
}

// NewProcessHandler creates a new process handler.
func NewProcessHandler(processor *services.Processor, batch *services.BatchProcessor, logger *zap.Logger) *ProcessHandler {
	return &ProcessHandler{processor: processor, batch: batch, logger: logger}
}

// RegisterRoutes registers the process handler's routes on the given mux.
func (h *ProcessHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/process", h.Process)
	mux.HandleFunc("POST /api/reprocess", h.Reprocess)
}

// Process handles POST /api/process
// Runs the full pipeline for one submission synchronously, so webhook callers
// see a 500 when the run fails.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.SubmissionID == uuid.Nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_submission_id", "submission_id is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Async {
		go func() {
			// Detached from the request; the pipeline run must survive the
			// webhook response.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := h.processor.Process(ctx, req.SubmissionID); err != nil {
				h.logger.Error("Async pipeline run failed",
					zap.String("submission_id", req.SubmissionID.String()),
					zap.Error(err))
			}
		}()

		response := ProcessResponse{SubmissionID: req.SubmissionID}
		if err := WriteJSON(w, http.StatusAccepted, ApiResponse{Success: true, Data: response, Message: "processing started"}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	if err := h.processor.Process(r.Context(), req.SubmissionID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "submission_not_found", "submission not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Pipeline run failed",
			zap.String("submission_id", req.SubmissionID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "pipeline_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ProcessResponse{SubmissionID: req.SubmissionID}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Reprocess handles POST /api/reprocess
// Operator-triggered run over stuck submissions. Partial completion still
// returns the report; only a failure to even list work is a 500.
func (h *ProcessHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	report, err := h.batch.Run(r.Context())
	if err != nil && report.Found == 0 {
		h.logger.Error("Reprocessing run failed", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "reprocess_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if err != nil {
		h.logger.Warn("Reprocessing run ended early", zap.Error(err))
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: !report.Aborted, Data: report}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
