package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/apperrors"
	"github.com/threecubed/seo-engine/pkg/models"
	"github.com/threecubed/seo-engine/pkg/repositories"
	"github.com/threecubed/seo-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// CreateSubmissionRequest for POST /api/submissions
type CreateSubmissionRequest struct {
	ProductName     string `json:"product_name"`
	GenericName     string `json:"generic_name,omitempty"`
	Indication      string `json:"indication"`
	TherapeuticArea string `json:"therapeutic_area"`
	TargetAudience  string `json:"target_audience,omitempty"`
	PriorityLevel   string `json:"priority_level,omitempty"`
	SubmitterName   string `json:"submitter_name,omitempty"`
	SubmitterEmail  string `json:"submitter_email,omitempty"`
}

// CreateSubmissionResponse for POST /api/submissions
type CreateSubmissionResponse struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	ComplianceID string    `json:"compliance_id"`
}

// SubmissionListResponse for GET /api/submissions
type SubmissionListResponse struct {
	Submissions []*models.Submission `json:"submissions"`
	Total       int                  `json:"total"`
}

// AdvanceStageRequest for POST /api/submissions/{id}/advance
type AdvanceStageRequest struct {
	Stage models.WorkflowStage `json:"stage"`
}

// StatusResponse for GET /api/submissions/{id}/status
type StatusResponse struct {
	Outcome    services.PollOutcome `json:"outcome"`
	Submission *models.Submission   `json:"submission,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// SubmissionsHandler handles submission intake and dashboard HTTP requests.
type SubmissionsHandler struct {
	repo   repositories.SubmissionRepository
	poller *services.StatusPoller
	logger *zap.Logger
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(repo repositories.SubmissionRepository, poller *services.StatusPoller, logger *zap.Logger) *SubmissionsHandler {
	return &SubmissionsHandler{repo: repo, poller: poller, logger: logger}
}

// RegisterRoutes registers the submissions handler's routes on the given mux.
func (h *SubmissionsHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/submissions"

	mux.HandleFunc("POST "+base, h.Create)
	mux.HandleFunc("GET "+base, h.List)
	mux.HandleFunc("GET "+base+"/{id}", h.Get)
	mux.HandleFunc("GET "+base+"/{id}/status", h.WaitStatus)
	mux.HandleFunc("POST "+base+"/{id}/advance", h.Advance)
}

// Create handles POST /api/submissions
func (h *SubmissionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	sub := &models.Submission{
		ProductName:     req.ProductName,
		GenericName:     req.GenericName,
		Indication:      req.Indication,
		TherapeuticArea: req.TherapeuticArea,
		TargetAudience:  req.TargetAudience,
		PriorityLevel:   req.PriorityLevel,
		SubmitterName:   req.SubmitterName,
		SubmitterEmail:  req.SubmitterEmail,
		WorkflowStage:   models.StageFormSubmitted,
	}

	if err := sub.ValidateIntake(); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.repo.Create(r.Context(), sub); err != nil {
		h.logger.Error("Failed to create submission",
			zap.String("product", req.ProductName),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "create_submission_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Info("Submission created",
		zap.String("submission_id", sub.ID.String()),
		zap.String("compliance_id", sub.ComplianceID),
		zap.String("product", sub.ProductName))

	response := CreateSubmissionResponse{
		SubmissionID: sub.ID,
		ComplianceID: sub.ComplianceID,
	}
	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/submissions/{id}
func (h *SubmissionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	sub, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "submission_not_found", "submission not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get submission",
			zap.String("submission_id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_submission_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: sub}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/submissions?stage=&status=&limit=
func (h *SubmissionsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListFilter{}

	if stage := r.URL.Query().Get("stage"); stage != "" {
		ws := models.WorkflowStage(stage)
		if !models.IsValidWorkflowStage(ws) {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_stage", "unknown workflow stage: "+stage); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filter.Stage = ws
	}
	if status := r.URL.Query().Get("status"); status != "" {
		ps := models.ProcessingStatus(status)
		if !models.IsValidProcessingStatus(ps) {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_status", "unknown processing status: "+status); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filter.Status = ps
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filter.Limit = n
	}

	subs, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list submissions", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_submissions_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := SubmissionListResponse{
		Submissions: subs,
		Total:       len(subs),
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// WaitStatus handles GET /api/submissions/{id}/status
// Long-polls until the pipeline reaches a terminal status or the poller's
// attempt budget runs out. A submission already terminal returns immediately.
func (h *SubmissionsHandler) WaitStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	if _, err := h.repo.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "submission_not_found", "submission not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get submission for status wait",
			zap.String("submission_id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_submission_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	outcome, sub, err := h.poller.Wait(r.Context(), id)
	if err != nil {
		// The client went away mid-wait; nothing useful left to write.
		h.logger.Debug("Status wait interrupted",
			zap.String("submission_id", id.String()),
			zap.Error(err))
		return
	}

	response := StatusResponse{Outcome: outcome, Submission: sub}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: outcome == services.PollCompleted, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Advance handles POST /api/submissions/{id}/advance
func (h *SubmissionsHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	var req AdvanceStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if !models.IsValidWorkflowStage(req.Stage) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_stage", "unknown workflow stage: "+string(req.Stage)); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	sub, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "submission_not_found", "submission not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get submission for advance",
			zap.String("submission_id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_submission_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if !sub.WorkflowStage.CanTransitionTo(req.Stage) {
		transErr := fmt.Errorf("%w: cannot move from %s to %s",
			apperrors.ErrInvalidTransition, sub.WorkflowStage, req.Stage)
		h.logger.Warn("Rejected invalid stage transition",
			zap.String("submission_id", id.String()),
			zap.String("from", string(sub.WorkflowStage)),
			zap.String("to", string(req.Stage)))
		if err := ErrorResponse(w, http.StatusConflict, "invalid_transition", transErr.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.repo.UpdateStage(r.Context(), id, req.Stage); err != nil {
		h.logger.Error("Failed to advance workflow stage",
			zap.String("submission_id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "advance_stage_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Info("Workflow stage advanced",
		zap.String("submission_id", id.String()),
		zap.String("from", string(sub.WorkflowStage)),
		zap.String("to", string(req.Stage)))

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "stage updated"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// parseSubmissionID extracts and validates the {id} path value. On failure it
// writes the error response and returns false.
func parseSubmissionID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_submission_id", "submission id must be a UUID"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
