package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"courseos-backend/internal/models"
)

type orchestrator interface {
	Run(ctx context.Context, creatorID uuid.UUID, req models.GenerateCourseRequest) (*models.GeneratedCourseView, error)
	Submit(ctx context.Context, creatorID uuid.UUID, req models.GenerateCourseRequest) (*models.GenerationJob, error)
	Status(ctx context.Context, creatorID uuid.UUID) *models.GenerationStatus
	Reset(ctx context.Context, creatorID uuid.UUID) (*models.GenerationStatus, error)
}

type GenerationHandler struct {
	orch orchestrator
}

func NewGenerationHandler(orch orchestrator) *GenerationHandler {
	return &GenerationHandler{orch: orch}
}

// Generate runs the pipeline inline, or queues it when the request asks for
// async and answers 202 with the job id.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req models.GenerateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Async {
		job, err := h.orch.Submit(r.Context(), session.UserID, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"job_id": job.ID,
			"state":  models.GenerationGenerating,
		})
		return
	}

	view, err := h.orch.Run(r.Context(), session.UserID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *GenerationHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.orch.Status(r.Context(), session.UserID))
}

func (h *GenerationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	status, err := h.orch.Reset(r.Context(), session.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
