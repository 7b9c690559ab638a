package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"courseos-backend/internal/models"
	"courseos-backend/internal/narration"
)

type narrationEvents interface {
	HandleEvent(userID, sessionID uuid.UUID, event, message string) error
}

type NarrationHandler struct {
	registry *narration.Registry
	events   narrationEvents
}

func NewNarrationHandler(registry *narration.Registry, events narrationEvents) *NarrationHandler {
	return &NarrationHandler{registry: registry, events: events}
}

// Toggle plays, pauses or resumes a lesson's narration. The first toggle for a
// lesson must carry its concept, explanation and action.
func (h *NarrationHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	lessonID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid lesson ID", r))
		return
	}

	var req models.NarrationToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	ctrl, ok := h.registry.Lookup(session.UserID, lessonID)
	if !ok {
		atom := models.LessonAtom{Concept: req.Concept, Explanation: req.Explanation, Action: req.Action}
		if strings.TrimSpace(atom.Concept+atom.Explanation+atom.Action) == "" {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"lesson": "Lesson text is required to start narration"}, r))
			return
		}
		ctrl = h.registry.Controller(session.UserID, lessonID, atom.NarrationText())
	}

	state, err := ctrl.Toggle(r.Context())
	switch {
	case err == nil, errors.Is(err, narration.ErrUnsupported):
		writeJSON(w, http.StatusOK, stateResponse(lessonID, state, ctrl.SessionID()))
	case errors.Is(err, narration.ErrEngineUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("NARRATION_UNAVAILABLE", "No narration client is connected", r))
	case errors.Is(err, narration.ErrEmptyText):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Nothing to narrate for this lesson", r))
	case errors.Is(err, narration.ErrDisposed), errors.Is(err, narration.ErrNotOwner):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Narration state changed, please try again", r))
	default:
		handleServiceError(w, r, err)
	}
}

// Event receives the client's end and error reports for a narration session.
func (h *NarrationHandler) Event(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	var req models.NarrationEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.events.HandleEvent(session.UserID, sessionID, req.Event, req.Message); err != nil {
		if errors.Is(err, narration.ErrUnknownSession) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Narration session not found", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dispose is called when a lesson view goes away; any narration it owns stops.
func (h *NarrationHandler) Dispose(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	lessonID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid lesson ID", r))
		return
	}

	h.registry.Dispose(session.UserID, lessonID)
	w.WriteHeader(http.StatusNoContent)
}

func stateResponse(lessonID uuid.UUID, state narration.State, sessionID string) models.NarrationStateResponse {
	resp := models.NarrationStateResponse{LessonID: lessonID, State: string(state)}
	if id, err := uuid.Parse(sessionID); err == nil {
		resp.SessionID = &id
	}
	return resp
}
