package models

import (
	"github.com/google/uuid"
)

// WebSocket message types
const (
	WSGenerationStatus = "generation_status"
	WSNarration        = "narration"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// NarrationCommand drives the client-side speech synthesizer.
type NarrationCommand struct {
	Action    string    `json:"action"` // "speak" | "pause" | "resume" | "cancel"
	SessionID uuid.UUID `json:"session_id"`
	LessonID  uuid.UUID `json:"lesson_id"`
	Text      string    `json:"text,omitempty"`
	Lang      string    `json:"lang,omitempty"`
	Rate      float64   `json:"rate,omitempty"`
	Pitch     float64   `json:"pitch,omitempty"`
	Volume    float64   `json:"volume,omitempty"`
}

type NarrationEventRequest struct {
	Event   string `json:"event"` // "end" | "error"
	Message string `json:"message"`
}

type NarrationToggleRequest struct {
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
	Action      string `json:"action"`
}

type NarrationStateResponse struct {
	LessonID  uuid.UUID  `json:"lesson_id"`
	State     string     `json:"state"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
