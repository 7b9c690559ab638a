package models

import (
	"time"

	"github.com/google/uuid"
)

type GenerationState string

const (
	GenerationIdle       GenerationState = "idle"
	GenerationGenerating GenerationState = "generating"
	GenerationSucceeded  GenerationState = "succeeded"
	GenerationFailed     GenerationState = "failed"
)

type GenerateCourseRequest struct {
	Topic         string  `json:"topic"`
	LessonCount   int     `json:"lesson_count"`
	Description   *string `json:"description"`
	GenerationKey string  `json:"generation_key"`
	Async         bool    `json:"async"`
}

// GeneratedCourseView is what the dashboard renders right after a run. Lessons
// are the in-memory atoms, in generation order.
type GeneratedCourseView struct {
	CourseID uuid.UUID    `json:"course_id"`
	Title    string       `json:"title"`
	Slug     string       `json:"slug"`
	Lessons  []LessonAtom `json:"lessons"`
}

type GenerationStatus struct {
	State       GenerationState      `json:"state"`
	Topic       string               `json:"topic"`
	LessonCount int                  `json:"lesson_count"`
	Error       string               `json:"error,omitempty"`
	View        *GeneratedCourseView `json:"view,omitempty"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func IdleStatus() *GenerationStatus {
	return &GenerationStatus{State: GenerationIdle, UpdatedAt: time.Now()}
}

// GenerationJob is the payload pushed onto the async generation queue.
type GenerationJob struct {
	ID        uuid.UUID             `json:"id"`
	CreatorID uuid.UUID             `json:"creator_id"`
	Request   GenerateCourseRequest `json:"request"`
	QueuedAt  time.Time             `json:"queued_at"`
}
