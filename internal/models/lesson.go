package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	LessonTypeText = "text"

	// NominalLessonDuration is the fixed estimate stored for generated lessons.
	NominalLessonDuration = 90
)

// LessonAtom is one generated nano-lesson before it is persisted.
type LessonAtom struct {
	Title       string `json:"title"`
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
	Action      string `json:"action"`
}

// Validate reports the first empty field. index is only used in the error.
func (a LessonAtom) Validate(index int) error {
	fields := []struct {
		name  string
		value string
	}{
		{"title", a.Title},
		{"concept", a.Concept},
		{"explanation", a.Explanation},
		{"action", a.Action},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &AtomValidationError{Index: index, Field: f.name}
		}
	}
	return nil
}

// NarrationText is what a lesson's narration controller reads aloud.
func (a LessonAtom) NarrationText() string {
	return a.Concept + "\n\n" + a.Explanation + "\n\n" + a.Action
}

type AtomValidationError struct {
	Index int
	Field string
}

func (e *AtomValidationError) Error() string {
	return fmt.Sprintf("lesson %d: field %q is missing or empty", e.Index, e.Field)
}

type Lesson struct {
	ID              uuid.UUID `json:"id"`
	CourseID        uuid.UUID `json:"course_id"`
	Title           string    `json:"title"`
	Position        int       `json:"position"`
	LessonType      string    `json:"lesson_type"`
	Content         string    `json:"content"`
	VideoURL        *string   `json:"video_url"`
	AudioURL        *string   `json:"audio_url"`
	NanoSummary     string    `json:"nano_summary"`
	ActionItem      string    `json:"action_item"`
	KeyConcept      string    `json:"key_concept"`
	IsFree          bool      `json:"is_free"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Atom rebuilds the generated shape of a stored lesson.
func (l *Lesson) Atom() LessonAtom {
	return LessonAtom{
		Title:       l.Title,
		Concept:     l.KeyConcept,
		Explanation: l.Content,
		Action:      l.ActionItem,
	}
}

type ListLessonsResponse struct {
	Lessons []*Lesson `json:"lessons"`
}
