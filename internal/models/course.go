package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
	CourseStatusReview    CourseStatus = "review"
)

func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusDraft, CourseStatusPublished, CourseStatusArchived, CourseStatusReview:
		return true
	}
	return false
}

type Course struct {
	ID            uuid.UUID      `json:"id"`
	CreatorID     uuid.UUID      `json:"creator_id"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Description   *string        `json:"description"`
	ThumbnailURL  *string        `json:"thumbnail_url"`
	Price         float64        `json:"price"`
	Currency      string         `json:"currency"`
	Status        CourseStatus   `json:"status"`
	Category      *string        `json:"category"`
	Settings      CourseSettings `json:"settings"`
	GenerationKey *string        `json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CourseSettings is the settings bag stored alongside a course. Known keys are
// typed; anything else survives a round-trip through Extra.
type CourseSettings struct {
	Language         *string                    `json:"language,omitempty"`
	Level            *string                    `json:"level,omitempty"`
	NarrationEnabled *bool                      `json:"narration_enabled,omitempty"`
	VoiceRate        *float64                   `json:"voice_rate,omitempty"`
	Extra            map[string]json.RawMessage `json:"-"`
}

var knownSettingsKeys = map[string]bool{
	"language":          true,
	"level":             true,
	"narration_enabled": true,
	"voice_rate":        true,
}

func (s CourseSettings) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+4)
	for k, v := range s.Extra {
		if !knownSettingsKeys[k] {
			out[k] = v
		}
	}

	type known CourseSettings
	b, err := json.Marshal(known(s))
	if err != nil {
		return nil, err
	}
	var typed map[string]json.RawMessage
	if err := json.Unmarshal(b, &typed); err != nil {
		return nil, err
	}
	for k, v := range typed {
		out[k] = v
	}
	return json.Marshal(out)
}

func (s *CourseSettings) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = CourseSettings{}
		return nil
	}

	type known CourseSettings
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*s = CourseSettings(k)
	s.Extra = nil
	for key, v := range all {
		if knownSettingsKeys[key] {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]json.RawMessage)
		}
		s.Extra[key] = v
	}
	return nil
}

type ListCoursesResponse struct {
	Courses []*Course `json:"courses"`
}
