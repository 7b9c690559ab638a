package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"courseos-backend/internal/models"
	"courseos-backend/internal/services"
)

type stubCourseReader struct {
	course  *models.Course
	lessons []*models.Lesson
	listed  uuid.UUID
}

func (s *stubCourseReader) ListCoursesByCreator(_ context.Context, creatorID uuid.UUID) []*models.Course {
	s.listed = creatorID
	return []*models.Course{}
}

func (s *stubCourseReader) GetCourse(_ context.Context, id uuid.UUID) (*models.Course, error) {
	if s.course == nil || s.course.ID != id {
		return nil, &services.NotFoundError{Message: "Course not found"}
	}
	return s.course, nil
}

func (s *stubCourseReader) ListLessonsByCourse(context.Context, uuid.UUID) ([]*models.Lesson, error) {
	return s.lessons, nil
}

func TestCourseList_ScopedToCaller(t *testing.T) {
	store := &stubCourseReader{}
	h := NewCourseHandler(store)
	userID := uuid.New()

	rr := httptest.NewRecorder()
	h.List(rr, newRequest(http.MethodGet, "/api/v1/courses", nil, userID))

	if rr.Code != http.StatusOK || store.listed != userID {
		t.Fatalf("status %d, listed for %s", rr.Code, store.listed)
	}
	var resp map[string]json.RawMessage
	json.NewDecoder(rr.Body).Decode(&resp)
	if string(resp["courses"]) != "[]" {
		t.Errorf("courses = %s, want []", resp["courses"])
	}
}

func TestCourseLessons_Authorization(t *testing.T) {
	ownerID := uuid.New()
	course := &models.Course{ID: uuid.New(), CreatorID: ownerID, Title: "Go", Status: models.CourseStatusDraft}
	store := &stubCourseReader{
		course: course,
		lessons: []*models.Lesson{
			{ID: uuid.New(), CourseID: course.ID, Position: 1},
			{ID: uuid.New(), CourseID: course.ID, Position: 2},
		},
	}
	h := NewCourseHandler(store)

	tests := []struct {
		name   string
		user   uuid.UUID
		id     string
		status int
	}{
		{"owner", ownerID, course.ID.String(), http.StatusOK},
		{"other user", uuid.New(), course.ID.String(), http.StatusForbidden},
		{"unknown course", ownerID, uuid.NewString(), http.StatusNotFound},
		{"bad id", ownerID, "nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.Lessons(rr, newRequest(http.MethodGet, "/api/v1/courses/"+tt.id+"/lessons", nil, tt.user, "id", tt.id))

			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if tt.status == http.StatusOK {
				var resp models.ListLessonsResponse
				json.NewDecoder(rr.Body).Decode(&resp)
				if len(resp.Lessons) != 2 || resp.Lessons[0].Position != 1 {
					t.Errorf("unexpected lessons %+v", resp.Lessons)
				}
			}
		})
	}
}
