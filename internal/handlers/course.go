package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"courseos-backend/internal/models"
)

type courseReader interface {
	ListCoursesByCreator(ctx context.Context, creatorID uuid.UUID) []*models.Course
	GetCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error)
	ListLessonsByCourse(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error)
}

type CourseHandler struct {
	store courseReader
}

func NewCourseHandler(store courseReader) *CourseHandler {
	return &CourseHandler{store: store}
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	courses := h.store.ListCoursesByCreator(r.Context(), session.UserID)
	writeJSON(w, http.StatusOK, models.ListCoursesResponse{Courses: courses})
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	course, ok := h.ownedCourse(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) Lessons(w http.ResponseWriter, r *http.Request) {
	course, ok := h.ownedCourse(w, r)
	if !ok {
		return
	}

	lessons, err := h.store.ListLessonsByCourse(r.Context(), course.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ListLessonsResponse{Lessons: lessons})
}

func (h *CourseHandler) ownedCourse(w http.ResponseWriter, r *http.Request) (*models.Course, bool) {
	session, ok := requireSession(w, r)
	if !ok {
		return nil, false
	}

	courseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid course ID", r))
		return nil, false
	}

	course, err := h.store.GetCourse(r.Context(), courseID)
	if err != nil {
		handleServiceError(w, r, err)
		return nil, false
	}
	if course.CreatorID != session.UserID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "You do not have access to this course", r))
		return nil, false
	}
	return course, true
}
