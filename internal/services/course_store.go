package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"courseos-backend/internal/logger"
	"courseos-backend/internal/models"
)

type courseRepository interface {
	Create(ctx context.Context, c *models.Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	GetByGenerationKey(ctx context.Context, creatorID uuid.UUID, key string) (*models.Course, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*models.Course, error)
}

type lessonRepository interface {
	CreateBatch(ctx context.Context, lessons []*models.Lesson) error
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error)
}

// CourseDraft is the input to CreateCourse. GenerationKey is optional; when
// set, a second create with the same key returns the first course.
type CourseDraft struct {
	CreatorID     uuid.UUID
	Title         string
	Description   *string
	GenerationKey string
}

// CourseStore persists generated courses and their lessons.
type CourseStore struct {
	courses  courseRepository
	lessons  lessonRepository
	currency string
	log      *logger.Logger
}

func NewCourseStore(courses courseRepository, lessons lessonRepository, currency string, log *logger.Logger) *CourseStore {
	if currency == "" {
		currency = "USD"
	}
	return &CourseStore{
		courses:  courses,
		lessons:  lessons,
		currency: currency,
		log:      log.With("component", "course_store"),
	}
}

func (s *CourseStore) CreateCourse(ctx context.Context, draft CourseDraft) (*models.Course, error) {
	course := &models.Course{
		CreatorID:   draft.CreatorID,
		Title:       draft.Title,
		Slug:        Slugify(draft.Title),
		Description: draft.Description,
		Price:       0,
		Currency:    s.currency,
		Status:      models.CourseStatusDraft,
	}
	if key := strings.TrimSpace(draft.GenerationKey); key != "" {
		course.GenerationKey = &key
	}

	if err := s.courses.Create(ctx, course); err != nil {
		s.log.Error("course insert failed", "creator_id", draft.CreatorID, "title", draft.Title, "error", err)
		return nil, &PersistenceError{Op: "create_course", Cause: err}
	}
	return course, nil
}

// SaveLessons maps atoms to lesson rows with positions 1..N in input order and
// inserts them as one batch.
func (s *CourseStore) SaveLessons(ctx context.Context, courseID uuid.UUID, atoms []models.LessonAtom) ([]*models.Lesson, error) {
	lessons := make([]*models.Lesson, len(atoms))
	for i, atom := range atoms {
		lessons[i] = lessonFromAtom(courseID, i+1, atom)
	}

	if err := s.lessons.CreateBatch(ctx, lessons); err != nil {
		s.log.Error("lesson batch insert failed", "course_id", courseID, "count", len(lessons), "error", err)
		return nil, &PersistenceError{Op: "save_lessons", Cause: err}
	}
	return lessons, nil
}

func lessonFromAtom(courseID uuid.UUID, position int, atom models.LessonAtom) *models.Lesson {
	return &models.Lesson{
		CourseID:        courseID,
		Title:           atom.Title,
		Position:        position,
		LessonType:      models.LessonTypeText,
		Content:         atom.Explanation,
		KeyConcept:      atom.Concept,
		ActionItem:      atom.Action,
		NanoSummary:     atom.Concept,
		IsFree:          true, // generated audio lessons are free marketing
		DurationSeconds: models.NominalLessonDuration,
	}
}

func (s *CourseStore) ListLessonsByCourse(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error) {
	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		s.log.Error("lesson read failed", "course_id", courseID, "error", err)
		return nil, &PersistenceError{Op: "list_lessons", Cause: err}
	}
	if lessons == nil {
		lessons = []*models.Lesson{}
	}
	return lessons, nil
}

// ListCoursesByCreator never fails: a read error yields an empty list.
func (s *CourseStore) ListCoursesByCreator(ctx context.Context, creatorID uuid.UUID) []*models.Course {
	courses, err := s.courses.ListByCreator(ctx, creatorID)
	if err != nil {
		s.log.Error("course list failed", "creator_id", creatorID, "error", err)
		return []*models.Course{}
	}
	if courses == nil {
		return []*models.Course{}
	}
	return courses
}

func (s *CourseStore) GetCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Course not found"}
		}
		s.log.Error("course read failed", "course_id", courseID, "error", err)
		return nil, &PersistenceError{Op: "get_course", Cause: err}
	}
	return course, nil
}

// CourseByKey returns the creator's course for a generation key, or nil when
// none exists yet.
func (s *CourseStore) CourseByKey(ctx context.Context, creatorID uuid.UUID, key string) (*models.Course, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	course, err := s.courses.GetByGenerationKey(ctx, creatorID, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.log.Error("course lookup by key failed", "creator_id", creatorID, "error", err)
		return nil, &PersistenceError{Op: "get_course", Cause: err}
	}
	return course, nil
}
