package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"courseos-backend/internal/logger"
	"courseos-backend/internal/models"
)

// staleGeneration is how long a "generating" status blocks a new run. A crashed
// run would otherwise hold the creator forever.
const staleGeneration = 10 * time.Minute

type lessonGenerator interface {
	Generate(ctx context.Context, topic string, count int) ([]models.LessonAtom, error)
}

type courseWriter interface {
	CourseByKey(ctx context.Context, creatorID uuid.UUID, key string) (*models.Course, error)
	CreateCourse(ctx context.Context, draft CourseDraft) (*models.Course, error)
	SaveLessons(ctx context.Context, courseID uuid.UUID, atoms []models.LessonAtom) ([]*models.Lesson, error)
	ListLessonsByCourse(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error)
}

// StatusStore keeps the per-creator generation state machine. Claim writes
// status only when no run younger than staleAfter is in progress, and must do
// the check and the write atomically.
type StatusStore interface {
	Get(ctx context.Context, creatorID uuid.UUID) (*models.GenerationStatus, error)
	Put(ctx context.Context, creatorID uuid.UUID, status *models.GenerationStatus) error
	Claim(ctx context.Context, creatorID uuid.UUID, status *models.GenerationStatus, staleAfter time.Duration) (bool, error)
	Clear(ctx context.Context, creatorID uuid.UUID) error
}

func isRunning(st *models.GenerationStatus, staleAfter time.Duration) bool {
	return st != nil && st.State == models.GenerationGenerating && time.Since(st.UpdatedAt) < staleAfter
}

// Notifier pushes a message to every live connection of a user.
type Notifier interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

type jobQueue interface {
	Push(ctx context.Context, job *models.GenerationJob) error
}

// Orchestrator chains generation and persistence into one user-facing run:
// validate, generate, create course, save lessons. Steps run strictly in order
// and a failure stops the rest; a course created before a failed lesson save
// is left in place.
type Orchestrator struct {
	generator lessonGenerator
	store     courseWriter
	status    StatusStore
	notifier  Notifier
	queue     jobQueue
	log       *logger.Logger
}

func NewOrchestrator(generator lessonGenerator, store courseWriter, status StatusStore, notifier Notifier, queue jobQueue, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		generator: generator,
		store:     store,
		status:    status,
		notifier:  notifier,
		queue:     queue,
		log:       log.With("component", "orchestrator"),
	}
}

func validateTopic(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", &ValidationError{Fields: map[string]string{"topic": "Please enter a topic"}}
	}
	return topic, nil
}

// Run executes the whole pipeline synchronously.
func (o *Orchestrator) Run(ctx context.Context, creatorID uuid.UUID, req models.GenerateCourseRequest) (*models.GeneratedCourseView, error) {
	topic, err := validateTopic(req.Topic)
	if err != nil {
		return nil, err
	}
	count := normalizeCount(req.LessonCount)

	if err := o.claim(ctx, creatorID, topic, count); err != nil {
		return nil, err
	}
	return o.execute(ctx, creatorID, topic, count, req)
}

// Submit validates the request, marks the creator as generating and queues the
// run for the worker pool.
func (o *Orchestrator) Submit(ctx context.Context, creatorID uuid.UUID, req models.GenerateCourseRequest) (*models.GenerationJob, error) {
	topic, err := validateTopic(req.Topic)
	if err != nil {
		return nil, err
	}
	req.Topic = topic
	req.LessonCount = normalizeCount(req.LessonCount)

	if err := o.claim(ctx, creatorID, topic, req.LessonCount); err != nil {
		return nil, err
	}

	job := &models.GenerationJob{
		ID:        uuid.New(),
		CreatorID: creatorID,
		Request:   req,
		QueuedAt:  time.Now(),
	}

	if err := o.queue.Push(ctx, job); err != nil {
		o.log.Error("failed to queue generation", "creator_id", creatorID, "error", err)
		o.fail(ctx, creatorID, topic, req.LessonCount, err)
		return nil, err
	}
	return job, nil
}

// Process runs a queued job. The creator is already in the generating state.
func (o *Orchestrator) Process(ctx context.Context, job *models.GenerationJob) (*models.GeneratedCourseView, error) {
	topic, err := validateTopic(job.Request.Topic)
	if err != nil {
		o.fail(ctx, job.CreatorID, job.Request.Topic, job.Request.LessonCount, err)
		return nil, err
	}
	return o.execute(ctx, job.CreatorID, topic, normalizeCount(job.Request.LessonCount), job.Request)
}

// Abandon marks a queued job as failed when it could not be run at all.
func (o *Orchestrator) Abandon(ctx context.Context, job *models.GenerationJob, err error) {
	o.fail(ctx, job.CreatorID, job.Request.Topic, normalizeCount(job.Request.LessonCount), err)
}

func (o *Orchestrator) execute(ctx context.Context, creatorID uuid.UUID, topic string, count int, req models.GenerateCourseRequest) (*models.GeneratedCourseView, error) {
	if req.GenerationKey != "" {
		view, err := o.resume(ctx, creatorID, req.GenerationKey)
		if err != nil {
			o.fail(ctx, creatorID, topic, count, err)
			return nil, err
		}
		if view != nil {
			o.succeed(ctx, creatorID, topic, view)
			return view, nil
		}
	}

	atoms, err := o.generator.Generate(ctx, topic, count)
	if err != nil {
		o.fail(ctx, creatorID, topic, count, err)
		return nil, err
	}

	course, err := o.store.CreateCourse(ctx, CourseDraft{
		CreatorID:     creatorID,
		Title:         topic,
		Description:   req.Description,
		GenerationKey: req.GenerationKey,
	})
	if err != nil {
		o.fail(ctx, creatorID, topic, count, err)
		return nil, err
	}

	if _, err := o.store.SaveLessons(ctx, course.ID, atoms); err != nil {
		o.fail(ctx, creatorID, topic, count, err)
		return nil, err
	}

	view := &models.GeneratedCourseView{
		CourseID: course.ID,
		Title:    course.Title,
		Slug:     course.Slug,
		Lessons:  atoms,
	}
	o.succeed(ctx, creatorID, topic, view)
	return view, nil
}

// resume returns the stored view of a keyed course whose lessons were already
// saved, or nil when the run still has to generate.
func (o *Orchestrator) resume(ctx context.Context, creatorID uuid.UUID, key string) (*models.GeneratedCourseView, error) {
	course, err := o.store.CourseByKey(ctx, creatorID, key)
	if err != nil || course == nil {
		return nil, err
	}
	lessons, err := o.store.ListLessonsByCourse(ctx, course.ID)
	if err != nil || len(lessons) == 0 {
		return nil, err
	}

	atoms := make([]models.LessonAtom, len(lessons))
	for i, l := range lessons {
		atoms[i] = l.Atom()
	}
	o.log.Info("course already generated for key, skipping generation", "course_id", course.ID, "lessons", len(lessons))
	return &models.GeneratedCourseView{
		CourseID: course.ID,
		Title:    course.Title,
		Slug:     course.Slug,
		Lessons:  atoms,
	}, nil
}

func (o *Orchestrator) succeed(ctx context.Context, creatorID uuid.UUID, topic string, view *models.GeneratedCourseView) {
	o.transition(ctx, creatorID, &models.GenerationStatus{
		State:       models.GenerationSucceeded,
		Topic:       topic,
		LessonCount: len(view.Lessons),
		View:        view,
	})
	o.log.Info("course generated", "creator_id", creatorID, "course_id", view.CourseID, "lessons", len(view.Lessons))
}

// Status returns the creator's current state; idle when nothing is recorded.
func (o *Orchestrator) Status(ctx context.Context, creatorID uuid.UUID) *models.GenerationStatus {
	st, err := o.status.Get(ctx, creatorID)
	if err != nil {
		o.log.Warn("status read failed", "creator_id", creatorID, "error", err)
		return models.IdleStatus()
	}
	if st == nil {
		return models.IdleStatus()
	}
	return st
}

// Reset returns a finished run to idle, clearing topic, count and error.
func (o *Orchestrator) Reset(ctx context.Context, creatorID uuid.UUID) (*models.GenerationStatus, error) {
	if err := o.ensureNotRunning(ctx, creatorID); err != nil {
		return nil, err
	}
	if err := o.status.Clear(ctx, creatorID); err != nil {
		o.log.Warn("status clear failed", "creator_id", creatorID, "error", err)
	}
	idle := models.IdleStatus()
	o.publish(ctx, creatorID, idle)
	return idle, nil
}

func (o *Orchestrator) ensureNotRunning(ctx context.Context, creatorID uuid.UUID) error {
	if isRunning(o.Status(ctx, creatorID), staleGeneration) {
		return errAlreadyGenerating()
	}
	return nil
}

func errAlreadyGenerating() error {
	return &ConflictError{Message: "A course is already being generated"}
}

// claim moves the creator into the generating state, or fails with a
// ConflictError when another run holds it.
func (o *Orchestrator) claim(ctx context.Context, creatorID uuid.UUID, topic string, count int) error {
	st := &models.GenerationStatus{
		State:       models.GenerationGenerating,
		Topic:       topic,
		LessonCount: count,
		UpdatedAt:   time.Now(),
	}
	ok, err := o.status.Claim(ctx, creatorID, st, staleGeneration)
	if err != nil {
		o.log.Error("status claim failed", "creator_id", creatorID, "error", err)
		return fmt.Errorf("failed to start generation: %w", err)
	}
	if !ok {
		return errAlreadyGenerating()
	}
	o.publish(ctx, creatorID, st)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, creatorID uuid.UUID, topic string, count int, err error) {
	o.transition(ctx, creatorID, &models.GenerationStatus{
		State:       models.GenerationFailed,
		Topic:       topic,
		LessonCount: count,
		Error:       UserMessage(err),
	})
}

// transition records st even when ctx is already cancelled: an abandoned
// request must still leave the creator in a terminal state.
func (o *Orchestrator) transition(ctx context.Context, creatorID uuid.UUID, st *models.GenerationStatus) {
	ctx = context.WithoutCancel(ctx)
	st.UpdatedAt = time.Now()
	if err := o.status.Put(ctx, creatorID, st); err != nil {
		o.log.Warn("status write failed", "creator_id", creatorID, "state", st.State, "error", err)
	}
	o.publish(ctx, creatorID, st)
}

func (o *Orchestrator) publish(ctx context.Context, creatorID uuid.UUID, st *models.GenerationStatus) {
	if o.notifier == nil {
		return
	}
	o.notifier.Publish(ctx, creatorID, models.WSMessage{Type: models.WSGenerationStatus, Payload: st})
}
