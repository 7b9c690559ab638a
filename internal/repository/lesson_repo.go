package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"courseos-backend/internal/models"
)

type LessonRepo struct {
	pool *pgxpool.Pool
}

func NewLessonRepo(pool *pgxpool.Pool) *LessonRepo {
	return &LessonRepo{pool: pool}
}

const lessonColumns = `id, course_id, title, position, lesson_type, content, video_url, audio_url,
	nano_summary, action_item, key_concept, is_free, duration_seconds, created_at, updated_at`

const lessonInsertColumns = 13

// CreateBatch inserts all lessons in one statement, so the batch lands or
// fails as a whole. Backend-assigned timestamps are written back into lessons.
func (r *LessonRepo) CreateBatch(ctx context.Context, lessons []*models.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}

	placeholders := make([]string, len(lessons))
	args := make([]interface{}, 0, len(lessons)*lessonInsertColumns)
	byID := make(map[uuid.UUID]*models.Lesson, len(lessons))

	for i, l := range lessons {
		l.ID = uuid.New()
		byID[l.ID] = l

		ph := make([]string, lessonInsertColumns)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", i*lessonInsertColumns+j+1)
		}
		placeholders[i] = "(" + strings.Join(ph, ", ") + ")"

		args = append(args,
			l.ID, l.CourseID, l.Title, l.Position, l.LessonType, l.Content, l.VideoURL, l.AudioURL,
			l.NanoSummary, l.ActionItem, l.KeyConcept, l.IsFree, l.DurationSeconds,
		)
	}

	query := fmt.Sprintf(`INSERT INTO lessons (id, course_id, title, position, lesson_type, content, video_url, audio_url,
		nano_summary, action_item, key_concept, is_free, duration_seconds)
		VALUES %s RETURNING id, created_at, updated_at`, strings.Join(placeholders, ", "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var l models.Lesson
		if err := rows.Scan(&id, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return err
		}
		if target, ok := byID[id]; ok {
			target.CreatedAt = l.CreatedAt
			target.UpdatedAt = l.UpdatedAt
		}
	}
	return rows.Err()
}

func (r *LessonRepo) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE course_id = $1 ORDER BY position ASC`

	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []*models.Lesson
	for rows.Next() {
		l := &models.Lesson{}
		err := rows.Scan(
			&l.ID, &l.CourseID, &l.Title, &l.Position, &l.LessonType, &l.Content, &l.VideoURL, &l.AudioURL,
			&l.NanoSummary, &l.ActionItem, &l.KeyConcept, &l.IsFree, &l.DurationSeconds, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}
