package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"courseos-backend/internal/models"
)

type CourseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

const courseColumns = `id, creator_id, title, slug, description, thumbnail_url, price, currency, status,
	category, settings, generation_key, created_at, updated_at`

// Create inserts c. When c carries a generation key already used by the same
// creator, the existing row is loaded into c instead of inserting a new one.
func (r *CourseRepo) Create(ctx context.Context, c *models.Course) error {
	c.ID = uuid.New()

	settingsBytes, err := json.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode course settings: %w", err)
	}

	query := `INSERT INTO courses (id, creator_id, title, slug, description, thumbnail_url, price, currency, status, category, settings, generation_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (creator_id, generation_key) WHERE generation_key IS NOT NULL
		DO UPDATE SET updated_at = NOW()
		RETURNING ` + courseColumns

	row := r.pool.QueryRow(ctx, query,
		c.ID, c.CreatorID, c.Title, c.Slug, c.Description, c.ThumbnailURL, c.Price, c.Currency,
		c.Status, c.Category, settingsBytes, c.GenerationKey,
	)
	return scanCourse(row, c)
}

func (r *CourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c := &models.Course{}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	if err := scanCourse(r.pool.QueryRow(ctx, query, id), c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CourseRepo) GetByGenerationKey(ctx context.Context, creatorID uuid.UUID, key string) (*models.Course, error) {
	c := &models.Course{}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE creator_id = $1 AND generation_key = $2`
	if err := scanCourse(r.pool.QueryRow(ctx, query, creatorID, key), c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CourseRepo) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE creator_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		c := &models.Course{}
		if err := scanCourse(rows, c); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func scanCourse(row pgx.Row, c *models.Course) error {
	var settings []byte
	err := row.Scan(
		&c.ID, &c.CreatorID, &c.Title, &c.Slug, &c.Description, &c.ThumbnailURL, &c.Price, &c.Currency,
		&c.Status, &c.Category, &settings, &c.GenerationKey, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &c.Settings); err != nil {
			return fmt.Errorf("failed to decode course settings: %w", err)
		}
	}
	return nil
}
