package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coursemuster/portal/internal/models"
	"go.uber.org/zap"
)

// ErrProgressNotFound is returned when a lesson has no stored progress
var ErrProgressNotFound = errors.New("lesson progress not found")

type lessonProgressRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLessonProgressRepository creates a new lesson progress repository
func NewLessonProgressRepository(db *sql.DB, logger *zap.Logger) *lessonProgressRepository {
	return &lessonProgressRepository{
		db:     db,
		logger: logger,
	}
}

const progressColumns = `id, user_id, course_id, lesson_id, status, score, total, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*models.LessonProgress, error) {
	var (
		p      models.LessonProgress
		status string
		score  sql.NullFloat64
		total  sql.NullFloat64
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.CourseID, &p.LessonID, &status, &score, &total, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.ProgressStatus(status)
	if score.Valid {
		p.Score = &score.Float64
	}
	if total.Valid {
		p.Total = &total.Float64
	}
	return &p, nil
}

// Get returns the progress of one lesson for a user
func (r *lessonProgressRepository) Get(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM lesson_progress WHERE user_id = ? AND lesson_id = ?`

	p, err := scanProgress(r.db.QueryRowContext(ctx, query, userID, lessonID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgressNotFound
		}
		r.logger.Error("failed to get lesson progress", zap.Error(err))
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}
	return p, nil
}

// ListByCourse returns a user's progress for every lesson of a course
func (r *lessonProgressRepository) ListByCourse(ctx context.Context, userID, courseID string) ([]models.LessonProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM lesson_progress WHERE user_id = ? AND course_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID, courseID)
	if err != nil {
		r.logger.Error("failed to query lesson progress", zap.Error(err))
		return nil, fmt.Errorf("failed to query lesson progress: %w", err)
	}
	defer rows.Close()

	result := []models.LessonProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			r.logger.Error("failed to scan lesson progress", zap.Error(err))
			return nil, fmt.Errorf("failed to scan lesson progress: %w", err)
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// Upsert stores the progress of a lesson. The stored status only moves
// forward: a write carrying an earlier status keeps the stored one, so
// concurrent writers cannot downgrade a lesson.
func (r *lessonProgressRepository) Upsert(ctx context.Context, p *models.LessonProgress) error {
	query := `
		INSERT INTO lesson_progress (user_id, course_id, lesson_id, status, score, total)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			status = IF(FIELD(VALUES(status), 'unattempted', 'attempted', 'completed') > FIELD(status, 'unattempted', 'attempted', 'completed'), VALUES(status), status),
			course_id = IF(VALUES(course_id) = '', course_id, VALUES(course_id)),
			score = COALESCE(VALUES(score), score),
			total = COALESCE(VALUES(total), total)
	`

	var score, total sql.NullFloat64
	if p.Score != nil {
		score = sql.NullFloat64{Float64: *p.Score, Valid: true}
	}
	if p.Total != nil {
		total = sql.NullFloat64{Float64: *p.Total, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query, p.UserID, p.CourseID, p.LessonID, string(p.Status), score, total); err != nil {
		r.logger.Error("failed to upsert lesson progress", zap.Error(err))
		return fmt.Errorf("failed to upsert lesson progress: %w", err)
	}
	return nil
}
