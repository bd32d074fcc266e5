package postgres

import (
	"context"
	"errors"

	domain "lms/backend/internal/domain/course"

	"github.com/jackc/pgx/v5"
)

// CourseRepository persists courses and lectures in PostgreSQL.
type CourseRepository struct {
	pool Querier
}

// NewCourseRepository constructs a repository.
func NewCourseRepository(pool Querier) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// Create inserts a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *domain.Course) error {
	const query = `
INSERT INTO courses (id, title, description, category, created_by, thumbnail_public_id, thumbnail_secure_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.pool.Exec(ctx, query,
		course.ID,
		course.Title,
		course.Description,
		course.Category,
		course.CreatedBy,
		course.Thumbnail.PublicID,
		course.Thumbnail.SecureURL,
		course.CreatedAt,
		course.UpdatedAt,
	)
	return err
}

// GetByID fetches a course by id, including its lecture count.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	const query = `
SELECT c.id, c.title, c.description, c.category, c.created_by,
       c.thumbnail_public_id, c.thumbnail_secure_url,
       (SELECT COUNT(*) FROM lectures l WHERE l.course_id = c.id),
       c.created_at, c.updated_at
FROM courses c WHERE c.id = $1
`
	row := r.pool.QueryRow(ctx, query, id)
	course, err := scanCourse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return course, nil
}

// List returns all courses without their lectures.
func (r *CourseRepository) List(ctx context.Context) ([]*domain.Course, error) {
	const query = `
SELECT c.id, c.title, c.description, c.category, c.created_by,
       c.thumbnail_public_id, c.thumbnail_secure_url,
       (SELECT COUNT(*) FROM lectures l WHERE l.course_id = c.id),
       c.created_at, c.updated_at
FROM courses c
ORDER BY c.created_at DESC
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*domain.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return courses, nil
}

// Update modifies an existing course record.
func (r *CourseRepository) Update(ctx context.Context, course *domain.Course) error {
	const query = `
UPDATE courses
SET title = $2, description = $3, category = $4, thumbnail_public_id = $5, thumbnail_secure_url = $6, updated_at = $7
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query,
		course.ID,
		course.Title,
		course.Description,
		course.Category,
		course.Thumbnail.PublicID,
		course.Thumbnail.SecureURL,
		course.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a course; lectures go with it via the FK cascade.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM courses WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddLecture appends a lecture to a course.
func (r *CourseRepository) AddLecture(ctx context.Context, lecture *domain.Lecture) error {
	const query = `
INSERT INTO lectures (id, course_id, title, description, video_public_id, video_secure_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := r.pool.Exec(ctx, query,
		lecture.ID,
		lecture.CourseID,
		lecture.Title,
		lecture.Description,
		lecture.Video.PublicID,
		lecture.Video.SecureURL,
		lecture.CreatedAt,
	)
	return err
}

// ListLectures returns the lectures of a course in creation order.
func (r *CourseRepository) ListLectures(ctx context.Context, courseID string) ([]*domain.Lecture, error) {
	const query = `
SELECT id, course_id, title, description, video_public_id, video_secure_url, created_at
FROM lectures WHERE course_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lectures []*domain.Lecture
	for rows.Next() {
		var l domain.Lecture
		if err := rows.Scan(
			&l.ID,
			&l.CourseID,
			&l.Title,
			&l.Description,
			&l.Video.PublicID,
			&l.Video.SecureURL,
			&l.CreatedAt,
		); err != nil {
			return nil, err
		}
		lectures = append(lectures, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lectures, nil
}

func scanCourse(row pgx.Row) (*domain.Course, error) {
	var c domain.Course
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.Category,
		&c.CreatedBy,
		&c.Thumbnail.PublicID,
		&c.Thumbnail.SecureURL,
		&c.Lectures,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
