// Package repository contains data access logic separated from HTTP handlers.
// This file holds the course queries.  Public reads go through CourseRepo
// directly; every mutation takes the caller's user id and is expressed as a
// single owner-conditional statement so there is no window between the
// ownership check and the write.
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/learntrack/internal/model"
)

const courseColumns = `id, instructor_id, title, description, category, level, language,
	price_cents, is_published, thumbnail_url, rating, rating_count, content_data, created_at, updated_at`

// CourseRepo encapsulates all database queries related to courses.
type CourseRepo struct {
	db *sql.DB
}

// NewCourseRepo constructs a CourseRepo with the provided DB handle.
func NewCourseRepo(db *sql.DB) *CourseRepo {
	return &CourseRepo{db: db}
}

// CourseUpdate lists the fields an instructor may change.  Nil fields are
// left untouched.
type CourseUpdate struct {
	Title        *string
	Description  *string
	Category     *string
	Level        *string
	Language     *string
	PriceCents   *int64
	IsPublished  *bool
	ThumbnailURL *string
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(s rowScanner) (*model.Course, error) {
	var (
		c       model.Course
		thumb   sql.NullString
		content []byte
	)
	if err := s.Scan(&c.ID, &c.InstructorID, &c.Title, &c.Description, &c.Category, &c.Level, &c.Language,
		&c.PriceCents, &c.IsPublished, &thumb, &c.Rating, &c.RatingCount, &content, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if thumb.Valid {
		c.ThumbnailURL = &thumb.String
	}
	if len(content) > 0 {
		c.ContentData = content
	}
	return &c, nil
}

// Create inserts a new course.  The ID is generated here; timestamps are
// populated by a follow-up SELECT so callers receive the stored record.
func (r *CourseRepo) Create(ctx context.Context, c *model.Course) error {
	c.ID = uuid.NewString()
	var content any
	if len(c.ContentData) > 0 {
		content = []byte(c.ContentData)
	}
	const q = `INSERT INTO courses
		(id, instructor_id, title, description, category, level, language, price_cents, is_published, thumbnail_url, rating, rating_count, content_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?)`
	if _, err := r.db.ExecContext(ctx, q, c.ID, c.InstructorID, c.Title, c.Description, c.Category, c.Level,
		c.Language, c.PriceCents, c.IsPublished, c.ThumbnailURL, content); err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *stored
	return nil
}

// GetByID fetches a course regardless of owner.  It returns ErrNotFound if
// no row matches.
func (r *CourseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	q := "SELECT " + courseColumns + " FROM courses WHERE id = ?"
	c, err := scanCourse(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// GetOwner returns the instructor id of a course.  Handlers call it before
// any mutation so that a missing course is reported as ErrNotFound ahead
// of the ownership decision.
func (r *CourseRepo) GetOwner(ctx context.Context, id string) (string, error) {
	return courseOwner(ctx, r.db, id)
}

func courseOwner(ctx context.Context, db *sql.DB, courseID string) (string, error) {
	var owner string
	err := db.QueryRowContext(ctx, "SELECT instructor_id FROM courses WHERE id = ?", courseID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return owner, nil
}

// classifyCourseMiss explains why an owner-conditional statement on a
// course matched no rows.
func classifyCourseMiss(ctx context.Context, db *sql.DB, courseID, ownerID string) error {
	owner, err := courseOwner(ctx, db, courseID)
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}
	return nil
}

// List returns a page of the catalog and the total number of matching rows.
func (r *CourseRepo) List(ctx context.Context, f model.CourseFilter) ([]*model.Course, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Published != nil {
		where = append(where, "is_published = ?")
		args = append(args, *f.Published)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Level != "" {
		where = append(where, "level = ?")
		args = append(args, f.Level)
	}
	if f.Query != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+escapeLike(f.Query)+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM courses"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + courseColumns + " FROM courses" + clause + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]*model.Course, 0, f.Limit)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByInstructor returns all courses of one instructor, newest first.
func (r *CourseRepo) ListByInstructor(ctx context.Context, instructorID string) ([]*model.Course, error) {
	q := "SELECT " + courseColumns + " FROM courses WHERE instructor_id = ? ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, q, instructorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateByOwner applies the non-nil fields of u in one statement guarded by
// `id = ? AND instructor_id = ?`.  When nothing matches, the course is
// looked up again to return ErrNotFound or ErrForbidden.
func (r *CourseRepo) UpdateByOwner(ctx context.Context, id, ownerID string, u CourseUpdate) error {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Category != nil {
		add("category", *u.Category)
	}
	if u.Level != nil {
		add("level", *u.Level)
	}
	if u.Language != nil {
		add("language", *u.Language)
	}
	if u.PriceCents != nil {
		add("price_cents", *u.PriceCents)
	}
	if u.IsPublished != nil {
		add("is_published", *u.IsPublished)
	}
	if u.ThumbnailURL != nil {
		add("thumbnail_url", *u.ThumbnailURL)
	}
	q := "UPDATE courses SET " + strings.Join(sets, ", ") + " WHERE id = ? AND instructor_id = ?"
	res, err := r.db.ExecContext(ctx, q, append(args, id, ownerID)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return classifyCourseMiss(ctx, r.db, id, ownerID)
	}
	return nil
}

// DeleteByIDAndOwner removes a course owned by ownerID.  Sections, lessons,
// enrollments and file records go with it through foreign key cascades.
func (r *CourseRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM courses WHERE id = ? AND instructor_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := classifyCourseMiss(ctx, r.db, id, ownerID); err != nil {
			return err
		}
		return ErrNotFound
	}
	return nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
