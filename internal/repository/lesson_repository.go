package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/learntrack/internal/model"
)

// LessonRepo handles lessons.  Lessons have no owner column of their own;
// ownership is inherited from the course through the section.
type LessonRepo struct {
	db *sql.DB
}

func NewLessonRepo(db *sql.DB) *LessonRepo { return &LessonRepo{db: db} }

// GetByID fetches a lesson.
func (r *LessonRepo) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	l, err := scanLesson(r.db.QueryRowContext(ctx,
		"SELECT id, section_id, title, video_url, resource_urls, position, created_at FROM lessons WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// CreateForOwner inserts a lesson into sectionID.  The row is written only
// when the section exists and its course belongs to ownerID.  When courseID
// is non-empty the section must also belong to that course.
func (r *LessonRepo) CreateForOwner(ctx context.Context, courseID string, l *model.Lesson, ownerID string) error {
	l.ID = uuid.NewString()
	if l.ResourceURLs == nil {
		l.ResourceURLs = []string{}
	}
	urls, err := json.Marshal(l.ResourceURLs)
	if err != nil {
		return err
	}
	q := `INSERT INTO lessons (id, section_id, title, video_url, resource_urls, position)
		SELECT ?, s.id, ?, ?, ?, ? FROM sections s JOIN courses c ON c.id = s.course_id
		WHERE s.id = ? AND c.instructor_id = ?`
	args := []any{l.ID, l.Title, l.VideoURL, urls, l.Position, l.SectionID, ownerID}
	if courseID != "" {
		q += " AND s.course_id = ?"
		args = append(args, courseID)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.classifySectionMiss(ctx, courseID, l.SectionID, ownerID)
	}
	stored, err := r.GetByID(ctx, l.ID)
	if err != nil {
		return err
	}
	*l = *stored
	return nil
}

// DeleteForOwner removes a lesson addressed by its full path.
func (r *LessonRepo) DeleteForOwner(ctx context.Context, courseID, sectionID, lessonID, ownerID string) error {
	const q = `DELETE l FROM lessons l
		JOIN sections s ON s.id = l.section_id
		JOIN courses c ON c.id = s.course_id
		WHERE l.id = ? AND s.id = ? AND s.course_id = ? AND c.instructor_id = ?`
	res, err := r.db.ExecContext(ctx, q, lessonID, sectionID, courseID, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := classifyCourseMiss(ctx, r.db, courseID, ownerID); err != nil {
			return err
		}
		return ErrNotFound
	}
	return nil
}

// classifySectionMiss resolves the course of a section and decides between
// ErrNotFound and ErrForbidden.
func (r *LessonRepo) classifySectionMiss(ctx context.Context, courseID, sectionID, ownerID string) error {
	var sectionCourse string
	err := r.db.QueryRowContext(ctx, "SELECT course_id FROM sections WHERE id = ?", sectionID).Scan(&sectionCourse)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if courseID != "" && sectionCourse != courseID {
		return ErrNotFound
	}
	if err := classifyCourseMiss(ctx, r.db, sectionCourse, ownerID); err != nil {
		return err
	}
	return ErrNotFound
}
