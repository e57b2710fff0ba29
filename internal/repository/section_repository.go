package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/learntrack/internal/model"
)

// SectionRepo handles sections and, for the course outline, their lessons.
type SectionRepo struct {
	db *sql.DB
}

func NewSectionRepo(db *sql.DB) *SectionRepo { return &SectionRepo{db: db} }

// GetByID fetches a section.  ErrNotFound when absent.
func (r *SectionRepo) GetByID(ctx context.Context, id string) (*model.Section, error) {
	var s model.Section
	err := r.db.QueryRowContext(ctx,
		"SELECT id, course_id, title, position, created_at FROM sections WHERE id = ?", id).
		Scan(&s.ID, &s.CourseID, &s.Title, &s.Position, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// CreateForOwner inserts a section only if its course belongs to ownerID.
// The ownership predicate is part of the INSERT ... SELECT itself.
func (r *SectionRepo) CreateForOwner(ctx context.Context, s *model.Section, ownerID string) error {
	s.ID = uuid.NewString()
	const q = `INSERT INTO sections (id, course_id, title, position)
		SELECT ?, c.id, ?, ? FROM courses c WHERE c.id = ? AND c.instructor_id = ?`
	res, err := r.db.ExecContext(ctx, q, s.ID, s.Title, s.Position, s.CourseID, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := classifyCourseMiss(ctx, r.db, s.CourseID, ownerID); err != nil {
			return err
		}
		return ErrNotFound
	}
	stored, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *stored
	return nil
}

// DeleteForOwner removes a section of courseID owned by ownerID.  Its
// lessons are removed by the foreign key cascade.
func (r *SectionRepo) DeleteForOwner(ctx context.Context, courseID, sectionID, ownerID string) error {
	const q = `DELETE s FROM sections s JOIN courses c ON c.id = s.course_id
		WHERE s.id = ? AND s.course_id = ? AND c.instructor_id = ?`
	res, err := r.db.ExecContext(ctx, q, sectionID, courseID, ownerID)
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

// Outline returns the sections of a course ordered by position, each with
// its lessons ordered by position.
func (r *SectionRepo) Outline(ctx context.Context, courseID string) ([]*model.Section, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, course_id, title, position, created_at FROM sections WHERE course_id = ? ORDER BY position ASC",
		courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sections := []*model.Section{}
	byID := map[string]*model.Section{}
	for rows.Next() {
		s := &model.Section{Lessons: []*model.Lesson{}}
		if err := rows.Scan(&s.ID, &s.CourseID, &s.Title, &s.Position, &s.CreatedAt); err != nil {
			return nil, err
		}
		sections = append(sections, s)
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return sections, nil
	}

	lrows, err := r.db.QueryContext(ctx,
		`SELECT l.id, l.section_id, l.title, l.video_url, l.resource_urls, l.position, l.created_at
		 FROM lessons l JOIN sections s ON s.id = l.section_id
		 WHERE s.course_id = ? ORDER BY l.position ASC`, courseID)
	if err != nil {
		return nil, err
	}
	defer lrows.Close()
	for lrows.Next() {
		l, err := scanLesson(lrows)
		if err != nil {
			return nil, err
		}
		if s, ok := byID[l.SectionID]; ok {
			s.Lessons = append(s.Lessons, l)
		}
	}
	return sections, lrows.Err()
}

func scanLesson(s rowScanner) (*model.Lesson, error) {
	var (
		l     model.Lesson
		video sql.NullString
		urls  []byte
	)
	if err := s.Scan(&l.ID, &l.SectionID, &l.Title, &video, &urls, &l.Position, &l.CreatedAt); err != nil {
		return nil, err
	}
	if video.Valid {
		l.VideoURL = &video.String
	}
	l.ResourceURLs = []string{}
	if len(urls) > 0 {
		if err := json.Unmarshal(urls, &l.ResourceURLs); err != nil {
			return nil, err
		}
	}
	return &l, nil
}
