package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/learntrack/internal/model"
)

// CourseFileRepo stores metadata about uploaded course assets.
type CourseFileRepo struct {
	db *sql.DB
}

func NewCourseFileRepo(db *sql.DB) *CourseFileRepo { return &CourseFileRepo{db: db} }

// Create inserts the record for an uploaded object.
func (r *CourseFileRepo) Create(ctx context.Context, f *model.CourseFile) error {
	f.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO course_files (id, course_id, file_type, file_name, file_url, file_size, mime_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.CourseID, f.FileType, f.FileName, f.FileURL, f.FileSize, f.MimeType)
	return err
}

// ListByCourse returns every file recorded for a course.
func (r *CourseFileRepo) ListByCourse(ctx context.Context, courseID string) ([]*model.CourseFile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, course_id, file_type, file_name, file_url, file_size, mime_type, created_at
		 FROM course_files WHERE course_id = ? ORDER BY created_at ASC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.CourseFile{}
	for rows.Next() {
		var f model.CourseFile
		if err := rows.Scan(&f.ID, &f.CourseID, &f.FileType, &f.FileName, &f.FileURL, &f.FileSize, &f.MimeType, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
