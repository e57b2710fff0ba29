package model

import "time"

// Asset kinds accepted by the upload endpoint.  Each maps to its own bucket.
const (
	FileTypeVideo     = "video"
	FileTypeDocument  = "document"
	FileTypeThumbnail = "thumbnail"
)

// CourseFile records an uploaded asset.  The row is written after the
// object store upload; a failed insert leaves an orphaned object.
type CourseFile struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	FileType  string    `json:"file_type"`
	FileName  string    `json:"file_name"`
	FileURL   string    `json:"file_url"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}
