package model

import "time"

// Section groups lessons inside a course.  Deleting a section removes its
// lessons through the foreign key cascade.
type Section struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	Lessons   []*Lesson `json:"lessons,omitempty"`
}

// Lesson is a single unit of content.  ResourceURLs is stored as a JSON
// array column.
type Lesson struct {
	ID           string    `json:"id"`
	SectionID    string    `json:"section_id"`
	Title        string    `json:"title"`
	VideoURL     *string   `json:"video_url"`
	ResourceURLs []string  `json:"resource_urls"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}
