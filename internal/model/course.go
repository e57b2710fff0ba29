package model

import (
	"encoding/json"
	"time"
)

// Course represents a row in the `courses` table.  InstructorID is the
// identity-provider user id of the owner and is the only field consulted by
// ownership checks on the course and everything nested under it.
//
// Fields:
//
//	ID           – primary key (UUID).
//	InstructorID – owner, provider user id.
//	PriceCents   – price in the smallest currency unit; 0 means free.
//	IsPublished  – whether the course shows up in the public catalog filter.
//	ContentData  – free-form JSON supplied by the authoring UI.
type Course struct {
	ID           string          `json:"id"`
	InstructorID string          `json:"instructor_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Level        string          `json:"level"`
	Language     string          `json:"language"`
	PriceCents   int64           `json:"price_cents"`
	IsPublished  bool            `json:"is_published"`
	ThumbnailURL *string         `json:"thumbnail_url"`
	Rating       float64         `json:"rating"`
	RatingCount  int             `json:"rating_count"`
	ContentData  json.RawMessage `json:"content_data,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsFree reports whether enrollment needs no payment.
func (c *Course) IsFree() bool { return c.PriceCents == 0 }

// CourseSummary is the subset of a course embedded in enrollment listings.
type CourseSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Level       string `json:"level"`
	PriceCents  int64  `json:"price_cents"`
	IsPublished bool   `json:"is_published"`
}

// CourseFilter narrows the public catalog listing.  Nil pointers mean
// "no filter".
type CourseFilter struct {
	Query     string
	Category  string
	Level     string
	Published *bool
	Limit     int
	Offset    int
}
