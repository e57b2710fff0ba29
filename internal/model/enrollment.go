package model

import "time"

// Enrollment links a learner to a course.  (user_id, course_id) is unique.
// Purchased is set only by the payment verification flow.
type Enrollment struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	CourseID         string         `json:"course_id"`
	ProgressPercent  int            `json:"progress_percent"`
	Purchased        bool           `json:"purchased"`
	PaymentSessionID *string        `json:"payment_session_id,omitempty"`
	PaymentAmount    *int64         `json:"payment_amount,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	Course           *CourseSummary `json:"course,omitempty"`
}
