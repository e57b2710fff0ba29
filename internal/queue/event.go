// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"fmt"
	"strings"
)

// Queue names.  Each event type has its own durable queue; the routing key
// equals the queue name on the default exchange.
const (
	EnrollmentCreatedQueue   = "enrollment.created"
	InstructorActivatedQueue = "instructor.activated"
)

// Queues lists every queue the consumer drains.
var Queues = []string{EnrollmentCreatedQueue, InstructorActivatedQueue}

// EnrollmentCreatedEvent is published after a learner is enrolled, either
// for free or after a verified payment.
type EnrollmentCreatedEvent struct {
	EnrollmentID     string `json:"enrollment_id"`
	UserID           string `json:"user_id"`
	CourseID         string `json:"course_id"`
	CourseTitle      string `json:"course_title"`
	Purchased        bool   `json:"purchased"`
	AmountCents      int64  `json:"amount_cents"`
	PaymentSessionID string `json:"payment_session_id,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// Line renders the event as one log line.
func (e EnrollmentCreatedEvent) Line() string {
	kind := "free"
	if e.Purchased {
		kind = "purchased"
	}
	return fmt.Sprintf("[%s] Enrollment created | enrollment_id=%s | user_id=%s | course_id=%s | course=%q | kind=%s | amount=%d cents",
		e.CreatedAt, e.EnrollmentID, e.UserID, e.CourseID, e.CourseTitle, kind, e.AmountCents)
}

// InstructorActivatedEvent is published when an instructor's registration
// payment has been verified and the account unlocked.
type InstructorActivatedEvent struct {
	UserID           string `json:"user_id"`
	Email            string `json:"email"`
	PaymentReference string `json:"payment_reference"`
	AmountCents      int64  `json:"amount_cents"`
	ActivatedAt      string `json:"activated_at"`
}

func (e InstructorActivatedEvent) Line() string {
	return fmt.Sprintf("[%s] Instructor activated | user_id=%s | email=%s | reference=%s | amount=%d cents",
		e.ActivatedAt, e.UserID, maskEmail(e.Email), e.PaymentReference, e.AmountCents)
}

// maskEmail keeps the first character of the local part.
func maskEmail(email string) string {
	i := strings.IndexByte(email, '@')
	if i <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", i-1) + email[i:]
}
