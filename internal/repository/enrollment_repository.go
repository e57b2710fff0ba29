package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/learntrack/internal/model"
)

// EnrollmentRepo reads and writes enrollments.  Every method takes the
// user id explicitly; callers obtain it from the authenticated principal.
type EnrollmentRepo struct {
	db *sql.DB
}

func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo { return &EnrollmentRepo{db: db} }

const enrollmentColumns = "e.id, e.user_id, e.course_id, e.progress_percent, e.purchased, e.payment_session_id, e.payment_amount, e.created_at"

func scanEnrollment(s rowScanner, withCourse bool) (*model.Enrollment, error) {
	var (
		e      model.Enrollment
		sessID sql.NullString
		amount sql.NullInt64
	)
	dest := []any{&e.ID, &e.UserID, &e.CourseID, &e.ProgressPercent, &e.Purchased, &sessID, &amount, &e.CreatedAt}
	var cs model.CourseSummary
	if withCourse {
		dest = append(dest, &cs.ID, &cs.Title, &cs.Description, &cs.Category, &cs.Level, &cs.PriceCents, &cs.IsPublished)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if sessID.Valid {
		e.PaymentSessionID = &sessID.String
	}
	if amount.Valid {
		e.PaymentAmount = &amount.Int64
	}
	if withCourse {
		e.Course = &cs
	}
	return &e, nil
}

// ListByUser returns the user's enrollments joined with a summary of each
// course, most recent first.
func (r *EnrollmentRepo) ListByUser(ctx context.Context, userID string) ([]*model.Enrollment, error) {
	q := "SELECT " + enrollmentColumns + `, c.id, c.title, c.description, c.category, c.level, c.price_cents, c.is_published
		FROM enrollments e JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = ? ORDER BY e.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the enrollment of userID in courseID or ErrNotFound.
func (r *EnrollmentRepo) Get(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	q := "SELECT " + enrollmentColumns + " FROM enrollments e WHERE e.user_id = ? AND e.course_id = ?"
	e, err := scanEnrollment(r.db.QueryRowContext(ctx, q, userID, courseID), false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Create inserts a free enrollment.  A second enrollment for the same pair
// fails with ErrAlreadyEnrolled.
func (r *EnrollmentRepo) Create(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO enrollments (id, user_id, course_id, progress_percent, purchased) VALUES (?, ?, ?, 0, FALSE)",
		id, userID, courseID)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, err
	}
	return r.Get(ctx, userID, courseID)
}

// UpsertPurchased records a verified payment.  An existing free enrollment
// is upgraded in place.
func (r *EnrollmentRepo) UpsertPurchased(ctx context.Context, userID, courseID, sessionID string, amount int64) (*model.Enrollment, error) {
	const q = `INSERT INTO enrollments (id, user_id, course_id, progress_percent, purchased, payment_session_id, payment_amount)
		VALUES (?, ?, ?, 0, TRUE, ?, ?)
		ON DUPLICATE KEY UPDATE purchased = TRUE, payment_session_id = VALUES(payment_session_id), payment_amount = VALUES(payment_amount)`
	if _, err := r.db.ExecContext(ctx, q, uuid.NewString(), userID, courseID, sessionID, amount); err != nil {
		return nil, err
	}
	return r.Get(ctx, userID, courseID)
}
