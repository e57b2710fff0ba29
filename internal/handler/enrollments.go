package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/middleware"
	"github.com/iliyamo/learntrack/internal/model"
	"github.com/iliyamo/learntrack/internal/queue"
	"github.com/iliyamo/learntrack/internal/repository"
	"github.com/iliyamo/learntrack/internal/service"
)

// EnrollmentHandler serves the learner's enrollments.
type EnrollmentHandler struct {
	Repos  *repository.Repos
	Events service.EventPublisher
}

func NewEnrollmentHandler(repos *repository.Repos, ev service.EventPublisher) *EnrollmentHandler {
	if repos == nil {
		panic("nil repositories passed to NewEnrollmentHandler")
	}
	return &EnrollmentHandler{Repos: repos, Events: ev}
}

// Mine handles GET /api/enrollments/mine and its alias /my-courses.
func (h *EnrollmentHandler) Mine(c echo.Context) error {
	items, err := middleware.StoreFrom(c).Enrollments(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Enrollment not found", "Not authorized", "Failed to load enrollments")
	}
	if items == nil {
		items = []*model.Enrollment{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}

// Enroll handles POST /api/enrollments/enroll {course_id}.
func (h *EnrollmentHandler) Enroll(c echo.Context) error {
	var body struct {
		CourseID string `json:"course_id" form:"course_id"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	courseID := strings.TrimSpace(body.CourseID)
	if courseID == "" {
		return badRequest(c, "course_id is required")
	}
	return h.enroll(c, courseID)
}

// EnrollPath handles POST /api/enrollments/:courseId.  It has the same
// contract as Enroll.
func (h *EnrollmentHandler) EnrollPath(c echo.Context) error {
	return h.enroll(c, c.Param("courseId"))
}

// enroll creates a free enrollment.  Paid courses are only enrolled by the
// payment verification flow, so purchased is never taken from the client.
func (h *EnrollmentHandler) enroll(c echo.Context, courseID string) error {
	ctx := c.Request().Context()
	course, err := h.Repos.Courses.GetByID(ctx, courseID)
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to enroll")
	}
	if !course.IsFree() {
		return badRequest(c, "This course requires payment")
	}
	e, err := middleware.StoreFrom(c).Enroll(ctx, courseID)
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to enroll")
	}
	service.EnrollmentCreated(h.Events, queue.EnrollmentCreatedEvent{
		EnrollmentID: e.ID,
		UserID:       e.UserID,
		CourseID:     course.ID,
		CourseTitle:  course.Title,
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": e})
}
