package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/middleware"
	"github.com/iliyamo/learntrack/internal/model"
	"github.com/iliyamo/learntrack/internal/repository"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

// CourseHandler serves the public catalog.
type CourseHandler struct {
	Repos *repository.Repos
}

func NewCourseHandler(repos *repository.Repos) *CourseHandler {
	if repos == nil {
		panic("nil repositories passed to NewCourseHandler")
	}
	return &CourseHandler{Repos: repos}
}

// List handles GET /api/courses.
// Query params: q (title substring), category, level, published
// (true|false), limit (default 12, max 100), offset.
func (h *CourseHandler) List(c echo.Context) error {
	f := model.CourseFilter{
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Level:    c.QueryParam("level"),
		Limit:    defaultPageSize,
	}
	switch c.QueryParam("published") {
	case "true":
		t := true
		f.Published = &t
	case "false":
		v := false
		f.Published = &v
	}
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		f.Limit = n
	}
	if s := c.QueryParam("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return badRequest(c, "offset must be a non-negative integer")
		}
		f.Offset = n
	}

	items, total, err := h.Repos.Courses.List(c.Request().Context(), f)
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to load courses")
	}
	if items == nil {
		items = []*model.Course{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items, "count": total})
}

// Instructor handles GET /api/courses/instructor and lists the caller's
// courses, newest first.
func (h *CourseHandler) Instructor(c echo.Context) error {
	items, err := middleware.StoreFrom(c).MyCourses(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to load courses")
	}
	if items == nil {
		items = []*model.Course{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}

// Get handles GET /api/courses/:id.
func (h *CourseHandler) Get(c echo.Context) error {
	course, err := h.Repos.Courses.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to load course")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": course})
}

// Outline handles GET /api/courses/:id/outline.  An unknown course yields
// an empty list.
func (h *CourseHandler) Outline(c echo.Context) error {
	sections, err := h.Repos.Sections.Outline(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to load outline")
	}
	if sections == nil {
		sections = []*model.Section{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": sections})
}
