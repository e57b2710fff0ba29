package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/auth"
	"github.com/iliyamo/learntrack/internal/handler"
	"github.com/iliyamo/learntrack/internal/middleware"
)

// RegisterCourses registers the public catalog.  Anonymous reads are served
// from the response cache; /instructor needs a session.
func RegisterCourses(e *echo.Echo, h *handler.CourseHandler, authn, cache echo.MiddlewareFunc) {
	g := e.Group("/api/courses")

	g.GET("", h.List, cache)
	g.GET("/", h.List, cache)
	g.GET("/instructor", h.Instructor, authn) // static segment wins over /:id
	g.GET("/:id", h.Get, cache)
	g.GET("/:id/outline", h.Outline, cache)
}

// RegisterCourseManagement registers the instructor authoring API.  Every
// route requires a session; ownership is enforced by the data layer.
func RegisterCourseManagement(e *echo.Echo, h *handler.CourseManagementHandler, authn echo.MiddlewareFunc) {
	g := e.Group("/api/course-management", authn)

	g.GET("/verify", h.Verify)
	g.POST("/create", h.Create, middleware.RequireRole("Only instructors can create courses", auth.RoleInstructor))
	g.GET("/my-courses", h.MyCourses)

	// ---- Sections and lessons ----
	g.POST("/sections/:sectionId/lessons", h.CreateLesson) // legacy route without the course id
	g.POST("/:courseId/sections", h.CreateSection)
	g.POST("/:courseId/sections/:sectionId/lessons", h.CreateLesson)
	g.DELETE("/:courseId/sections/:sectionId", h.DeleteSection)
	g.DELETE("/:courseId/sections/:sectionId/lessons/:lessonId", h.DeleteLesson)

	// ---- Files ----
	g.POST("/:courseId/upload-file", h.UploadFile)
	g.GET("/:courseId/files", h.Files)

	// ---- Course ----
	g.PUT("/:courseId", h.Update)
	g.DELETE("/:courseId", h.Delete)
}
