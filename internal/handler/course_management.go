package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/auth"
	"github.com/iliyamo/learntrack/internal/middleware"
	"github.com/iliyamo/learntrack/internal/model"
	"github.com/iliyamo/learntrack/internal/repository"
	"github.com/iliyamo/learntrack/internal/storage"
)

// CourseManagementHandler serves the instructor authoring routes.  Every
// write goes through the principal-bound store of the request.
type CourseManagementHandler struct {
	Repos *repository.Repos
	Store storage.ObjectStore // nil when the object store is not configured
}

func NewCourseManagementHandler(repos *repository.Repos, store storage.ObjectStore) *CourseManagementHandler {
	if repos == nil {
		panic("nil repositories passed to NewCourseManagementHandler")
	}
	return &CourseManagementHandler{Repos: repos, Store: store}
}

// Verify handles GET /api/course-management/verify.
func (h *CourseManagementHandler) Verify(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"role": middleware.PrincipalFrom(c).Role})
}

// Create handles POST /api/course-management/create.  The role check runs
// in middleware; title, description and category are required.
func (h *CourseManagementHandler) Create(c echo.Context) error {
	var body struct {
		Title        string          `json:"title"`
		Description  string          `json:"description"`
		Category     string          `json:"category"`
		Level        string          `json:"level"`
		Language     string          `json:"language"`
		PriceCents   int64           `json:"price_cents"`
		IsPublished  bool            `json:"is_published"`
		ThumbnailURL *string         `json:"thumbnail_url"`
		Content      json.RawMessage `json:"content"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(body.Title) == "" || strings.TrimSpace(body.Description) == "" || strings.TrimSpace(body.Category) == "" {
		return badRequest(c, "Title, description, and category are required")
	}
	if body.PriceCents < 0 {
		return badRequest(c, "price_cents must not be negative")
	}
	course := &model.Course{
		Title:        strings.TrimSpace(body.Title),
		Description:  body.Description,
		Category:     strings.TrimSpace(body.Category),
		Level:        orDefault(body.Level, "Beginner"),
		Language:     orDefault(body.Language, "English"),
		PriceCents:   body.PriceCents,
		IsPublished:  body.IsPublished,
		ThumbnailURL: body.ThumbnailURL,
		ContentData:  body.Content,
	}
	if len(course.ContentData) == 0 || string(course.ContentData) == "null" {
		course.ContentData = json.RawMessage(`{}`)
	}
	if err := middleware.StoreFrom(c).CreateCourse(c.Request().Context(), course); err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to create course")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Course created successfully",
		"data":    course,
	})
}

// Update handles PUT /api/course-management/:courseId.  Only the listed
// fields can change; anything else in the body is ignored.
func (h *CourseManagementHandler) Update(c echo.Context) error {
	var body struct {
		Title        *string `json:"title"`
		Description  *string `json:"description"`
		Category     *string `json:"category"`
		Level        *string `json:"level"`
		Language     *string `json:"language"`
		PriceCents   *int64  `json:"price_cents"`
		IsPublished  *bool   `json:"is_published"`
		ThumbnailURL *string `json:"thumbnail_url"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Title != nil && strings.TrimSpace(*body.Title) == "" {
		return badRequest(c, "title must not be empty")
	}
	if body.PriceCents != nil && *body.PriceCents < 0 {
		return badRequest(c, "price_cents must not be negative")
	}
	id := c.Param("courseId")
	ctx := c.Request().Context()
	u := repository.CourseUpdate{
		Title:        body.Title,
		Description:  body.Description,
		Category:     body.Category,
		Level:        body.Level,
		Language:     body.Language,
		PriceCents:   body.PriceCents,
		IsPublished:  body.IsPublished,
		ThumbnailURL: body.ThumbnailURL,
	}
	if err := middleware.StoreFrom(c).UpdateCourse(ctx, id, u); err != nil {
		return respondError(c, err, "Course not found", "Not authorized to update this course", "Failed to update course")
	}
	updated, err := h.Repos.Courses.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to update course")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Course updated successfully",
		"data":    updated,
	})
}

// Delete handles DELETE /api/course-management/:courseId.
func (h *CourseManagementHandler) Delete(c echo.Context) error {
	if err := middleware.StoreFrom(c).DeleteCourse(c.Request().Context(), c.Param("courseId")); err != nil {
		return respondError(c, err, "Course not found", "Not authorized to delete this course", "Failed to delete course")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Course deleted successfully"})
}

// MyCourses handles GET /api/course-management/my-courses.
func (h *CourseManagementHandler) MyCourses(c echo.Context) error {
	items, err := middleware.StoreFrom(c).MyCourses(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to load courses")
	}
	if items == nil {
		items = []*model.Course{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": items})
}

// CreateSection handles POST /api/course-management/:courseId/sections.
func (h *CourseManagementHandler) CreateSection(c echo.Context) error {
	var body struct {
		Title    string `json:"title"`
		Position int    `json:"position"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(body.Title) == "" {
		return badRequest(c, "title is required")
	}
	sec := &model.Section{CourseID: c.Param("courseId"), Title: strings.TrimSpace(body.Title), Position: body.Position}
	if err := middleware.StoreFrom(c).CreateSection(c.Request().Context(), sec); err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to create section")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": sec})
}

type lessonBody struct {
	Title        string   `json:"title"`
	VideoURL     *string  `json:"video_url"`
	ResourceURLs []string `json:"resource_urls"`
	Position     int      `json:"position"`
}

// CreateLesson handles both POST /:courseId/sections/:sectionId/lessons and
// the legacy POST /sections/:sectionId/lessons.  The nested form also
// requires the section to belong to the course.
func (h *CourseManagementHandler) CreateLesson(c echo.Context) error {
	var body lessonBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(body.Title) == "" {
		return badRequest(c, "title is required")
	}
	l := &model.Lesson{
		SectionID:    c.Param("sectionId"),
		Title:        strings.TrimSpace(body.Title),
		ResourceURLs: body.ResourceURLs,
		Position:     body.Position,
	}
	if body.VideoURL != nil && *body.VideoURL != "" {
		l.VideoURL = body.VideoURL
	}
	if err := middleware.StoreFrom(c).CreateLesson(c.Request().Context(), c.Param("courseId"), l); err != nil {
		return respondError(c, err, "Section not found", "Not authorized", "Failed to create lesson")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": l})
}

// DeleteSection handles DELETE /:courseId/sections/:sectionId.  Lessons go
// with it.
func (h *CourseManagementHandler) DeleteSection(c echo.Context) error {
	if err := middleware.StoreFrom(c).DeleteSection(c.Request().Context(), c.Param("courseId"), c.Param("sectionId")); err != nil {
		return respondError(c, err, "Section not found", "Not authorized", "Failed to delete section")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Section deleted"})
}

// DeleteLesson handles DELETE /:courseId/sections/:sectionId/lessons/:lessonId.
func (h *CourseManagementHandler) DeleteLesson(c echo.Context) error {
	err := middleware.StoreFrom(c).DeleteLesson(c.Request().Context(), c.Param("courseId"), c.Param("sectionId"), c.Param("lessonId"))
	if err != nil {
		return respondError(c, err, "Lesson not found", "Not authorized", "Failed to delete lesson")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Lesson deleted"})
}

// UploadFile handles POST /:courseId/upload-file (multipart: file, fileType).
// Ownership is checked before anything is written to the object store.  A
// failed course_files insert is logged and the upload still succeeds.
func (h *CourseManagementHandler) UploadFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file provided")
	}
	fileType := c.FormValue("fileType")
	if fileType == "" {
		return badRequest(c, "fileType is required (video, document, or thumbnail)")
	}

	ctx := c.Request().Context()
	courseID := c.Param("courseId")
	if err := auth.CheckOwnership(ctx, h.Repos.Courses, middleware.PrincipalFrom(c), courseID); err != nil {
		return respondError(c, err, "Course not found", "Not authorized to upload files to this course", "Failed to verify course")
	}
	if h.Store == nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Storage upload failed: object store not configured"})
	}
	bucket, err := h.Store.Bucket(fileType)
	if err != nil {
		return badRequest(c, "Invalid fileType. Must be video, document, or thumbnail")
	}

	src, err := fh.Open()
	if err != nil {
		return badRequest(c, "No file provided")
	}
	defer src.Close()

	mime := fh.Header.Get(echo.HeaderContentType)
	key, err := h.Store.Upload(ctx, bucket, storage.ObjectKey(courseID, fh.Filename), src, mime)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "File too large"})
		}
		c.Logger().Errorf("upload %s: %v", courseID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Storage upload failed: " + err.Error()})
	}
	publicURL := h.Store.PublicURL(bucket, key)

	rec := &model.CourseFile{
		CourseID: courseID,
		FileType: fileType,
		FileName: fh.Filename,
		FileURL:  publicURL,
		FileSize: fh.Size,
		MimeType: mime,
	}
	if err := h.Repos.Files.Create(ctx, rec); err != nil {
		c.Logger().Errorf("upload %s: course_files insert failed, object %s/%s kept: %v", courseID, bucket, key, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"file": echo.Map{
			"url":      publicURL,
			"name":     fh.Filename,
			"size":     fh.Size,
			"type":     mime,
			"fileType": fileType,
		},
	})
}

// Files handles GET /:courseId/files and lists the uploads of an owned
// course.
func (h *CourseManagementHandler) Files(c echo.Context) error {
	ctx := c.Request().Context()
	courseID := c.Param("courseId")
	if err := auth.CheckOwnership(ctx, h.Repos.Courses, middleware.PrincipalFrom(c), courseID); err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to verify course")
	}
	files, err := h.Repos.Files.ListByCourse(ctx, courseID)
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to load files")
	}
	if files == nil {
		files = []*model.CourseFile{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": files})
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
