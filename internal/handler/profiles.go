package handler

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/auth"
	"github.com/iliyamo/learntrack/internal/identity"
	"github.com/iliyamo/learntrack/internal/middleware"
	"github.com/iliyamo/learntrack/internal/model"
)

// ProfileHandler reads and edits the caller's profile, which lives in the
// identity provider's user metadata.
type ProfileHandler struct {
	Provider identity.Provider
}

func NewProfileHandler(p identity.Provider) *ProfileHandler {
	if p == nil {
		panic("nil provider passed to NewProfileHandler")
	}
	return &ProfileHandler{Provider: p}
}

// ProfileStats summarises the caller's learning.
type ProfileStats struct {
	EnrolledCourses    int     `json:"enrolled_courses"`
	CompletedCourses   int     `json:"completed_courses"`
	LearningHours      float64 `json:"learning_hours"`
	LastAccessedCourse string  `json:"last_accessed_course"`
}

type profileData struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	*auth.Profile
	Stats *ProfileStats `json:"stats,omitempty"`
}

// statsFor counts 2 h per enrolled course plus 0.5 h per 25% of progress.
// enrollments are newest first, so the first one is the last accessed.
func statsFor(enrollments []*model.Enrollment) *ProfileStats {
	s := &ProfileStats{LastAccessedCourse: "No courses yet"}
	hours := 0.0
	for _, e := range enrollments {
		s.EnrolledCourses++
		if e.ProgressPercent == 100 {
			s.CompletedCourses++
		}
		hours += 2 + float64(e.ProgressPercent)/25*0.5
	}
	s.LearningHours = math.Round(hours*10) / 10
	if len(enrollments) > 0 && enrollments[0].Course != nil && enrollments[0].Course.Title != "" {
		s.LastAccessedCourse = enrollments[0].Course.Title
	}
	return s
}

// Me handles GET /api/profiles/me.
func (h *ProfileHandler) Me(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	prof, err := auth.ProfileFromMetadata(p.Metadata, p.Email)
	if err != nil {
		c.Logger().Warnf("profile %s: metadata decode: %v", p.ID, err)
		prof, _ = auth.ProfileFromMetadata(nil, p.Email)
	}
	enrollments, err := middleware.StoreFrom(c).Enrollments(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Profile not found", "Not authorized", "Failed to load profile")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": profileData{
		ID:        p.ID,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
		Profile:   prof,
		Stats:     statsFor(enrollments),
	}})
}

// protectedKey reports metadata keys a user may never set on themselves.
func protectedKey(k string) bool {
	return k == "role" || strings.HasPrefix(k, "payment_") || strings.HasPrefix(k, "stripe_")
}

// UpdateMe handles PATCH /api/profiles/me.  Only the profile fields are
// merged into the stored metadata; unknown keys are ignored.
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	var body map[string]any
	if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
		return badRequest(c, "invalid request body")
	}
	for k := range body {
		if protectedKey(k) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Role and payment fields cannot be changed"})
		}
	}

	p := middleware.PrincipalFrom(c)
	md := make(map[string]any, len(p.Metadata)+len(auth.ProfileFields))
	for k, v := range p.Metadata {
		md[k] = v
	}
	changed := 0
	for _, k := range auth.ProfileFields {
		if v, ok := body[k]; ok {
			md[k] = v
			changed++
		}
	}
	if changed == 0 {
		return badRequest(c, "No profile fields provided")
	}
	if name, _ := md["name"].(string); name == "" {
		if full, _ := md["full_name"].(string); full != "" {
			md["name"] = full
		}
	}

	if _, err := auth.ProfileFromMetadata(md, p.Email); err != nil {
		return badRequest(c, "Invalid profile field: "+err.Error())
	}

	u, err := h.Provider.UpdateUserMetadata(c.Request().Context(), p.ID, md)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		c.Logger().Errorf("profile %s: update metadata: %v", p.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update profile"})
	}
	prof, err := auth.ProfileFromMetadata(u.Metadata, u.Email)
	if err != nil {
		prof, _ = auth.ProfileFromMetadata(md, u.Email)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": profileData{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		Profile:   prof,
	}})
}
