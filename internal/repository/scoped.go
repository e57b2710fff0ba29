package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/learntrack/internal/model"
)

// Repos bundles every repository over one connection pool.  Its methods
// are the unscoped (admin) surface: public catalog reads and the
// ownership lookups that run before a mutation.
type Repos struct {
	Courses     *CourseRepo
	Sections    *SectionRepo
	Lessons     *LessonRepo
	Enrollments *EnrollmentRepo
	Files       *CourseFileRepo
}

// NewRepos wires all repositories to db.
func NewRepos(db *sql.DB) *Repos {
	return &Repos{
		Courses:     NewCourseRepo(db),
		Sections:    NewSectionRepo(db),
		Lessons:     NewLessonRepo(db),
		Enrollments: NewEnrollmentRepo(db),
		Files:       NewCourseFileRepo(db),
	}
}

// As returns a data handle bound to userID.  Every write made through it
// carries userID as the owner predicate, so a handler cannot mutate another
// user's rows by passing the wrong id.
func (r *Repos) As(userID string) *Scoped {
	return &Scoped{repos: r, userID: userID}
}

// Scoped is the per-request, principal-bound data handle.
type Scoped struct {
	repos  *Repos
	userID string
}

// UserID returns the principal the handle is bound to.
func (s *Scoped) UserID() string { return s.userID }

// CreateCourse inserts a course owned by the bound user.
func (s *Scoped) CreateCourse(ctx context.Context, c *model.Course) error {
	c.InstructorID = s.userID
	return s.repos.Courses.Create(ctx, c)
}

func (s *Scoped) UpdateCourse(ctx context.Context, courseID string, u CourseUpdate) error {
	return s.repos.Courses.UpdateByOwner(ctx, courseID, s.userID, u)
}

func (s *Scoped) DeleteCourse(ctx context.Context, courseID string) error {
	return s.repos.Courses.DeleteByIDAndOwner(ctx, courseID, s.userID)
}

// MyCourses lists the courses the bound user teaches.
func (s *Scoped) MyCourses(ctx context.Context) ([]*model.Course, error) {
	return s.repos.Courses.ListByInstructor(ctx, s.userID)
}

func (s *Scoped) CreateSection(ctx context.Context, sec *model.Section) error {
	return s.repos.Sections.CreateForOwner(ctx, sec, s.userID)
}

func (s *Scoped) DeleteSection(ctx context.Context, courseID, sectionID string) error {
	return s.repos.Sections.DeleteForOwner(ctx, courseID, sectionID, s.userID)
}

// CreateLesson inserts a lesson; courseID may be empty for the legacy
// section-only route.
func (s *Scoped) CreateLesson(ctx context.Context, courseID string, l *model.Lesson) error {
	return s.repos.Lessons.CreateForOwner(ctx, courseID, l, s.userID)
}

func (s *Scoped) DeleteLesson(ctx context.Context, courseID, sectionID, lessonID string) error {
	return s.repos.Lessons.DeleteForOwner(ctx, courseID, sectionID, lessonID, s.userID)
}

// Enrollments lists the bound user's enrollments.
func (s *Scoped) Enrollments(ctx context.Context) ([]*model.Enrollment, error) {
	return s.repos.Enrollments.ListByUser(ctx, s.userID)
}

// Enrollment returns the bound user's enrollment in courseID.
func (s *Scoped) Enrollment(ctx context.Context, courseID string) (*model.Enrollment, error) {
	return s.repos.Enrollments.Get(ctx, s.userID, courseID)
}

func (s *Scoped) Enroll(ctx context.Context, courseID string) (*model.Enrollment, error) {
	return s.repos.Enrollments.Create(ctx, s.userID, courseID)
}

// RecordPurchase marks the bound user's enrollment in courseID as paid.
func (s *Scoped) RecordPurchase(ctx context.Context, courseID, sessionID string, amount int64) (*model.Enrollment, error) {
	return s.repos.Enrollments.UpsertPurchased(ctx, s.userID, courseID, sessionID, amount)
}
