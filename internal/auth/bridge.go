package auth

import (
	"html/template"
	"io"
	"time"
)

const (
	// SessionKey is the single browser storage key holding the session.
	SessionKey = "learntrack.session"
	// SessionVersion is bumped whenever ClientSession changes shape.
	SessionVersion = 2

	InstructorLanding = "/instructorDashboard.html"
	LearnerLanding    = "/studentDashboard.html"
)

// ClientSession is the object the browser keeps after login.
type ClientSession struct {
	Version  int         `json:"version"`
	Token    string      `json:"token"`
	User     SessionUser `json:"user"`
	IssuedAt time.Time   `json:"issued_at"`
}

type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Destination picks the landing page for role.  Anything other than
// instructor lands on the learner dashboard.
func Destination(role Role) string {
	if role == RoleInstructor {
		return InstructorLanding
	}
	return LearnerLanding
}

var bridgePage = template.Must(template.New("bridge").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Redirecting...</title>
<script>
(function () {
  var session = {{.Session}};
  sessionStorage.setItem({{.Key}}, JSON.stringify(session));
  window.location.replace({{.Destination}});
})();
</script>
</head>
<body>
<p>Redirecting to your dashboard...</p>
</body>
</html>
`))

// NewClientSession builds the session object for a verified principal.
func NewClientSession(token string, p *Principal) ClientSession {
	return ClientSession{
		Version:  SessionVersion,
		Token:    token,
		User:     SessionUser{ID: p.ID, Email: p.Email, Role: p.Role},
		IssuedAt: time.Now().UTC(),
	}
}

// Materialize writes the one-shot page that stores the session in the
// browser and navigates to the role's landing page.  html/template escapes
// the session for the script context.
func Materialize(w io.Writer, token string, p *Principal) error {
	return bridgePage.Execute(w, struct {
		Session     ClientSession
		Key         string
		Destination string
	}{
		Session:     NewClientSession(token, p),
		Key:         SessionKey,
		Destination: Destination(p.Role),
	})
}
