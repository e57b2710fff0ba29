package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/iliyamo/learntrack/internal/identity"
)

// Role is the application role stored in provider metadata.
type Role string

const (
	RoleLearner    Role = "learner"
	RoleInstructor Role = "instructor"
)

// PaymentStatus tracks whether an instructor paid the registration fee.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// ErrUnknownRole is returned by ParseRole for values other than the two
// known roles.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole validates a role supplied by a client.  Empty means learner.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleLearner:
		return RoleLearner, nil
	case RoleInstructor:
		return RoleInstructor, nil
	}
	return "", ErrUnknownRole
}

// ParsePaymentStatus reads a stored payment status.  Only the exact value
// "completed" counts as paid.
func ParsePaymentStatus(v any) PaymentStatus {
	if s, _ := v.(string); PaymentStatus(s) == PaymentCompleted {
		return PaymentCompleted
	}
	return PaymentPending
}

// roleFromMetadata never fails: stored garbage degrades to learner.
func roleFromMetadata(md map[string]any) Role {
	s, _ := md["role"].(string)
	r, err := ParseRole(s)
	if err != nil {
		return RoleLearner
	}
	return r
}

// Principal is the verified caller of one request.  It is rebuilt from the
// provider on every request and never cached.
type Principal struct {
	ID            string
	Email         string
	Role          Role
	PaymentStatus PaymentStatus
	Metadata      map[string]any
	CreatedAt     time.Time
}

// PrincipalFromUser derives a Principal from a provider user.
func PrincipalFromUser(u *identity.User) *Principal {
	md := u.Metadata
	if md == nil {
		md = map[string]any{}
	}
	return &Principal{
		ID:            u.ID,
		Email:         u.Email,
		Role:          roleFromMetadata(md),
		PaymentStatus: ParsePaymentStatus(md["payment_status"]),
		Metadata:      md,
		CreatedAt:     u.CreatedAt,
	}
}

// Name returns metadata.name or an empty string.
func (p *Principal) Name() string {
	s, _ := p.Metadata["name"].(string)
	return s
}

// IsInstructor reports whether p carries the instructor role.
func (p *Principal) IsInstructor() bool { return p.Role == RoleInstructor }

// Profile is the typed view of the user-editable part of the metadata.
type Profile struct {
	FullName        string  `mapstructure:"full_name" json:"full_name"`
	Name            string  `mapstructure:"name" json:"name"`
	Username        string  `mapstructure:"username" json:"username"`
	Bio             string  `mapstructure:"bio" json:"bio"`
	AvatarURL       *string `mapstructure:"avatar_url" json:"avatar_url"`
	LearningGoals   any     `mapstructure:"learning_goals" json:"learning_goals"`
	Interests       any     `mapstructure:"interests" json:"interests"`
	Title           *string `mapstructure:"title" json:"title"`
	Expertise       any     `mapstructure:"expertise" json:"expertise"`
	YearsExperience *int    `mapstructure:"years_experience" json:"years_experience"`
	LinkedIn        *string `mapstructure:"linkedin" json:"linkedin"`
	Website         *string `mapstructure:"website" json:"website"`
	Twitter         *string `mapstructure:"twitter" json:"twitter"`
	GitHub          *string `mapstructure:"github" json:"github"`
}

// ProfileFields are the metadata keys a user may change themselves.
var ProfileFields = []string{
	"full_name", "name", "username", "bio", "avatar_url", "learning_goals", "interests",
	"title", "expertise", "years_experience", "linkedin", "website", "twitter", "github",
}

// ProfileFromMetadata decodes md into a Profile.  Name fields fall back to
// each other and then to the local part of email.
func ProfileFromMetadata(md map[string]any, email string) (*Profile, error) {
	var p Profile
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(md); err != nil {
		return nil, err
	}
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	if p.Name == "" {
		p.Name = p.FullName
	}
	if p.FullName == "" {
		p.FullName = p.Name
	}
	if p.Name == "" {
		p.Name = local
		p.FullName = local
	}
	if p.Username == "" {
		p.Username = local
	}
	return &p, nil
}
