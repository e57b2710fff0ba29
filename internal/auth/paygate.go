package auth

import "net/url"

// PaymentPagePath is where unpaid instructors are sent.
const PaymentPagePath = "/instructorPayment.html"

// Decision is the outcome of Gate.  Exactly one of Token and RedirectURL
// is set.
type Decision struct {
	Allowed     bool
	Token       string
	RedirectURL string
}

// Gate decides whether a freshly signed-in principal receives its token.
// Instructors whose registration fee is not completed get a redirect to
// the payment page instead.
func Gate(p *Principal, token string) Decision {
	if p.Role == RoleInstructor && p.PaymentStatus != PaymentCompleted {
		return Decision{RedirectURL: PaymentURL(p.Email, p.Name(), p.ID)}
	}
	return Decision{Allowed: true, Token: token}
}

// PaymentURL builds the payment page link.
func PaymentURL(email, name, userID string) string {
	v := url.Values{}
	v.Set("email", email)
	v.Set("name", name)
	v.Set("userId", userID)
	return PaymentPagePath + "?" + v.Encode()
}
