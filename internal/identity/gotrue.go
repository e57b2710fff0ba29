package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// GoTrueClient implements Provider on top of the gotrue-go client for the
// Supabase auth API (`<project>/auth/v1`).  The anon key authorises public
// calls; the service key authorises the admin endpoints.
type GoTrueClient struct {
	public      gotrue.Client
	admin       gotrue.Client
	redirectURL string
	http        *http.Client
}

// NewGoTrueClient builds a client for the project at supabaseURL.
// redirectURL is sent with sign-ups as the email confirmation target.
func NewGoTrueClient(supabaseURL, anonKey, serviceKey, redirectURL string) *GoTrueClient {
	base := strings.TrimRight(supabaseURL, "/") + "/auth/v1"
	return &GoTrueClient{
		public:      gotrue.New("", anonKey).WithCustomGoTrueURL(base),
		admin:       gotrue.New("", serviceKey).WithCustomGoTrueURL(base).WithToken(serviceKey),
		redirectURL: redirectURL,
		http:        &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func (c *GoTrueClient) WithHTTPClient(h *http.Client) *GoTrueClient {
	c.http = h
	return c
}

// callTransport binds one library call to ctx and adds query parameters
// the library has no field for.
type callTransport struct {
	ctx   context.Context
	query url.Values
	next  http.RoundTripper
}

func (t *callTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(t.ctx)
	if len(t.query) > 0 {
		q := r.URL.Query()
		for k, vs := range t.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		r.URL.RawQuery = q.Encode()
	}
	return t.next.RoundTrip(r)
}

// bind returns a copy of gc whose requests carry ctx and query.
func (c *GoTrueClient) bind(ctx context.Context, gc gotrue.Client, query url.Values) gotrue.Client {
	next := c.http.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	return gc.WithClient(http.Client{
		Transport: &callTransport{ctx: ctx, query: query, next: next},
		Timeout:   c.http.Timeout,
	})
}

type apiError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// The library reports non-2xx answers as "response status code N: body".
var statusRe = regexp.MustCompile(`(?s)^response status code (\d+)(?:: (.*))?$`)

// status extracts the HTTP status and provider message from a library
// error.  ok is false for transport and decoding failures.
func status(err error) (code int, msg string, ok bool) {
	m := statusRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, "", false
	}
	code, _ = strconv.Atoi(m[1])
	var ae apiError
	if json.Unmarshal([]byte(strings.TrimSpace(m[2])), &ae) == nil {
		msg = ae.text()
	}
	return code, msg, true
}

// classify maps a library error onto the sentinel for the operation.
// Statuses in reject count as a refusal; transport failures, 5xx and
// anything else unexpected as unavailability.
func classify(err error, rejected error, reject ...int) error {
	code, msg, ok := status(err)
	if !ok {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	for _, r := range reject {
		if code == r {
			return fmt.Errorf("%w: %s", rejected, msg)
		}
	}
	return fmt.Errorf("%w: status %d: %s", ErrUnavailable, code, msg)
}

func fromLibrary(u types.User) *User {
	return &User{
		ID:        u.ID.String(),
		Email:     u.Email,
		Metadata:  u.UserMetadata,
		CreatedAt: u.CreatedAt,
	}
}

// SignUp registers a user with the given metadata.  When email
// confirmation is off the provider answers with a session; the library
// copies its user into the embedded one either way.
func (c *GoTrueClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*User, error) {
	var q url.Values
	if c.redirectURL != "" {
		q = url.Values{"redirect_to": {c.redirectURL}}
	}
	res, err := c.bind(ctx, c.public, q).Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data:     metadata,
	})
	if err != nil {
		if code, msg, ok := status(err); ok && code >= 400 && code < 500 {
			return nil, &SignUpError{Message: msg}
		}
		return nil, classify(err, ErrUnavailable)
	}
	return fromLibrary(res.User), nil
}

// SignInWithPassword exchanges email and password for an access token.
func (c *GoTrueClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	res, err := c.bind(ctx, c.public, nil).SignInWithEmailPassword(email, password)
	if errors.Is(err, types.ErrInvalidTokenRequest) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, classify(err, ErrInvalidCredentials, http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity)
	}
	return &Session{AccessToken: res.AccessToken, User: fromLibrary(res.User)}, nil
}

// VerifyToken asks the provider who owns token.  The token is never parsed
// locally.
func (c *GoTrueClient) VerifyToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	res, err := c.bind(ctx, c.public.WithToken(token), nil).GetUser()
	if err != nil {
		return nil, classify(err, ErrInvalidToken, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound)
	}
	if res.ID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return fromLibrary(res.User), nil
}

// GetUserByID is the indexed admin lookup.
func (c *GoTrueClient) GetUserByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	res, err := c.bind(ctx, c.admin, nil).AdminGetUser(types.AdminGetUserRequest{UserID: uid})
	if err != nil {
		return nil, classify(err, ErrUserNotFound, http.StatusNotFound)
	}
	return fromLibrary(res.User), nil
}

// UpdateUserMetadata replaces user_metadata of the account with metadata.
// Callers merge with the existing document first.
func (c *GoTrueClient) UpdateUserMetadata(ctx context.Context, id string, metadata map[string]any) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	res, err := c.bind(ctx, c.admin, nil).AdminUpdateUser(types.AdminUpdateUserRequest{
		UserID:       uid,
		UserMetadata: metadata,
	})
	if err != nil {
		return nil, classify(err, ErrUserNotFound, http.StatusNotFound)
	}
	return fromLibrary(res.User), nil
}

// ListUsers returns one page of accounts.
func (c *GoTrueClient) ListUsers(ctx context.Context, page, perPage int) ([]*User, error) {
	q := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	res, err := c.bind(ctx, c.admin, q).AdminListUsers()
	if err != nil {
		return nil, classify(err, ErrUnavailable)
	}
	users := make([]*User, 0, len(res.Users))
	for _, u := range res.Users {
		users = append(users, fromLibrary(u))
	}
	return users, nil
}
