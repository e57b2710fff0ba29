// Package auth turns an incoming request into an authenticated principal
// and holds the access decisions made on it: resource ownership, the
// instructor payment gate and the post-login session page.
package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
)

// maxTokenBody bounds how much of a JSON body is buffered while looking
// for a token field.
const maxTokenBody = 1 << 20

// Resolve extracts the bearer credential from r.  The Authorization header
// wins over the `token` query parameter, which wins over a `token` body
// field.  present reports whether any carrier was supplied at all; the
// returned token may still be empty.
func Resolve(r *http.Request) (token string, present bool) {
	if vals, ok := r.Header["Authorization"]; ok && len(vals) > 0 {
		return stripBearer(vals[0]), true
	}
	if q := r.URL.Query(); q.Has("token") {
		return q.Get("token"), true
	}
	return fromBody(r)
}

func stripBearer(v string) string {
	const prefix = "bearer "
	if len(v) >= len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		return v[len(prefix):]
	}
	return v
}

// fromBody looks for a `token` field without consuming the body for the
// handler that runs afterwards.
func fromBody(r *http.Request) (string, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", false
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBody))
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))
		if err != nil {
			return "", false
		}
		var body map[string]json.RawMessage
		if json.Unmarshal(raw, &body) != nil {
			return "", false
		}
		v, ok := body["token"]
		if !ok {
			return "", false
		}
		var s string
		if json.Unmarshal(v, &s) != nil {
			return "", true
		}
		return s, true
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if ct == "multipart/form-data" {
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				return "", false
			}
		} else if err := r.ParseForm(); err != nil {
			return "", false
		}
		if vals, ok := r.PostForm["token"]; ok && len(vals) > 0 {
			return vals[0], true
		}
		if r.MultipartForm != nil {
			if vals, ok := r.MultipartForm.Value["token"]; ok && len(vals) > 0 {
				return vals[0], true
			}
		}
	}
	return "", false
}
