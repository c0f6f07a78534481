// Package response assembles the CGI-style header block and body handed to
// internal/fastcgi for STDOUT framing, grounded on
// original_source/src/app/response.rs (Response/Cookie/Location).
package response

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tryteex/fcgiapp/internal/session"
)

// Cookie mirrors response.rs's Cookie struct.
type Cookie struct {
	Key    string
	Value  string
	MaxAge int
}

// Location mirrors response.rs's redirect struct.
type Location struct {
	URL         string
	Permanently bool
}

// Response accumulates everything about to be sent back for one request.
type Response struct {
	Code     int // 0 means "unset" -> defaults to 200, or 302/301 on redirect
	Cookie   *Cookie
	Location *Location
	CSS      []string
	JS       []string
	Lang     string

	// Host is the request's Host header, used for the cookie's domain=
	// attribute (spec.md §4.6 step 8).
	Host string

	ContentType string
	Body        []byte
}

func New() *Response {
	return &Response{ContentType: "text/html; charset=utf-8"}
}

// SetHeaderCode sets the HTTP status code for the answer.
func (r *Response) SetHeaderCode(code int) { r.Code = code }

// SetCookie sets the cookie for the answer with the given Max-Age in
// seconds. SetSessionCookie passes session.MaxAgeSeconds, the same way
// session.rs's constructor pins every session cookie to ON_YEAR.
func (r *Response) SetCookie(key, value string, maxAge int) {
	r.Cookie = &Cookie{Key: key, Value: value, MaxAge: maxAge}
}

// SetSessionCookie is the common case: set the session identity cookie.
func (r *Response) SetSessionCookie(value string) {
	r.SetCookie(session.CookieName, value, session.MaxAgeSeconds)
}

// SetRedirect records a redirect response.
func (r *Response) SetRedirect(url string, permanently bool) {
	r.Location = &Location{URL: url, Permanently: permanently}
}

// Build assembles the full CGI-style header block and body, in the form
// internal/fastcgi.writeResponse sends verbatim as the STDOUT stream.
func (r *Response) Build() []byte {
	code := r.Code
	if code == 0 {
		code = http.StatusOK
	}
	if r.Location != nil && r.Code == 0 {
		if r.Location.Permanently {
			code = http.StatusMovedPermanently
		} else {
			code = http.StatusFound
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status: %d %s\r\n", code, http.StatusText(code))
	if r.Location != nil {
		fmt.Fprintf(&b, "Location: %s\r\n", r.Location.URL)
	}
	if r.Cookie != nil {
		expires := time.Now().Add(time.Duration(r.Cookie.MaxAge) * time.Second).UTC().Format(http.TimeFormat)
		fmt.Fprintf(&b, "Set-Cookie: %s=%s; Expires=%s; Max-Age=%d; path=/; domain=%s; Secure; SameSite=none\r\n",
			r.Cookie.Key, r.Cookie.Value, expires, r.Cookie.MaxAge, r.Host)
	}
	b.WriteString("Connection: keep-alive\r\n")
	if r.ContentType != "" {
		fmt.Fprintf(&b, "Content-Type: %s\r\n", r.ContentType)
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(r.Body))
	b.WriteString("\r\n")

	out := make([]byte, 0, b.Len()+len(r.Body))
	out = append(out, b.String()...)
	out = append(out, r.Body...)
	return out
}
