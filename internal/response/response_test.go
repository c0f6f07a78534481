package response

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDefaultsTo200(t *testing.T) {
	r := New()
	r.Body = []byte("hi")
	out := string(r.Build())
	require.True(t, strings.HasPrefix(out, "Status: 200 OK\r\n"))
	require.Contains(t, out, "Content-Length: 2\r\n")
	require.True(t, strings.HasSuffix(out, "\r\n\r\nhi"))
}

func TestBuildRedirectDefaultsCode(t *testing.T) {
	r := New()
	r.SetRedirect("/login", false)
	out := string(r.Build())
	require.True(t, strings.HasPrefix(out, "Status: 302 Found\r\n"))
	require.Contains(t, out, "Location: /login\r\n")
}

func TestBuildIncludesCookie(t *testing.T) {
	r := New()
	r.Host = "example.test"
	r.SetSessionCookie("deadbeef")
	out := string(r.Build())
	require.Contains(t, out, "Max-Age=31622400; path=/; domain=example.test; Secure; SameSite=none\r\n")
	require.Regexp(t, `Set-Cookie: fcgiapp=deadbeef; Expires=\S+ \S+ \S+ \S+ \S+ GMT;`, out)
}

func TestBuildIncludesKeepAlive(t *testing.T) {
	r := New()
	r.Body = []byte("hi")
	out := string(r.Build())
	require.Contains(t, out, "Connection: keep-alive\r\n")
}
