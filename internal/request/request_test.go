package request

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBasicFields(t *testing.T) {
	params := map[string]string{
		"HTTP_HOST":             "example.test",
		"REQUEST_SCHEME":        "https",
		"HTTP_USER_AGENT":       "curl/8",
		"REMOTE_ADDR":           "127.0.0.1",
		"REQUEST_METHOD":        "GET",
		"REDIRECT_URL":          "/product/view?x=1",
		"QUERY_STRING":          "item=145&empty",
		"HTTP_COOKIE":           "a=1; b=2",
		"HTTP_X_REQUESTED_WITH": "XMLHttpRequest",
	}
	r, err := Parse(params, nil, "/var/www")
	require.NoError(t, err)
	require.Equal(t, "example.test", r.Host)
	require.Equal(t, "https://example.test", r.Site)
	require.Equal(t, "/product/view", r.URL)
	require.Equal(t, "145", r.Get["item"])
	require.Equal(t, "", r.Get["empty"])
	require.Equal(t, "1", r.Cookie["a"])
	require.True(t, r.Ajax)
}

func TestParseURLEncodedPost(t *testing.T) {
	params := map[string]string{"CONTENT_TYPE": "application/x-www-form-urlencoded"}
	r, err := Parse(params, []byte("name=Al+Bo&age=9"), "/var/www")
	require.NoError(t, err)
	require.Equal(t, "Al+Bo", r.Post["name"])
	require.Equal(t, "9", r.Post["age"])
}

func TestParseMultipartWritesTempFileAndCleansUp(t *testing.T) {
	body := "--XYZ\r\n" +
		"Content-Disposition: form-data; name=\"title\"\r\n\r\n" +
		"hello\r\n" +
		"--XYZ\r\n" +
		"Content-Disposition: form-data; name=\"upload\"; filename=\"a.txt\"\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"file contents\r\n" +
		"--XYZ--\r\n"
	params := map[string]string{"CONTENT_TYPE": "multipart/form-data; boundary=XYZ"}

	r, err := Parse(params, []byte(body), "/var/www")
	require.NoError(t, err)
	require.Equal(t, "hello", r.Post["title"])
	require.Len(t, r.File["upload"], 1)

	f := r.File["upload"][0]
	require.Equal(t, "a.txt", f.Name)
	require.EqualValues(t, len("file contents"), f.Size)

	data, err := os.ReadFile(f.Tmp)
	require.NoError(t, err)
	require.Equal(t, "file contents", string(data))

	r.Cleanup()
	_, err = os.Stat(f.Tmp)
	require.True(t, os.IsNotExist(err))
}

func TestParseMultipartDropsMalformedPartAndContinues(t *testing.T) {
	body := "--XYZ\r\n" +
		"NotAHeaderLine\r\n" +
		"\r\n" +
		"garbage\r\n" +
		"--XYZ\r\n" +
		"Content-Disposition: form-data; name=\"ok\"\r\n\r\n" +
		"value\r\n" +
		"--XYZ--\r\n"
	params := map[string]string{"CONTENT_TYPE": "multipart/form-data; boundary=XYZ"}

	r, err := Parse(params, []byte(body), "/var/www")
	require.NoError(t, err)
	require.Equal(t, "value", r.Post["ok"])
}
