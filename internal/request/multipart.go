package request

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"strings"
)

// parseMultipart streams a multipart/form-data body into post fields and
// uploaded files. Where original_source/src/app/request.rs hand-scans the
// boundary and writes each file part to a NamedTempFile, this uses Go's
// stdlib mime/multipart reader — the same stdlib mime/multipart.Form that
// sandrolain-events-bridge/src/common/fsutil/multipart.go wraps as a
// read-only fs.FS — but writes each part straight to a real temp file via
// os.CreateTemp instead of holding the upload in memory, per spec.md §4.6's
// cleanup-owns-real-files requirement.
func parseMultipart(contentType string, body []byte, post map[string]string, files map[string][]WebFile) error {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("request: parse multipart content-type: %w", err)
	}
	boundary, ok := params["boundary"]
	if !ok {
		return fmt.Errorf("request: multipart content-type missing boundary")
	}

	mr := multipart.NewReader(strings.NewReader(string(body)), boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// A truncated stream has no more parts to attempt.
			return nil
		}
		if err != nil {
			// A malformed part is dropped, not fatal to the whole request
			// (spec.md §7): keep attempting subsequent parts.
			continue
		}

		name := part.FormName()
		if name == "" {
			part.Close()
			continue
		}

		if fileName := part.FileName(); fileName != "" {
			wf, err := writeUploadedFile(part, fileName)
			part.Close()
			if err != nil {
				return err
			}
			files[name] = append(files[name], wf)
			continue
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return fmt.Errorf("request: read multipart field %q: %w", name, err)
		}
		post[name] = string(data)
	}
}

func writeUploadedFile(part *multipart.Part, fileName string) (WebFile, error) {
	tmp, err := os.CreateTemp("", "fcgiapp-upload-*")
	if err != nil {
		return WebFile{}, fmt.Errorf("request: create temp upload file: %w", err)
	}
	defer tmp.Close()

	n, err := io.Copy(tmp, part)
	if err != nil {
		return WebFile{}, fmt.Errorf("request: write temp upload file: %w", err)
	}
	return WebFile{Size: n, Name: fileName, Tmp: tmp.Name()}, nil
}

// Cleanup removes every temp file this request's multipart parse created
// (spec.md §4.6 step 10: temp file cleanup after the response is sent).
func (r *Request) Cleanup() {
	for _, list := range r.File {
		for _, f := range list {
			_ = os.Remove(f.Tmp)
		}
	}
}
