package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"
)

type formPart struct {
	field    string
	value    string
	filename string
	content  io.Reader
}

// FormData is an ordered multipart payload.
type FormData struct {
	parts []formPart
}

// NewFormData creates an empty payload.
func NewFormData() *FormData {
	return &FormData{}
}

// Field appends a plain value.
func (f *FormData) Field(name, value string) *FormData {
	f.parts = append(f.parts, formPart{field: name, value: value})
	return f
}

// File appends a file part. The content type is derived from the filename extension.
func (f *FormData) File(field, filename string, content io.Reader) *FormData {
	f.parts = append(f.parts, formPart{field: field, filename: filename, content: content})
	return f
}

// encode buffers the payload so a replay sends identical bytes.
func (f *FormData) encode() ([]byte, string, error) {
	if f == nil {
		return nil, "", fmt.Errorf("nil form data")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range f.parts {
		if p.content == nil {
			if err := w.WriteField(p.field, p.value); err != nil {
				return nil, "", err
			}
			continue
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     p.field,
			"filename": filepath.Base(p.filename),
		}))
		header.Set("Content-Type", contentTypeFor(p.filename))

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, p.content); err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", p.filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
