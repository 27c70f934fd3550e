package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
)

// Multipart is an ordered multipart/form-data body. Fields keep insertion
// order so the wire payload is deterministic.
type Multipart struct {
	parts []part
}

type part struct {
	name     string
	value    string
	filename string
	content  io.Reader
}

// NewMultipart returns an empty form.
func NewMultipart() *Multipart {
	return &Multipart{}
}

// Field appends a text field.
func (m *Multipart) Field(name, value string) *Multipart {
	m.parts = append(m.parts, part{name: name, value: value})
	return m
}

// JSONField appends a text field holding the JSON encoding of v.
func (m *Multipart) JSONField(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	m.Field(name, string(b))
	return nil
}

// File appends a file part.
func (m *Multipart) File(name, filename string, content io.Reader) *Multipart {
	m.parts = append(m.parts, part{name: name, filename: filename, content: content})
	return m
}

// Value returns the first text value stored under name.
func (m *Multipart) Value(name string) (string, bool) {
	for _, p := range m.parts {
		if p.name == name && p.content == nil {
			return p.value, true
		}
	}
	return "", false
}

// Has reports whether any part is named name.
func (m *Multipart) Has(name string) bool {
	for _, p := range m.parts {
		if p.name == name {
			return true
		}
	}
	return false
}

func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, p := range m.parts {
		if p.content == nil {
			if err := w.WriteField(p.name, p.value); err != nil {
				return nil, "", err
			}
			continue
		}
		fw, err := w.CreateFormFile(p.name, p.filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(fw, p.content); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", p.filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
