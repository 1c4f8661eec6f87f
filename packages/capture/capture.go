package capture

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Capture names a value to pull out of a response body.
type Capture struct {
	Name string
	Path string
}

// Parse reads a "name=path" declaration. A bare name captures the path of
// the same name.
func Parse(decl string) (Capture, error) {
	name, path, found := strings.Cut(decl, "=")
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if name == "" {
		return Capture{}, fmt.Errorf("invalid capture %q: missing name", decl)
	}
	if !found {
		path = name
	}
	return Capture{Name: name, Path: path}, nil
}

// ParseAll parses every declaration, stopping at the first invalid one.
func ParseAll(decls []string) ([]Capture, error) {
	captures := make([]Capture, 0, len(decls))
	for _, d := range decls {
		c, err := Parse(d)
		if err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, nil
}

type Extractor struct {
	body     []byte
	bodyJSON gjson.Result
	isJSON   bool
}

func NewExtractor(body []byte) *Extractor {
	e := &Extractor{body: body}
	if gjson.ValidBytes(body) {
		e.bodyJSON = gjson.ParseBytes(body)
		e.isJSON = true
	}
	return e
}

// Extract returns the value at path. Non-JSON bodies only support the
// empty path, which yields the raw body as a string.
func (e *Extractor) Extract(path string) (any, bool) {
	if !e.isJSON {
		if path == "" {
			return string(e.body), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// Extract is a convenience wrapper for a single lookup.
func Extract(body []byte, path string) (any, bool) {
	return NewExtractor(body).Extract(path)
}

// ExtractAll runs every capture against body. Captures whose path does not
// resolve are left out of the result.
func ExtractAll(body []byte, captures []Capture) map[string]any {
	extractor := NewExtractor(body)
	results := make(map[string]any)

	for _, c := range captures {
		if value, ok := extractor.Extract(c.Path); ok {
			results[c.Name] = value
		}
	}

	return results
}
