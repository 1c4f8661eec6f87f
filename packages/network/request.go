package network

import (
	"encoding/json"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultHeaders returns the headers every request starts from.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept": "application/json",
	}
}

// MergeHeaders returns base overlaid with overrides. On collision the
// override wins. Neither input is modified.
func MergeHeaders(base, overrides map[string]string) map[string]string {
	result := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overrides {
		result[k] = v
	}
	return result
}

// Builder turns call arguments into Descriptors for one Environment.
type Builder struct {
	env      Environment
	defaults map[string]string
}

// NewBuilder creates a Builder resolving endpoints against env. Extra
// default headers are merged over DefaultHeaders.
func NewBuilder(env Environment, defaults map[string]string) *Builder {
	return &Builder{
		env:      env,
		defaults: MergeHeaders(DefaultHeaders(), defaults),
	}
}

// Headers merges caller headers over the builder's defaults.
func (b *Builder) Headers(headers map[string]string) map[string]string {
	return MergeHeaders(b.defaults, headers)
}

// Build resolves endpoint against the environment and encodes params.
//
// GET params given as map[string]string become the query string.
// POST, PUT and PATCH params are sent as indented JSON; a value that cannot
// be marshaled results in no body. Params are ignored for other methods.
// An unparseable base URL or endpoint returns ErrUnexpected. An absolute
// endpoint replaces the environment base, host included.
func (b *Builder) Build(method Method, endpoint string, params any, headers map[string]string) (*Descriptor, error) {
	base, err := url.Parse(EnvironmentURL(b.env))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, ErrUnexpected
	}

	ref := endpoint
	var body []byte

	switch {
	case method == MethodGet:
		if query := QueryString(params); query != "" {
			ref += "?" + query
		}
	case method.HasBody():
		body = jsonBody(params)
	}

	rel, err := url.Parse(ref)
	if err != nil {
		return nil, ErrUnexpected
	}

	return &Descriptor{
		ID:     uuid.NewString(),
		Method: method,
		URL:    base.ResolveReference(rel).String(),
		Header: b.Headers(headers),
		Body:   body,
	}, nil
}

// QueryString encodes params as key=value pairs joined by '&', sorted by key.
// Only map[string]string params are encoded. Pairs whose key or value is not
// valid UTF-8 are skipped.
func QueryString(params any) string {
	values, ok := params.(map[string]string)
	if !ok || len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := values[k]
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			continue
		}
		pairs = append(pairs, escapeComponent(k)+"="+escapeComponent(v))
	}
	return strings.Join(pairs, "&")
}

// escapeComponent percent-encodes s, leaving the URL host character set
// untouched except for the query delimiters '&', '=' and '+'.
func escapeComponent(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if hostSafe(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte("0123456789ABCDEF"[c>>4])
		sb.WriteByte("0123456789ABCDEF"[c&15])
	}
	return sb.String()
}

func hostSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!$'()*,-.:;[]_~", c) >= 0
}

func jsonBody(params any) []byte {
	if isNil(params) {
		return nil
	}
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return nil
	}
	return data
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
