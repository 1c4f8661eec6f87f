package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitnet/packages/network"
)

type Response struct {
	StatusCode int
	Status     string
	URL        string
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Meta returns the metadata handed to a network.Completion.
func (r *Response) Meta() *network.ResponseMeta {
	return &network.ResponseMeta{
		StatusCode: r.StatusCode,
		URL:        r.URL,
		Header:     r.Headers,
	}
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

func (r *Response) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal(r.Body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
