package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitnet/packages/schema"
	"github.com/abdul-hamid-achik/hitnet/packages/stats"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary JSONSummary `json:"summary"`
	Calls   []JSONCall  `json:"calls"`
	Errors  []string    `json:"errors,omitempty"`
	Time    string      `json:"time"`
}

// JSONSummary represents the call summary
type JSONSummary struct {
	Total     int64   `json:"total"`
	Succeeded int64   `json:"succeeded"`
	Failed    int64   `json:"failed"`
	P50       float64 `json:"p50"`
	P95       float64 `json:"p95"`
	P99       float64 `json:"p99"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
}

// JSONCall represents a single call
type JSONCall struct {
	Method        string          `json:"method"`
	Endpoint      string          `json:"endpoint"`
	URL           string          `json:"url,omitempty"`
	Authenticated bool            `json:"authenticated,omitempty"`
	Passed        bool            `json:"passed"`
	Duration      float64         `json:"duration"`
	Error         string          `json:"error,omitempty"`
	ErrorKind     string          `json:"errorKind,omitempty"`
	Body          json.RawMessage `json:"body,omitempty"`
	BodyText      string          `json:"bodyText,omitempty"`
	Captures      map[string]any  `json:"captures,omitempty"`
	Schema        []string        `json:"schemaViolations,omitempty"`
}

// JSONFormatter formats call results as JSON
type JSONFormatter struct {
	writer  io.Writer
	calls   []JSONCall
	errors  []string
	summary *JSONSummary
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		calls:  make([]JSONCall, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatCall(c *Call) {
	jc := JSONCall{
		Method:        c.Method.String(),
		Endpoint:      c.Endpoint,
		URL:           c.URL,
		Authenticated: c.Authenticated,
		Passed:        c.Passed(),
		Duration:      float64(c.Duration.Milliseconds()),
		Captures:      c.Captures,
	}

	if c.Result.Err != nil {
		jc.Error = c.Result.Err.Error()
		jc.ErrorKind = c.Result.Err.Kind.String()
	}

	if len(c.Result.Data) > 0 {
		if json.Valid(c.Result.Data) {
			jc.Body = json.RawMessage(c.Result.Data)
		} else {
			jc.BodyText = string(c.Result.Data)
		}
	}

	if c.SchemaError != nil {
		var verr *schema.ValidationError
		if errors.As(c.SchemaError, &verr) {
			jc.Schema = verr.Violations
		} else {
			jc.Schema = []string{c.SchemaError.Error()}
		}
	}

	f.calls = append(f.calls, jc)
}

func (f *JSONFormatter) FormatStats(s stats.Snapshot) {
	f.summary = &JSONSummary{
		Total:     s.Total,
		Succeeded: s.Success,
		Failed:    s.Failures,
		P50:       ms(s.P50),
		P95:       ms(s.P95),
		P99:       ms(s.P99),
		Max:       ms(s.Max),
		Mean:      ms(s.Mean),
	}
}

func (f *JSONFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush() error {
	summary := f.summary
	if summary == nil {
		summary = &JSONSummary{Total: int64(len(f.calls))}
		for _, c := range f.calls {
			if c.Passed {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
		}
	}

	output := JSONOutput{
		Summary: *summary,
		Calls:   f.calls,
		Errors:  f.errors,
		Time:    time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
