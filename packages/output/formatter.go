package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/hitnet/packages/network"
	"github.com/abdul-hamid-achik/hitnet/packages/stats"
)

// Call is one completed request as shown to the user.
type Call struct {
	Method        network.Method
	Endpoint      string
	URL           string
	Authenticated bool
	Result        network.Result
	Duration      time.Duration
	Captures      map[string]any
	SchemaError   error
}

// Name identifies the call in reports, e.g. "GET users".
func (c *Call) Name() string {
	return c.Method.String() + " " + c.Endpoint
}

// Passed reports whether the call succeeded and its body matched the schema.
func (c *Call) Passed() bool {
	return c.Result.IsSuccess() && c.SchemaError == nil
}

// Formatter renders calls in one output format.
type Formatter interface {
	FormatHeader(version string)
	FormatCall(c *Call)
	FormatStats(s stats.Snapshot)
	FormatError(err error)
	Flush() error
}

// Format names accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatTAP     = "tap"
)

// New returns the formatter for format writing to w.
func New(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch format {
	case "", FormatConsole:
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case FormatJSON:
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case FormatTAP:
		return NewTAPFormatter(TAPWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}
