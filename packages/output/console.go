package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/hitnet/packages/schema"
	"github.com/abdul-hamid-achik/hitnet/packages/stats"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

// prettyBody indents JSON bodies and returns anything else unchanged.
func prettyBody(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatCall(c *Call) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	symbol := green("✓")
	if !c.Passed() {
		symbol = red("✗")
	}

	name := c.Name()
	if c.Authenticated {
		name += " " + yellow("[auth]")
	}
	fmt.Fprintf(f.writer, "%s %s %s\n", symbol, name, cyan(fmt.Sprintf("(%dms)", c.Duration.Milliseconds())))

	if f.verbose && c.URL != "" {
		fmt.Fprintf(f.writer, "    URL: %s\n", c.URL)
	}

	if c.Result.Err != nil {
		fmt.Fprintf(f.writer, "    %s %s\n", red("→"), c.Result.Err.Error())
		return
	}

	if c.SchemaError != nil {
		var verr *schema.ValidationError
		if errors.As(c.SchemaError, &verr) {
			fmt.Fprintf(f.writer, "    %s schema\n", red("→"))
			for _, v := range verr.Violations {
				fmt.Fprintf(f.writer, "      %s\n", v)
			}
		} else {
			fmt.Fprintf(f.writer, "    %s %v\n", red("→"), c.SchemaError)
		}
	}

	if len(c.Captures) > 0 {
		fmt.Fprintf(f.writer, "    Captures:\n")
		names := make([]string, 0, len(c.Captures))
		for name := range c.Captures {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(f.writer, "      %s = %s\n", name, formatValue(c.Captures[name], 100))
		}
	}

	if len(c.Result.Data) > 0 {
		fmt.Fprintf(f.writer, "%s\n", prettyBody(c.Result.Data))
	}
}

func (f *ConsoleFormatter) FormatStats(s stats.Snapshot) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Calls:   ")
	if s.Success > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d succeeded", s.Success)))
	}
	if s.Failures > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", s.Failures)))
	}
	fmt.Fprintf(f.writer, "%d total\n", s.Total)
	fmt.Fprintf(f.writer, "Latency: p50=%s p95=%s p99=%s max=%s mean=%s\n",
		s.P50, s.P95, s.P99, s.Max, s.Mean)

	if f.verbose {
		for _, ep := range s.Endpoints {
			fmt.Fprintf(f.writer, "  %s: %d total, %d failed\n", ep.Name, ep.Total, ep.Failures)
		}
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitnet"), version)
}

// Flush is a no-op; console output is written as it arrives.
func (f *ConsoleFormatter) Flush() error {
	return nil
}
