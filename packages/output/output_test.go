package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitnet/packages/network"
	"github.com/abdul-hamid-achik/hitnet/packages/schema"
	"github.com/abdul-hamid-achik/hitnet/packages/stats"
)

func successCall() *Call {
	return &Call{
		Method:   network.MethodGet,
		Endpoint: "users",
		URL:      "https://api.example.com/v1/users",
		Result:   network.Succeeded([]byte(`{"id":1,"name":"Ada"}`)),
		Duration: 12 * time.Millisecond,
		Captures: map[string]any{"userId": float64(1)},
	}
}

func unauthorizedCall() *Call {
	return &Call{
		Method:        network.MethodPost,
		Endpoint:      "orders",
		Authenticated: true,
		Result:        network.Failed(network.ErrUnauthorized),
		Duration:      3 * time.Millisecond,
	}
}

func TestCall_Passed(t *testing.T) {
	assert.True(t, successCall().Passed())
	assert.False(t, unauthorizedCall().Passed())

	c := successCall()
	c.SchemaError = &schema.ValidationError{Violations: []string{"id: Invalid type"}}
	assert.False(t, c.Passed())
	assert.Equal(t, "GET users", c.Name())
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	for _, format := range []string{"", FormatConsole, FormatJSON, FormatTAP} {
		f, err := New(format, &buf, false, true)
		require.NoError(t, err)
		assert.NotNil(t, f)
	}

	_, err := New("xml", &buf, false, true)
	assert.Error(t, err)
}

func TestConsoleFormatter_Success(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	f.FormatCall(successCall())

	out := buf.String()
	assert.Contains(t, out, "✓ GET users (12ms)")
	assert.Contains(t, out, "URL: https://api.example.com/v1/users")
	assert.Contains(t, out, "userId = 1")
	assert.Contains(t, out, "\"name\": \"Ada\"")
}

func TestConsoleFormatter_Failure(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatCall(unauthorizedCall())

	out := buf.String()
	assert.Contains(t, out, "✗ POST orders [auth]")
	assert.Contains(t, out, "Unauthorized action")
}

func TestConsoleFormatter_SchemaViolations(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	c := successCall()
	c.SchemaError = &schema.ValidationError{Violations: []string{"name: Invalid type"}}
	f.FormatCall(c)

	assert.Contains(t, buf.String(), "name: Invalid type")
}

func TestConsoleFormatter_Stats(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatStats(stats.Snapshot{Total: 3, Success: 2, Failures: 1, P50: time.Millisecond})

	out := buf.String()
	assert.Contains(t, out, "2 succeeded")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "3 total")
	assert.Contains(t, out, "p50=1ms")
}

func TestConsoleFormatter_Error(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatError(errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
	assert.NoError(t, f.Flush())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	f.FormatCall(successCall())
	f.FormatCall(unauthorizedCall())
	plain := successCall()
	plain.Result = network.Succeeded([]byte("hello"))
	f.FormatCall(plain)
	require.NoError(t, f.Flush())

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, int64(3), out.Summary.Total)
	assert.Equal(t, int64(2), out.Summary.Succeeded)
	assert.Equal(t, int64(1), out.Summary.Failed)
	require.Len(t, out.Calls, 3)

	assert.True(t, out.Calls[0].Passed)
	assert.JSONEq(t, `{"id":1,"name":"Ada"}`, string(out.Calls[0].Body))

	assert.False(t, out.Calls[1].Passed)
	assert.Equal(t, "unauthorized", out.Calls[1].ErrorKind)
	assert.Equal(t, "Unauthorized action", out.Calls[1].Error)

	assert.Equal(t, "hello", out.Calls[2].BodyText)
}

func TestJSONFormatter_StatsSummary(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	f.FormatCall(successCall())
	f.FormatStats(stats.Snapshot{Total: 5, Success: 5, P95: 2 * time.Millisecond})
	f.FormatError(errors.New("config missing"))
	require.NoError(t, f.Flush())

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, int64(5), out.Summary.Total)
	assert.Equal(t, 2.0, out.Summary.P95)
	assert.Equal(t, []string{"config missing"}, out.Errors)
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))

	f.FormatCall(successCall())
	f.FormatCall(unauthorizedCall())
	c := successCall()
	c.SchemaError = &schema.ValidationError{Violations: []string{"id: Invalid type"}}
	f.FormatCall(c)
	require.NoError(t, f.Flush())

	out := buf.String()
	assert.Contains(t, out, "TAP version 13\n1..3\n")
	assert.Contains(t, out, "ok 1 - GET users\n")
	assert.Contains(t, out, "not ok 2 - POST orders\n")
	assert.Contains(t, out, "message: Unauthorized action")
	assert.Contains(t, out, "not ok 3 - GET users\n")
	assert.Contains(t, out, "- \"id: Invalid type\"")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"a: b"`, escapeYAML("a: b"))
	assert.Equal(t, `"say \"hi\""`, escapeYAML(`say "hi"`))
}
