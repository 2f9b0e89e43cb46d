package trace_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/stretchr/testify/assert"

	"github.com/keboola/go-ajax/pkg/client"
	"github.com/keboola/go-ajax/pkg/client/trace"
	"github.com/keboola/go-ajax/pkg/request"
)

func TestDumpTracer(t *testing.T) {
	t.Parallel()

	// Mocked response
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.ResponderFromResponse(&http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("OK")),
	}))

	// Logs for trace testing
	var logs strings.Builder

	// Create client
	ctx := context.Background()
	c := client.New().
		WithTransport(transport).
		AndTrace(trace.DumpTracer(&logs))

	// Expected trace
	expected := `
>>>>>> HTTP DUMP
GET / HTTP/1.1
Host: example.com
User-Agent: go-ajax
Accept-Encoding: gzip, br
------
HTTP/0.0 200 OK
Content-Length: 0
------
OK
<<<<<< HTTP DUMP END

>>>>>> HTTP REQUEST PROCESSED |  GET / 200 | SUCCEEDED | ERROR: <nil> | HEADERS AT: %s | DONE AT: %s
`

	// Test
	out := <-request.New("https://example.com").Go(ctx, c)
	assert.True(t, out.IsSuccess())
	assert.Equal(t, "OK", out.Value)
	wildcards.Assert(t, strings.TrimLeft(expected, "\n"), logs.String())
}

func TestDumpTracer_Failure(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", `https://example.com/api`, httpmock.NewErrorResponder(errors.New("connection refused")))

	var logs strings.Builder
	c := client.New().
		WithTransport(transport).
		AndTrace(trace.DumpTracer(&logs))

	expected := `
>>>>>> HTTP DUMP
POST /api HTTP/1.1
Host: example.com
User-Agent: go-ajax
Content-Length: 7
Accept-Encoding: gzip, br

payload
------
ERROR:  connection refused
<<<<<< HTTP DUMP END

>>>>>> HTTP REQUEST PROCESSED |  POST /api 0 | FAILED | ERROR: request POST "https://example.com/api" failed: connection refused | HEADERS AT: %s | DONE AT: %s
`

	out := <-request.New("https://example.com/api").WithMethod("POST").WithBody("payload").Go(context.Background(), c)
	assert.True(t, out.IsFailure())
	wildcards.Assert(t, strings.TrimLeft(expected, "\n"), logs.String())
}
