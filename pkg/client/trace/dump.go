package trace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"time"

	"github.com/keboola/go-ajax/pkg/request"
)

const dumpTraceMaxLength = 2000

// dumpState collects one request, it is written at once when the Outcome is known.
type dumpState struct {
	wr          io.Writer
	method      string
	uri         string
	statusCode  int
	requestRaw  []byte
	responseRaw []byte
	responseErr error
	received    bool
	startTime   time.Time
	headersTime time.Time
}

// DumpTracer dumps HTTP request, response headers and the response body of each request to a writer.
// Output may contain unmasked tokens, do not use it in production!
func DumpTracer(wr io.Writer) Factory {
	return func(ctx context.Context, _ request.Request) (context.Context, *ClientTrace) {
		s := &dumpState{wr: wr, startTime: time.Now()}
		return ctx, &ClientTrace{
			HTTPRequestStart: s.requestStart,
			HTTPRequestDone:  s.requestDone,
			RequestProcessed: s.processed,
		}
	}
}

func (s *dumpState) requestStart(r *http.Request) {
	s.startTime = time.Now()
	s.method = r.Method
	s.uri = r.URL.RequestURI()
	s.requestRaw, _ = httputil.DumpRequestOut(r, true)
}

func (s *dumpState) requestDone(r *http.Response, err error) {
	s.responseErr = err
	// Response is nil on a network error
	if r == nil {
		return
	}
	s.received = true
	s.statusCode = r.StatusCode
	s.headersTime = time.Now()
	if v, dumpErr := httputil.DumpResponse(r, false); dumpErr == nil {
		s.responseRaw = v
	} else {
		s.responseRaw = []byte("cannot dump response headers: " + dumpErr.Error())
	}
}

func (s *dumpState) processed(outcome request.Outcome) {
	// Invalid requests are never sent
	if s.requestRaw != nil {
		s.log()
		s.log(">>>>>> HTTP DUMP")
		s.dump(string(s.requestRaw))
		s.log("------")
		if s.received {
			s.log(strings.TrimSpace(string(s.responseRaw)))
			s.log("------")
			s.dump(outcome.Body)
		} else {
			s.log("ERROR: ", s.responseErr)
		}
		s.log("<<<<<< HTTP DUMP END")
	}

	var headersAt time.Duration
	if !s.headersTime.IsZero() {
		headersAt = s.headersTime.Sub(s.startTime)
	}
	s.log()
	s.log(">>>>>> HTTP REQUEST PROCESSED", "| ", s.method, s.uri, s.statusCode, "|", strings.ToUpper(outcome.State().String()), "| ERROR:", outcome.Err, "| HEADERS AT:", headersAt, "| DONE AT:", time.Since(s.startTime))
}

func (s *dumpState) dump(body string) {
	body = strings.TrimSpace(body)
	if len(body) > dumpTraceMaxLength && os.Getenv("HTTP_DUMP_TRACE_FULL") != "true" { //nolint:forbidigo
		s.log(body[:dumpTraceMaxLength])
		s.log("... (set env HTTP_DUMP_TRACE_FULL=true to see full output)")
	} else {
		s.log(body)
	}
}

func (s *dumpState) log(a ...any) {
	_, _ = fmt.Fprintln(s.wr, a...)
}
