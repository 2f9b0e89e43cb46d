package otel_test

import (
	"context"
	"net/http"
	"sort"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/keboola/go-ajax/pkg/client"
	"github.com/keboola/go-ajax/pkg/client/trace/otel"
	"github.com/keboola/go-ajax/pkg/request"
)

type testEnv struct {
	client        client.Client
	transport     *httpmock.MockTransport
	spans         *tracetest.InMemoryExporter
	metricsReader *metric.ManualReader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	spans := tracetest.NewInMemoryExporter()
	tracerProvider := trace.NewTracerProvider(trace.WithSyncer(spans))
	reader := metric.NewManualReader()
	meterProvider := metric.NewMeterProvider(metric.WithReader(reader))

	transport := httpmock.NewMockTransport()
	c := client.New().
		WithTransport(transport).
		AndTrace(otel.NewTrace(
			tracerProvider,
			meterProvider,
			otel.WithRedactedHeaders("X-Api-Key"),
			otel.WithPropagators(propagation.TraceContext{}),
		))

	return &testEnv{client: c, transport: transport, spans: spans, metricsReader: reader}
}

func TestNewTrace_Success(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	env.transport.RegisterResponder("GET", "https://example.com/api/items", func(req *http.Request) (*http.Response, error) {
		// Trace context is propagated
		assert.NotEmpty(t, req.Header.Get("Traceparent"))
		return httpmock.NewStringResponse(http.StatusOK, `{"items":[1,2,3]}`), nil
	})

	out := <-request.New("https://example.com/api/items").
		AndHeader("Authorization", "Bearer secret").
		AndHeader("X-Api-Key", "secret").
		AndHeader("X-Public", "visible").
		WithStructured(true).
		Go(ctx, env.client)
	require.True(t, out.IsSuccess())

	// Assert spans
	spans := env.spans.GetSpans()
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Name < spans[j].Name
	})
	var spanNames []string
	for _, span := range spans {
		spanNames = append(spanNames, span.Name)

		// All spans must be finished
		assert.NotZero(t, span.StartTime)
		assert.NotZero(t, span.EndTime)
	}
	assert.Equal(t, []string{"ajax.request", "ajax.request.body.parse", "http.request"}, spanNames)

	root := spans[0]
	assert.Equal(t, codes.Unset, root.Status.Code)
	assert.Equal(t, "GET", attr(root.Attributes, "definition.method").AsString())
	assert.True(t, attr(root.Attributes, "definition.structured").AsBool())
	assert.Equal(t, "example.com", attr(root.Attributes, "definition.url.host").AsString())
	assert.Equal(t, "/api/items", attr(root.Attributes, "definition.url.path").AsString())
	assert.Equal(t, "****", attr(root.Attributes, "definition.header.authorization").AsString())
	assert.Equal(t, "****", attr(root.Attributes, "definition.header.x-api-key").AsString())
	assert.Equal(t, "visible", attr(root.Attributes, "definition.header.x-public").AsString())
	assert.Equal(t, "succeeded", attr(root.Attributes, "outcome.state").AsString())
	assert.Equal(t, int64(200), attr(root.Attributes, "outcome.status_code").AsInt64())
	assert.Equal(t, int64(17), attr(root.Attributes, "http.read_bytes").AsInt64())

	// Child spans
	for _, span := range spans[1:] {
		assert.Equal(t, root.SpanContext.TraceID(), span.SpanContext.TraceID())
		assert.Equal(t, root.SpanContext.SpanID(), span.Parent.SpanID())
	}
	assert.Equal(t, "/api/items", attr(spans[2].Attributes, "resource.name").AsString())

	// Assert metrics
	rm := metricdata.ResourceMetrics{}
	require.NoError(t, env.metricsReader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	metrics := rm.ScopeMetrics[0].Metrics
	sort.SliceStable(metrics, func(i, j int) bool {
		return metrics[i].Name < metrics[j].Name
	})
	var metricNames []string
	for _, m := range metrics {
		metricNames = append(metricNames, m.Name)
	}
	assert.Equal(t, []string{
		"ajax.request.duration",
		"ajax.request.in_flight",
		"ajax.request.outcome",
		"ajax.request.parse.duration",
		"ajax.response.body_size",
	}, metricNames)

	// Nothing is in flight after the outcome
	inFlight := metrics[1].Data.(metricdata.Sum[int64])
	for _, dp := range inFlight.DataPoints {
		assert.Equal(t, int64(0), dp.Value)
	}

	// One successful outcome
	outcomes := metrics[2].Data.(metricdata.Sum[int64])
	require.Len(t, outcomes.DataPoints, 1)
	assert.Equal(t, int64(1), outcomes.DataPoints[0].Value)
	state, _ := outcomes.DataPoints[0].Attributes.Value("outcome.state")
	assert.Equal(t, "succeeded", state.AsString())
}

func TestNewTrace_Failures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)

	env.transport.RegisterResponder("GET", "https://example.com/missing", httpmock.NewStringResponder(http.StatusNotFound, "missing"))
	env.transport.RegisterResponder("GET", "https://example.com/invalid", httpmock.NewStringResponder(http.StatusOK, "{a:"))

	out := <-request.New("https://example.com/missing").Go(ctx, env.client)
	require.Equal(t, "status", out.FailureKind())
	out = <-request.New("https://example.com/invalid").WithStructured(true).Go(ctx, env.client)
	require.Equal(t, "decode", out.FailureKind())

	byPath := make(map[string]tracetest.SpanStub)
	var parseSpans []tracetest.SpanStub
	for _, span := range env.spans.GetSpans() {
		switch span.Name {
		case "ajax.request":
			byPath[attr(span.Attributes, "definition.url.path").AsString()] = span
		case "ajax.request.body.parse":
			parseSpans = append(parseSpans, span)
		}
	}

	missing := byPath["/missing"]
	assert.Equal(t, codes.Error, missing.Status.Code)
	assert.Equal(t, `request GET "https://example.com/missing" failed: 404 Not Found`, missing.Status.Description)
	assert.Equal(t, "status", attr(missing.Attributes, "outcome.failure").AsString())
	assert.Equal(t, int64(404), attr(missing.Attributes, "outcome.status_code").AsInt64())

	invalid := byPath["/invalid"]
	assert.Equal(t, codes.Error, invalid.Status.Code)
	assert.Equal(t, "decode", attr(invalid.Attributes, "outcome.failure").AsString())

	// Only the decode failure marks the parse span
	require.Len(t, parseSpans, 2)
	var errorParseSpans int
	for _, span := range parseSpans {
		if span.Status.Code == codes.Error {
			errorParseSpans++
		}
	}
	assert.Equal(t, 1, errorParseSpans)
}

func TestNewTrace_NilProviders(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com", httpmock.NewStringResponder(http.StatusOK, "OK"))
	c := client.New().WithTransport(transport).AndTrace(otel.NewTrace(nil, nil))

	out := <-request.New("https://example.com").Go(context.Background(), c)
	assert.True(t, out.IsSuccess())
}

func TestNewPrometheusMeterProvider(t *testing.T) {
	t.Parallel()

	res, err := resource.New(context.Background())
	require.NoError(t, err)
	provider, err := otel.NewPrometheusMeterProvider(res)
	require.NoError(t, err)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func attr(attrs []attribute.KeyValue, key string) attribute.Value {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestNewTrace_WithoutHeaders(t *testing.T) {
	t.Parallel()

	spans := tracetest.NewInMemoryExporter()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com", httpmock.NewStringResponder(http.StatusOK, "OK"))
	c := client.New().
		WithTransport(transport).
		AndTrace(otel.NewTrace(trace.NewTracerProvider(trace.WithSyncer(spans)), nil, otel.WithoutHeaders()))

	out := <-request.New("https://example.com").AndHeader("X-Public", "visible").Go(context.Background(), c)
	require.True(t, out.IsSuccess())

	for _, span := range spans.GetSpans() {
		for _, kv := range span.Attributes {
			assert.NotContains(t, string(kv.Key), ".header.")
		}
	}
}
