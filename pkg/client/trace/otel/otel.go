// Package otel provides OpenTelemetry tracing and metrics for requests sent by the client.Client.
//
// Spans:
//   - "ajax.request" wraps the whole request, from send to the terminal outcome.
//   - "http.request" tracks the round trip until the response headers are received.
//   - "http.dns" and "http.connect" track low-level connection setup.
//   - "ajax.request.body.parse" tracks resolving of the outcome, including JSON decoding.
//
// Metrics names start with "ajax." (meterPrefix const), see the meters struct.
package otel

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/keboola/go-ajax/pkg/client/trace"
	"github.com/keboola/go-ajax/pkg/request"
)

const (
	traceAppName        = "github.com/keboola/go-ajax"
	meterPrefix         = "ajax."
	requestSpanName     = "ajax.request"
	bodyParseSpanName   = "ajax.request.body.parse"
	httpRequestSpanName = "http.request"
	httpDNSSpanName     = "http.dns"
	httpConnectSpanName = "http.connect"
	attrResourceName    = attribute.Key("resource.name")
	attrDNSAddresses    = attribute.Key("http.dns.addrs")
	attrRemoteAddr      = attribute.Key("http.remote")
	attrReadBytes       = attribute.Key("http.read_bytes")
)

// NewTrace creates trace hooks reporting spans to the tracerProvider and metrics to the meterProvider.
// Nil providers are replaced by no-op implementations.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(traceAppName)
	meters := newMeters(meterProvider.Meter(traceAppName))

	return func(rootCtx context.Context, reqDef request.Request) (context.Context, *trace.ClientTrace) {
		tc := &trace.ClientTrace{}
		attrs := newAttributes(cfg, reqDef)

		// Root span and metrics
		var rootSpan otelTrace.Span
		startTime := time.Now()
		meters.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.definition...))
		rootCtx, rootSpan = tracer.Start(
			rootCtx,
			requestSpanName,
			otelTrace.WithSpanKind(otelTrace.SpanKindClient),
			otelTrace.WithAttributes(attrs.definition...),
			otelTrace.WithAttributes(attrs.definitionExtra...),
		)
		tc.RequestProcessed = func(outcome request.Outcome) {
			elapsedTime := float64(time.Since(startTime)) / float64(time.Millisecond)
			resultAttrs := outcomeAttrs(outcome)

			// Metrics, in flight counter must use the same attributes as above
			meters.inFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.definition...))
			meters.duration.Record(rootCtx, elapsedTime, otelMetric.WithAttributes(attrs.definition...), otelMetric.WithAttributes(resultAttrs...))
			meters.outcome.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.definition...), otelMetric.WithAttributes(resultAttrs...))

			// Tracing
			rootSpan.SetAttributes(attrs.httpResponse...)
			rootSpan.SetAttributes(resultAttrs...)
			if outcome.IsSuccess() {
				rootSpan.End()
			} else {
				rootSpan.RecordError(outcome.Err)
				rootSpan.SetStatus(codes.Error, outcome.Err.Error())
				rootSpan.End()
			}
		}

		// HTTP round trip
		httpCtx := rootCtx
		var httpRequestSpan otelTrace.Span
		tc.HTTPRequestStart = func(req *http.Request) {
			httpCtx, httpRequestSpan = tracer.Start(
				rootCtx,
				httpRequestSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
			)
			if cfg.propagators != nil {
				cfg.propagators.Inject(httpCtx, propagation.HeaderCarrier(req.Header))
			}
			attrs.SetFromRequest(req)
			httpRequestSpan.SetAttributes(attrResourceName.String(req.URL.Path))
			httpRequestSpan.SetAttributes(attrs.httpRequest...)
			httpRequestSpan.SetAttributes(attrs.httpRequestExtra...)
		}
		tc.HTTPRequestDone = func(res *http.Response, err error) {
			attrs.SetFromResponse(res)
			if httpRequestSpan == nil {
				return
			}
			httpRequestSpan.SetAttributes(attrs.httpResponse...)
			if err != nil {
				httpRequestSpan.RecordError(err)
				httpRequestSpan.SetStatus(codes.Error, err.Error())
			}
			httpRequestSpan.End()
			httpRequestSpan = nil
		}
		tc.BodyReadDone = func(res *http.Response, readBytes int64, err error) {
			meters.bodySize.Record(rootCtx, readBytes, otelMetric.WithAttributes(attrs.definition...), otelMetric.WithAttributes(attrs.httpResponse...))
			rootSpan.SetAttributes(attrReadBytes.Int64(readBytes))
		}

		// Outcome resolving
		var bodyParseStart time.Time
		var bodyParseSpan otelTrace.Span
		tc.BodyParseStart = func(res *http.Response) {
			bodyParseStart = time.Now()
			_, bodyParseSpan = tracer.Start(
				rootCtx,
				bodyParseSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				otelTrace.WithAttributes(attrs.httpResponse...),
			)
		}
		tc.BodyParseDone = func(res *http.Response, outcome request.Outcome) {
			elapsedTime := float64(time.Since(bodyParseStart)) / float64(time.Millisecond)
			meters.parseDuration.Record(rootCtx, elapsedTime, otelMetric.WithAttributes(attrs.definition...))
			if bodyParseSpan == nil {
				return
			}
			if outcome.FailureKind() == "decode" {
				bodyParseSpan.RecordError(outcome.Err)
				bodyParseSpan.SetStatus(codes.Error, outcome.Err.Error())
			}
			bodyParseSpan.End()
			bodyParseSpan = nil
		}

		// Low-level tracing
		var dnsSpan otelTrace.Span
		tc.DNSStart = func(info httptrace.DNSStartInfo) {
			_, dnsSpan = tracer.Start(httpCtx, httpDNSSpanName, otelTrace.WithAttributes(semconv.NetHostName(info.Host)))
		}
		tc.DNSDone = func(info httptrace.DNSDoneInfo) {
			if dnsSpan == nil {
				return
			}
			var addrs []string
			for _, netAddr := range info.Addrs {
				addrs = append(addrs, netAddr.String())
			}
			dnsSpan.SetAttributes(attrDNSAddresses.String(strings.Join(addrs, ";")))
			if info.Err != nil {
				dnsSpan.RecordError(info.Err)
				dnsSpan.SetStatus(codes.Error, info.Err.Error())
			}
			dnsSpan.End()
			dnsSpan = nil
		}
		var connectSpan otelTrace.Span
		tc.ConnectStart = func(network, addr string) {
			_, connectSpan = tracer.Start(httpCtx, httpConnectSpanName, otelTrace.WithAttributes(attrRemoteAddr.String(addr)))
		}
		tc.ConnectDone = func(network, addr string, err error) {
			if connectSpan == nil {
				return
			}
			if err != nil {
				connectSpan.RecordError(err)
				connectSpan.SetStatus(codes.Error, err.Error())
			}
			connectSpan.End()
			connectSpan = nil
		}

		return rootCtx, tc
	}
}
