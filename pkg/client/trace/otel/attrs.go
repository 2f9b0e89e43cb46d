package otel

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/semconv/v1.18.0/httpconv"

	"github.com/keboola/go-ajax/pkg/request"
)

const maskedAttrValue = "****"

type attributes struct {
	config config
	// definition attributes for span and metrics
	definition []attribute.KeyValue
	// definitionExtra attributes for span only
	definitionExtra []attribute.KeyValue
	// httpRequest attributes for span and metrics
	httpRequest []attribute.KeyValue
	// httpRequestExtra attributes for span only
	httpRequestExtra []attribute.KeyValue
	// httpResponse attributes for span and metrics
	httpResponse []attribute.KeyValue
}

func newAttributes(cfg config, reqDef request.Request) *attributes {
	out := &attributes{config: cfg}

	out.definition = []attribute.KeyValue{
		attribute.String("definition.method", reqDef.Method()),
		attribute.Bool("definition.structured", reqDef.Structured()),
	}
	if reqURL, err := url.Parse(reqDef.Target()); err == nil {
		out.definition = append(out.definition,
			attribute.String("definition.url.host", reqURL.Host),
			attribute.String("definition.url.path", reqURL.Path),
		)
	}

	out.definitionExtra = append(out.definitionExtra, attribute.Int("definition.body.length", len(reqDef.Body())))
	out.definitionExtra = append(out.definitionExtra, headerAttrs(cfg, "definition.header.", reqDef.Header())...)
	return out
}

func (v *attributes) SetFromRequest(req *http.Request) {
	if req == nil {
		v.httpRequest = nil
		v.httpRequestExtra = nil
		return
	}
	v.httpRequest = httpconv.ClientRequest(req)
	v.httpRequestExtra = headerAttrs(v.config, "http.header.", req.Header)
}

func (v *attributes) SetFromResponse(res *http.Response) {
	if res == nil {
		v.httpResponse = nil
		return
	}
	v.httpResponse = httpconv.ClientResponse(res)
}

func outcomeAttrs(outcome request.Outcome) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("outcome.state", outcome.State().String()),
		attribute.String("outcome.failure", outcome.FailureKind()),
		attribute.Int("outcome.status_code", outcome.StatusCode),
		attribute.Bool("outcome.error.cancelled", errors.Is(outcome.Err, context.Canceled)),
		attribute.Bool("outcome.error.deadline_exceeded", errors.Is(outcome.Err, context.DeadlineExceeded)),
	}
}

func headerAttrs(cfg config, prefix string, header http.Header) []attribute.KeyValue {
	if !cfg.headers {
		return nil
	}
	var attrs []attribute.KeyValue
	for key, values := range header {
		key = strings.ToLower(key)
		value := strings.Join(values, ";")
		if cfg.redactedHeaders[key] {
			value = maskedAttrValue
		}
		attrs = append(attrs, attribute.String(prefix+key, value))
	}
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrs[i].Key < attrs[j].Key
	})
	return attrs
}
