// Package trace extends the httptrace.ClientTrace and adds hooks for the lifecycle of one request.
// A custom ClientTrace definition can be registered in the client.Client by the AndTrace method.
package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"reflect"

	"github.com/keboola/go-ajax/pkg/request"
)

// Factory creates ClientTrace hooks for a request.
type Factory func(ctx context.Context, request request.Request) (context.Context, *ClientTrace)

// ClientTrace is a set of hooks to run at various stages of an outgoing request.
type ClientTrace struct {
	httptrace.ClientTrace // native, low level trace
	// HTTPRequestStart is called when the round trip begins.
	HTTPRequestStart func(request *http.Request)
	// HTTPRequestDone is called when the response headers are received or the round trip failed.
	HTTPRequestDone func(response *http.Response, err error)
	// BodyReadDone is called when the response body is closed.
	BodyReadDone func(response *http.Response, readBytes int64, err error)
	// BodyParseStart is called before the Outcome is resolved from the response.
	BodyParseStart func(response *http.Response)
	// BodyParseDone is called after the Outcome is resolved from the response.
	BodyParseDone func(response *http.Response, outcome request.Outcome)
	// RequestProcessed is called exactly once per request, with the terminal Outcome.
	RequestProcessed func(outcome request.Outcome)
}

// Compose modifies t such that it respects the previously-registered hooks in old.
// Old hooks are called first.
func (t *ClientTrace) Compose(old *ClientTrace) {
	if old == nil {
		return
	}
	tv := reflect.ValueOf(t).Elem()
	ov := reflect.ValueOf(old).Elem()
	composeStruct(tv, ov)
}

func composeStruct(tv, ov reflect.Value) {
	structType := tv.Type()
	for i := 0; i < structType.NumField(); i++ {
		tf := tv.Field(i)
		of := ov.Field(i)

		// Embedded httptrace.ClientTrace
		if tf.Kind() == reflect.Struct {
			composeStruct(tf, of)
			continue
		}

		hookType := tf.Type()
		if hookType.Kind() != reflect.Func || of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call. (Otherwise it
		// creates a recursive call cycle and stack overflows)
		tfCopy := reflect.ValueOf(tf.Interface())
		ofCopy := reflect.ValueOf(of.Interface())
		newFunc := reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			ofCopy.Call(args)
			return tfCopy.Call(args)
		})
		tf.Set(newFunc)
	}
}

// ComposeFactories returns a Factory calling all factories, the hooks are composed in the given order.
func ComposeFactories(factories ...Factory) Factory {
	return func(ctx context.Context, req request.Request) (context.Context, *ClientTrace) {
		var out *ClientTrace
		for _, f := range factories {
			if f == nil {
				continue
			}
			var t *ClientTrace
			ctx, t = f(ctx, req)
			if t == nil {
				continue
			}
			if out == nil {
				out = t
			} else {
				t.Compose(out)
				out = t
			}
		}
		return ctx, out
	}
}
