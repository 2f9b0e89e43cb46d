package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Ajax sends a single request and returns a channel with its Outcome.
// Empty method means GET, nil headers mean no custom headers.
func Ajax(ctx context.Context, sender Sender, target string, headers map[string]string, method, body string, structured bool) <-chan Outcome {
	return New(target).
		WithMethod(method).
		WithHeaders(headers).
		WithBody(body).
		WithStructured(structured).
		Go(ctx, sender)
}

// Go sends the request in the background.
// The returned channel receives exactly one Outcome and then it is closed.
func (r Request) Go(ctx context.Context, sender Sender) <-chan Outcome {
	done := make(chan Outcome, 1)
	go func() {
		defer close(done)
		done <- r.Send(ctx, sender)
	}()
	return done
}

// Send sends the request and waits for its Outcome.
func (r Request) Send(ctx context.Context, sender Sender) (out Outcome) {
	if err := r.Validate(); err != nil {
		return TransportFailure(r, err)
	}

	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return TransportFailure(r, err)
	}

	defer func() {
		if v := recover(); v != nil {
			out = TransportFailure(r, fmt.Errorf("sender panic: %v", v))
		}
	}()

	return settle(r, sender.Send(ctx, r))
}

// settle makes sure an Outcome reported as a Success has the status code 200,
// regardless of how the Sender built it.
func settle(r Request, out Outcome) Outcome {
	if out.Err != nil {
		return out
	}
	switch out.StatusCode {
	case http.StatusOK:
		return out
	case 0:
		return TransportFailure(r, errors.New("no response received"))
	default:
		out.Err = &StatusError{Method: r.Method(), URL: r.Target(), StatusCode: out.StatusCode, Body: out.Body}
		out.Value = nil
		return out
	}
}
