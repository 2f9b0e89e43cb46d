package request

import (
	"context"
)

// Sender represents an HTTP transport adapter, the client.Client is a default implementation using the standard net/http package.
type Sender interface {
	// Send performs exactly one round trip for the request and returns its terminal Outcome.
	// Implementations build the Outcome by Resolve or TransportFailure, so the Success/Failure rules are shared.
	Send(ctx context.Context, request Request) Outcome
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, request Request) Outcome

func (f SenderFunc) Send(ctx context.Context, request Request) Outcome {
	return f(ctx, request)
}
