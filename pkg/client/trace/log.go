package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/keboola/go-ajax/pkg/request"
)

type logTrace struct {
	ClientTrace
	logger *zap.Logger
}

// LogTracer logs the lifecycle of each request, every request gets a unique "request.id" field.
func LogTracer(logger *zap.Logger) Factory {
	return func(ctx context.Context, reqDef request.Request) (context.Context, *ClientTrace) {
		var connStartTime time.Time
		var startTime time.Time
		var doneTime time.Time

		t := &logTrace{logger: logger.With(
			zap.String("request.id", uuid.NewString()),
			zap.String("request.method", reqDef.Method()),
			zap.String("request.target", reqDef.Target()),
		)}
		t.ConnectStart = func(network, addr string) {
			connStartTime = time.Now()
		}
		t.GotConn = func(info httptrace.GotConnInfo) {
			fields := []zap.Field{zap.Bool("conn.reused", info.Reused)}
			if info.Reused {
				fields = append(fields, zap.Bool("conn.was_idle", info.WasIdle), zap.Duration("conn.idle_time", info.IdleTime))
			} else {
				fields = append(fields, zap.Duration("conn.duration", time.Since(connStartTime)))
			}
			t.logger.Debug("CONN", fields...)
		}
		t.HTTPRequestStart = func(r *http.Request) {
			startTime = time.Now()
			t.logger.Debug("START", zap.String("http.url", r.URL.String()))
		}
		t.HTTPRequestDone = func(r *http.Response, err error) {
			doneTime = time.Now()
			fields := []zap.Field{zap.Duration("duration", doneTime.Sub(startTime))}
			if r != nil {
				fields = append(fields, zap.Int("http.status_code", r.StatusCode))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			t.logger.Debug("DONE", fields...)
		}
		t.RequestProcessed = func(outcome request.Outcome) {
			fields := []zap.Field{
				zap.String("state", outcome.State().String()),
				zap.Int("http.status_code", outcome.StatusCode),
				zap.Int("body.length", len(outcome.Body)),
			}
			if !doneTime.IsZero() {
				fields = append(fields, zap.Duration("body.duration", time.Since(doneTime)))
			}
			if outcome.IsSuccess() {
				t.logger.Info("request succeeded", fields...)
			} else {
				fields = append(fields, zap.String("failure", outcome.FailureKind()), zap.Error(outcome.Err))
				t.logger.Warn("request failed", fields...)
			}
		}
		return ctx, &t.ClientTrace
	}
}
