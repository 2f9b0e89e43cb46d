package otel

import otelMetric "go.opentelemetry.io/otel/metric"

type meters struct {
	inFlight      otelMetric.Int64UpDownCounter
	duration      otelMetric.Float64Histogram
	outcome       otelMetric.Int64Counter
	bodySize      otelMetric.Int64Histogram
	parseDuration otelMetric.Float64Histogram
}

func newMeters(meter otelMetric.Meter) *meters {
	return &meters{
		inFlight:      upDownCounter(meter, meterPrefix+"request.in_flight", "Requests waiting for an outcome."),
		duration:      histogram(meter, meterPrefix+"request.duration", "Request duration, from send to outcome.", "ms"),
		outcome:       counter(meter, meterPrefix+"request.outcome", "Resolved outcomes by state and failure kind."),
		bodySize:      intHistogram(meter, meterPrefix+"response.body_size", "Size of the response body read from the wire.", "By"),
		parseDuration: histogram(meter, meterPrefix+"request.parse.duration", "Outcome resolving duration, including JSON decoding.", "ms"),
	}
}

func upDownCounter(meter otelMetric.Meter, name, desc string) otelMetric.Int64UpDownCounter {
	return mustInstrument(meter.Int64UpDownCounter(name, otelMetric.WithDescription(desc)))
}

func counter(meter otelMetric.Meter, name, desc string) otelMetric.Int64Counter {
	return mustInstrument(meter.Int64Counter(name, otelMetric.WithDescription(desc)))
}

func histogram(meter otelMetric.Meter, name, desc string, unit string) otelMetric.Float64Histogram {
	return mustInstrument(meter.Float64Histogram(name, otelMetric.WithDescription(desc), otelMetric.WithUnit(unit)))
}

func intHistogram(meter otelMetric.Meter, name, desc string, unit string) otelMetric.Int64Histogram {
	return mustInstrument(meter.Int64Histogram(name, otelMetric.WithDescription(desc), otelMetric.WithUnit(unit)))
}

func mustInstrument[T any](instrument T, err error) T {
	if err != nil {
		panic(err)
	}
	return instrument
}
