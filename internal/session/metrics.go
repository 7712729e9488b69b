package session

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	tracer = otel.Tracer("session")
	meter  = otel.Meter("session")

	movesCounter  = newCounter("session.moves", "Marks placed on the board")
	roundsCounter = newCounter("session.rounds", "Rounds finished, by outcome")
)

func newCounter(name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		otel.Handle(err)
		return noop.Int64Counter{}
	}
	return counter
}
