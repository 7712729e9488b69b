package telemetry

import (
	"context"
	"testing"

	"ctchen222/Tic-Tac-Toe-Solo/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitOtel_Local(t *testing.T) {
	ctx := context.Background()

	shutdown, err := InitOtel(ctx, config.Telemetry{ServiceName: "telemetry-test"})
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(ctx, "probe")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	counter, err := otel.Meter("telemetry-test").Int64Counter("probe")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	assert.NoError(t, shutdown(ctx))
}

func TestInitOtel_WithEndpoint(t *testing.T) {
	ctx := context.Background()

	// grpc.NewClient connects lazily, so an unreachable endpoint is fine until export.
	shutdown, err := InitOtel(ctx, config.Telemetry{ServiceName: "telemetry-test", OTLPEndpoint: "localhost:1"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_ = shutdown(cancelled)
}
