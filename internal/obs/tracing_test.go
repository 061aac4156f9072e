package obs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{
		ServiceName:   "costs-api-test",
		SamplingRatio: 0, // out of range, sampler falls back to always-on
		Environment:   "test",
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok)

	// Nothing was recorded, so shutdown flushes an empty queue.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx))
}
