package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer_InstallsGlobalProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	tp, err := InitTracer(context.Background(), "a2ui-test", "127.0.0.1:4318")
	require.NoError(t, err)
	assert.Same(t, tp, otel.GetTracerProvider())

	assert.NoError(t, Shutdown(context.Background(), tp))
}
