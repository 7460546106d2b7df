package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "verishda", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestExporterOptions(t *testing.T) {
	t.Run("bare host and port", func(t *testing.T) {
		require.Len(t, exporterOptions("collector:4318"), 2)
	})

	t.Run("https url with path", func(t *testing.T) {
		require.Len(t, exporterOptions("https://collector.example.com/otlp/v1/traces"), 2)
	})

	t.Run("plain http url", func(t *testing.T) {
		require.Len(t, exporterOptions("http://localhost:4318"), 2)
	})
}
