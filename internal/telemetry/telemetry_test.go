package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, err := Init(context.Background(), "animedash")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampleRate(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"", 0.1},
		{"0.5", 0.5},
		{"1", 1},
		{"2", 0.1},
		{"-0.1", 0.1},
		{"half", 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("OTEL_TRACE_SAMPLE_RATE", tt.raw)
			assert.Equal(t, tt.want, sampleRate())
		})
	}
}
