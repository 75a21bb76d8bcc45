package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/Tyrowin/gonotify/internal/config"
)

func TestSetupDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.TelemetryConfig
	}{
		{"disabled", config.TelemetryConfig{Enabled: false, Endpoint: "http://collector:4318"}},
		{"no endpoint", config.TelemetryConfig{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := otel.GetTracerProvider()

			shutdown, err := Setup(context.Background(), tt.cfg)
			if err != nil {
				t.Fatalf("Setup() error = %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Errorf("shutdown() error = %v", err)
			}
			if otel.GetTracerProvider() != before {
				t.Error("Setup replaced the global provider while disabled")
			}
		})
	}
}

func TestSetupEnabled(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	cfg := config.TelemetryConfig{
		Enabled:     true,
		Endpoint:    "http://127.0.0.1:4318/v1/traces",
		ServiceName: "gonotify-test",
	}
	shutdown, err := Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if otel.GetTracerProvider() == before {
		t.Error("Setup did not install a provider")
	}

	// Nothing was recorded, so shutdown has nothing to export.
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}
