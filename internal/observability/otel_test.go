package observability

import (
	"context"
	"testing"
)

func TestInitOTelDisabledByDefault(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")

	shutdown := InitOTel(context.Background(), nil, OtelConfig{ServiceName: "test"})
	if shutdown != nil {
		t.Fatalf("expected no-op tracing when OTEL_ENABLED is unset")
	}
}

func TestOtelSampleRatio(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"", 0.1},
		{"0.5", 0.5},
		{"-1", 0},
		{"2", 1},
		{"junk", 0.1},
	}
	for _, tc := range cases {
		t.Setenv("OTEL_SAMPLER_RATIO", tc.raw)
		if got := otelSampleRatio(); got != tc.want {
			t.Fatalf("ratio %q: got %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestOtelHeaders(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "a=b, c=d, malformed, =nope, empty=")
	headers := otelHeaders()
	if len(headers) != 2 || headers["a"] != "b" || headers["c"] != "d" {
		t.Fatalf("headers: %v", headers)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")
	if otelHeaders() != nil {
		t.Fatalf("expected nil headers for empty env")
	}
}
