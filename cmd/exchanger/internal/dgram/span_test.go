package dgram

import (
	"bytes"
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// The package tracer delegates to the first global provider, so every span
// check in this package shares one recorder.
var recorder = tracetest.NewSpanRecorder()

func init() {
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
}

func exchangeSpanStatus(t *testing.T, cfg Config, timeout time.Duration) codes.Code {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	before := len(recorder.Ended())
	_ = Exchange(ctx, cfg, &bytes.Buffer{})

	for _, s := range recorder.Ended()[before:] {
		if s.Name() == "exchange" {
			return s.Status().Code
		}
	}
	t.Fatalf("no exchange span recorded")
	return codes.Unset
}

func TestExchangeSpanStatus(t *testing.T) {
	silentPeer := startPeer(t, "127.0.0.1:0", silent)
	worldPeer := startPeer(t, "127.0.0.1:0", replyWith([]byte("world")))

	var tests = []struct {
		name string
		cfg  func(cfg *Config)
		want codes.Code
	}{
		{"ok", func(cfg *Config) { cfg.Remote = worldPeer.String() }, codes.Unset},
		{"bind", func(cfg *Config) { cfg.Bind = "127.0.0.1:notaport" }, codes.Error},
		{"send", func(cfg *Config) { cfg.Payload = nil }, codes.Error},
		{"receive", func(cfg *Config) { cfg.Remote = silentPeer.String() }, codes.Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.cfg(&cfg)
			if got := exchangeSpanStatus(t, cfg, 200*time.Millisecond); got != tt.want {
				t.Errorf("got status %v, want %v", got, tt.want)
			}
		})
	}
}
