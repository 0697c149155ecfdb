package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"task-api/internal/infrastructure/config"
)

func TestFanoutHandler(t *testing.T) {
	var info, debug bytes.Buffer
	h := fanoutHandler{
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	logger := slog.New(h).With("component", "test")

	logger.Debug("debug only")
	logger.Info("both")

	if strings.Contains(info.String(), "debug only") {
		t.Fatalf("info handler received a debug record: %q", info.String())
	}
	for name, out := range map[string]string{"info": info.String(), "debug": debug.String()} {
		if !strings.Contains(out, "msg=both") || !strings.Contains(out, "component=test") {
			t.Fatalf("%s handler output missing record or attrs: %q", name, out)
		}
	}
	if !strings.Contains(debug.String(), "debug only") {
		t.Fatalf("debug handler missed the debug record: %q", debug.String())
	}
	if h.Enabled(context.Background(), slog.LevelDebug-1) {
		t.Fatalf("no handler accepts levels below debug")
	}
}

func TestBasicAuthHeaders(t *testing.T) {
	if got := basicAuthHeaders(config.OtelConfig{Username: "user"}); got != nil {
		t.Fatalf("expected no headers without a password, got %v", got)
	}
	got := basicAuthHeaders(config.OtelConfig{Username: "user", Password: "pass"})
	if got["Authorization"] != "Basic dXNlcjpwYXNz" {
		t.Fatalf("Authorization = %q", got["Authorization"])
	}
}

func TestSetup_Disabled(t *testing.T) {
	defer SetLogVerbosity(GetLogVerbosity())
	defer slog.SetDefault(slog.Default())

	tel, shutdown, err := Setup(context.Background(), config.OtelConfig{LogVerbosity: 1, LogOutput: "stderr"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if tel.TracerProvider != nil || tel.Tracer == nil || tel.EntityCounter == nil {
		t.Fatalf("disabled setup should return noop telemetry, got %+v", tel)
	}
	if tel.LogVerbosity != 1 {
		t.Fatalf("LogVerbosity = %d", tel.LogVerbosity)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
