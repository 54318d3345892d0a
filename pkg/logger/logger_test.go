package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func withObservedLogger(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	original := log
	log = zap.New(core)
	t.Cleanup(func() { log = original })
	return recorded
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "abc-123")
	if got := CorrelationIDFromContext(ctx); got != "abc-123" {
		t.Fatalf("got correlation id %q, want %q", got, "abc-123")
	}
}

func TestCorrelationIDFromBareContext(t *testing.T) {
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty correlation id, got %q", got)
	}
	if got := CorrelationIDFromContext(nil); got != "" {
		t.Fatalf("expected empty correlation id from nil context, got %q", got)
	}
}

func TestInfoContextCarriesCorrelationID(t *testing.T) {
	recorded := withObservedLogger(t)

	ctx := ContextWithCorrelationID(context.Background(), "ctx-id")
	InfoContext(ctx, "dispatching wave")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["correlation_id"]; got != "ctx-id" {
		t.Fatalf("got correlation_id %v, want %q", got, "ctx-id")
	}
}

func TestWithContextWithoutIDAddsNoField(t *testing.T) {
	recorded := withObservedLogger(t)

	WithContext(context.Background()).Info("no id")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if _, present := entries[0].ContextMap()["correlation_id"]; present {
		t.Fatal("correlation_id field should be absent")
	}
}
