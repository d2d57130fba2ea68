package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestEmitLogsEventAndHash(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := New(logger)

	sink.Emit(context.Background(), "PaymentHeld", map[string]any{"payment_id": 1})

	out := buf.String()
	if !strings.Contains(out, "PaymentHeld") {
		t.Fatalf("expected log line to contain event name, got %q", out)
	}
	if !strings.Contains(out, "event_hash=") {
		t.Fatalf("expected log line to contain event_hash, got %q", out)
	}
}

func TestEmitInvokesPersistHook(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := New(logger)

	var gotName, gotHash string
	sink = sink.WithPersist(func(_ context.Context, name, hash string, fields map[string]any) {
		gotName = name
		gotHash = hash
	})

	sink.Emit(context.Background(), "ReceiptConsumed", map[string]any{"asset_id": 1})
	if gotName != "ReceiptConsumed" {
		t.Fatalf("expected persist hook to receive event name, got %q", gotName)
	}
	if gotHash == "" {
		t.Fatalf("expected persist hook to receive a non-empty hash")
	}
}

func TestCanonicalSHA256IsStableAcrossKeyOrder(t *testing.T) {
	a := canonicalSHA256(map[string]any{"x": 1, "y": 2})
	b := canonicalSHA256(map[string]any{"y": 2, "x": 1})
	if a != b {
		t.Fatalf("expected hash to be stable regardless of map iteration order, got %q vs %q", a, b)
	}
}
