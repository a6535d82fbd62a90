package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	prev := otel.GetTracerProvider()
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestStage_Success(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := StartStage(context.Background(), "sequence", Attr("cases", 3))
	SetAttributes(ctx, Attr("workers", 4))
	EndStage(span, nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "sequence" {
		t.Errorf("Expected span name 'sequence', got %q", s.Name())
	}
	if s.Status().Code == codes.Error {
		t.Error("Expected non-error status")
	}
	if len(s.Attributes()) != 2 {
		t.Errorf("Expected 2 attributes, got %d", len(s.Attributes()))
	}
}

func TestStage_Error(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartStage(context.Background(), "load")
	EndStage(span, errors.New("boom"))

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "boom" {
		t.Errorf("Expected error status, got %+v", s.Status())
	}
	if len(s.Events()) != 1 {
		t.Errorf("Expected recorded error event, got %d events", len(s.Events()))
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), DefaultConfig("claimflow", "test"))
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Expected no-op shutdown, got %v", err)
	}
}

func TestAttr(t *testing.T) {
	tests := []struct {
		value interface{}
		want  attribute.Type
	}{
		{"x", attribute.STRING},
		{3, attribute.INT64},
		{int64(3), attribute.INT64},
		{1.5, attribute.FLOAT64},
		{true, attribute.BOOL},
		{[]string{"a"}, attribute.STRINGSLICE},
		{struct{}{}, attribute.STRING},
	}
	for _, tt := range tests {
		if got := Attr("k", tt.value).Value.Type(); got != tt.want {
			t.Errorf("Attr(%v) type = %v, want %v", tt.value, got, tt.want)
		}
	}
}
