package ctxutil

import (
	"context"
	"testing"
)

func TestLogFields(t *testing.T) {
	if got := LogFields(context.Background()); got != nil {
		t.Fatalf("expected no fields, got %v", got)
	}
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t1"})
	got := LogFields(ctx)
	if len(got) != 2 || got[0] != "trace_id" || got[1] != "t1" {
		t.Fatalf("unexpected fields %v", got)
	}
	ctx = WithTraceData(context.Background(), &TraceData{TraceID: "t1", RequestID: "r1"})
	if got := LogFields(ctx); len(got) != 4 {
		t.Fatalf("expected 4 entries, got %v", got)
	}
}

func TestGetTraceDataNilContext(t *testing.T) {
	if GetTraceData(nil) != nil {
		t.Fatal("nil context should yield nil trace data")
	}
	if Default(nil) == nil {
		t.Fatal("Default(nil) returned nil")
	}
}
