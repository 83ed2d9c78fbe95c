package emit

import (
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingEmitter() (*OTelEmitter, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewOTelEmitter(provider.Tracer("test")), recorder
}

func TestOTelEmitter_SpanPerEvent(t *testing.T) {
	emitter, recorder := newRecordingEmitter()

	emitter.Emit(Event{
		RunID:  "run-001",
		Step:   2,
		NodeID: "reflection",
		Msg:    "node completed",
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "node completed" {
		t.Errorf("expected span named after msg, got %q", span.Name())
	}

	attrs := map[string]interface{}{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs["run_id"] != "run-001" {
		t.Errorf("expected run_id attribute, got %v", attrs["run_id"])
	}
	if attrs["node_id"] != "reflection" {
		t.Errorf("expected node_id attribute, got %v", attrs["node_id"])
	}
	if attrs["step"] != int64(2) {
		t.Errorf("expected step attribute, got %v", attrs["step"])
	}
}

func TestOTelEmitter_MetaAttributes(t *testing.T) {
	emitter, recorder := newRecordingEmitter()

	emitter.Emit(Event{
		RunID:  "run-002",
		NodeID: "web_research_search",
		Msg:    "fan-out branch merged",
		Meta: map[string]interface{}{
			"branch":   1,
			"branches": 3,
		},
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	attrs := map[string]interface{}{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs["branch"] != int64(1) || attrs["branches"] != int64(3) {
		t.Errorf("expected branch meta attributes, got %v", attrs)
	}
}

func TestOTelEmitter_ErrorStatus(t *testing.T) {
	emitter, recorder := newRecordingEmitter()

	emitter.Emit(Event{
		RunID:  "run-003",
		NodeID: "generate_query",
		Msg:    "node failed",
		Meta:   map[string]interface{}{"error": "query generation failed"},
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Description != "query generation failed" {
		t.Errorf("expected error status, got %+v", spans[0].Status())
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected recorded error event on span")
	}
}
