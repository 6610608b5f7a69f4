package log

import (
	"path/filepath"
	"testing"

	"agora.ai/internal/sim/engine"
)

func TestNarrativeLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l, err := NewNarrativeLogger(dir)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	n1 := engine.Narrative{Turn: 1, Seq: 1, Actor: "A", Kind: "improve_food", OK: true, Text: "A improved food.", Deltas: map[string]int{"food": 8, "energy": -3}}
	n2 := engine.Narrative{Turn: 1, Seq: 2, Actor: "B", Kind: "pass", OK: false, Code: "E_UNAFFORDABLE", Text: "B cannot afford improve_food."}
	sum := engine.TurnSummary{Turn: 1, Crisis: 48, Resources: map[string]int{"food": 58}}

	if err := l.WriteNarrative(n1); err != nil {
		t.Fatalf("write n1: %v", err)
	}
	if err := l.WriteNarrative(n2); err != nil {
		t.Fatalf("write n2: %v", err)
	}
	if err := l.WriteTurnSummary(sum); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	narratives, summaries, err := ReadEvents(filepath.Join(dir, "events.jsonl.zst"))
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(narratives) != 2 || len(summaries) != 1 {
		t.Fatalf("got %d narratives, %d summaries", len(narratives), len(summaries))
	}
	if narratives[0].Seq != 1 || narratives[1].Code != "E_UNAFFORDABLE" {
		t.Fatalf("narratives = %+v", narratives)
	}
	if narratives[0].Deltas["food"] != 8 {
		t.Fatalf("deltas = %+v", narratives[0].Deltas)
	}
	if summaries[0].Crisis != 48 {
		t.Fatalf("summary = %+v", summaries[0])
	}
}

func TestJSONLZstdWriter_WriteAfterClose(t *testing.T) {
	dir := t.TempDir()
	w, err := NewJSONLZstdWriter(filepath.Join(dir, "x.jsonl.zst"))
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Write(map[string]int{"a": 1}); err == nil {
		t.Fatalf("expected error writing after close")
	}
	// Double close is fine.
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
