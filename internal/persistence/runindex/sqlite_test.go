package runindex

import (
	"path/filepath"
	"sync"
	"testing"

	"agora.ai/internal/protocol"
	"agora.ai/internal/sim/engine"
	"agora.ai/internal/sim/social"
	"agora.ai/internal/sim/tuning"
	"agora.ai/internal/sim/world"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "run.db"), "run_1")
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSQLiteIndex_TurnsAndNarratives(t *testing.T) {
	idx := openTestIndex(t)

	if err := idx.WriteNarrative(engine.Narrative{
		Turn: 1, Seq: 1, Actor: "A", Kind: protocol.KindImproveFood, OK: true,
		Text: "A improved food.", Deltas: map[string]int{"food": 8, "energy": -3},
	}); err != nil {
		t.Fatalf("write narrative: %v", err)
	}
	if err := idx.WriteTurnSummary(engine.TurnSummary{
		Turn: 1, Crisis: 48, Resources: map[string]int{"food": 58}, AllPassed: false,
	}); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	idx.Flush()

	turns, err := idx.Turns()
	if err != nil {
		t.Fatalf("turns: %v", err)
	}
	if len(turns) != 1 || turns[0].Crisis != 48 || turns[0].Resources["food"] != 58 {
		t.Fatalf("turns = %+v", turns)
	}

	n, err := idx.NarrativeCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("narrative count = %d", n)
	}
}

func TestSQLiteIndex_WriteFinal(t *testing.T) {
	idx := openTestIndex(t)

	ledger := social.NewLedger(50)
	eng := social.NewEngine(ledger, tuning.Defaults().Tables)
	eng.ApplyActionDelta("A", "B", protocol.KindSupportAgent)

	res := engine.Result{
		Turns:  2,
		Reason: engine.ReasonIdleConsensus,
		Final:  world.NewState(tuning.Defaults().World).Snapshot(),
	}
	if err := idx.WriteFinal(res, ledger, []string{"A", "B"}); err != nil {
		t.Fatalf("write final: %v", err)
	}
	if err := idx.SetMeta("reason", res.Reason); err != nil {
		t.Fatalf("set meta: %v", err)
	}
}

func TestSQLiteIndex_WritesRacingCloseDoNotPanic(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "run.db"), "run_1")
	if err != nil {
		t.Fatalf("open index: %v", err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				// Errors are fine once closed; a panic fails the test.
				_ = idx.WriteNarrative(engine.Narrative{Turn: 1, Seq: i, Actor: "A", Kind: protocol.KindPass, Text: "passed"})
				_ = idx.WriteTurnSummary(engine.TurnSummary{Turn: i})
			}
		}()
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wg.Wait()
	idx.Flush()
}

func TestSQLiteIndex_ClosedRejectsWrites(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "run.db"), "run_1")
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.WriteNarrative(engine.Narrative{}); err == nil {
		t.Fatalf("expected error after close")
	}
}
