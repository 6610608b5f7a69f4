// Command replay prints the narrative record of a finished run from its
// compressed event log.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "agora.ai/internal/persistence/log"
	"agora.ai/internal/sim/engine"
)

func main() {
	var (
		runDir   = flag.String("run", "", "run directory containing events.jsonl.zst")
		fromTurn = flag.Int("from_turn", 0, "start at turn (inclusive, optional)")
		toTurn   = flag.Int("to_turn", 0, "stop at turn (inclusive, optional)")
		actor    = flag.String("actor", "", "only show this actor's steps (optional)")
		failures = flag.Bool("failures", false, "only show downgraded or failed steps")
	)
	flag.Parse()

	if *runDir == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}

	path := filepath.Join(*runDir, "events.jsonl.zst")
	narratives, summaries, err := persistlog.ReadEvents(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read events:", err)
		os.Exit(1)
	}

	byTurn := map[int]engine.TurnSummary{}
	lastTurn := 0
	for _, s := range summaries {
		byTurn[s.Turn] = s
		if s.Turn > lastTurn {
			lastTurn = s.Turn
		}
	}

	turn := 0
	shown := 0
	for _, n := range narratives {
		if n.Turn < *fromTurn {
			continue
		}
		if *toTurn != 0 && n.Turn > *toTurn {
			break
		}
		if *actor != "" && n.Actor != *actor {
			continue
		}
		if *failures && n.OK {
			continue
		}
		if n.Turn != turn {
			if s, ok := byTurn[turn]; ok && turn != 0 {
				printSummary(s)
			}
			turn = n.Turn
			fmt.Printf("--- turn %d ---\n", turn)
		}
		printNarrative(n)
		shown++
	}
	if s, ok := byTurn[turn]; ok && turn != 0 {
		printSummary(s)
	}

	fmt.Printf("%d steps shown (%d turns recorded)\n", shown, lastTurn)
}

func printNarrative(n engine.Narrative) {
	status := "ok"
	if !n.OK {
		status = n.Code
	}
	fmt.Printf("  [%d] %-24s %-22s %s  %s\n", n.Seq, n.Actor, n.Kind, status, n.Text)
	for _, d := range n.RelationshipDeltas {
		fmt.Printf("        %s -> %s: trust %+d resentment %+d\n", d.Observer, d.Subject, d.Trust, d.Resentment)
	}
}

func printSummary(s engine.TurnSummary) {
	fmt.Printf("  turn %d end: crisis=%d resources=%v all_passed=%v\n", s.Turn, s.Crisis, s.Resources, s.AllPassed)
}
