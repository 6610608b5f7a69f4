package engine

import "agora.ai/internal/sim/world"

// trendTracker keeps a short window of per-agent resource snapshots so the
// observation can carry direction markers instead of asking the reasoning
// collaborator to infer trends itself.
type trendTracker struct {
	window  int
	history map[string][]map[string]int
}

func newTrendTracker(window int) *trendTracker {
	return &trendTracker{window: window, history: map[string][]map[string]int{}}
}

func (t *trendTracker) Record(agent string, snap world.Snapshot) {
	h := append(t.history[agent], snap.Resources)
	if len(h) > t.window {
		h = h[len(h)-t.window:]
	}
	t.history[agent] = h
}

// Trends compares the oldest and newest snapshots in the window.
func (t *trendTracker) Trends(agent string) map[string]string {
	h := t.history[agent]
	if len(h) < 2 {
		return nil
	}
	oldest, newest := h[0], h[len(h)-1]
	out := make(map[string]string, len(newest))
	for _, res := range world.Resources() {
		switch {
		case newest[res] > oldest[res]:
			out[res] = "rising"
		case newest[res] < oldest[res]:
			out[res] = "falling"
		default:
			out[res] = "stable"
		}
	}
	return out
}
