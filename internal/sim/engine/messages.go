package engine

import "agora.ai/internal/sim/world"

// Message is one in-flight note between agents. Sent messages queue during
// the turn and are delivered at the start of the next one.
type Message struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

type messageQueue struct {
	pending []Message
}

func (q *messageQueue) Enqueue(m Message) {
	q.pending = append(q.pending, m)
}

// DeliverAll drains the queue into per-recipient inboxes, resolving sloppy
// recipient names with the roster's first-name fallback. Messages to unknown
// recipients are dropped and returned for logging.
func (q *messageQueue) DeliverAll(roster []string) (inboxes map[string][]Message, dropped []Message) {
	inboxes = map[string][]Message{}
	for _, m := range q.pending {
		to, ok := world.MatchAgent(m.To, roster)
		if !ok {
			dropped = append(dropped, m)
			continue
		}
		inboxes[to] = append(inboxes[to], m)
	}
	q.pending = nil
	return inboxes, dropped
}
