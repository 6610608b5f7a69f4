// Command bot is a scripted reasoning client for local runs and load tests.
// It claims a persona, then answers each OBS with the viable action whose
// advertised bias is highest.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"

	"github.com/gorilla/websocket"

	"agora.ai/internal/protocol"
)

func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "", "persona name to claim (exact or first name)")
	)
	flag.Parse()
	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: bot -name <persona> [-url ws://...]")
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       *name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 8},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME agent_id=%s max_turns=%d agents=%d", w.AgentID, w.SimParams.MaxTurns, len(w.SimParams.Agents))

		case protocol.TypeObs:
			var obs protocol.ObsMsg
			if err := json.Unmarshal(msg, &obs); err != nil {
				continue
			}
			act := protocol.ActMsg{
				Type:            protocol.TypeAct,
				ProtocolVersion: protocol.Version,
				Turn:            obs.Turn,
				AgentID:         obs.AgentID,
				Action:          chooseAction(&obs.Observation),
			}
			_ = conn.WriteJSON(act)

		case protocol.TypeBye:
			var bye protocol.ByeMsg
			if err := json.Unmarshal(msg, &bye); err != nil {
				continue
			}
			logger.Printf("BYE turn=%d reason=%s", bye.Turn, bye.Reason)
			return
		}
	}
}

// chooseAction picks the viable candidate with the highest bias. Ties break
// on kind name so two bots never diverge on the same observation.
func chooseAction(obs *protocol.Observation) protocol.ActionRequest {
	affordable := map[string]bool{}
	for _, a := range obs.Affordability {
		affordable[a.Kind] = a.Affordable
	}

	kinds := make([]string, 0, len(obs.Biases))
	for kind := range obs.Biases {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	best := protocol.ActionRequest{Kind: protocol.KindPass, Reason: "no viable action"}
	bestBias := -1.0
	for _, kind := range kinds {
		if isResourceKind(kind) && !affordable[kind] {
			continue
		}
		req, ok := buildRequest(kind, obs)
		if !ok {
			continue
		}
		if obs.Biases[kind] > bestBias {
			bestBias = obs.Biases[kind]
			best = req
		}
	}
	return best
}

func buildRequest(kind string, obs *protocol.Observation) (protocol.ActionRequest, bool) {
	switch kind {
	case protocol.KindPass:
		return protocol.ActionRequest{Kind: kind, Reason: "holding position"}, true

	case protocol.KindSupportAgent:
		t, ok := pickAlly(obs)
		if !ok {
			return protocol.ActionRequest{}, false
		}
		return protocol.ActionRequest{Kind: kind, Target: t, Reason: "backing a trusted neighbor"}, true

	case protocol.KindOpposeAgent:
		t, ok := pickRival(obs)
		if !ok {
			return protocol.ActionRequest{}, false
		}
		return protocol.ActionRequest{Kind: kind, Target: t, Reason: "pushing back"}, true

	case protocol.KindSendMessage:
		t, ok := pickAlly(obs)
		if !ok {
			return protocol.ActionRequest{}, false
		}
		text := fmt.Sprintf("Thanks for holding the line. Crisis is at %d; let us keep food and energy up.", obs.CrisisLevel)
		return protocol.ActionRequest{Kind: kind, Target: t, Message: text, Reason: "coordinating"}, true

	default:
		return protocol.ActionRequest{Kind: kind, Reason: "cheap improvement"}, true
	}
}

// pickAlly returns the other agent with the highest relationship score.
func pickAlly(obs *protocol.Observation) (string, bool) {
	best, bestScore := "", -1000
	for _, r := range obs.Relationships {
		if r.Score > bestScore {
			best, bestScore = r.Agent, r.Score
		}
	}
	return best, best != ""
}

// pickRival returns the other agent with the lowest relationship score, and
// only when that score is actually negative.
func pickRival(obs *protocol.Observation) (string, bool) {
	worst, worstScore := "", 1000
	for _, r := range obs.Relationships {
		if r.Score < worstScore {
			worst, worstScore = r.Agent, r.Score
		}
	}
	if worst == "" || worstScore >= 0 {
		return "", false
	}
	return worst, true
}

func isResourceKind(kind string) bool {
	switch kind {
	case protocol.KindImproveFood, protocol.KindImproveEnergy, protocol.KindImproveInfra, protocol.KindBoostMorale:
		return true
	}
	return false
}
