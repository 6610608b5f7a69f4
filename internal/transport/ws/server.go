// Package ws hosts the sim side of the obs/act protocol. Reasoning clients
// connect over a websocket, claim a persona in the HELLO handshake and then
// answer one OBS with one ACT per turn.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"agora.ai/internal/protocol"
	"agora.ai/internal/sim/engine"
	"agora.ai/internal/sim/tuning"
	"agora.ai/internal/sim/world"
)

// Hub owns the persona roster and at most one live session per persona.
// It hands the engine a Decider per agent; an agent whose client is not
// connected when its step comes up simply passes.
type Hub struct {
	settings tuning.Settings
	personas map[string]protocol.Persona
	roster   []string
	log      *log.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
}

func NewHub(settings tuning.Settings, personas []protocol.Persona, logger *log.Logger) *Hub {
	byName := make(map[string]protocol.Persona, len(personas))
	roster := make([]string, len(personas))
	for i, p := range personas {
		byName[p.Name] = p
		roster[i] = p.Name
	}
	return &Hub{
		settings: settings,
		personas: byName,
		roster:   roster,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]*session{},
	}
}

// Decider returns the engine-facing collaborator for one persona. The
// returned Decider tolerates the client connecting late or reconnecting
// between turns; it resolves the live session per call.
func (h *Hub) Decider(name string) engine.Decider {
	return engine.DeciderFunc(func(ctx context.Context, obs protocol.ObsMsg) (protocol.ActionRequest, error) {
		h.mu.Lock()
		s := h.sessions[name]
		h.mu.Unlock()
		if s == nil {
			return protocol.ActionRequest{Kind: protocol.KindPass, Reason: "no reasoning client attached"}, nil
		}
		return s.decide(ctx, obs)
	})
}

// Deciders maps every persona to its hub Decider.
func (h *Hub) Deciders() map[string]engine.Decider {
	out := make(map[string]engine.Decider, len(h.roster))
	for _, name := range h.roster {
		out[name] = h.Decider(name)
	}
	return out
}

// Connected reports how many personas currently have a live session.
func (h *Hub) Connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown sends BYE to every live session and closes them.
func (h *Hub) Shutdown(turn int, reason string) {
	bye, _ := json.Marshal(protocol.ByeMsg{
		Type:            protocol.TypeBye,
		ProtocolVersion: protocol.Version,
		Turn:            turn,
		Reason:          reason,
	})
	h.mu.Lock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()
	for _, s := range sessions {
		s.send(bye)
		s.close()
	}
}

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		s := h.handshake(conn)
		if s == nil {
			return
		}
		h.logf("client attached persona=%s", s.agentID)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-s.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop. Each message must be a schema-valid ACT for the
		// claimed persona; anything else fails the in-flight decide.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeAct {
				continue
			}
			if err := protocol.ValidateAct(msg); err != nil {
				s.fail(fmt.Errorf("invalid ACT: %w", err))
				continue
			}
			var act protocol.ActMsg
			if err := json.Unmarshal(msg, &act); err != nil {
				s.fail(fmt.Errorf("invalid ACT: %w", err))
				continue
			}
			if act.ProtocolVersion != protocol.Version || act.AgentID != s.agentID {
				s.fail(fmt.Errorf("ACT for wrong agent or protocol"))
				continue
			}
			s.deliver(act.Action)
		}

		h.detach(s)
		h.logf("client detached persona=%s", s.agentID)
	}
}

func (h *Hub) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closePolicy(conn, "malformed HELLO")
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return nil
	}

	name, ok := world.MatchAgent(hello.AgentName, h.roster)
	if !ok {
		closePolicy(conn, "unknown persona")
		return nil
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	s := &session{agentID: name, out: make(chan []byte, maxQ)}

	h.mu.Lock()
	if _, taken := h.sessions[name]; taken {
		h.mu.Unlock()
		closePolicy(conn, "persona already claimed")
		return nil
	}
	h.sessions[name] = s
	h.mu.Unlock()

	sim := h.settings.Simulation
	welcome, _ := json.Marshal(protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		AgentID:         name,
		Persona:         h.personas[name],
		SimParams: protocol.SimParams{
			MaxTurns:        sim.MaxTurns,
			Agents:          h.roster,
			ActionKinds:     protocol.ActionKinds(),
			DecideTimeoutMs: sim.DecideTimeoutMs,
		},
	})
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, welcome); err != nil {
		h.detach(s)
		return nil
	}
	return s
}

func (h *Hub) detach(s *session) {
	h.mu.Lock()
	if h.sessions[s.agentID] == s {
		delete(h.sessions, s.agentID)
	}
	h.mu.Unlock()
	s.close()
}

func (h *Hub) logf(format string, args ...any) {
	if h.log != nil {
		h.log.Printf(format, args...)
	}
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

type actResult struct {
	req protocol.ActionRequest
	err error
}

// session is one live client connection bound to a persona. Decide calls are
// strictly sequential per agent, so at most one result channel is armed.
type session struct {
	agentID string
	out     chan []byte

	mu      sync.Mutex
	waiting chan actResult
	closed  bool
}

func (s *session) decide(ctx context.Context, obs protocol.ObsMsg) (protocol.ActionRequest, error) {
	b, err := json.Marshal(obs)
	if err != nil {
		return protocol.ActionRequest{}, err
	}

	wait := make(chan actResult, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return protocol.ActionRequest{}, fmt.Errorf("client disconnected")
	}
	s.waiting = wait
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.waiting = nil
		s.mu.Unlock()
	}()

	if !s.send(b) {
		return protocol.ActionRequest{}, fmt.Errorf("client disconnected")
	}

	select {
	case <-ctx.Done():
		return protocol.ActionRequest{}, ctx.Err()
	case res := <-wait:
		return res.req, res.err
	}
}

func (s *session) deliver(req protocol.ActionRequest) {
	s.mu.Lock()
	w := s.waiting
	s.waiting = nil
	s.mu.Unlock()
	if w != nil {
		w <- actResult{req: req}
	}
}

func (s *session) fail(err error) {
	s.mu.Lock()
	w := s.waiting
	s.waiting = nil
	s.mu.Unlock()
	if w != nil {
		w <- actResult{err: err}
	}
}

func (s *session) send(b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- b:
		return true
	default:
		return false
	}
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
	if s.waiting != nil {
		s.waiting <- actResult{err: fmt.Errorf("client disconnected")}
		s.waiting = nil
	}
}
