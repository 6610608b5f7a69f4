// Package log persists the run's narrative stream as zstd-compressed JSONL.
// The files are a sink for the engine's event records; nothing in the sim
// reads them back during a run.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"agora.ai/internal/sim/engine"
)

type JSONLZstdWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewJSONLZstdWriter(path string) (*JSONLZstdWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &JSONLZstdWriter{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return fmt.Errorf("writer closed")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	_ = w.w.Flush()
	err := w.enc.Close()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.f = nil
	w.enc = nil
	w.w = nil
	return err
}

// envelope tags each JSONL line so replays can route records by kind.
type envelope struct {
	Kind      string              `json:"kind"`
	Narrative *engine.Narrative   `json:"narrative,omitempty"`
	Summary   *engine.TurnSummary `json:"summary,omitempty"`
}

// NarrativeLogger writes the run's narratives and turn summaries to a single
// events file under runDir.
type NarrativeLogger struct{ w *JSONLZstdWriter }

func NewNarrativeLogger(runDir string) (*NarrativeLogger, error) {
	w, err := NewJSONLZstdWriter(filepath.Join(runDir, "events.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	return &NarrativeLogger{w: w}, nil
}

func (l *NarrativeLogger) WriteNarrative(n engine.Narrative) error {
	return l.w.Write(envelope{Kind: "narrative", Narrative: &n})
}

func (l *NarrativeLogger) WriteTurnSummary(s engine.TurnSummary) error {
	return l.w.Write(envelope{Kind: "summary", Summary: &s})
}

func (l *NarrativeLogger) Close() error { return l.w.Close() }

// ReadEvents decodes an events file back into narratives and summaries, in
// write order. Used by the replay tool and tests.
func ReadEvents(path string) ([]engine.Narrative, []engine.TurnSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, nil, err
	}
	defer dec.Close()

	var (
		narratives []engine.Narrative
		summaries  []engine.TurnSummary
	)
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e envelope
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, nil, fmt.Errorf("events line: %w", err)
		}
		switch {
		case e.Narrative != nil:
			narratives = append(narratives, *e.Narrative)
		case e.Summary != nil:
			summaries = append(summaries, *e.Summary)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return narratives, summaries, nil
}
