// Package runindex maintains a SQLite read-model of a run: per-turn
// summaries, the full narrative stream and the final state. It is a
// secondary index; the engine's determinism never depends on it.
package runindex

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"agora.ai/internal/sim/engine"
	"agora.ai/internal/sim/social"
)

type SQLiteIndex struct {
	db    *sql.DB
	runID string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type reqKind int

const (
	reqNarrative reqKind = iota + 1
	reqSummary
	reqFlush
)

type req struct {
	kind      reqKind
	narrative engine.Narrative
	summary   engine.TurnSummary
	done      chan struct{}
}

func OpenSQLite(path, runID string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:    db,
		runID: runID,
		ch:    make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only write pattern; NORMAL durability is enough
	// for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			run_id TEXT NOT NULL,
			key    TEXT NOT NULL,
			value  TEXT NOT NULL,
			PRIMARY KEY (run_id, key)
		);`,
		`CREATE TABLE IF NOT EXISTS narratives (
			run_id TEXT NOT NULL,
			seq    INTEGER NOT NULL,
			turn   INTEGER NOT NULL,
			actor  TEXT NOT NULL,
			kind   TEXT NOT NULL,
			target TEXT,
			ok     INTEGER NOT NULL,
			code   TEXT,
			text   TEXT NOT NULL,
			deltas TEXT,
			rel_deltas TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_narratives_turn ON narratives(run_id, turn);`,
		`CREATE TABLE IF NOT EXISTS turns (
			run_id      TEXT NOT NULL,
			turn        INTEGER NOT NULL,
			resources   TEXT NOT NULL,
			crisis      INTEGER NOT NULL,
			all_passed  INTEGER NOT NULL,
			pass_streak INTEGER NOT NULL,
			PRIMARY KEY (run_id, turn)
		);`,
		`CREATE TABLE IF NOT EXISTS final_state (
			run_id        TEXT PRIMARY KEY,
			turns         INTEGER NOT NULL,
			reason        TEXT NOT NULL,
			snapshot      TEXT NOT NULL,
			relationships TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// send serializes the closed check with the channel send so a concurrent
// Close can never close the channel between the two.
func (s *SQLiteIndex) send(r req) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("run index closed")
	}
	s.ch <- r
	return nil
}

// WriteNarrative queues a narrative row; it never blocks the turn loop
// longer than the channel send.
func (s *SQLiteIndex) WriteNarrative(n engine.Narrative) error {
	return s.send(req{kind: reqNarrative, narrative: n})
}

func (s *SQLiteIndex) WriteTurnSummary(sum engine.TurnSummary) error {
	return s.send(req{kind: reqSummary, summary: sum})
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqNarrative:
			s.insertNarrative(r.narrative)
		case reqSummary:
			s.insertSummary(r.summary)
		case reqFlush:
			close(r.done)
		}
	}
}

// Flush blocks until every previously queued write has been applied.
func (s *SQLiteIndex) Flush() {
	done := make(chan struct{})
	if err := s.send(req{kind: reqFlush, done: done}); err != nil {
		return
	}
	<-done
}

func (s *SQLiteIndex) insertNarrative(n engine.Narrative) {
	deltas, _ := json.Marshal(n.Deltas)
	relDeltas, _ := json.Marshal(n.RelationshipDeltas)
	_, _ = s.db.Exec(
		`INSERT OR REPLACE INTO narratives
		 (run_id, seq, turn, actor, kind, target, ok, code, text, deltas, rel_deltas)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		s.runID, n.Seq, n.Turn, n.Actor, n.Kind, n.Target, boolInt(n.OK), n.Code, n.Text,
		string(deltas), string(relDeltas),
	)
}

func (s *SQLiteIndex) insertSummary(sum engine.TurnSummary) {
	resources, _ := json.Marshal(sum.Resources)
	_, _ = s.db.Exec(
		`INSERT OR REPLACE INTO turns
		 (run_id, turn, resources, crisis, all_passed, pass_streak)
		 VALUES (?,?,?,?,?,?)`,
		s.runID, sum.Turn, string(resources), sum.Crisis, boolInt(sum.AllPassed), sum.PassStreak,
	)
}

// WriteFinal records the run's terminal state. Called after the turn loop
// has stopped, so it writes synchronously.
func (s *SQLiteIndex) WriteFinal(res engine.Result, ledger *social.Ledger, roster []string) error {
	snap, err := json.Marshal(res.Final)
	if err != nil {
		return err
	}
	rels := map[string]map[string]social.Relationship{}
	for _, observer := range roster {
		view := map[string]social.Relationship{}
		for _, subject := range ledger.Subjects(observer) {
			view[subject] = *ledger.Get(observer, subject)
		}
		rels[observer] = view
	}
	relJSON, err := json.Marshal(rels)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO final_state (run_id, turns, reason, snapshot, relationships)
		 VALUES (?,?,?,?,?)`,
		s.runID, res.Turns, res.Reason, string(snap), string(relJSON),
	)
	return err
}

// SetMeta stores one key/value pair for the run (config digest, seed, etc.).
func (s *SQLiteIndex) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO meta (run_id, key, value) VALUES (?,?,?)`,
		s.runID, key, value,
	)
	return err
}

// TurnRow is one row of the turns read-model.
type TurnRow struct {
	Turn      int
	Resources map[string]int
	Crisis    int
	AllPassed bool
}

// Turns returns the run's turn rows in order. Callers must Close (or at
// least drain writes) first if they need read-your-writes.
func (s *SQLiteIndex) Turns() ([]TurnRow, error) {
	rows, err := s.db.Query(
		`SELECT turn, resources, crisis, all_passed FROM turns WHERE run_id = ? ORDER BY turn`,
		s.runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TurnRow
	for rows.Next() {
		var (
			r         TurnRow
			resources string
			allPassed int
		)
		if err := rows.Scan(&r.Turn, &resources, &r.Crisis, &allPassed); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(resources), &r.Resources); err != nil {
			return nil, err
		}
		r.AllPassed = allPassed != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// NarrativeCount reports how many narrative rows the run has.
func (s *SQLiteIndex) NarrativeCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM narratives WHERE run_id = ?`, s.runID).Scan(&n)
	return n, err
}

// Close drains queued writes and closes the database.
func (s *SQLiteIndex) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
	s.wg.Wait()
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
