// Package store provides SQLite-backed persistence for tunewise: the
// append-only apply log that makes revert possible, durable agent
// knowledge, the feedback archive, result history, and arbitration
// decision records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tunewise/tunewise/internal/models"
)

// ErrKnowledgeCorrupt is returned when a persisted knowledge record cannot
// be decoded. Fatal at startup: the daemon refuses to run on a partially
// readable knowledge store.
var ErrKnowledgeCorrupt = errors.New("agent knowledge corrupt")

// Store provides access to the tunewise SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL for concurrent readers; SQLite allows one writer at a time.
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS apply_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		recipe_name TEXT NOT NULL,
		change_id TEXT NOT NULL,
		change_type TEXT NOT NULL,
		domain TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT,
		prior_value TEXT,
		status TEXT NOT NULL,
		reason TEXT,
		reverted_at DATETIME,
		applied_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_apply_log_recipe ON apply_log(recipe_name);
	CREATE INDEX IF NOT EXISTS idx_apply_log_target ON apply_log(domain, key);

	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		recipe_name TEXT NOT NULL,
		success INTEGER NOT NULL,
		message TEXT,
		changes TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS knowledge (
		agent_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS feedback_archive (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		action TEXT NOT NULL,
		kind TEXT NOT NULL,
		measured REAL,
		expected REAL,
		comment TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		round TEXT NOT NULL,
		agent_type TEXT NOT NULL,
		verdict TEXT NOT NULL,
		detail TEXT,
		inputs_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ApplyLogEntry is one row of the append-only apply log.
type ApplyLogEntry struct {
	Seq        int64      `json:"seq"`
	RecipeName string     `json:"recipe_name"`
	ChangeID   string     `json:"change_id"`
	ChangeType string     `json:"change_type"`
	Domain     string     `json:"domain"`
	Key        string     `json:"key"`
	Value      string     `json:"value"`
	PriorValue string     `json:"prior_value"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	RevertedAt *time.Time `json:"reverted_at,omitempty"`
	AppliedAt  time.Time  `json:"applied_at"`
}

// AppendApplyLog records one attempted change. Every attempt lands here,
// success or failure; nothing is ever updated in place except the
// reverted marker.
func (s *Store) AppendApplyLog(e ApplyLogEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO apply_log
			(recipe_name, change_id, change_type, domain, key, value, prior_value, status, reason, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RecipeName, e.ChangeID, e.ChangeType, e.Domain, e.Key,
		e.Value, e.PriorValue, e.Status, e.Reason, e.AppliedAt.UTC())
	if err != nil {
		return fmt.Errorf("append apply log: %w", err)
	}
	return nil
}

// UnrevertedApplied returns, newest first, the applied-and-not-reverted
// log entries for a recipe. This is the revert worklist.
func (s *Store) UnrevertedApplied(recipeName string) ([]ApplyLogEntry, error) {
	rows, err := s.db.Query(`
		SELECT seq, recipe_name, change_id, change_type, domain, key, value, prior_value, status, reason, applied_at
		FROM apply_log
		WHERE recipe_name = ? AND status = 'applied' AND reverted_at IS NULL
		ORDER BY seq DESC`, recipeName)
	if err != nil {
		return nil, fmt.Errorf("query apply log: %w", err)
	}
	defer rows.Close()

	var entries []ApplyLogEntry
	for rows.Next() {
		var e ApplyLogEntry
		var reason sql.NullString
		if err := rows.Scan(&e.Seq, &e.RecipeName, &e.ChangeID, &e.ChangeType,
			&e.Domain, &e.Key, &e.Value, &e.PriorValue, &e.Status, &reason, &e.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan apply log: %w", err)
		}
		e.Reason = reason.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkReverted stamps a single log entry as reverted.
func (s *Store) MarkReverted(seq int64) error {
	_, err := s.db.Exec(`UPDATE apply_log SET reverted_at = ? WHERE seq = ?`,
		time.Now().UTC(), seq)
	if err != nil {
		return fmt.Errorf("mark reverted: %w", err)
	}
	return nil
}

// LastAppliedValue returns the most recent applied, unreverted value
// written to the given target across all recipes. ok is false when the
// target has never been written.
func (s *Store) LastAppliedValue(domain, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`
		SELECT value FROM apply_log
		WHERE domain = ? AND key = ? AND status = 'applied' AND reverted_at IS NULL
		ORDER BY seq DESC LIMIT 1`, domain, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query last applied value: %w", err)
	}
	return value, true, nil
}

// SaveResult persists a configuration result in the history.
func (s *Store) SaveResult(r models.ConfigurationResult) error {
	changes, err := json.Marshal(r.Changes)
	if err != nil {
		return fmt.Errorf("encode result changes: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO results (id, recipe_name, success, message, changes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.RecipeName, boolInt(r.Success), r.Message, string(changes), r.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// ListResults returns the newest results up to limit.
func (s *Store) ListResults(limit int) ([]models.ConfigurationResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, recipe_name, success, message, changes, created_at
		FROM results ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []models.ConfigurationResult
	for rows.Next() {
		var r models.ConfigurationResult
		var success int
		var changes string
		if err := rows.Scan(&r.ID, &r.RecipeName, &success, &r.Message, &changes, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Success = success != 0
		if err := json.Unmarshal([]byte(changes), &r.Changes); err != nil {
			return nil, fmt.Errorf("decode result changes: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SaveKnowledge upserts an agent's knowledge record.
func (s *Store) SaveKnowledge(k *models.AgentKnowledge) error {
	payload, err := json.Marshal(k)
	if err != nil {
		return fmt.Errorf("encode knowledge: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO knowledge (agent_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		k.AgentID, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save knowledge: %w", err)
	}
	return nil
}

// LoadKnowledge returns the persisted knowledge for an agent, or nil when
// none exists. An undecodable record is ErrKnowledgeCorrupt.
func (s *Store) LoadKnowledge(agentID string) (*models.AgentKnowledge, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM knowledge WHERE agent_id = ?`, agentID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query knowledge: %w", err)
	}

	var k models.AgentKnowledge
	if err := json.Unmarshal([]byte(payload), &k); err != nil {
		return nil, fmt.Errorf("%w: agent %s: %v", ErrKnowledgeCorrupt, agentID, err)
	}
	if k.SuccessRates == nil {
		k.SuccessRates = make(map[string]float64)
	}
	if k.SampleCounts == nil {
		k.SampleCounts = make(map[string]int)
	}
	return &k, nil
}

// ArchiveFeedback stores a consumed feedback record.
func (s *Store) ArchiveFeedback(fb models.AgentFeedback) error {
	id := fb.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO feedback_archive (id, agent_id, action, kind, measured, expected, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, fb.AgentID, fb.Action, string(fb.Kind),
		fb.MeasuredImprovement, fb.ExpectedImprovement, fb.Comment, fb.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("archive feedback: %w", err)
	}
	return nil
}

// WriteDecision appends one arbitration decision record.
func (s *Store) WriteDecision(round, agentType, verdict, detail, inputsHash string) error {
	_, err := s.db.Exec(`
		INSERT INTO decisions (id, round, agent_type, verdict, detail, inputs_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), round, agentType, verdict, detail, inputsHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write decision: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
