// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps the history of resolutions in SQLite so that later
// runs can see prior confidence and whether escalation was already tried.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bibresolve/internal/normalize"
	"github.com/pdiddy/bibresolve/pkg/types"
)

const dbFile = "bibresolve.db"

// Entry is one stored resolution.
type Entry struct {
	DocKey     string                 `json:"doc_key" yaml:"doc_key"`
	ResolvedAt time.Time              `json:"resolved_at" yaml:"resolved_at"`
	Result     types.ResolutionResult `json:"result" yaml:"result"`
}

// Store manages the resolution history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at DataDir/bibresolve.db.
func Open(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS resolutions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			doc_key TEXT NOT NULL,
			resolved_at TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence REAL,
			escalated INTEGER,
			result TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resolutions_doc_key ON resolutions(doc_key)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save appends res to the history of docKey.
func (s *Store) Save(ctx context.Context, docKey string, res types.ResolutionResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO resolutions (id, doc_key, resolved_at, status, confidence, escalated, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ID, docKey, time.Now().UTC().Format(time.RFC3339Nano),
		string(res.Status), res.Confidence, res.Escalated, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving resolution %s: %w", res.ID, err)
	}
	return nil
}

// Latest returns the most recent resolution of docKey, or nil when there
// is none.
func (s *Store) Latest(ctx context.Context, docKey string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc_key, resolved_at, result FROM resolutions
		 WHERE doc_key = ? ORDER BY rowid DESC LIMIT 1`, docKey)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest resolution of %s: %w", docKey, err)
	}
	return &e, nil
}

// List returns up to limit resolutions, newest first. limit <= 0 returns
// all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_key, resolved_at, result FROM resolutions ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing resolutions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning resolution: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var resolvedAt, data string
	if err := sc.Scan(&e.DocKey, &resolvedAt, &data); err != nil {
		return Entry{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, resolvedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing resolved_at: %w", err)
	}
	e.ResolvedAt = t
	if err := json.Unmarshal([]byte(data), &e.Result); err != nil {
		return Entry{}, fmt.Errorf("decoding result: %w", err)
	}
	return e, nil
}

// ShouldForceEscalation reports whether a new run should force the model:
// a prior completed run scored below threshold and never escalated.
func ShouldForceEscalation(prior *Entry, threshold float64) bool {
	if prior == nil {
		return false
	}
	r := prior.Result
	return r.Status == types.StatusCompleted && r.Confidence < threshold && !r.Escalated
}

// DocKey identifies a document across runs: its DOI when valid, else a hash
// of its normalized title, else a hash of path.
func DocKey(candidate types.CandidateRecord, path string) string {
	if normalize.ValidDOI(candidate.DOI) {
		return "doi:" + normalize.DOI(candidate.DOI)
	}
	if t := normalize.Title(candidate.Title); t != "" {
		return "title:" + digest(t)
	}
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return "file:" + digest(path)
	}
	return ""
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
