package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/leofalp/deepresearch/patterns/graph"
	"github.com/leofalp/deepresearch/patterns/research"
)

// DefaultPublicURL prefixes report links when no public URL is configured.
const DefaultPublicURL = "http://localhost:8080"

// ErrReportNotFound is returned by Report for unknown IDs.
var ErrReportNotFound = errors.New("sqlite: report not found")

// Report is a persisted research report.
type Report struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Draft     string    `json:"draft"`
	CreatedAt time.Time `json:"created_at"`
}

// Store implements research.Persister and graph.Checkpointer.
type Store struct {
	db        *sql.DB
	publicURL string
}

var (
	_ research.Persister = (*Store)(nil)
	_ graph.Checkpointer = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithPublicURL sets the base URL of report links, e.g.
// "https://research.example.com".
func WithPublicURL(publicURL string) Option {
	return func(store *Store) {
		if publicURL != "" {
			store.publicURL = strings.TrimRight(publicURL, "/")
		}
	}
}

// Open opens or creates the database at path and migrates the schema. The
// parent directory is created when missing.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time, or concurrent runs hit SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := &Store{db: db, publicURL: DefaultPublicURL}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("unknown schema version %d", version)
	default:
		return nil
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Persist stores a report and returns its public URL.
func (s *Store) Persist(ctx context.Context, question, draft string) (research.Persisted, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO reports(id, question, draft, created_at) VALUES(?, ?, ?, ?)",
		id, question, draft, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return research.Persisted{}, fmt.Errorf("insert report: %w", err)
	}

	return research.Persisted{LocationURL: s.ReportURL(id)}, nil
}

// ReportURL returns the public link of a report.
func (s *Store) ReportURL(id string) string {
	return s.publicURL + "/reports/" + id
}

// Report loads a stored report.
func (s *Store) Report(ctx context.Context, id string) (*Report, error) {
	var report Report
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, question, draft, created_at FROM reports WHERE id = ?", id,
	).Scan(&report.ID, &report.Question, &report.Draft, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select report: %w", err)
	}

	report.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse report timestamp: %w", err)
	}
	return &report, nil
}

// Put stores a checkpoint; a checkpoint for the same run and step is
// replaced.
func (s *Store) Put(ctx context.Context, checkpoint graph.Checkpoint) error {
	nodes, err := json.Marshal(nonNil(checkpoint.Nodes))
	if err != nil {
		return fmt.Errorf("encode checkpoint nodes: %w", err)
	}
	next, err := json.Marshal(nonNil(checkpoint.Next))
	if err != nil {
		return fmt.Errorf("encode checkpoint next: %w", err)
	}

	createdAt := checkpoint.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO checkpoints(run_id, step, nodes, next, state, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		checkpoint.RunID, checkpoint.Step, string(nodes), string(next), string(checkpoint.State),
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// Latest returns the checkpoint with the highest step of a run.
func (s *Store) Latest(ctx context.Context, runID string) (*graph.Checkpoint, error) {
	var checkpoint graph.Checkpoint
	var nodes, next, state, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, step, nodes, next, state, created_at FROM checkpoints
		 WHERE run_id = ? ORDER BY step DESC LIMIT 1`, runID,
	).Scan(&checkpoint.RunID, &checkpoint.Step, &nodes, &next, &state, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, graph.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select checkpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(nodes), &checkpoint.Nodes); err != nil {
		return nil, fmt.Errorf("decode checkpoint nodes: %w", err)
	}
	if err := json.Unmarshal([]byte(next), &checkpoint.Next); err != nil {
		return nil, fmt.Errorf("decode checkpoint next: %w", err)
	}
	checkpoint.State = json.RawMessage(state)
	checkpoint.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse checkpoint timestamp: %w", err)
	}

	return &checkpoint, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
