package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS nodes (
	node_id TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS comments (
	node_id  TEXT    NOT NULL,
	position INTEGER NOT NULL,
	id       TEXT    NOT NULL UNIQUE,
	payload  TEXT    NOT NULL,
	PRIMARY KEY (node_id, position)
);
`

// SQLiteStore keeps one row per top-level comment, ordered by position within its node.
// Known nodes live in their own table so nodes without comments survive a round-trip.
// Appends run in a transaction, so concurrent writers do not lose updates.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes) the SQLite database at dsn.
// A plain file path has its directory created first.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn != ":memory:" && filepath.Dir(dsn) != "." {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load reads every row and rebuilds the mapping.
func (s *SQLiteStore) Load(ctx context.Context) (comment.Threads, error) {
	threads, err := s.loadNodes(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT node_id, payload FROM comments ORDER BY node_id, position`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			nodeID  string
			payload string
		)

		if err := rows.Scan(&nodeID, &payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}

		var c comment.Comment
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("%w: %w: %w", ErrRead, ErrCorrupt, err)
		}

		threads[nodeID] = append(threads[nodeID], c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	if err := threads.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrRead, ErrCorrupt, err)
	}

	return threads, nil
}

func (s *SQLiteStore) loadNodes(ctx context.Context) (comment.Threads, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT node_id FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer rows.Close()

	threads := comment.Threads{}

	for rows.Next() {
		var nodeID string
		if err := rows.Scan(&nodeID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}

		threads[nodeID] = []comment.Comment{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	return threads, nil
}

// Save replaces every row in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, threads comment.Threads) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{`DELETE FROM comments`, `DELETE FROM nodes`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}

	for _, nodeID := range threads.Nodes() {
		if err := insertNode(ctx, tx, nodeID); err != nil {
			return err
		}

		for i, c := range threads[nodeID] {
			if err := insertComment(ctx, tx, nodeID, i, c); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return nil
}

// Append inserts c after the last comment of its node.
func (s *SQLiteStore) Append(ctx context.Context, c comment.Comment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM comments WHERE node_id = ?`, c.NodeID,
	).Scan(&next); err != nil {
		return fmt.Errorf("%w: %w", ErrRead, err)
	}

	if err := insertNode(ctx, tx, c.NodeID); err != nil {
		return err
	}

	if err := insertComment(ctx, tx, c.NodeID, next, c); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func insertNode(ctx context.Context, tx *sql.Tx, nodeID string) error {
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO nodes (node_id) VALUES (?)`, nodeID); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return nil
}

func insertComment(ctx context.Context, tx *sql.Tx, nodeID string, position int, c comment.Comment) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWrite, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO comments (node_id, position, id, payload) VALUES (?, ?, ?, ?)`,
		nodeID, position, c.ID, string(payload),
	); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	return nil
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
