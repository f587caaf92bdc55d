// Package history keeps the mutation journal: one row per successful
// archive mutation, queryable from zipedit history. Journal failures are
// never allowed to fail the mutation that triggered them; callers log
// and move on.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Operation names a recorded mutation type.
type Operation string

const (
	OpAdd    Operation = "add"
	OpEdit   Operation = "edit"
	OpLink   Operation = "link"
	OpRemove Operation = "remove"
)

// Record is one journal row.
type Record struct {
	ID        string
	Timestamp time.Time
	Operation Operation
	Archive   string
	Entry     string
	Detail    string
}

// Store manages the journal database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewStore creates or opens the journal at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// initSchema creates the database schema.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS mutations (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		operation TEXT NOT NULL,
		archive TEXT NOT NULL,
		entry TEXT NOT NULL,
		detail TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_mutations_archive ON mutations(archive);
	CREATE INDEX IF NOT EXISTS idx_mutations_timestamp ON mutations(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record stores one journal row. Missing IDs and timestamps are filled
// in.
func (s *Store) Record(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	detail := sql.NullString{String: rec.Detail, Valid: rec.Detail != ""}
	_, err := s.db.Exec(`
		INSERT INTO mutations (id, timestamp, operation, archive, entry, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Timestamp, string(rec.Operation), rec.Archive, rec.Entry, detail)

	if err != nil {
		return fmt.Errorf("failed to record mutation: %w", err)
	}
	return nil
}

// Recent returns the newest rows, optionally filtered to one archive
// path. A non-positive limit defaults to 20.
func (s *Store) Recent(archive string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, timestamp, operation, archive, entry, detail
		FROM mutations
	`
	args := []interface{}{}
	if archive != "" {
		query += ` WHERE archive = ?`
		args = append(args, archive)
	}
	query += ` ORDER BY timestamp DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var op string
		var detail sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &op, &rec.Archive, &rec.Entry, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan mutation: %w", err)
		}
		rec.Operation = Operation(op)
		if detail.Valid {
			rec.Detail = detail.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the total number of journal rows.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM mutations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count mutations: %w", err)
	}
	return count, nil
}
