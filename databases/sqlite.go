package databases

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/linesmerrill/dharma-case-api/models"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteCaseDatabase persists each case as a JSON body next to its version
type SQLiteCaseDatabase struct {
	db *sql.DB
}

// NewSQLiteCaseDatabase opens (and if needed creates) the case table at path
func NewSQLiteCaseDatabase(path string) (*SQLiteCaseDatabase, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cases (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		version INTEGER NOT NULL,
		body BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cases table: %w", err)
	}
	return &SQLiteCaseDatabase{db: db}, nil
}

// Close releases the underlying connection
func (s *SQLiteCaseDatabase) Close() error {
	return s.db.Close()
}

// FindOne loads the case with the given id
func (s *SQLiteCaseDatabase) FindOne(ctx context.Context, id string) (*models.CaseFile, error) {
	var (
		version int32
		body    []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT version, body FROM cases WHERE id = ?`, id).Scan(&version, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocuments
	}
	if err != nil {
		return nil, fmt.Errorf("select case: %w", err)
	}
	c, err := decodeCase(body, version)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Find loads every case matching filter in filing order
func (s *SQLiteCaseDatabase) Find(ctx context.Context, filter CaseFilter) ([]models.CaseFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version, body FROM cases ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select cases: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []models.CaseFile{}
	for rows.Next() {
		var (
			version int32
			body    []byte
		)
		if err := rows.Scan(&version, &body); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		c, err := decodeCase(body, version)
		if err != nil {
			return nil, err
		}
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	return out, rows.Err()
}

// InsertOne stores a new case
func (s *SQLiteCaseDatabase) InsertOne(ctx context.Context, c models.CaseFile) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal case: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO cases (id, version, body) VALUES (?, ?, ?)`, c.ID, c.Version, body)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, c.ID)
	}
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

// ReplaceOne overwrites a case inside a transaction if its version is unchanged
func (s *SQLiteCaseDatabase) ReplaceOne(ctx context.Context, c *models.CaseFile, expectedVersion int32) error {
	next := *c
	next.Version = expectedVersion + 1
	body, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal case: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE cases SET version = ?, body = ? WHERE id = ? AND version = ?`,
		next.Version, body, c.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrVersionConflict, c.ID)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	c.Version = next.Version
	return nil
}

// CountDocuments counts the cases matching filter
func (s *SQLiteCaseDatabase) CountDocuments(ctx context.Context, filter CaseFilter) (int64, error) {
	cases, err := s.Find(ctx, filter)
	return int64(len(cases)), err
}

func decodeCase(body []byte, version int32) (models.CaseFile, error) {
	var c models.CaseFile
	if err := json.Unmarshal(body, &c); err != nil {
		return c, fmt.Errorf("decode case: %w", err)
	}
	c.Version = version
	return c, nil
}
