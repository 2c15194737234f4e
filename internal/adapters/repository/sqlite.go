package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/hush/internal/domain/attribution"
	"github.com/okian/hush/internal/domain/model"
	"github.com/okian/hush/pkg/logger"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists entries in a local SQLite file.
type SQLiteStore struct {
	db          *sql.DB
	log         logger.Logger
	busyTimeout time.Duration
}

// OpenSQLite opens (and creates if needed) the journal database at path.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{log: logger.Nop(), busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps WAL and :memory: databases consistent
	db.SetMaxOpenConns(1)
	s.db = db

	if err := s.configure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Info(ctx, "journal store opened", logger.String("path", path))
	return s, nil
}

func (s *SQLiteStore) configure(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", s.busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS journal_entries (
			id TEXT PRIMARY KEY,
			prompt TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			text_score REAL,
			typing_score REAL,
			voice_score REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_created ON journal_entries(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Save inserts e. An existing id returns ErrDuplicate.
func (s *SQLiteStore) Save(ctx context.Context, e model.Entry) error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEntry)
	}
	var text, typing, voice sql.NullFloat64
	if e.Attribution != nil {
		text = sql.NullFloat64{Float64: e.Attribution.Text, Valid: true}
		typing = sql.NullFloat64{Float64: e.Attribution.Typing, Valid: true}
		voice = sql.NullFloat64{Float64: e.Attribution.Voice, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, prompt, content, created_at, text_score, typing_score, voice_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Prompt, e.Content, e.CreatedAt.UnixNano(), text, typing, voice)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", e.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// SetAttribution stores the attribution computed for entry id.
func (s *SQLiteStore) SetAttribution(ctx context.Context, id string, p attribution.Payload) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE journal_entries SET text_score = ?, typing_score = ?, voice_score = ?
		WHERE id = ?`, p.Text, p.Typing, p.Voice, id)
	if err != nil {
		return fmt.Errorf("update attribution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attribution: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// Get returns the entry with id or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, prompt, content, created_at, text_score, typing_score, voice_score
		FROM journal_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return e, err
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]model.Entry, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, content, created_at, text_score, typing_score, voice_score
		FROM journal_entries
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Entry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent: %w", err)
	}
	return out, nil
}

// Count returns the number of stored entries.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_entries`).Scan(&n); err != nil {
		s.log.Warn(ctx, "count entries", logger.Error(err))
		return 0
	}
	return n
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (model.Entry, error) {
	var (
		e                   model.Entry
		created             int64
		text, typing, voice sql.NullFloat64
	)
	if err := sc.Scan(&e.ID, &e.Prompt, &e.Content, &created, &text, &typing, &voice); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Entry{}, err
		}
		return model.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.CreatedAt = time.Unix(0, created).UTC()
	if text.Valid || typing.Valid || voice.Valid {
		p := attribution.Payload{Text: text.Float64, Typing: typing.Float64, Voice: voice.Float64}
		e.Attribution = &p
	}
	return e, nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
