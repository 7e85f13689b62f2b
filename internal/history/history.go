// Package history persists answered questions in SQLite so past
// answers can be listed, searched, and replayed through the renderer.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Answer is one stored question/answer pair.
type Answer struct {
	ID        int64
	Question  string
	Answer    string
	Diagrams  int
	CreatedAt time.Time
}

// Store is a SQLite-backed answer archive.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS answers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    diagrams INTEGER DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_answers_created_at ON answers(created_at DESC);

-- Full-text search over question and answer text
CREATE VIRTUAL TABLE IF NOT EXISTS answers_fts USING fts5(
    question,
    answer,
    content='answers',
    content_rowid='id'
);

-- Triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS answers_ai AFTER INSERT ON answers BEGIN
    INSERT INTO answers_fts(rowid, question, answer) VALUES (new.id, new.question, new.answer);
END;

CREATE TRIGGER IF NOT EXISTS answers_ad AFTER DELETE ON answers BEGIN
    INSERT INTO answers_fts(answers_fts, rowid, question, answer) VALUES ('delete', old.id, old.question, old.answer);
END;

CREATE TRIGGER IF NOT EXISTS answers_au AFTER UPDATE ON answers BEGIN
    INSERT INTO answers_fts(answers_fts, rowid, question, answer) VALUES ('delete', old.id, old.question, old.answer);
    INSERT INTO answers_fts(rowid, question, answer) VALUES (new.id, new.question, new.answer);
END;
`

// Open creates or opens the answer database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save records an answer and returns its id.
func (s *Store) Save(ctx context.Context, question, answer string, diagrams int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO answers (question, answer, diagrams) VALUES (?, ?, ?)`,
		question, answer, diagrams)
	if err != nil {
		return 0, fmt.Errorf("save answer: %w", err)
	}
	return res.LastInsertId()
}

// Get returns one answer by id.
func (s *Store) Get(ctx context.Context, id int64) (*Answer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, question, answer, diagrams, created_at FROM answers WHERE id = ?`, id)
	var a Answer
	if err := row.Scan(&a.ID, &a.Question, &a.Answer, &a.Diagrams, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("answer %d not found", id)
		}
		return nil, fmt.Errorf("get answer: %w", err)
	}
	return &a, nil
}

// List returns the most recent answers, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Answer, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, diagrams, created_at FROM answers
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// Search runs a full-text query over stored questions and answers.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Answer, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.question, a.answer, a.diagrams, a.created_at
		 FROM answers_fts f
		 JOIN answers a ON a.id = f.rowid
		 WHERE answers_fts MATCH ?
		 ORDER BY rank LIMIT ?`, ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search answers: %w", err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// Delete removes an answer.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM answers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete answer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("answer %d not found", id)
	}
	return nil
}

func scanAnswers(rows *sql.Rows) ([]Answer, error) {
	var out []Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.Question, &a.Answer, &a.Diagrams, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ftsQuery quotes each term so user input cannot break the FTS5 query
// grammar.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
