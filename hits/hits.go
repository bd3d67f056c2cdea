// Package hits keeps confirmed anagram pairs in a SQLite database for review.
package hits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	anagram "github.com/luhtfiimanal/anagram-archive"
)

// Status is the review state of a hit.
type Status string

const (
	StatusReview   Status = "review"
	StatusSeen     Status = "seen"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPosted   Status = "posted"
	StatusFailed   Status = "failed"
)

// ErrNotFound is returned when a hit id is unknown.
var ErrNotFound = errors.New("hit not found")

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusReview, StatusSeen, StatusApproved, StatusRejected, StatusPosted, StatusFailed:
		return true
	}
	return false
}

// Hit is a stored pair plus its review state.
type Hit struct {
	ID        string            `json:"id"`
	Status    Status            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	A         anagram.Candidate `json:"a"`
	B         anagram.Candidate `json:"b"`
}

const schema = `
CREATE TABLE IF NOT EXISTS hits (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	a_id        INTEGER NOT NULL,
	a_signature TEXT NOT NULL,
	a_text      TEXT NOT NULL,
	b_id        INTEGER NOT NULL,
	b_signature TEXT NOT NULL,
	b_text      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS hits_status_created ON hits (status, created_at);
`

// Store is a SQLite-backed hit log. It implements anagram.HitSink.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open hits db: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create hits schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// NewHit records a pair with status review.
func (s *Store) NewHit(ctx context.Context, hit anagram.HitPair) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hits (id, status, created_at, a_id, a_signature, a_text, b_id, b_signature, b_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), string(StatusReview), s.now().UnixNano(),
		hit.A.ID, hit.A.Signature, hit.A.Text,
		hit.B.ID, hit.B.Signature, hit.B.Text,
	)
	if err != nil {
		return fmt.Errorf("insert hit: %w", err)
	}
	return nil
}

// List returns up to limit hits with the given status, newest first.
func (s *Store) List(ctx context.Context, status Status, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, created_at, a_id, a_signature, a_text, b_id, b_signature, b_text
		 FROM hits WHERE status = ? ORDER BY created_at DESC LIMIT ?`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list hits: %w", err)
	}
	defer rows.Close()

	var out []Hit
	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Get returns a single hit.
func (s *Store) Get(ctx context.Context, id string) (Hit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, created_at, a_id, a_signature, a_text, b_id, b_signature, b_text
		 FROM hits WHERE id = ?`, id)
	h, err := scanHit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Hit{}, ErrNotFound
	}
	return h, err
}

// SetStatus moves a hit to a new review state.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("unknown hit status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE hits SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update hit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns how many hits have the given status.
func (s *Store) Count(ctx context.Context, status Status) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hits WHERE status = ?`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count hits: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanHit(sc scanner) (Hit, error) {
	var (
		h       Hit
		created int64
	)
	err := sc.Scan(&h.ID, &h.Status, &created,
		&h.A.ID, &h.A.Signature, &h.A.Text,
		&h.B.ID, &h.B.Signature, &h.B.Text)
	if err != nil {
		return Hit{}, err
	}
	h.CreatedAt = time.Unix(0, created).UTC()
	return h, nil
}
