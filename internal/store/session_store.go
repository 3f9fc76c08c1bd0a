package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mockmate/mockmate/internal/domain"
)

var (
	// ErrNotAuthenticated is returned when a session operation is
	// attempted without a signed-in owner.
	ErrNotAuthenticated = errors.New("store: not authenticated")

	// ErrSessionNotFound covers both unknown ids and sessions owned by
	// a different user, so ownership is never leaked.
	ErrSessionNotFound = errors.New("store: session not found")

	// ErrEmptyTranscript rejects creating a session with no turns.
	ErrEmptyTranscript = errors.New("store: transcript must not be empty")
)

// createdAtFormat is fixed-width so lexicographic order in SQLite equals
// chronological order.
const createdAtFormat = "2006-01-02 15:04:05.000000000"

// SessionStore persists interview sessions per owner.
type SessionStore interface {
	// Create stores a new session and assigns its id and CreatedAt.
	Create(ctx context.Context, ownerID, problem, code string, turns []domain.Turn) (domain.Session, error)

	// ReplaceTranscript overwrites the stored transcript with the given
	// turns. Full-replace keeps the write idempotent under retry.
	ReplaceTranscript(ctx context.Context, ownerID, sessionID string, turns []domain.Turn) error

	// Get returns a session with its turns loaded.
	Get(ctx context.Context, ownerID, sessionID string) (domain.Session, error)

	// List returns the owner's sessions, newest CreatedAt first, without
	// turns.
	List(ctx context.Context, ownerID string) ([]domain.Session, error)
}

// SQLiteSessionStore implements SessionStore backed by SQLite.
type SQLiteSessionStore struct {
	db *DB
}

// NewSQLiteSessionStore creates a session store using the given database.
func NewSQLiteSessionStore(db *DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

func (s *SQLiteSessionStore) Create(ctx context.Context, ownerID, problem, code string, turns []domain.Turn) (domain.Session, error) {
	if ownerID == "" {
		return domain.Session{}, ErrNotAuthenticated
	}
	if len(turns) == 0 {
		return domain.Session{}, ErrEmptyTranscript
	}

	sess := domain.Session{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Problem:   problem,
		Code:      code,
		Turns:     append([]domain.Turn(nil), turns...),
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, owner_id, problem, code, created_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, ownerID, problem, code, sess.CreatedAt.Format(createdAtFormat),
	); err != nil {
		return domain.Session{}, fmt.Errorf("insert session: %w", err)
	}

	if err := insertTurns(ctx, tx, sess.ID, sess.Turns); err != nil {
		return domain.Session{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Session{}, fmt.Errorf("commit create: %w", err)
	}

	s.db.log.Debug().Str("session", sess.ID).Str("owner", ownerID).Msg("session created")
	return sess, nil
}

func (s *SQLiteSessionStore) ReplaceTranscript(ctx context.Context, ownerID, sessionID string, turns []domain.Turn) error {
	if ownerID == "" {
		return ErrNotAuthenticated
	}

	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	var storedOwner string
	err = tx.QueryRowContext(ctx, `SELECT owner_id FROM sessions WHERE id = ?`, sessionID).Scan(&storedOwner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && storedOwner != ownerID) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	if err := insertTurns(ctx, tx, sessionID, turns); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) Get(ctx context.Context, ownerID, sessionID string) (domain.Session, error) {
	if ownerID == "" {
		return domain.Session{}, ErrNotAuthenticated
	}

	var sess domain.Session
	var createdAt string
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, owner_id, problem, code, created_at FROM sessions WHERE id = ? AND owner_id = ?`,
		sessionID, ownerID,
	).Scan(&sess.ID, &sess.OwnerID, &sess.Problem, &sess.Code, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("lookup session: %w", err)
	}
	sess.CreatedAt, err = time.Parse(createdAtFormat, createdAt)
	if err != nil {
		return domain.Session{}, fmt.Errorf("parse created_at for session %s: %w", sess.ID, err)
	}

	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT role, text FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var turn domain.Turn
		if err := rows.Scan(&turn.Role, &turn.Text); err != nil {
			return domain.Session{}, fmt.Errorf("scan turn: %w", err)
		}
		sess.Turns = append(sess.Turns, turn)
	}
	return sess, rows.Err()
}

func (s *SQLiteSessionStore) List(ctx context.Context, ownerID string) ([]domain.Session, error) {
	if ownerID == "" {
		return nil, ErrNotAuthenticated
	}

	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, owner_id, problem, code, created_at FROM sessions
		 WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var sess domain.Session
		var createdAt string
		if err := rows.Scan(&sess.ID, &sess.OwnerID, &sess.Problem, &sess.Code, &createdAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.CreatedAt, err = time.Parse(createdAtFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for session %s: %w", sess.ID, err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func insertTurns(ctx context.Context, tx *sql.Tx, sessionID string, turns []domain.Turn) error {
	for i, turn := range turns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, seq, role, text) VALUES (?, ?, ?, ?)`,
			sessionID, i, string(turn.Role), turn.Text,
		); err != nil {
			return fmt.Errorf("insert turn %d: %w", i, err)
		}
	}
	return nil
}
