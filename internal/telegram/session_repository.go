package telegram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Session types.
const (
	// SessionProfileEdit means the next plain message holds profile key=value pairs.
	SessionProfileEdit = "profile_edit"
)

// Session represents an active conversation step for a user.
type Session struct {
	UserID      string
	SessionType string
	State       string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// SessionRepository stores at most one session per user.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Start opens a session for userID, replacing any existing one.
func (sr *SessionRepository) Start(ctx context.Context, userID, sessionType, state string, ttl time.Duration) error {
	now := sr.now().UTC()
	_, err := sr.db.ExecContext(ctx,
		`INSERT INTO telegram_sessions (user_id, session_type, state, expires_at, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			session_type = excluded.session_type,
			state = excluded.state,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		userID, sessionType, state, now.Add(ttl), now,
	)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

// Active returns the user's unexpired session, or nil.
func (sr *SessionRepository) Active(ctx context.Context, userID string) (*Session, error) {
	s := Session{UserID: userID}
	err := sr.db.QueryRowContext(ctx,
		`SELECT session_type, state, expires_at, created_at FROM telegram_sessions WHERE user_id = ?`, userID,
	).Scan(&s.SessionType, &s.State, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.ExpiresAt.After(sr.now()) {
		return nil, sr.End(ctx, userID)
	}
	return &s, nil
}

// End closes the user's session.
func (sr *SessionRepository) End(ctx context.Context, userID string) error {
	if _, err := sr.db.ExecContext(ctx, `DELETE FROM telegram_sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// CleanupExpired deletes all expired sessions and returns how many were removed.
func (sr *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := sr.db.ExecContext(ctx, `DELETE FROM telegram_sessions WHERE expires_at <= ?`, sr.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
