package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository stores one profile per user as JSON.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts or replaces the profile for p.UserID.
func (r *Repository) Save(ctx context.Context, p UserProfile) error {
	if p.UserID == "" {
		return fmt.Errorf("failed to save profile: empty user id")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.UserID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Get returns the stored profile, or an empty profile carrying userID when
// none has been saved yet.
func (r *Repository) Get(ctx context.Context, userID string) (UserProfile, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM user_profiles WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return UserProfile{UserID: userID}, nil
	}
	if err != nil {
		return UserProfile{}, fmt.Errorf("failed to get profile: %w", err)
	}

	var p UserProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return UserProfile{}, fmt.Errorf("failed to unmarshal profile JSON: %w", err)
	}
	p.UserID = userID
	return p, nil
}
