package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Repository is a database-backed repository for recipes.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Save inserts or updates a recipe. A recipe with a SourceID is matched on
// (source, source_id) and gets the stored id, or a new one, whatever its
// own ID says. Otherwise a non-zero ID updates that row only when the row
// belongs to the same source.
func (r *Repository) Save(ctx context.Context, rec *Recipe) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.save(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveAll stores recipes in one transaction.
func (r *Repository) SaveAll(ctx context.Context, recs []Recipe) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range recs {
		if err := r.save(ctx, tx, &recs[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repository) save(ctx context.Context, q execer, rec *Recipe) error {
	if rec.Source == "" {
		rec.Source = "csv"
	}

	if rec.SourceID != "" {
		var id int64
		err := q.QueryRowContext(ctx, `SELECT id FROM recipes WHERE source = ? AND source_id = ?`, rec.Source, rec.SourceID).Scan(&id)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up recipe by source: %w", err)
		}
		rec.ID = id
	} else if rec.ID != 0 {
		var source string
		err := q.QueryRowContext(ctx, `SELECT source FROM recipes WHERE id = ?`, rec.ID).Scan(&source)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("failed to look up recipe %d: %w", rec.ID, err)
		case source != rec.Source:
			rec.ID = 0
		}
	}
	if rec.ID == 0 {
		if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM recipes`).Scan(&rec.ID); err != nil {
			return fmt.Errorf("failed to allocate recipe id: %w", err)
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	updatedAt := time.Now().UTC()
	if rec.SourceUpdatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, rec.SourceUpdatedAt)
		if err != nil {
			r.logger.Warn("unparseable source timestamp, using current time",
				zap.Int64("recipe_id", rec.ID), zap.String("source_updated_at", rec.SourceUpdatedAt), zap.Error(err))
		} else {
			updatedAt = parsed.UTC()
		}
	}

	var sourceID any
	if rec.SourceID != "" {
		sourceID = rec.SourceID
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO recipes (id, name, meal_type, source, source_id, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			meal_type = excluded.meal_type,
			source = excluded.source,
			source_id = excluded.source_id,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Name, rec.MealType, rec.Source, sourceID, string(data), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recipe %d: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a recipe by its ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Recipe, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM recipes WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	var rec Recipe
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}
	return &rec, nil
}

// SourceVersion returns the stored source timestamp for a source document,
// or "" when it has not been ingested.
func (r *Repository) SourceVersion(ctx context.Context, source, sourceID string) (string, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM recipes WHERE source = ? AND source_id = ?`, source, sourceID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up recipe source: %w", err)
	}
	var rec Recipe
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return "", fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}
	return rec.SourceUpdatedAt, nil
}

// List retrieves all recipes ordered by id, optionally restricted to one meal type.
func (r *Repository) List(ctx context.Context, mealType string) (Set, error) {
	query := `SELECT id, data FROM recipes`
	var args []any
	if mealType != "" {
		query += ` WHERE meal_type = ?`
		args = append(args, mealType)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes Set
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		var rec Recipe
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			r.logger.Warn("skipping recipe with invalid JSON", zap.Int64("recipe_id", id), zap.Error(err))
			continue
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}
	return recipes, nil
}

// Count returns the number of recipes in the database.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}
