package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository handles persistence of shopping lists, one per meal plan.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save stores the list for its meal plan, replacing any previous one.
func (r *Repository) Save(ctx context.Context, list *ShoppingList) error {
	if list.MealPlanID == "" {
		return fmt.Errorf("failed to save shopping list: empty meal plan id")
	}
	itemsJSON, err := json.Marshal(list.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal shopping list items: %w", err)
	}
	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO shopping_lists (meal_plan_id, user_id, items, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(meal_plan_id) DO UPDATE SET items = excluded.items, created_at = excluded.created_at`,
		list.MealPlanID, list.UserID, string(itemsJSON), list.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert shopping list: %w", err)
	}
	return nil
}

// GetByMealPlanID retrieves a shopping list by meal plan ID. It returns
// nil without error when none is stored.
func (r *Repository) GetByMealPlanID(ctx context.Context, mealPlanID string) (*ShoppingList, error) {
	list := ShoppingList{MealPlanID: mealPlanID}
	var items string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, items, created_at FROM shopping_lists WHERE meal_plan_id = ?`, mealPlanID,
	).Scan(&list.UserID, &items, &list.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shopping list by meal plan ID: %w", err)
	}

	if err := json.Unmarshal([]byte(items), &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	return &list, nil
}
