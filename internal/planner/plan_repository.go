package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrPlanNotFound is returned when a user has no stored plan.
var ErrPlanNotFound = errors.New("meal plan not found")

// PlanRepository is a database-backed repository for meal plans.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// Save inserts a meal plan. Failed plans are stored too so that the last
// outcome is visible to the user.
func (r *PlanRepository) Save(ctx context.Context, plan *MealPlan) error {
	if plan.ID == "" {
		return fmt.Errorf("failed to save meal plan: empty id")
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal meal plan: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO meal_plans (id, user_id, plan_data, created_at) VALUES (?, ?, ?, ?)`,
		plan.ID, plan.UserID, string(data), plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save meal plan for user %s: %w", plan.UserID, err)
	}
	return nil
}

// Latest returns the most recent usable plan for userID. Failed plans
// are skipped.
func (r *PlanRepository) Latest(ctx context.Context, userID string) (*MealPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT plan_data FROM meal_plans WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", err)
		}
		var plan MealPlan
		if err := json.Unmarshal([]byte(data), &plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meal plan JSON: %w", err)
		}
		if !plan.Failed() {
			return &plan, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meal plans: %w", err)
	}
	return nil, ErrPlanNotFound
}

// ListRecentByUserID retrieves the N most recent meal plans for a given user.
func (r *PlanRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]*MealPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT plan_data FROM meal_plans WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meal plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []*MealPlan
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", err)
		}
		var plan MealPlan
		if err := json.Unmarshal([]byte(data), &plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meal plan JSON: %w", err)
		}
		plans = append(plans, &plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meal plans: %w", err)
	}
	return plans, nil
}
