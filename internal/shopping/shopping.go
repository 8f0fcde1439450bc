// Package shopping turns a meal plan into a consolidated ingredient list.
package shopping

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"diet-planner/internal/planner"
)

// Item is an ingredient and the number of meals that use it.
type Item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ShoppingList represents a shopping list for a meal plan.
type ShoppingList struct {
	MealPlanID string    `json:"meal_plan_id"`
	UserID     string    `json:"user_id"`
	Items      []Item    `json:"items"`
	CreatedAt  time.Time `json:"created_at"`
}

// Build consolidates the ingredients of every filled meal. Ingredients
// are matched case-insensitively; the first spelling seen is kept. Items
// are sorted by name.
func Build(plan *planner.MealPlan) *ShoppingList {
	list := &ShoppingList{CreatedAt: time.Now().UTC()}
	if plan == nil {
		return list
	}
	list.MealPlanID = plan.ID
	list.UserID = plan.UserID

	index := make(map[string]int)
	for _, day := range plan.Days {
		for _, m := range day.Meals {
			if !m.Filled() {
				continue
			}
			for _, ing := range m.Recipe.Ingredients {
				name := strings.Join(strings.Fields(ing), " ")
				if name == "" {
					continue
				}
				key := strings.ToLower(name)
				if i, ok := index[key]; ok {
					list.Items[i].Count++
					continue
				}
				index[key] = len(list.Items)
				list.Items = append(list.Items, Item{Name: name, Count: 1})
			}
		}
	}

	sort.SliceStable(list.Items, func(i, j int) bool {
		return strings.ToLower(list.Items[i].Name) < strings.ToLower(list.Items[j].Name)
	})
	return list
}

// Markdown renders the list as a bulleted message.
func (l *ShoppingList) Markdown() string {
	if len(l.Items) == 0 {
		return "Your shopping list is empty."
	}
	var b strings.Builder
	b.WriteString("*Shopping list*\n")
	for _, it := range l.Items {
		if it.Count > 1 {
			fmt.Fprintf(&b, "• %s (x%d)\n", it.Name, it.Count)
		} else {
			fmt.Fprintf(&b, "• %s\n", it.Name)
		}
	}
	return b.String()
}
