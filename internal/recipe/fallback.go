package recipe

import "math/rand"

type fallbackGroup struct {
	mealType string
	names    []string
	calories [2]int
	protein  [2]int
	carbs    [2]int
	fat      [2]int
	prep     [2]int
}

var fallbackGroups = []fallbackGroup{
	{
		mealType: MealBreakfast,
		names: []string{
			"Greek Yogurt with Berries", "Avocado Toast with Egg", "Oatmeal with Fruits",
			"Vegetable Omelette", "Whole Grain Pancakes", "Smoothie Bowl",
			"Chia Pudding", "Breakfast Burrito", "Cottage Cheese with Fruit",
		},
		calories: [2]int{250, 450}, protein: [2]int{10, 25}, carbs: [2]int{20, 50}, fat: [2]int{5, 20}, prep: [2]int{5, 30},
	},
	{
		mealType: MealLunch,
		names: []string{
			"Chicken Salad", "Quinoa Bowl", "Vegetable Soup", "Tuna Sandwich",
			"Mediterranean Plate", "Vegetable Stir-fry", "Turkey Wrap",
			"Lentil Soup", "Grilled Salmon",
		},
		calories: [2]int{350, 600}, protein: [2]int{15, 35}, carbs: [2]int{30, 60}, fat: [2]int{10, 25}, prep: [2]int{10, 45},
	},
	{
		mealType: MealDinner,
		names: []string{
			"Grilled Chicken with Vegetables", "Salmon with Sweet Potato",
			"Vegetable Stir-fry with Tofu", "Beef and Broccoli", "Shrimp Pasta",
			"Vegetable Curry", "Baked Fish", "Turkey Chili", "Eggplant Parmesan",
		},
		calories: [2]int{400, 700}, protein: [2]int{20, 40}, carbs: [2]int{30, 70}, fat: [2]int{10, 30}, prep: [2]int{15, 60},
	},
	{
		mealType: MealSnack,
		names: []string{
			"Apple with Nut Butter", "Greek Yogurt with Honey", "Hummus with Vegetables",
			"Trail Mix", "Protein Smoothie", "Hard-boiled Eggs", "Fruit and Cheese",
		},
		calories: [2]int{100, 250}, protein: [2]int{5, 15}, carbs: [2]int{10, 25}, fat: [2]int{5, 15}, prep: [2]int{5, 15},
	},
}

var (
	fallbackDifficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}
	fallbackCuisines     = []string{"American", "Mediterranean", "Asian", "European"}
)

func between(rng *rand.Rand, bounds [2]int) int {
	return bounds[0] + rng.Intn(bounds[1]-bounds[0]+1)
}

// Fallback builds the built-in recipe set used when no dataset is available:
// 34 named recipes across the four meal types with nutrition, flags,
// difficulty, prep time and cuisine drawn from rng.
func Fallback(rng *rand.Rand) Set {
	var recipes Set
	for _, g := range fallbackGroups {
		for _, name := range g.names {
			rec := Recipe{
				ID:           int64(len(recipes) + 1),
				Name:         name,
				MealType:     g.mealType,
				Ingredients:  []string{"Ingredients for " + name},
				Instructions: "Instructions for preparing " + name,
				Nutrition: Nutrition{
					Calories: float64(between(rng, g.calories)),
					Protein:  float64(between(rng, g.protein)),
					Carbs:    float64(between(rng, g.carbs)),
					Fat:      float64(between(rng, g.fat)),
				},
				Difficulty: fallbackDifficulties[rng.Intn(len(fallbackDifficulties))],
				PrepTime:   between(rng, g.prep),
				Cuisine:    fallbackCuisines[rng.Intn(len(fallbackCuisines))],
				Source:     "fallback",
			}
			for _, flag := range FlagNames {
				rec.Flags.Set(flag, rng.Intn(2) == 1)
			}
			recipes = append(recipes, rec)
		}
	}
	return recipes
}
