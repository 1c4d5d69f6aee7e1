package model

import "time"

// DateFormat is the canonical day key used across the pipeline.
const DateFormat = "2006-01-02"

// Profile is the user profile snapshot read from the profile store.
type Profile struct {
	UserID         int
	Weight         float64
	Age            int
	Goal           string
	TargetCalories float64
	TargetProteins float64
	TargetCarbs    float64
	TargetFats     float64
	TargetWaterML  float64
}

// Complete reports whether the required fields for analysis are present.
func (p *Profile) Complete() bool {
	return p != nil && p.Weight > 0 && p.Age > 0
}

// Meal is a single logged meal item.
type Meal struct {
	ID       int
	UserID   int
	Date     string
	Name     string
	Calories float64
	Proteins float64
	Carbs    float64
	Fats     float64
	WaterML  float64
}

// NutritionDay is the per-day aggregate over all meals of one date.
type NutritionDay struct {
	Date      string
	Calories  float64
	Proteins  float64
	Carbs     float64
	Fats      float64
	WaterML   float64
	MealCount int
}

// WellnessEntry is the self-reported wellness check-in for one date.
type WellnessEntry struct {
	Date        string
	SleepHours  float64
	StressLevel int
	EnergyLevel int
	Mood        int
}

// GamificationState holds streak and progression counters.
type GamificationState struct {
	Streak int
	Level  int
	XP     int
}

// UserContext is the immutable 7-day analysis snapshot. It is built fresh
// for every pipeline run and never mutated after construction.
type UserContext struct {
	Profile       Profile
	Window        []string // trailing 7 calendar dates, oldest first
	Meals         []Meal
	Nutrition     map[string]NutritionDay // keyed by date
	Wellness      []WellnessEntry
	TodayWellness *WellnessEntry
	Gamification  GamificationState
	DaysTracked   int
	BuiltAt       time.Time
}

// TodayNutrition returns the aggregate for the last day of the window.
func (c *UserContext) TodayNutrition() NutritionDay {
	if len(c.Window) == 0 {
		return NutritionDay{}
	}
	return c.Nutrition[c.Window[len(c.Window)-1]]
}
