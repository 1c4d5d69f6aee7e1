package insight

import (
	"context"
	"time"

	"lym-insights/internal/model"

	"go.uber.org/zap"
)

// Input source ports. The pgx repositories implement these in production;
// tests supply fixtures.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID int) (*model.Profile, error)
}

type MealSource interface {
	MealsByDates(ctx context.Context, userID int, dates []string) ([]model.Meal, error)
}

type WellnessSource interface {
	EntriesByDates(ctx context.Context, userID int, dates []string) ([]model.WellnessEntry, error)
}

type GamificationSource interface {
	GetState(ctx context.Context, userID int) (*model.GamificationState, error)
}

// ContextBuilder assembles the immutable 7-day analysis snapshot.
type ContextBuilder struct {
	profiles     ProfileSource
	meals        MealSource
	wellness     WellnessSource
	gamification GamificationSource
	logger       *zap.Logger
}

func NewContextBuilder(
	profiles ProfileSource,
	meals MealSource,
	wellness WellnessSource,
	gamification GamificationSource,
	logger *zap.Logger,
) *ContextBuilder {
	return &ContextBuilder{
		profiles:     profiles,
		meals:        meals,
		wellness:     wellness,
		gamification: gamification,
		logger:       logger,
	}
}

// Build returns the snapshot for the trailing 7 calendar days ending at now,
// or nil when the profile is missing its required fields. A nil context
// short-circuits the whole pipeline to the fallback-only path.
//
// Store read failures degrade to empty data; they never abort the build.
func (b *ContextBuilder) Build(ctx context.Context, userID int, now time.Time) *model.UserContext {
	profile, err := b.profiles.GetProfile(ctx, userID)
	if err != nil {
		b.logger.Warn("Profile read failed, skipping analysis",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	if !profile.Complete() {
		b.logger.Info("Profile incomplete (weight/age missing), skipping analysis",
			zap.Int("user_id", userID),
		)
		return nil
	}

	window := trailingDates(now, 7)

	meals, err := b.meals.MealsByDates(ctx, userID, window)
	if err != nil {
		b.logger.Warn("Meal read failed, continuing with empty meals",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		meals = nil
	}

	entries, err := b.wellness.EntriesByDates(ctx, userID, window)
	if err != nil {
		b.logger.Warn("Wellness read failed, continuing with empty entries",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		entries = nil
	}

	state, err := b.gamification.GetState(ctx, userID)
	if err != nil || state == nil {
		if err != nil {
			b.logger.Warn("Gamification read failed, continuing with zero state",
				zap.Int("user_id", userID),
				zap.Error(err),
			)
		}
		state = &model.GamificationState{}
	}

	inWindow := make(map[string]bool, len(window))
	for _, d := range window {
		inWindow[d] = true
	}

	nutrition := make(map[string]model.NutritionDay, len(window))
	for _, meal := range meals {
		if !inWindow[meal.Date] {
			continue
		}
		day := nutrition[meal.Date]
		day.Date = meal.Date
		day.Calories += meal.Calories
		day.Proteins += meal.Proteins
		day.Carbs += meal.Carbs
		day.Fats += meal.Fats
		day.WaterML += meal.WaterML
		day.MealCount++
		nutrition[meal.Date] = day
	}

	today := window[len(window)-1]
	var todayWellness *model.WellnessEntry
	filtered := make([]model.WellnessEntry, 0, len(entries))
	for _, e := range entries {
		if !inWindow[e.Date] {
			continue
		}
		filtered = append(filtered, e)
		if e.Date == today {
			entry := e
			todayWellness = &entry
		}
	}

	// daysTracked counts the union of meal days and wellness days, so a day
	// with both only counts once.
	tracked := make(map[string]bool)
	for date, day := range nutrition {
		if day.MealCount > 0 {
			tracked[date] = true
		}
	}
	for _, e := range filtered {
		tracked[e.Date] = true
	}

	return &model.UserContext{
		Profile:       *profile,
		Window:        window,
		Meals:         meals,
		Nutrition:     nutrition,
		Wellness:      filtered,
		TodayWellness: todayWellness,
		Gamification:  *state,
		DaysTracked:   len(tracked),
		BuiltAt:       now,
	}
}

// trailingDates returns the last n calendar dates ending at now, oldest first.
func trailingDates(now time.Time, n int) []string {
	dates := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		dates = append(dates, now.AddDate(0, 0, -i).Format(model.DateFormat))
	}
	return dates
}
