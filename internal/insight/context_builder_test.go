package insight

import (
	"context"
	"errors"
	"testing"
	"time"

	"lym-insights/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSources struct {
	profile      *model.Profile
	profileErr   error
	profileCalls int

	meals    []model.Meal
	mealsErr error

	entries     []model.WellnessEntry
	wellnessErr error

	state    *model.GamificationState
	stateErr error
}

func (f *fakeSources) GetProfile(ctx context.Context, userID int) (*model.Profile, error) {
	f.profileCalls++
	return f.profile, f.profileErr
}

func (f *fakeSources) MealsByDates(ctx context.Context, userID int, dates []string) ([]model.Meal, error) {
	return f.meals, f.mealsErr
}

func (f *fakeSources) EntriesByDates(ctx context.Context, userID int, dates []string) ([]model.WellnessEntry, error) {
	return f.entries, f.wellnessErr
}

func (f *fakeSources) GetState(ctx context.Context, userID int) (*model.GamificationState, error) {
	return f.state, f.stateErr
}

func completeProfile() *model.Profile {
	return &model.Profile{
		UserID:         1,
		Weight:         80,
		Age:            35,
		Goal:           "lose_weight",
		TargetCalories: 2000,
		TargetProteins: 100,
	}
}

func newTestBuilder(src *fakeSources) *ContextBuilder {
	return NewContextBuilder(src, src, src, src, zap.NewNop())
}

func TestBuildWindowIsTrailingSevenDays(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	src := &fakeSources{profile: completeProfile()}

	uc := newTestBuilder(src).Build(context.Background(), 1, now)
	require.NotNil(t, uc)

	require.Len(t, uc.Window, 7)
	assert.Equal(t, "2026-08-19", uc.Window[0])
	assert.Equal(t, "2026-08-25", uc.Window[6])
}

func TestBuildWindowCrossesMonthBoundary(t *testing.T) {
	now := time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC)
	src := &fakeSources{profile: completeProfile()}

	uc := newTestBuilder(src).Build(context.Background(), 1, now)
	require.NotNil(t, uc)
	assert.Equal(t, "2026-08-27", uc.Window[0])
	assert.Equal(t, "2026-09-02", uc.Window[6])
}

func TestBuildNilOnMissingProfile(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	src := &fakeSources{profileErr: errors.New("no rows")}

	uc := newTestBuilder(src).Build(context.Background(), 1, now)
	assert.Nil(t, uc)
}

func TestBuildNilOnIncompleteProfile(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	src := &fakeSources{profile: &model.Profile{UserID: 1, Weight: 80}} // age missing

	uc := newTestBuilder(src).Build(context.Background(), 1, now)
	assert.Nil(t, uc)
}

func TestBuildAggregatesNutritionPerDay(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	src := &fakeSources{
		profile: completeProfile(),
		meals: []model.Meal{
			{Date: "2026-08-25", Calories: 500, Proteins: 30, WaterML: 300},
			{Date: "2026-08-25", Calories: 700, Proteins: 40, WaterML: 200},
			{Date: "2026-08-24", Calories: 1800, Proteins: 90},
			{Date: "2026-08-01", Calories: 9999}, // outside the window
		},
	}

	uc := newTestBuilder(src).Build(context.Background(), 1, now)
	require.NotNil(t, uc)

	today := uc.TodayNutrition()
	assert.Equal(t, 1200.0, today.Calories)
	assert.Equal(t, 70.0, today.Proteins)
	assert.Equal(t, 500.0, today.WaterML)
	assert.Equal(t, 2, today.MealCount)

	assert.Equal(t, 1, uc.Nutrition["2026-08-24"].MealCount)
	_, ok := uc.Nutrition["2026-08-01"]
	assert.False(t, ok, "meals outside the window must be dropped")
}

func TestBuildDaysTrackedIsUnion(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	src := &fakeSources{
		profile: completeProfile(),
		meals: []model.Meal{
			{Date: "2026-08-23", Calories: 1800},
			{Date: "2026-08-24", Calories: 1900},
			{Date: "2026-08-25", Calories: 1200},
		},
		entries: []model.WellnessEntry{
			{Date: "2026-08-24", SleepHours: 7}, // overlaps a meal day
			{Date: "2026-08-22", SleepHours: 8}, // wellness only
		},
	}

	uc := newTestBuilder(src).Build(context.Background(), 1, now)
	require.NotNil(t, uc)
	assert.Equal(t, 4, uc.DaysTracked, "a day with both a meal and a check-in counts once")
}

func TestBuildTodayWellness(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	src := &fakeSources{
		profile: completeProfile(),
		entries: []model.WellnessEntry{
			{Date: "2026-08-24", SleepHours: 7},
			{Date: "2026-08-25", SleepHours: 5, StressLevel: 4},
		},
	}

	uc := newTestBuilder(src).Build(context.Background(), 1, now)
	require.NotNil(t, uc)
	require.NotNil(t, uc.TodayWellness)
	assert.Equal(t, 5.0, uc.TodayWellness.SleepHours)
	assert.Equal(t, 4, uc.TodayWellness.StressLevel)
}

func TestBuildDegradesOnSourceFailures(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	src := &fakeSources{
		profile:     completeProfile(),
		mealsErr:    errors.New("meals store down"),
		wellnessErr: errors.New("wellness store down"),
		stateErr:    errors.New("gamification store down"),
	}

	uc := newTestBuilder(src).Build(context.Background(), 1, now)
	require.NotNil(t, uc, "secondary source failures must not abort the build")
	assert.Empty(t, uc.Meals)
	assert.Empty(t, uc.Wellness)
	assert.Equal(t, 0, uc.Gamification.Streak)
	assert.Equal(t, 0, uc.DaysTracked)
}
