package repository

import (
	"context"

	"lym-insights/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type MealRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMealRepository(db *pgxpool.Pool, logger *zap.Logger) *MealRepository {
	return &MealRepository{db: db, logger: logger}
}

// MealsByDates returns all meals logged by the user on the given dates.
func (r *MealRepository) MealsByDates(ctx context.Context, userID int, dates []string) ([]model.Meal, error) {
	query := `
        SELECT id, user_id, to_char(meal_date, 'YYYY-MM-DD'), name,
               COALESCE(calories, 0), COALESCE(proteins, 0),
               COALESCE(carbs, 0), COALESCE(fats, 0), COALESCE(water_ml, 0)
        FROM meals
        WHERE user_id = $1 AND meal_date = ANY($2)
        ORDER BY meal_date, id
    `
	rows, err := r.db.Query(ctx, query, userID, dates)
	if err != nil {
		r.logger.Error("Failed to query meals", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var meals []model.Meal
	for rows.Next() {
		var m model.Meal
		if err := rows.Scan(
			&m.ID,
			&m.UserID,
			&m.Date,
			&m.Name,
			&m.Calories,
			&m.Proteins,
			&m.Carbs,
			&m.Fats,
			&m.WaterML,
		); err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}
