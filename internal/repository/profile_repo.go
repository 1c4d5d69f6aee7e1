package repository

import (
	"context"

	"lym-insights/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ProfileRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProfileRepository(db *pgxpool.Pool, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{db: db, logger: logger}
}

func (r *ProfileRepository) GetProfile(ctx context.Context, userID int) (*model.Profile, error) {
	query := `
        SELECT user_id, COALESCE(weight, 0), COALESCE(age, 0), COALESCE(goal, ''),
               COALESCE(target_calories, 0), COALESCE(target_proteins, 0),
               COALESCE(target_carbs, 0), COALESCE(target_fats, 0),
               COALESCE(target_water_ml, 0)
        FROM profiles
        WHERE user_id = $1
    `
	var p model.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Weight,
		&p.Age,
		&p.Goal,
		&p.TargetCalories,
		&p.TargetProteins,
		&p.TargetCarbs,
		&p.TargetFats,
		&p.TargetWaterML,
	)
	if err != nil {
		r.logger.Error("Failed to load profile", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &p, nil
}

// ListActiveUserIDs returns the users eligible for the daily pipeline.
func (r *ProfileRepository) ListActiveUserIDs(ctx context.Context) ([]int, error) {
	query := `SELECT user_id FROM profiles WHERE active ORDER BY user_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list active users", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
