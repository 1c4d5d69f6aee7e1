package repository

import (
	"context"

	"lym-insights/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type GamificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewGamificationRepository(db *pgxpool.Pool, logger *zap.Logger) *GamificationRepository {
	return &GamificationRepository{db: db, logger: logger}
}

// GetState returns the user's streak and progression counters. A user with
// no row yet gets the zero state.
func (r *GamificationRepository) GetState(ctx context.Context, userID int) (*model.GamificationState, error) {
	query := `
        SELECT COALESCE(streak, 0), COALESCE(level, 0), COALESCE(xp, 0)
        FROM gamification
        WHERE user_id = $1
    `
	var s model.GamificationState
	err := r.db.QueryRow(ctx, query, userID).Scan(&s.Streak, &s.Level, &s.XP)
	if err == pgx.ErrNoRows {
		return &model.GamificationState{}, nil
	}
	if err != nil {
		r.logger.Error("Failed to load gamification state", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &s, nil
}
