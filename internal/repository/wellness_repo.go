package repository

import (
	"context"

	"lym-insights/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type WellnessRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewWellnessRepository(db *pgxpool.Pool, logger *zap.Logger) *WellnessRepository {
	return &WellnessRepository{db: db, logger: logger}
}

// EntriesByDates returns the wellness check-ins for the given dates.
func (r *WellnessRepository) EntriesByDates(ctx context.Context, userID int, dates []string) ([]model.WellnessEntry, error) {
	query := `
        SELECT to_char(entry_date, 'YYYY-MM-DD'),
               COALESCE(sleep_hours, 0), COALESCE(stress_level, 0),
               COALESCE(energy_level, 0), COALESCE(mood, 0)
        FROM wellness_entries
        WHERE user_id = $1 AND entry_date = ANY($2)
        ORDER BY entry_date
    `
	rows, err := r.db.Query(ctx, query, userID, dates)
	if err != nil {
		r.logger.Error("Failed to query wellness entries", zap.Int("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []model.WellnessEntry
	for rows.Next() {
		var e model.WellnessEntry
		if err := rows.Scan(
			&e.Date,
			&e.SleepHours,
			&e.StressLevel,
			&e.EnergyLevel,
			&e.Mood,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
