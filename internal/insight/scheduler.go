package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lym-insights/internal/kvstore"
	"lym-insights/internal/model"
	"lym-insights/pkg/metrics"

	"go.uber.org/zap"
)

// DayState is the per-calendar-day pipeline state. Transitions are forward
// only within a day; a new date resets to NOT_GENERATED.
type DayState string

const (
	StateNotGenerated DayState = "NOT_GENERATED"
	StateGenerated    DayState = "GENERATED"
	StateNotified     DayState = "NOTIFIED"
)

func lastGeneratedKey(userID int) string {
	return fmt.Sprintf("insight:last_generated:%d", userID)
}

func insightKey(userID int, date string) string {
	return fmt.Sprintf("insight:content:%d:%s", userID, date)
}

func notifiedKey(userID int, date string) string {
	return fmt.Sprintf("insight:notified:%d:%s", userID, date)
}

func historyKey(userID int) string {
	return fmt.Sprintf("insight:history:%d", userID)
}

// Scheduler enforces at most one full pipeline run per calendar day and
// caches the day's insight. Generation is decoupled from notification so
// content can be computed ahead of the delivery window.
type Scheduler struct {
	kv      kvstore.Store
	builder *ContextBuilder
	orch    *Orchestrator
	logger  *zap.Logger
	now     func() time.Time
}

func NewScheduler(kv kvstore.Store, builder *ContextBuilder, orch *Orchestrator, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		kv:      kv,
		builder: builder,
		orch:    orch,
		logger:  logger,
		now:     time.Now,
	}
}

// TodayInsight returns the insight for the current calendar day, running the
// full pipeline at most once per day. Repeated calls on the same day return
// the cached result without touching the orchestrator or the quota.
func (s *Scheduler) TodayInsight(ctx context.Context, userID int) *model.DailyInsight {
	start := s.now()
	today := start.Format(model.DateFormat)

	if cached := s.cachedInsight(ctx, userID, today); cached != nil {
		metrics.RecordPipelineRun("cached", time.Since(start))
		s.logger.Debug("Returning cached daily insight",
			zap.Int("user_id", userID),
			zap.String("date", today),
		)
		return cached
	}

	uc := s.builder.Build(ctx, userID, start)

	var report *model.AnalysisReport
	if uc != nil {
		report = s.orch.Analyze(ctx, uc)
	} else {
		// Fallback-only path: no agent calls, no quota spent.
		report = model.EmptyReport(start)
	}

	events := Detect(uc, report, start)
	insight := Select(report, events, start)

	s.persist(ctx, userID, today, &insight)

	outcome := "generated"
	if uc == nil {
		outcome = "fallback"
	}
	metrics.RecordPipelineRun(outcome, time.Since(start))

	s.logger.Info("Daily insight generated",
		zap.Int("user_id", userID),
		zap.String("date", today),
		zap.String("outcome", outcome),
		zap.Int("events", len(events)),
		zap.String("category", insight.Category),
		zap.String("severity", string(insight.Severity)),
	)
	return &insight
}

// cachedInsight returns the stored insight when the last-generated marker
// matches today. Storage failures degrade to regeneration, never to an error
// surfaced to the caller.
func (s *Scheduler) cachedInsight(ctx context.Context, userID int, today string) *model.DailyInsight {
	marker, err := s.kv.Get(ctx, lastGeneratedKey(userID))
	if err != nil {
		if err != kvstore.ErrNotFound {
			s.logger.Warn("Generation marker read failed, regenerating",
				zap.Int("user_id", userID),
				zap.Error(err),
			)
		}
		return nil
	}
	if marker != today {
		return nil
	}

	raw, err := s.kv.Get(ctx, insightKey(userID, today))
	if err != nil {
		if err != kvstore.ErrNotFound {
			s.logger.Warn("Cached insight read failed, regenerating",
				zap.Int("user_id", userID),
				zap.Error(err),
			)
		}
		return nil
	}

	var insight model.DailyInsight
	if err := json.Unmarshal([]byte(raw), &insight); err != nil {
		s.logger.Warn("Cached insight is malformed, regenerating",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	return &insight
}

func (s *Scheduler) persist(ctx context.Context, userID int, today string, insight *model.DailyInsight) {
	raw, err := json.Marshal(insight)
	if err != nil {
		s.logger.Error("Failed to encode insight", zap.Error(err))
		return
	}

	if err := s.kv.Set(ctx, insightKey(userID, today), string(raw), 7*24*time.Hour); err != nil {
		s.logger.Warn("Insight write failed, continuing in memory",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return
	}
	if err := s.kv.Set(ctx, lastGeneratedKey(userID), today, 0); err != nil {
		s.logger.Warn("Generation marker write failed",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
	}
}

// State reports where the given user's pipeline stands for the current day.
func (s *Scheduler) State(ctx context.Context, userID int) DayState {
	today := s.now().Format(model.DateFormat)

	if _, err := s.kv.Get(ctx, notifiedKey(userID, today)); err == nil {
		return StateNotified
	}
	if marker, err := s.kv.Get(ctx, lastGeneratedKey(userID)); err == nil && marker == today {
		return StateGenerated
	}
	return StateNotGenerated
}
