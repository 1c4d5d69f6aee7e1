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

// historyCap bounds the send history; it is also the lookback window for
// duplicate-title suppression.
const historyCap = 30

// duplicateWindow is how far back an identical title blocks a resend.
const duplicateWindow = 3 * 24 * time.Hour

var categoryEmoji = map[string]string{
	"nutrition":    "🍽️",
	"wellness":     "🧘",
	"hydration":    "💧",
	"gamification": "🔥",
	"coaching":     "💡",
	"activity":     "🏃",
	"recovery":     "😴",
}

// AuditLog is the append-only persistent record of sent notifications.
type AuditLog interface {
	Insert(ctx context.Context, userID int, title, category string) error
}

// FeedPublisher pushes insight events onto the platform event bus.
type FeedPublisher interface {
	Publish(routingKey string, payload any) error
}

// Dispatcher is the second, independent anti-spam gate in front of actual
// delivery: one notification per day, and no identical title within the
// trailing three days of the capped send history.
type Dispatcher struct {
	kv        kvstore.Store
	notifier  Notifier
	audit     AuditLog
	publisher FeedPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewDispatcher(kv kvstore.Store, notifier Notifier, audit AuditLog, publisher FeedPublisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		kv:        kv,
		notifier:  notifier,
		audit:     audit,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

type notifiedEvent struct {
	UserID   int    `json:"user_id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	SentAt   string `json:"sent_at"`
}

type feedEvent struct {
	UserID   int    `json:"user_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	DedupKey string `json:"dedup_key"`
}

// Dispatch attempts to deliver the insight as a notification. A false return
// with a nil error is a normal suppressed-send outcome, not a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, userID int, insight *model.DailyInsight) (bool, error) {
	now := d.now()
	today := now.Format(model.DateFormat)

	if _, err := d.kv.Get(ctx, notifiedKey(userID, today)); err == nil {
		metrics.IncrementNotification("suppressed_daily")
		d.logger.Info("Notification already sent today, suppressing",
			zap.Int("user_id", userID),
		)
		return false, nil
	}

	if d.recentDuplicate(ctx, userID, insight.Title, now) {
		metrics.IncrementNotification("suppressed_duplicate")
		d.logger.Info("Identical title sent within the last 3 days, suppressing",
			zap.Int("user_id", userID),
			zap.String("title", insight.Title),
		)
		return false, nil
	}

	title := insight.Title
	if emoji, ok := categoryEmoji[insight.Category]; ok {
		title = emoji + " " + title
	}

	data := map[string]string{"category": insight.Category}
	if insight.DeepLink != "" {
		data["deep_link"] = insight.DeepLink
	}

	if err := d.notifier.Schedule(ctx, userID, title, insight.Body, data); err != nil {
		metrics.IncrementNotification("failed")
		d.logger.Error("Notification delivery failed",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return false, err
	}

	d.recordSend(ctx, userID, insight, now, today)
	metrics.IncrementNotification("sent")

	d.logger.Info("Notification sent",
		zap.Int("user_id", userID),
		zap.String("title", insight.Title),
		zap.String("category", insight.Category),
	)
	return true, nil
}

// recentDuplicate scans the capped history for the same title inside the
// duplicate window. History read failures fail open: delivery proceeds.
func (d *Dispatcher) recentDuplicate(ctx context.Context, userID int, title string, now time.Time) bool {
	items, err := d.kv.Range(ctx, historyKey(userID), 0, historyCap-1)
	if err != nil {
		d.logger.Warn("History read failed, allowing send",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return false
	}

	cutoff := now.Add(-duplicateWindow)
	for _, raw := range items {
		var item model.NotificationHistoryItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			continue
		}
		if item.Title == title && item.SentAt.After(cutoff) {
			return true
		}
	}
	return false
}

// recordSend appends to the history, flips the daily marker, and writes the
// best-effort audit trail and bus event. None of these may fail the send.
func (d *Dispatcher) recordSend(ctx context.Context, userID int, insight *model.DailyInsight, now time.Time, today string) {
	item := model.NotificationHistoryItem{
		ID:       fmt.Sprintf("%d-%d", userID, now.UnixNano()),
		Title:    insight.Title,
		Category: insight.Category,
		SentAt:   now,
	}
	if raw, err := json.Marshal(item); err == nil {
		if err := d.kv.PushCapped(ctx, historyKey(userID), string(raw), historyCap); err != nil {
			d.logger.Warn("History write failed", zap.Int("user_id", userID), zap.Error(err))
		}
	}

	if err := d.kv.Set(ctx, notifiedKey(userID, today), "1", 48*time.Hour); err != nil {
		d.logger.Warn("Notified marker write failed", zap.Int("user_id", userID), zap.Error(err))
	}

	if d.audit != nil {
		if err := d.audit.Insert(ctx, userID, insight.Title, insight.Category); err != nil {
			d.logger.Warn("Audit log write failed", zap.Int("user_id", userID), zap.Error(err))
		}
	}

	if d.publisher != nil {
		payload := notifiedEvent{
			UserID:   userID,
			Title:    insight.Title,
			Category: insight.Category,
			SentAt:   now.Format(time.RFC3339),
		}
		if err := d.publisher.Publish("insight.notified", payload); err != nil {
			d.logger.Warn("Failed to publish insight.notified event", zap.Error(err))
		}
	}
}

// History returns the most recent send-history items, newest first.
func (d *Dispatcher) History(ctx context.Context, userID int) []model.NotificationHistoryItem {
	raw, err := d.kv.Range(ctx, historyKey(userID), 0, historyCap-1)
	if err != nil {
		d.logger.Warn("History read failed", zap.Int("user_id", userID), zap.Error(err))
		return nil
	}

	items := make([]model.NotificationHistoryItem, 0, len(raw))
	for _, r := range raw {
		var item model.NotificationHistoryItem
		if err := json.Unmarshal([]byte(r), &item); err == nil {
			items = append(items, item)
		}
	}
	return items
}

// PublishToFeed surfaces the insight into the in-app feed. The per-day dedup
// key collapses repeat publications of the same day's insight; it is
// independent of the notification anti-spam gate.
func (d *Dispatcher) PublishToFeed(ctx context.Context, userID int, insight *model.DailyInsight) (string, error) {
	if d.publisher == nil {
		return "", nil
	}

	today := d.now().Format(model.DateFormat)
	dedupKey := fmt.Sprintf("feed:%d:%s:%s", userID, today, insight.Category)

	won, err := d.kv.SetNX(ctx, dedupKey, "1", 48*time.Hour)
	if err != nil {
		// Fail open when the dedup store is unreachable.
		d.logger.Warn("Feed dedup check failed, publishing anyway",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		won = true
	}
	if !won {
		d.logger.Info("Feed entry already published today, skipping",
			zap.Int("user_id", userID),
			zap.String("dedup_key", dedupKey),
		)
		return "", nil
	}

	payload := feedEvent{
		UserID:   userID,
		Title:    insight.Title,
		Body:     insight.Body,
		Category: insight.Category,
		Severity: string(insight.Severity),
		DedupKey: dedupKey,
	}
	if err := d.publisher.Publish("insight.generated", payload); err != nil {
		return "", fmt.Errorf("failed to publish feed event: %w", err)
	}
	return dedupKey, nil
}
