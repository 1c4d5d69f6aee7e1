package insight

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Notifier is the OS notification port. Delivery is not guaranteed; the
// platform layer may still suppress a scheduled notification.
type Notifier interface {
	Schedule(ctx context.Context, userID int, title, body string, data map[string]string) error
}

// PushNotifier schedules device push notifications.
type PushNotifier struct {
	logger *zap.Logger
}

func NewPushNotifier(logger *zap.Logger) *PushNotifier {
	return &PushNotifier{logger: logger}
}

func (n *PushNotifier) Schedule(ctx context.Context, userID int, title, body string, data map[string]string) error {
	// TODO: Implement push delivery (FCM, APNS) once device tokens are synced
	n.logger.Info("Scheduling push notification",
		zap.Int("user_id", userID),
		zap.String("title", title),
	)
	time.Sleep(100 * time.Millisecond)
	return nil
}
