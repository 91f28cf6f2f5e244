package notifier

import (
	"context"

	"go.uber.org/zap"
	"huginn/apps/huginn/internal/metrics"
	"huginn/apps/huginn/internal/model"
)

// Notifier delivers a notification to its subscriber.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// MultiNotifier fans a notification out to every configured channel.
type MultiNotifier struct {
	notifiers []Notifier
	logger    *zap.Logger
}

func NewMultiNotifier(logger *zap.Logger, notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		notifiers: notifiers,
		logger:    logger,
	}
}

// Notify sends to all channels and returns the first error. A failing channel does not stop the
// others.
func (m *MultiNotifier) Notify(ctx context.Context, n model.Notification) error {
	var firstErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			metrics.NotificationFailures.WithLabelValues(channelName(notifier)).Inc()
			m.logger.Warn("Notification delivery failed",
				zap.String("channel", channelName(notifier)),
				zap.String("subscriber_id", n.SubscriberID),
				zap.String("event_type", string(n.Kind)),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func channelName(n Notifier) string {
	switch n.(type) {
	case *TelegramNotifier:
		return "telegram"
	case *KafkaNotifier:
		return "kafka"
	case *LogNotifier:
		return "log"
	default:
		return "unknown"
	}
}

// LogNotifier only logs. Used when no delivery channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n model.Notification) error {
	l.logger.Info("Notification",
		zap.String("subscriber_id", n.SubscriberID),
		zap.String("wallet_address", n.Address),
		zap.String("event_type", string(n.Kind)),
		zap.Strings("identifiers", n.Identifiers))
	return nil
}
