// Package notify delivers user-facing error messages to a presentation side channel.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectError is the NATS subject error notifications are published on.
const SubjectError = "cart.notification.error"

type Notifier interface {
	Error(ctx context.Context, message string)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, message string)

func (f Func) Error(ctx context.Context, message string) { f(ctx, message) }

// LogNotifier writes notifications to the logger.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Error(_ context.Context, message string) {
	n.logger.Error("notification", zap.String("message", message))
}

// Notification is the payload published by NATSNotifier.
type Notification struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NATSNotifier publishes notifications for a front-end to present as toasts.
type NATSNotifier struct {
	natsConn *nats.Conn
	subject  string
	logger   *zap.Logger
}

func NewNATSNotifier(natsConn *nats.Conn, logger *zap.Logger) *NATSNotifier {
	return &NATSNotifier{
		natsConn: natsConn,
		subject:  SubjectError,
		logger:   logger,
	}
}

func (n *NATSNotifier) Error(_ context.Context, message string) {
	data, err := json.Marshal(Notification{Level: "error", Message: message, CreatedAt: time.Now()})
	if err != nil {
		n.logger.Error("Failed to marshal notification", zap.Error(err))
		return
	}
	if err = n.natsConn.Publish(n.subject, data); err != nil {
		n.logger.Error("Failed to publish notification", zap.String("subject", n.subject), zap.Error(err))
	}
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Error(ctx context.Context, message string) {
	for _, n := range m {
		n.Error(ctx, message)
	}
}
