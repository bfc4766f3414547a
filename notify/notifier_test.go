package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewLogNotifier(zap.New(core))

	n.Error(context.Background(), "Requested quantity is out of stock")

	entries := logs.FilterMessage("notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "Requested quantity is out of stock", entries[0].ContextMap()["message"])
}

func TestMulti(t *testing.T) {
	var got []string
	record := func(prefix string) Notifier {
		return Func(func(_ context.Context, message string) {
			got = append(got, prefix+message)
		})
	}

	Multi{record("a:"), record("b:")}.Error(context.Background(), "boom")

	assert.Equal(t, []string{"a:boom", "b:boom"}, got)
}

func TestMulti_Empty(t *testing.T) {
	assert.NotPanics(t, func() {
		Multi(nil).Error(context.Background(), "ignored")
	})
}

func TestNATSNotifier(t *testing.T) {
	s := natsserver.RunRandClientPortServer()
	t.Cleanup(s.Shutdown)
	nc, err := nats.Connect(s.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	sub, err := nc.SubscribeSync(SubjectError)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	before := time.Now()
	NewNATSNotifier(nc, zaptest.NewLogger(t)).Error(context.Background(), "Failed to add product")

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "cart.notification.error", msg.Subject)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "error", payload["level"])
	assert.Equal(t, "Failed to add product", payload["message"])

	var n Notification
	require.NoError(t, json.Unmarshal(msg.Data, &n))
	assert.False(t, n.CreatedAt.Before(before.Truncate(time.Second)))
}

func TestNATSNotifier_ClosedConnection(t *testing.T) {
	s := natsserver.RunRandClientPortServer()
	t.Cleanup(s.Shutdown)
	nc, err := nats.Connect(s.ClientURL())
	require.NoError(t, err)
	nc.Close()

	core, logs := observer.New(zapcore.ErrorLevel)
	NewNATSNotifier(nc, zap.New(core)).Error(context.Background(), "Failed to remove product")

	assert.Equal(t, 1, logs.FilterMessage("Failed to publish notification").Len())
}
