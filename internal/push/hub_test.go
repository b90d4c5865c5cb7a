package push

import (
	"encoding/json"
	"testing"

	"github.com/fittrack/fittrack/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHubPublish(t *testing.T) {
	hub := NewHub(metrics.NewTestManager())

	userSub := hub.subscribe([]string{"user-5"})
	adminSub := hub.subscribe([]string{"user-1", "admin-channel"})
	defer hub.unsubscribe(userSub)
	defer hub.unsubscribe(adminSub)

	hub.Publish("user-5", "new-notification", map[string]string{"title": "hey"})

	// only the subscribed client receives it
	require.Len(t, userSub.send, 1)
	assert.Empty(t, adminSub.send)

	var env envelope
	require.NoError(t, json.Unmarshal(<-userSub.send, &env))
	assert.Equal(t, "new-notification", env.Event)

	hub.Publish("admin-channel", "admin-notification", map[string]string{"title": "admin hey"})
	require.Len(t, adminSub.send, 1)
	assert.Empty(t, userSub.send)
}

func TestHubPublish_NoSubscribers(t *testing.T) {
	hub := NewHub(metrics.NewTestManager())
	// nobody listening: a publish is simply lost, no panic
	hub.Publish("user-404", "new-notification", map[string]string{"title": "void"})
}

func TestHubPublish_SlowClientDropped(t *testing.T) {
	hub := NewHub(metrics.NewTestManager())

	sub := hub.subscribe([]string{"user-5"})
	defer hub.unsubscribe(sub)

	// fill the buffer and overflow it, the hub must not block
	for i := 0; i < sendBufferSize+10; i++ {
		hub.Publish("user-5", "new-notification", map[string]int{"i": i})
	}
	assert.Len(t, sub.send, sendBufferSize)
}

func TestHubUnsubscribe_Idempotent(t *testing.T) {
	hub := NewHub(metrics.NewTestManager())

	sub := hub.subscribe([]string{"user-5", "admin-channel"})
	hub.unsubscribe(sub)
	// second unsubscribe from the other pump goroutine is a no-op
	hub.unsubscribe(sub)

	hub.Publish("user-5", "new-notification", "gone")
}
