package events_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/opsportal/internal/events"
	"github.com/stretchr/testify/require"
)

// envRedisURL names the variable holding the redis URL used by integration tests.
const envRedisURL = "OPSPORTAL_TEST_REDIS_URL"

func TestRedisRelay(t *testing.T) {
	t.Parallel()

	url := os.Getenv(envRedisURL)
	if url == "" {
		t.Skipf("%s not set; skipping redis integration test", envRedisURL)
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	channel := "drive-events-test-" + time.Now().Format("150405.000000000")
	target := &recordingNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := events.NewRelay(client, channel, target)

	done := make(chan error, 1)

	go func() { done <- relay.Run(ctx) }()

	publisher := events.NewRedisNotifier(client, channel)

	// Publish until the relay has subscribed and forwarded one event.
	require.Eventually(t, func() bool {
		_ = publisher.Publish(ctx, events.New(events.FolderCreated, 7))

		return target.count() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
