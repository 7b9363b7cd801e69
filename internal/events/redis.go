package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultChannel is the pub/sub channel drive events travel on.
const DefaultChannel = "drive-events"

// RedisNotifier publishes events so every portal instance can relay them to
// its own WebSocket clients.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisNotifier creates a notifier publishing on channel.
func NewRedisNotifier(client redis.UniversalClient, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}

	return &RedisNotifier{client: client, channel: channel}
}

// Notify publishes e in the background. Failures are logged.
func (n *RedisNotifier) Notify(ctx context.Context, e Event) {
	ctx = context.WithoutCancel(ctx)

	go func() {
		if err := n.Publish(ctx, e); err != nil {
			log.Warn().Err(err).Str("event_type", string(e.Type)).Str("channel", n.channel).Msg("Failed to publish drive event")
		}
	}()
}

// Publish sends e and waits for redis to accept it.
func (n *RedisNotifier) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Relay forwards events published on a redis channel to a local notifier.
type Relay struct {
	client  redis.UniversalClient
	channel string
	target  Notifier
}

// NewRelay creates a relay from channel to target.
func NewRelay(client redis.UniversalClient, channel string, target Notifier) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}

	return &Relay{client: client, channel: channel, target: target}
}

// Run subscribes and forwards events until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before relaying.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	log.Info().Str("channel", r.channel).Msg("Relaying drive events")

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			r.forward(ctx, msg.Payload)
		}
	}
}

func (r *Relay) forward(ctx context.Context, payload string) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		log.Warn().Err(err).Str("channel", r.channel).Msg("Dropping malformed drive event")

		return
	}

	if !e.Valid() {
		log.Warn().Str("event_type", string(e.Type)).Msg("Dropping drive event of unknown type")

		return
	}

	r.target.Notify(ctx, e)
}
