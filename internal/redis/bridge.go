// Package redis bridges room events between server instances over Redis
// pub/sub, so sessions connected to different instances see the same fan-out.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"chat-status/internal/models"
)

const channelPrefix = "room:"

// Injector delivers a relayed event to local subscribers only.
type Injector interface {
	Inject(room string, ev models.Event)
}

// Bridge publishes locally originated events to Redis and injects events
// published by other instances into the local hub. Every instance tags its
// envelopes with a random origin ID and skips its own on the way back in.
type Bridge struct {
	rdb    *redis.Client
	origin string
}

// NewBridge connects to Redis at redisURL and verifies the connection.
func NewBridge(redisURL string) (*Bridge, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	origin := uuid.NewString()
	slog.Info("[REDIS] Connected", "origin", origin)
	return &Bridge{rdb: rdb, origin: origin}, nil
}

func (b *Bridge) Close() error {
	return b.rdb.Close()
}

// Relay publishes ev to the room's Redis channel. Implements ws.Relay.
func (b *Bridge) Relay(room string, ev models.Event) error {
	payload, err := models.EncodeEvent(b.origin, room, ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(context.Background(), channelPrefix+room, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s%s: %w", channelPrefix, room, err)
	}
	return nil
}

// Listen subscribes to all room channels and injects remote events into hub
// until ctx is cancelled.
func (b *Bridge) Listen(ctx context.Context, hub Injector) {
	pubsub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		slog.Error("[REDIS] Failed to receive subscription confirmation", "error", err)
		return
	}
	slog.Info("[REDIS] Subscribed", "pattern", channelPrefix+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				slog.Info("[REDIS] Pub/sub channel closed")
				return
			}
			env, ev, err := models.DecodeEvent([]byte(msg.Payload))
			if err != nil {
				slog.Error("[REDIS] Bad envelope", "channel", msg.Channel, "error", err)
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			hub.Inject(env.Room, ev)
		}
	}
}
