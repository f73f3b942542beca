// Package notifications publishes curation and engagement events into Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

// Notifier provides helpers to publish pipeline events into Redis channels.
// A nil Redis client disables publishing without failing callers.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishLifecycle announces a recitation status transition to the
// uploader's channel.
func (n *Notifier) PublishLifecycle(
	ctx context.Context, uploaderID string, recitationID uint, from, to, reason string,
) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":          "lifecycle",
		"recitation_id": recitationID,
		"from":          from,
		"to":            to,
		"reason":        reason,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	channel := fmt.Sprintf("events:user:%s", uploaderID)
	return n.rdb.Publish(ctx, channel, string(payload)).Err()
}

// PublishEngagement announces a like toggle to the uploader's channel.
func (n *Notifier) PublishEngagement(
	ctx context.Context, uploaderID string, recitationID uint, actorID string, liked bool,
) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":          "engagement",
		"recitation_id": recitationID,
		"actor_id":      actorID,
		"liked":         liked,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	channel := fmt.Sprintf("events:user:%s", uploaderID)
	return n.rdb.Publish(ctx, channel, string(payload)).Err()
}

// PublishModeration announces a moderation rejection so review tooling can
// surface it.
func (n *Notifier) PublishModeration(
	ctx context.Context, uploaderID string, stage string, accepted bool,
) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":        "moderation",
		"uploader_id": uploaderID,
		"stage":       stage,
		"accepted":    accepted,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, "events:moderation", string(payload)).Err()
}

// StartPatternSubscriber subscribes to `events:user:*` and the moderation
// channel and calls onMessage for each incoming message.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "events:user:*", "events:moderation")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
