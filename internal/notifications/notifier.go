// Package notifications publishes engagement events to Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types carried on the engagement channels.
const (
	EventCommentCreated = "comment.created"
	EventCommentUpdated = "comment.updated"
	EventCommentDeleted = "comment.deleted"
	EventPostLiked      = "post.liked"
	EventPostUnliked    = "post.unliked"
)

// BroadcastChannel receives every engagement event.
const BroadcastChannel = "engagement:broadcast"

// Event is the JSON payload published for one engagement change.
type Event struct {
	Type       string    `json:"type"`
	PostID     uint      `json:"post_id"`
	CommentID  uint      `json:"comment_id,omitempty"`
	ParentID   *uint     `json:"parent_id,omitempty"`
	UserID     uint      `json:"user_id,omitempty"`
	LikesCount *int64    `json:"likes_count,omitempty"`
	At         time.Time `json:"at"`
}

// Notifier provides helpers to publish events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PostChannel derives the Redis channel name for a post.
func PostChannel(postID uint) string {
	return "engagement:post:" + strconv.FormatUint(uint64(postID), 10)
}

// PublishPost sends an event to the post's channel.
func (n *Notifier) PublishPost(ctx context.Context, event Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := encode(event)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, PostChannel(event.PostID), payload).Err()
}

// PublishBroadcast sends an event to every subscriber of the broadcast channel.
func (n *Notifier) PublishBroadcast(ctx context.Context, event Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := encode(event)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

// Publish fans an event out to its post channel and the broadcast channel
// in one pipeline.
func (n *Notifier) Publish(ctx context.Context, event Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := encode(event)
	if err != nil {
		return err
	}
	_, err = n.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Publish(ctx, PostChannel(event.PostID), payload)
		p.Publish(ctx, BroadcastChannel, payload)
		return nil
	})
	return err
}

func encode(event Event) (string, error) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	b, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return string(b), nil
}
