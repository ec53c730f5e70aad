package broadcast

import (
	"context"
	"strings"

	"github.com/park285/chess-match-server/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const topicPrefix = "match:events:"

// RedisBroadcaster carries match state over redis pub/sub, one channel
// per match id, so subscribers on other nodes see the same stream.
type RedisBroadcaster struct {
	rdb *redis.Client
}

func NewRedisBroadcaster(rdb *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb}
}

func topic(matchID string) string { return topicPrefix + strings.TrimSpace(matchID) }

func (b *RedisBroadcaster) Publish(ctx context.Context, matchID string, payload []byte) error {
	return b.rdb.Publish(ctx, topic(matchID), payload).Err()
}

func (b *RedisBroadcaster) Subscribe(ctx context.Context, matchID string) (<-chan []byte, func(), error) {
	sub := b.rdb.Subscribe(ctx, topic(matchID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					// Slow subscriber: drop the frame, at-most-once.
					obslog.L().Debug("broadcast_frame_dropped", zap.String("match_id", matchID))
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		close(done)
		_ = sub.Close()
	}
	return out, cancel, nil
}
