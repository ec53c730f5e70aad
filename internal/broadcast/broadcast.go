// Package broadcast fans serialized match state out to subscribers.
// Delivery is best-effort, at-most-once; a missed frame is repaired by
// the subscriber's next state fetch.
package broadcast

import "context"

// Publisher pushes one serialized state frame to a match topic.
type Publisher interface {
	Publish(ctx context.Context, matchID string, payload []byte) error
}

// Subscriber attaches to a match topic. The cancel func must be called
// to release the subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, matchID string) (<-chan []byte, func(), error)
}
