package redis

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
)

const revokeChannel = "session:revoke"

// Subscriber is the part of the Redis client revocation listening needs.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *goredis.PubSub
}

// ListenForRevocations drops tokens revoked on other instances from the
// in-memory cache. Blocks until ctx is cancelled.
func (s *SessionStore) ListenForRevocations(ctx context.Context, sub Subscriber) {
	pubsub := sub.Subscribe(ctx, revokeChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handleRevocation(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *SessionStore) handleRevocation(token string) {
	if token == "" {
		slog.Warn("Ignoring empty session revocation message")
		return
	}
	s.mem.invalidate(token)
	if s.metrics != nil {
		s.metrics.RemoteRevocations.Inc()
	}
}
