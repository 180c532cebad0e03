package redis

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/threadpulse/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// tokenBucketScript refills the bucket for the elapsed time, takes one token
// if available and stores the new level. The key expires once a full refill
// would have happened anyway.
// ARGV: [1]=now_ms, [2]=capacity, [3]=tokens per minute
var tokenBucketScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local per_ms = tonumber(ARGV[3]) / 60000.0
local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local last = tonumber(redis.call('HGET', KEYS[1], 'last'))
if tokens == nil or last == nil then
  tokens = capacity
  last = now
end
tokens = math.min(capacity, tokens + math.max(0, now - last) * per_ms)
local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end
redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'last', tostring(now))
redis.call('PEXPIRE', KEYS[1], math.ceil(capacity / per_ms) + 1000)
return allowed
`)

// VoteRateLimiter implements a per-user token bucket for vote casting.
type VoteRateLimiter struct {
	rdb       goredis.Scripter
	clock     clockwork.Clock
	capacity  int
	perMinute int
}

var _ domain.VoteLimiter = (*VoteRateLimiter)(nil)

// NewVoteRateLimiter creates a limiter allowing bursts of capacity votes and
// perMinute votes sustained.
func NewVoteRateLimiter(rdb goredis.Scripter, clock clockwork.Clock, capacity, perMinute int) *VoteRateLimiter {
	return &VoteRateLimiter{
		rdb:       rdb,
		clock:     clock,
		capacity:  capacity,
		perMinute: perMinute,
	}
}

// Allow consumes a token for userID. It returns false when the bucket is
// empty.
func (v *VoteRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	allowed, err := tokenBucketScript.Run(ctx, v.rdb,
		[]string{voteLimitKey(userID)},
		v.clock.Now().UnixMilli(),
		v.capacity,
		v.perMinute,
	).Int()
	if err != nil {
		return false, fmt.Errorf("vote rate limit check failed: %w", err)
	}
	return allowed == 1, nil
}

func voteLimitKey(userID string) string {
	return "rate_limit:votes:" + userID
}
