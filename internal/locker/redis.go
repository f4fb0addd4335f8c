package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/apptsched/internal/scheduling"
)

const (
	defaultTTL  = 10 * time.Second
	defaultPoll = 50 * time.Millisecond
	keyPrefix   = "apptsched:day"
)

// Release only deletes the key while the holder's token is still current,
// so a lock that expired and was re-acquired by another instance is never
// released from under it.
var redisReleaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis implements the day lock with SET NX PX so multiple service
// instances serialize bookings for the same (subject, day). The TTL caps
// how long a crashed holder can block a day.
type Redis struct {
	rdb  *redis.Client
	wait time.Duration
	ttl  time.Duration
	poll time.Duration
}

func NewRedis(rdb *redis.Client, wait, ttl time.Duration) *Redis {
	if wait <= 0 {
		wait = defaultWait
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{rdb: rdb, wait: wait, ttl: ttl, poll: defaultPoll}
}

func (r *Redis) Acquire(ctx context.Context, subjectID int64, day string) (func(), error) {
	key := fmt.Sprintf("%s:%d:%s", keyPrefix, subjectID, day)
	token := uuid.NewString()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("locker: acquire %s: %w", key, err)
		}
		if ok {
			release := func() {
				// Detached context: the lock must be released even when the
				// request context is already cancelled.
				relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_, _ = redisReleaseScript.Run(relCtx, r.rdb, []string{key}, token).Result()
			}
			return release, nil
		}
		if time.Now().After(deadline) {
			return nil, &scheduling.BusyError{SubjectID: subjectID, Day: day}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.poll):
		}
	}
}

// ReadyCheck pings Redis for /readyz.
func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
