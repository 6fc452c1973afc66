package hitcounter

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	hperrors "github.com/vnykmshr/hitpool/pkg/common/errors"
	"github.com/vnykmshr/hitpool/pkg/common/validation"
)

const moduleName = "hitcounter"

// RedisConfig configures a Redis-backed counter.
type RedisConfig struct {
	// Client is the Redis client (required). Any of redis.Client,
	// redis.ClusterClient or redis.Ring.
	Client redis.UniversalClient

	// Key holds the counter (default: "hitpool:hits").
	Key string

	// Timeout bounds each Redis call. Zero means the caller's context alone.
	Timeout time.Duration
}

// DefaultRedisKey is used when RedisConfig.Key is empty.
const DefaultRedisKey = "hitpool:hits"

// Redis is a Counter shared by every process pointed at the same key.
type Redis struct {
	client  redis.UniversalClient
	key     string
	timeout time.Duration
}

// NewRedis validates config and returns a Redis counter. It does not contact
// the server; call Ping to check connectivity.
func NewRedis(config RedisConfig) (*Redis, error) {
	if config.Client == nil {
		return nil, validation.ValidateNotNil(moduleName, "client", nil)
	}
	if config.Key == "" {
		config.Key = DefaultRedisKey
	}
	if err := validation.ValidateNonNegativeDuration(moduleName, "timeout", config.Timeout); err != nil {
		return nil, err
	}

	return &Redis{
		client:  config.Client,
		key:     config.Key,
		timeout: config.Timeout,
	}, nil
}

func (r *Redis) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Ping checks that the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return hperrors.NewOperationError(moduleName, "Ping", err)
	}
	return nil
}

// Increment implements Counter using INCR.
func (r *Redis) Increment(ctx context.Context) (uint64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := r.client.Incr(ctx, r.key).Uint64()
	if err != nil {
		return 0, r.wrap(ctx, "Increment", err)
	}
	return n, nil
}

// Value implements Counter. A missing key reads as zero.
func (r *Redis) Value(ctx context.Context) (uint64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := r.client.Get(ctx, r.key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, r.wrap(ctx, "Value", err)
	}
	return n, nil
}

// Key returns the Redis key holding the counter.
func (r *Redis) Key() string {
	return r.key
}

// wrap marks deadline failures with ErrTimeout. go-redis reports an expired
// call either as the context error or as a net.Error from the socket deadline.
func (r *Redis) wrap(ctx context.Context, op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		err = errors.Join(hperrors.ErrTimeout, err)
	}
	return hperrors.NewOperationError(moduleName, op, err).WithContext("key " + r.key)
}
