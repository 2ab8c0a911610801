package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/token-service/internal/domain"
)

// ErrInvalidTTL is returned when a credential would be stored without expiry.
var ErrInvalidTTL = errors.New("credential ttl must be positive")

// Hash fields of a cached credential in Redis.
const (
	fieldValue         = "value"
	fieldUser          = "user"
	fieldRole          = "role"
	fieldChannel       = "channel"
	fieldExpirationTTL = "expirationTtl"
	fieldCustomAppCert = "customAppCert"
)

// CredentialRepository is a TTL-evicting store of signed credentials.
// Entries are never deleted explicitly; they disappear when their TTL lapses.
type CredentialRepository interface {
	// Get returns the cached token for key. found is false on a miss.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Put stores cred under cred.Key for ttl.
	Put(ctx context.Context, cred domain.CachedCredential, ttl time.Duration) error
	Ping(ctx context.Context) error
}

type redisCredentialRepository struct {
	client *redis.Client
}

// NewRedisCredentialRepository returns a Redis-backed implementation storing each credential as a hash.
func NewRedisCredentialRepository(client *redis.Client) CredentialRepository {
	return &redisCredentialRepository{client: client}
}

func (r *redisCredentialRepository) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.HGet(ctx, key, fieldValue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (r *redisCredentialRepository) Put(ctx context.Context, cred domain.CachedCredential, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, cred.Key)
		pipe.HSet(ctx, cred.Key,
			fieldValue, cred.Value,
			fieldUser, cred.Metadata.User,
			fieldRole, cred.Metadata.Role,
			fieldChannel, cred.Metadata.Channel,
			fieldExpirationTTL, strconv.Itoa(cred.Metadata.ExpirationTTL),
			fieldCustomAppCert, strconv.FormatBool(cred.Metadata.CustomAppCert),
		)
		pipe.Expire(ctx, cred.Key, ttl)
		return nil
	})
	return err
}

func (r *redisCredentialRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
