package repository

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/spec-kit/token-service/internal/domain"
)

type memoryCredentialRepository struct {
	cache *cache.Cache
}

// NewMemoryCredentialRepository returns a process-local store. Expired entries are
// invisible immediately and purged every cleanupInterval.
func NewMemoryCredentialRepository(cleanupInterval time.Duration) CredentialRepository {
	return &memoryCredentialRepository{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (r *memoryCredentialRepository) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := r.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	cred, ok := v.(domain.CachedCredential)
	if !ok {
		return "", false, nil
	}
	return cred.Value, true, nil
}

func (r *memoryCredentialRepository) Put(_ context.Context, cred domain.CachedCredential, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	r.cache.Set(cred.Key, cred, ttl)
	return nil
}

func (r *memoryCredentialRepository) Ping(context.Context) error {
	return nil
}
