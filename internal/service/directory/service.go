// Package directory resolves usernames to identities, optionally through a
// Redis cache.
package directory

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/iamasit07/realtime-chat/internal/domain"
)

const identityKeyPrefix = "identity:"

type UserFinder interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.Identity, error)
}

type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type Service struct {
	users UserFinder
	cache CacheRepository // Optional, can be nil
	ttl   time.Duration
}

func NewService(users UserFinder, cache CacheRepository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{users: users, cache: cache, ttl: ttl}
}

// Resolve returns the public fields of the identity named username, or nil when
// there is none. Only hits are cached.
func (s *Service) Resolve(ctx context.Context, username string) (*domain.Identity, error) {
	if s.cache != nil {
		if identity := s.fromCache(ctx, username); identity != nil {
			return identity, nil
		}
	}

	identity, err := s.users.GetUserByUsername(ctx, username)
	if err != nil || identity == nil {
		return nil, err
	}
	public := identity.Public()

	if s.cache != nil {
		data, err := json.Marshal(public)
		if err == nil {
			if cacheErr := s.cache.Set(ctx, identityKeyPrefix+username, data, s.ttl); cacheErr != nil {
				log.Printf("[REDIS] Warning: Failed to cache identity %s: %v", username, cacheErr)
			}
		}
	}
	return public, nil
}

func (s *Service) fromCache(ctx context.Context, username string) *domain.Identity {
	data, err := s.cache.Get(ctx, identityKeyPrefix+username)
	if err != nil || data == "" {
		return nil
	}
	var identity domain.Identity
	if err := json.Unmarshal([]byte(data), &identity); err != nil {
		return nil
	}
	return &identity
}
