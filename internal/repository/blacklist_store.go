package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// BlacklistStore records refresh tokens revoked by logout. Each entry is a
// Redis key whose TTL is the token's remaining lifetime, so entries vanish
// on their own once the token could no longer be used anyway.
type BlacklistStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewBlacklistStore(rdb redis.UniversalClient, prefix string) *BlacklistStore {
	if prefix == "" {
		prefix = "auth"
	}
	return &BlacklistStore{rdb: rdb, prefix: prefix}
}

func (s *BlacklistStore) key(tokenHash string) string { return s.prefix + ":bl:" + tokenHash }

// Add blacklists a token hash for ttl. A non-positive ttl means the token
// has already expired and nothing is stored.
func (s *BlacklistStore) Add(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, s.key(tokenHash), 1, ttl).Err()
}

// Claim blacklists a token hash only if it is not listed yet and reports
// whether this call added it. Single-use tokens are claimed this way so two
// concurrent uses cannot both pass. A non-positive ttl claims nothing.
func (s *BlacklistStore) Claim(ctx context.Context, tokenHash string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	return s.rdb.SetNX(ctx, s.key(tokenHash), 1, ttl).Result()
}

// Contains reports whether a token hash is blacklisted.
func (s *BlacklistStore) Contains(ctx context.Context, tokenHash string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(tokenHash)).Result()
	return n > 0, err
}
