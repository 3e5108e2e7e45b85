package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultResetAttempts is the number of wrong guesses a reset code
// survives when no limit is configured.
const DefaultResetAttempts = 5

// ResetCodeStore keeps the latest password-reset code per (kind, email) as
// a Redis hash of {hash, attempts}. Only a hash of the code is stored;
// saving again overwrites the previous code, resets the attempt counter and
// restarts the TTL. A code is deleted after maxAttempts wrong guesses.
type ResetCodeStore struct {
	rdb         redis.UniversalClient
	prefix      string
	maxAttempts int
}

func NewResetCodeStore(rdb redis.UniversalClient, prefix string) *ResetCodeStore {
	if prefix == "" {
		prefix = "auth"
	}
	return &ResetCodeStore{rdb: rdb, prefix: prefix, maxAttempts: DefaultResetAttempts}
}

// WithMaxAttempts overrides the wrong-guess limit. Values below 1 are
// ignored.
func (s *ResetCodeStore) WithMaxAttempts(n int) *ResetCodeStore {
	if n > 0 {
		s.maxAttempts = n
	}
	return s
}

func (s *ResetCodeStore) key(kind, email string) string {
	return s.prefix + ":pwreset:" + kind + ":" + NormalizeEmail(email)
}

// Save upserts the code hash for ttl.
func (s *ResetCodeStore) Save(ctx context.Context, kind, email, codeHash string, ttl time.Duration) error {
	key := s.key(kind, email)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", codeHash, "attempts", 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// Consume compares codeHash with the stored hash and deletes the entry on
// a match. It reports false when no code is stored or the hash differs; a
// miss counts against the attempt limit and the last allowed miss deletes
// the code. The whole check runs under WATCH so a code is consumed at most
// once and concurrent misses are all counted.
func (s *ResetCodeStore) Consume(ctx context.Context, kind, email, codeHash string) (bool, error) {
	key := s.key(kind, email)
	for i := 0; i < consumeRetries; i++ {
		matched, err := s.consume(ctx, key, codeHash)
		if !errors.Is(err, redis.TxFailedErr) {
			return matched, err
		}
	}
	return false, nil
}

// consumeRetries bounds the WATCH retries of one Consume call.
const consumeRetries = 10

func (s *ResetCodeStore) consume(ctx context.Context, key, codeHash string) (bool, error) {
	matched := false
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		stored, ok := rec["hash"]
		if !ok {
			return nil
		}
		if subtle.ConstantTimeCompare([]byte(stored), []byte(codeHash)) == 1 {
			matched = true
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}
		attempts, _ := strconv.Atoi(rec["attempts"])
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if attempts+1 >= s.maxAttempts {
				pipe.Del(ctx, key)
			} else {
				pipe.HIncrBy(ctx, key, "attempts", 1)
			}
			return nil
		})
		return err
	}, key)
	if err != nil {
		matched = false
	}
	return matched, err
}
