package verification

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"food-delivery-platform/auth/internal/platform/autherr"
)

// Challenge is a pending email verification.
type Challenge struct {
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
}

// Store persists challenges by email. Put replaces any pending challenge for the email.
type Store interface {
	Put(ctx context.Context, c *Challenge) error
	// Get returns the challenge, or an autherr.NotFound error when absent or expired.
	Get(ctx context.Context, email string) (*Challenge, error)
	// IncrementAttempts atomically bumps the attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, email string) (int, error)
	Delete(ctx context.Context, email string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]Challenge
	nowF func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]Challenge), nowF: time.Now}
}

func (s *MemoryStore) Put(ctx context.Context, c *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[c.Email] = *c
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, email string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.m[email]
	if !ok {
		return nil, autherr.New(autherr.NotFound, "otp.get")
	}
	if !c.ExpiresAt.After(s.nowF()) {
		delete(s.m, email)
		return nil, autherr.New(autherr.NotFound, "otp.get")
	}
	return &c, nil
}

func (s *MemoryStore) IncrementAttempts(ctx context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.m[email]
	if !ok {
		return 0, autherr.New(autherr.NotFound, "otp.attempt")
	}
	c.Attempts++
	s.m[email] = c
	return c.Attempts, nil
}

func (s *MemoryStore) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, email)
	return nil
}

// RedisStore keeps each challenge as a hash at "{prefix}:otp:{email}" expiring with the code.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(email string) string { return s.prefix + ":otp:" + email }

func (s *RedisStore) Put(ctx context.Context, c *Challenge) error {
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return autherr.New(autherr.Invalid, "otp.put")
	}
	key := s.key(c.Email)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code_hash", c.CodeHash,
			"expires_at", c.ExpiresAt.UTC().Unix(),
			"attempts", c.Attempts,
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return autherr.Wrap(autherr.Unavailable, "otp.put", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, email string) (*Challenge, error) {
	vals, err := s.client.HGetAll(ctx, s.key(email)).Result()
	if err != nil {
		return nil, autherr.Wrap(autherr.Unavailable, "otp.get", err)
	}
	if len(vals) == 0 {
		return nil, autherr.New(autherr.NotFound, "otp.get")
	}
	exp, _ := strconv.ParseInt(vals["expires_at"], 10, 64)
	attempts, _ := strconv.Atoi(vals["attempts"])
	return &Challenge{
		Email:     email,
		CodeHash:  vals["code_hash"],
		ExpiresAt: time.Unix(exp, 0).UTC(),
		Attempts:  attempts,
	}, nil
}

// incrAttempts bumps attempts only while the challenge exists, so an expired key is never recreated without a TTL.
var incrAttempts = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

func (s *RedisStore) IncrementAttempts(ctx context.Context, email string) (int, error) {
	v, err := incrAttempts.Run(ctx, s.client, []string{s.key(email)}).Int()
	if err != nil {
		return 0, autherr.Wrap(autherr.Unavailable, "otp.attempt", err)
	}
	if v < 0 {
		return 0, autherr.New(autherr.NotFound, "otp.attempt")
	}
	return v, nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, s.key(email)).Err(); err != nil {
		return autherr.Wrap(autherr.Unavailable, "otp.delete", err)
	}
	return nil
}
