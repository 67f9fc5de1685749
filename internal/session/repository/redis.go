package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"food-delivery-platform/auth/internal/platform/autherr"
	"food-delivery-platform/auth/internal/session/domain"
)

// revokeAllScript deletes every indexed session of one user and then the index, in one
// atomic step so a concurrent Put is either fully revoked or fully kept.
// KEYS[1] is the index; ARGV[1] is the session key prefix "{prefix}:{userId}:".
var revokeAllScript = redis.NewScript(`
local devices = redis.call('SMEMBERS', KEYS[1])
local n = 0
for _, d in ipairs(devices) do
	n = n + redis.call('DEL', ARGV[1] .. d)
end
redis.call('DEL', KEYS[1])
return n
`)

// pruneScript removes index entries only while their session key is still absent.
// KEYS[1] is the index; ARGV[1] is the session key prefix; ARGV[2..] are device ids.
var pruneScript = redis.NewScript(`
local n = 0
for i = 2, #ARGV do
	if redis.call('EXISTS', ARGV[1] .. ARGV[i]) == 0 then
		n = n + redis.call('SREM', KEYS[1], ARGV[i])
	end
end
return n
`)

// RedisStore keeps each session as JSON at "{prefix}:{userId}:{deviceId}" with a native
// TTL, plus a set of device ids per user at "{prefix}:idx:{userId}". The index costs one
// extra write per login and makes RevokeAll proportional to the user's devices instead of
// a SCAN over every session.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	nowF   func() time.Time
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, nowF: time.Now}
}

// SetClock replaces the store's time source. Intended for tests.
func (s *RedisStore) SetClock(now func() time.Time) { s.nowF = now }

// Put writes the session and its index entry in one transaction. The session key is a
// full overwrite, so concurrent logins on one device resolve to the last writer.
func (s *RedisStore) Put(ctx context.Context, sess *domain.Session) error {
	const op = "session.put"
	if err := domain.ValidateKeyParts(sess.UserID, sess.DeviceID); err != nil {
		return autherr.Wrap(autherr.Invalid, op, err)
	}
	ttl := sess.TTL(s.nowF())
	if ttl <= 0 {
		return autherr.New(autherr.Invalid, op)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	idx := domain.IndexKey(s.prefix, sess.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sess.Key(s.prefix), data, ttl)
		pipe.SAdd(ctx, idx, sess.DeviceID)
		// All sessions share the configured lifetime, so the newest write carries the longest TTL.
		pipe.Expire(ctx, idx, ttl)
		return nil
	})
	if err != nil {
		return autherr.Wrap(autherr.Unavailable, op, err)
	}
	return nil
}

// Get returns the session for the pair, or an autherr.NotFound error.
func (s *RedisStore) Get(ctx context.Context, userID, deviceID string) (*domain.Session, error) {
	const op = "session.get"
	data, err := s.client.Get(ctx, domain.Key(s.prefix, userID, deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, autherr.New(autherr.NotFound, op)
	}
	if err != nil {
		return nil, autherr.Wrap(autherr.Unavailable, op, err)
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session: unmarshal %s: %w", op, err)
	}
	return &sess, nil
}

// Revoke deletes one session and its index entry.
func (s *RedisStore) Revoke(ctx context.Context, userID, deviceID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, domain.Key(s.prefix, userID, deviceID))
		pipe.SRem(ctx, domain.IndexKey(s.prefix, userID), deviceID)
		return nil
	})
	if err != nil {
		return autherr.Wrap(autherr.Unavailable, "session.revoke", err)
	}
	return nil
}

// RevokeAll deletes every indexed session of userID together with the index.
func (s *RedisStore) RevokeAll(ctx context.Context, userID string) (int, error) {
	const op = "session.revoke_all"
	n, err := revokeAllScript.Run(ctx, s.client,
		[]string{domain.IndexKey(s.prefix, userID)}, domain.Key(s.prefix, userID, "")).Int()
	if err != nil {
		return 0, autherr.Wrap(autherr.Unavailable, op, err)
	}
	return n, nil
}

// ListDevices returns the live sessions of userID ordered by device id, pruning index
// entries whose session has already expired.
func (s *RedisStore) ListDevices(ctx context.Context, userID string) ([]*domain.Session, error) {
	const op = "session.list_devices"
	idx := domain.IndexKey(s.prefix, userID)
	devices, err := s.client.SMembers(ctx, idx).Result()
	if err != nil {
		return nil, autherr.Wrap(autherr.Unavailable, op, err)
	}
	if len(devices) == 0 {
		return nil, nil
	}
	keys := make([]string, len(devices))
	for i, d := range devices {
		keys[i] = domain.Key(s.prefix, userID, d)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, autherr.Wrap(autherr.Unavailable, op, err)
	}
	var (
		out   []*domain.Session
		stale []any
	)
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, devices[i])
			continue
		}
		var sess domain.Session
		if err := json.Unmarshal([]byte(str), &sess); err != nil {
			return nil, fmt.Errorf("session: unmarshal %s: %w", op, err)
		}
		out = append(out, &sess)
	}
	if len(stale) > 0 {
		// A Put between MGET and here re-creates the key, so the script keeps that entry.
		args := append([]any{domain.Key(s.prefix, userID, "")}, stale...)
		_ = pruneScript.Run(ctx, s.client, []string{idx}, args...).Err()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
