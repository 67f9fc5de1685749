package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"food-delivery-platform/auth/internal/platform/autherr"
	"food-delivery-platform/auth/internal/session/domain"
)

func newSession(userID, deviceID string, now time.Time) *domain.Session {
	return &domain.Session{
		UserID:                  userID,
		DeviceID:                deviceID,
		Role:                    "user",
		RefreshTokenID:          uuid.New().String(),
		RefreshTokenFingerprint: "fp-" + deviceID,
		RefreshTokenExpiresAt:   now.Add(time.Hour),
		SessionExpiresAt:        now.Add(time.Hour),
		CreatedAt:               now,
	}
}

// exerciseStore runs the behaviour every Store backend must share.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	user := uuid.New().String()

	if _, err := s.Get(ctx, user, "dev-1"); autherr.KindOf(err) != autherr.NotFound {
		t.Fatalf("Get before Put: kind = %v, want NotFound", autherr.KindOf(err))
	}

	first := newSession(user, "dev-1", now)
	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, user, "dev-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RefreshTokenFingerprint != first.RefreshTokenFingerprint || got.Role != "user" {
		t.Errorf("Get = %+v", got)
	}

	second := newSession(user, "dev-1", now)
	second.RefreshTokenFingerprint = "fp-rotated"
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, _ = s.Get(ctx, user, "dev-1")
	if got.RefreshTokenFingerprint != "fp-rotated" {
		t.Errorf("after overwrite fingerprint = %q, want fp-rotated", got.RefreshTokenFingerprint)
	}

	if err := s.Put(ctx, newSession(user, "dev-2", now)); err != nil {
		t.Fatalf("Put dev-2: %v", err)
	}
	other := uuid.New().String()
	if err := s.Put(ctx, newSession(other, "dev-1", now)); err != nil {
		t.Fatalf("Put other user: %v", err)
	}
	devices, err := s.ListDevices(ctx, user)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 2 || devices[0].DeviceID != "dev-1" || devices[1].DeviceID != "dev-2" {
		t.Fatalf("ListDevices = %v, want dev-1 and dev-2", devices)
	}

	if err := s.Revoke(ctx, user, "dev-2"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := s.Revoke(ctx, user, "dev-2"); err != nil {
		t.Fatalf("Revoke twice should be idempotent: %v", err)
	}
	if _, err := s.Get(ctx, user, "dev-2"); autherr.KindOf(err) != autherr.NotFound {
		t.Errorf("Get after Revoke: kind = %v, want NotFound", autherr.KindOf(err))
	}

	if err := s.Put(ctx, newSession(user, "dev-3", now)); err != nil {
		t.Fatalf("Put dev-3: %v", err)
	}
	n, err := s.RevokeAll(ctx, user)
	if err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	if n != 2 {
		t.Errorf("RevokeAll removed %d, want 2", n)
	}
	for _, d := range []string{"dev-1", "dev-3"} {
		if _, err := s.Get(ctx, user, d); autherr.KindOf(err) != autherr.NotFound {
			t.Errorf("Get %s after RevokeAll: kind = %v, want NotFound", d, autherr.KindOf(err))
		}
	}
	if _, err := s.Get(ctx, other, "dev-1"); err != nil {
		t.Errorf("RevokeAll must not touch other users: %v", err)
	}
	if n, err := s.RevokeAll(ctx, user); err != nil || n != 0 {
		t.Errorf("RevokeAll on empty user = (%d, %v), want (0, nil)", n, err)
	}

	bad := newSession(user, "a:b", now)
	if err := s.Put(ctx, bad); autherr.KindOf(err) != autherr.Invalid {
		t.Errorf("Put with ':' in device id: kind = %v, want Invalid", autherr.KindOf(err))
	}
	expired := newSession(user, "dev-4", now.Add(-2*time.Hour))
	if err := s.Put(ctx, expired); autherr.KindOf(err) != autherr.Invalid {
		t.Errorf("Put already-expired session: kind = %v, want Invalid", autherr.KindOf(err))
	}
}

// exerciseConcurrentPut checks that racing writers on one device leave exactly one intact session.
func exerciseConcurrentPut(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	user := uuid.New().String()
	const writers = 16

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess := newSession(user, "dev-1", now)
			sess.RefreshTokenFingerprint = fmt.Sprintf("fp-%d", i)
			errs <- s.Put(ctx, sess)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	devices, err := s.ListDevices(ctx, user)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("ListDevices = %d sessions, want 1", len(devices))
	}
	got, err := s.Get(ctx, user, "dev-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var ok bool
	for i := 0; i < writers; i++ {
		ok = ok || got.RefreshTokenFingerprint == fmt.Sprintf("fp-%d", i)
	}
	if !ok || got.RefreshTokenID == "" {
		t.Errorf("stored session looks torn: %+v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore("test"))
}

func TestMemoryStore_ConcurrentPut(t *testing.T) {
	exerciseConcurrentPut(t, NewMemoryStore("test"))
}

func TestMemoryStore_ExpiresOnRead(t *testing.T) {
	s := NewMemoryStore("test")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })
	ctx := context.Background()
	if err := s.Put(ctx, newSession("u1", "dev-1", now)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	now = now.Add(time.Hour)
	if _, err := s.Get(ctx, "u1", "dev-1"); autherr.KindOf(err) != autherr.NotFound {
		t.Errorf("Get after expiry: kind = %v, want NotFound", autherr.KindOf(err))
	}
	if devices, _ := s.ListDevices(ctx, "u1"); len(devices) != 0 {
		t.Errorf("ListDevices after expiry = %v, want none", devices)
	}
}

// newTestRedis connects to TEST_REDIS_ADDR when set and to an in-process server otherwise.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = miniredis.RunT(t).Addr()
	}
	c := redis.NewClient(&redis.Options{Addr: addr})
	if err := c.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisStore(t *testing.T) {
	exerciseStore(t, NewRedisStore(newTestRedis(t), "test-"+uuid.New().String()[:8]))
}

func TestRedisStore_ConcurrentPut(t *testing.T) {
	exerciseConcurrentPut(t, NewRedisStore(newTestRedis(t), "test-"+uuid.New().String()[:8]))
}

func TestRedisStore_NativeTTL(t *testing.T) {
	c := newTestRedis(t)
	prefix := "test-" + uuid.New().String()[:8]
	s := NewRedisStore(c, prefix)
	ctx := context.Background()
	now := time.Now().UTC()
	sess := newSession("u1", "dev-1", now)
	sess.SessionExpiresAt = now.Add(30 * time.Minute)
	if err := s.Put(ctx, sess); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ttl, err := c.TTL(ctx, sess.Key(prefix)).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 29*time.Minute || ttl > 30*time.Minute {
		t.Errorf("key TTL = %v, want about 30m", ttl)
	}
	// An index entry whose session vanished is pruned by ListDevices.
	if err := c.Del(ctx, sess.Key(prefix)).Err(); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if devices, err := s.ListDevices(ctx, "u1"); err != nil || len(devices) != 0 {
		t.Errorf("ListDevices = (%v, %v), want empty", devices, err)
	}
	if n, _ := c.SCard(ctx, domain.IndexKey(prefix, "u1")).Result(); n != 0 {
		t.Errorf("index size = %d, want 0 after prune", n)
	}
}

// afterCmd runs fn once, right after the first successful command whose name is in names.
type afterCmd struct {
	names map[string]bool
	once  sync.Once
	fn    func()
}

func (h *afterCmd) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *afterCmd) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err == nil && h.names[cmd.Name()] {
			h.once.Do(h.fn)
		}
		return err
	}
}

func (h *afterCmd) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisStore_LoginDuringRevokeAllStaysRevocable(t *testing.T) {
	c := newTestRedis(t)
	prefix := "test-" + uuid.New().String()[:8]
	s := NewRedisStore(c, prefix)
	ctx := context.Background()
	now := time.Now().UTC()
	if err := s.Put(ctx, newSession("u1", "d1", now)); err != nil {
		t.Fatalf("Put d1: %v", err)
	}
	// A login on a new device lands right after the revoke reaches the server.
	c.AddHook(&afterCmd{names: map[string]bool{"eval": true, "evalsha": true}, fn: func() {
		if err := s.Put(ctx, newSession("u1", "d2", now)); err != nil {
			t.Errorf("Put d2: %v", err)
		}
	}})

	n, err := s.RevokeAll(ctx, "u1")
	if err != nil || n != 1 {
		t.Fatalf("RevokeAll = (%d, %v), want (1, nil)", n, err)
	}
	if ok, _ := c.SIsMember(ctx, domain.IndexKey(prefix, "u1"), "d2").Result(); !ok {
		t.Error("session written after RevokeAll is missing from the index")
	}
	n, err = s.RevokeAll(ctx, "u1")
	if err != nil || n != 1 {
		t.Errorf("second RevokeAll = (%d, %v), want (1, nil)", n, err)
	}
	if _, err := s.Get(ctx, "u1", "d2"); autherr.KindOf(err) != autherr.NotFound {
		t.Errorf("d2 after second RevokeAll: kind = %v, want NotFound", autherr.KindOf(err))
	}
}

func TestRedisStore_ConcurrentLoginAndRevokeAll(t *testing.T) {
	c := newTestRedis(t)
	prefix := "test-" + uuid.New().String()[:8]
	s := NewRedisStore(c, prefix)
	ctx := context.Background()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if err := s.Put(ctx, newSession("u1", fmt.Sprintf("dev-%d", i), now)); err != nil {
				t.Errorf("Put: %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := s.RevokeAll(ctx, "u1"); err != nil {
				t.Errorf("RevokeAll: %v", err)
			}
		}()
	}
	wg.Wait()

	// Whatever survived the race must still be reachable through the index.
	if _, err := s.RevokeAll(ctx, "u1"); err != nil {
		t.Fatalf("final RevokeAll: %v", err)
	}
	keys, err := c.Keys(ctx, domain.Key(prefix, "u1", "*")).Result()
	if err != nil {
		t.Fatalf("KEYS: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("sessions left after RevokeAll: %v", keys)
	}
}

func TestRedisStore_PruneKeepsRecreatedSession(t *testing.T) {
	c := newTestRedis(t)
	prefix := "test-" + uuid.New().String()[:8]
	s := NewRedisStore(c, prefix)
	ctx := context.Background()
	now := time.Now().UTC()
	sess := newSession("u1", "dev-1", now)
	if err := s.Put(ctx, sess); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Del(ctx, sess.Key(prefix)).Err(); err != nil {
		t.Fatalf("Del: %v", err)
	}
	// The device logs in again between the read and the prune.
	c.AddHook(&afterCmd{names: map[string]bool{"mget": true}, fn: func() {
		if err := s.Put(ctx, newSession("u1", "dev-1", now)); err != nil {
			t.Errorf("Put again: %v", err)
		}
	}})
	if _, err := s.ListDevices(ctx, "u1"); err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if ok, _ := c.SIsMember(ctx, domain.IndexKey(prefix, "u1"), "dev-1").Result(); !ok {
		t.Error("prune dropped the index entry of a live session")
	}
	if n, err := s.RevokeAll(ctx, "u1"); err != nil || n != 1 {
		t.Errorf("RevokeAll = (%d, %v), want (1, nil)", n, err)
	}
}
