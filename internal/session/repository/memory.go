package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"food-delivery-platform/auth/internal/platform/autherr"
	"food-delivery-platform/auth/internal/session/domain"
)

// MemoryStore is an in-process Store. Expired sessions are dropped on read.
type MemoryStore struct {
	mu     sync.Mutex
	prefix string
	m      map[string]*domain.Session
	byUser map[string]map[string]struct{}
	nowF   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore using prefix for its keys.
func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{
		prefix: prefix,
		m:      make(map[string]*domain.Session),
		byUser: make(map[string]map[string]struct{}),
		nowF:   time.Now,
	}
}

// SetClock replaces the store's time source. Intended for tests.
func (s *MemoryStore) SetClock(now func() time.Time) { s.nowF = now }

// Put stores a copy of sess, replacing any session on the same device.
func (s *MemoryStore) Put(ctx context.Context, sess *domain.Session) error {
	const op = "session.put"
	if err := domain.ValidateKeyParts(sess.UserID, sess.DeviceID); err != nil {
		return autherr.Wrap(autherr.Invalid, op, err)
	}
	if sess.TTL(s.nowF()) <= 0 {
		return autherr.New(autherr.Invalid, op)
	}
	c := *sess
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.Key(s.prefix)] = &c
	devices, ok := s.byUser[sess.UserID]
	if !ok {
		devices = make(map[string]struct{})
		s.byUser[sess.UserID] = devices
	}
	devices[sess.DeviceID] = struct{}{}
	return nil
}

// Get returns a copy of the session, or an autherr.NotFound error.
func (s *MemoryStore) Get(ctx context.Context, userID, deviceID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.liveLocked(userID, deviceID)
	if sess == nil {
		return nil, autherr.New(autherr.NotFound, "session.get")
	}
	c := *sess
	return &c, nil
}

// Revoke deletes the session for the pair. Absent sessions are ignored.
func (s *MemoryStore) Revoke(ctx context.Context, userID, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(userID, deviceID)
	return nil
}

// RevokeAll deletes all sessions of userID.
func (s *MemoryStore) RevokeAll(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for deviceID := range s.byUser[userID] {
		if s.liveLocked(userID, deviceID) != nil {
			n++
		}
		delete(s.m, domain.Key(s.prefix, userID, deviceID))
	}
	delete(s.byUser, userID)
	return n, nil
}

// ListDevices returns the live sessions of userID ordered by device id.
func (s *MemoryStore) ListDevices(ctx context.Context, userID string) ([]*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Session
	for deviceID := range s.byUser[userID] {
		if sess := s.liveLocked(userID, deviceID); sess != nil {
			c := *sess
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// liveLocked returns the stored session, evicting it first if it has expired.
func (s *MemoryStore) liveLocked(userID, deviceID string) *domain.Session {
	sess, ok := s.m[domain.Key(s.prefix, userID, deviceID)]
	if !ok {
		return nil
	}
	if sess.Expired(s.nowF()) {
		s.deleteLocked(userID, deviceID)
		return nil
	}
	return sess
}

func (s *MemoryStore) deleteLocked(userID, deviceID string) {
	delete(s.m, domain.Key(s.prefix, userID, deviceID))
	if devices, ok := s.byUser[userID]; ok {
		delete(devices, deviceID)
		if len(devices) == 0 {
			delete(s.byUser, userID)
		}
	}
}
