// Package locking provides the in-process LockPort used when Redis is not configured.
package locking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"course-video-service/domain/ports"
)

type entry struct {
	token     string
	expiresAt time.Time
}

// LocalLock mutual exclusion ภายใน process เดียว (API + worker ใน binary เดียว หรือ worker ตัวเดียว)
type LocalLock struct {
	mu    sync.Mutex
	held  map[string]entry
	clock func() time.Time
}

func NewLocalLock() *LocalLock {
	return &LocalLock{
		held:  make(map[string]entry),
		clock: time.Now,
	}
}

func (l *LocalLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[key]; ok && now.Before(e.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.held[key] = entry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (l *LocalLock) Release(ctx context.Context, key string, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.held[key]; ok && e.token == token {
		delete(l.held, key)
	}
	return nil
}

var _ ports.LockPort = (*LocalLock)(nil)
