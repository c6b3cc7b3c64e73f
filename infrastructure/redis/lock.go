package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"course-video-service/domain/ports"
)

// releaseScript ลบ key เฉพาะเมื่อ token ตรงกับผู้ถือ
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock implements LockPort ด้วย SET NX PX (ใช้ข้าม worker หลายเครื่อง)
type Lock struct {
	client *Client
}

func NewLock(client *Client) *Lock {
	return &Lock{client: client}
}

func (l *Lock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *Lock) Release(ctx context.Context, key string, token string) error {
	return releaseScript.Run(ctx, l.client.rdb, []string{key}, token).Err()
}

var _ ports.LockPort = (*Lock)(nil)
